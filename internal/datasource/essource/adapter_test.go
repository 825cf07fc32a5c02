package essource

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfold/querymind/internal/datasource"
	"github.com/riverfold/querymind/internal/model"
)

func TestNew_BuildsAdapterFromConnectionRecord(t *testing.T) {
	conn := &model.ConnectionRecord{
		ID: "1", Name: "logs", Kind: model.SourceKindElastic,
		Host: "es.internal", Port: 9200, Username: "svc", Secret: "s3cr3t", Database: "logs",
	}
	a, err := New(conn)
	require.NoError(t, err)

	adapter := a.(*Adapter)
	assert.Equal(t, "1", adapter.ID())
	assert.Equal(t, "logs", adapter.Name())
	assert.Equal(t, model.SourceKindElastic, adapter.Kind())
}

func TestNew_AcceptsExplicitScheme(t *testing.T) {
	conn := &model.ConnectionRecord{
		ID: "1", Kind: model.SourceKindElastic, Host: "es.internal", Port: 9243,
		DetailJSON: map[string]any{"scheme": "https"},
	}
	_, err := New(conn)
	require.NoError(t, err)
}

func TestExecute_RejectsNonESRequestKind(t *testing.T) {
	a := &Adapter{id: "1"}
	_, err := a.Execute(context.Background(), model.DataRequest{Kind: model.RequestKindSQLQuery})
	require.Error(t, err)
	var kindErr *datasource.ErrInvalidRequestKind
	assert.ErrorAs(t, err, &kindErr)
}

func TestCompactTypeToken(t *testing.T) {
	cases := []struct {
		esType string
		prop   map[string]any
		want   string
	}{
		{"text", nil, "text"},
		{"keyword", nil, "keyword"},
		{"long", nil, "long"},
		{"geo_point", nil, "geo_point"},
		{"", map[string]any{"properties": map[string]any{}}, "object"},
		{"", map[string]any{}, "unknown"},
		{"weird_custom_type", nil, "unknown"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, compactTypeToken(c.esType, c.prop), c.esType)
	}
}

func TestInjectSize_AddsSizeWhenAbsent(t *testing.T) {
	out := injectSize(`{"query":{"match_all":{}}}`, 25)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.EqualValues(t, 25, m["size"])
}

func TestInjectSize_LeavesExplicitSizeUntouched(t *testing.T) {
	out := injectSize(`{"size":5,"query":{"match_all":{}}}`, 25)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.EqualValues(t, 5, m["size"])
}

func TestInjectSize_ReturnsBodyUnchangedOnMalformedJSON(t *testing.T) {
	assert.Equal(t, "not json", injectSize("not json", 10))
}

func TestColumnsOf(t *testing.T) {
	assert.Nil(t, columnsOf(nil))
	cols := columnsOf([]map[string]any{{"_id": "1", "name": "a"}})
	assert.ElementsMatch(t, []string{"_id", "name"}, cols)
}
