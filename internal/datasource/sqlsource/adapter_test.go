package sqlsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfold/querymind/internal/datasource"
	"github.com/riverfold/querymind/internal/model"
)

func TestNew_BuildsDSNFromConnectionRecord(t *testing.T) {
	conn := &model.ConnectionRecord{
		ID: "1", Name: "primary", Kind: model.SourceKindPostgreSQL,
		Host: "db.internal", Port: 5432, Username: "svc", Secret: "s3cr3t", Database: "app",
	}
	a, err := New(conn)
	require.NoError(t, err)

	adapter := a.(*Adapter)
	assert.Equal(t, "1", adapter.ID())
	assert.Equal(t, "primary", adapter.Name())
	assert.Equal(t, model.SourceKindPostgreSQL, adapter.Kind())
	assert.Contains(t, adapter.dsn, "sslmode=prefer")
}

func TestNew_HonorsExplicitSSLModeFromDetailJSON(t *testing.T) {
	conn := &model.ConnectionRecord{
		ID: "1", Kind: model.SourceKindPostgreSQL,
		Host: "db.internal", Port: 5432, Username: "svc", Secret: "s3cr3t", Database: "app",
		DetailJSON: map[string]any{"sslmode": "require"},
	}
	a, err := New(conn)
	require.NoError(t, err)
	assert.Contains(t, a.(*Adapter).dsn, "sslmode=require")
}

func TestExecute_RejectsNonSQLRequestKind(t *testing.T) {
	a := &Adapter{id: "1", dsn: "host=nope port=1 user=x password=x dbname=x sslmode=disable"}
	_, err := a.Execute(context.Background(), model.DataRequest{Kind: model.RequestKindMongoQuery})
	require.Error(t, err)
	var kindErr *datasource.ErrInvalidRequestKind
	assert.ErrorAs(t, err, &kindErr)
}

func TestExecute_RejectsUnsafeStatementBeforeOpeningConnection(t *testing.T) {
	// dsn intentionally unreachable: an unsafe statement must be rejected by
	// sqlsafety.Validate before the adapter ever attempts to open it.
	a := &Adapter{id: "1", dsn: "host=127.0.0.1 port=1 user=x password=x dbname=x sslmode=disable"}
	result, err := a.Execute(context.Background(), model.DataRequest{
		Kind: model.RequestKindSQLQuery,
		SQL:  "DELETE FROM users",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestIsAvailable_ReturnsFalseForUnreachableHost(t *testing.T) {
	a := &Adapter{id: "1", dsn: "host=127.0.0.1 port=1 user=x password=x dbname=x sslmode=disable"}
	assert.False(t, a.IsAvailable(context.Background()))
}

func TestIsSystemTable(t *testing.T) {
	cases := map[string]bool{
		"pg_catalog_thing":   true,
		"information_schema": true,
		"mysql_user":         true,
		"orders":             false,
		"users":              false,
	}
	for name, want := range cases {
		assert.Equal(t, want, isSystemTable(name), "table %q", name)
	}
}

func TestIsSimpleIdentifier(t *testing.T) {
	assert.True(t, isSimpleIdentifier("orders"))
	assert.True(t, isSimpleIdentifier("user_accounts_2"))
	assert.False(t, isSimpleIdentifier(""))
	assert.False(t, isSimpleIdentifier("orders; DROP TABLE users"))
	assert.False(t, isSimpleIdentifier("orders\""))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"orders"`, quoteIdent("orders"))
	assert.Equal(t, `"weird""name"`, quoteIdent(`weird"name`))
}
