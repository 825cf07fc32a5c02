package redissource

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfold/querymind/internal/datasource"
	"github.com/riverfold/querymind/internal/model"
)

func unreachableOpts() *redis.Options {
	return &redis.Options{Addr: "127.0.0.1:1", DialTimeout: time.Millisecond}
}

func TestNew_BuildsOptionsFromConnectionRecord(t *testing.T) {
	conn := &model.ConnectionRecord{
		ID: "1", Name: "cache", Kind: model.SourceKindRedis,
		Host: "redis.internal", Port: 6379, Secret: "s3cr3t",
		DetailJSON: map[string]any{"db": float64(3)},
	}
	a, err := New(conn)
	require.NoError(t, err)

	adapter := a.(*Adapter)
	assert.Equal(t, "1", adapter.ID())
	assert.Equal(t, "cache", adapter.Name())
	assert.Equal(t, model.SourceKindRedis, adapter.Kind())
	assert.Equal(t, "redis.internal:6379", adapter.opts.Addr)
	assert.Equal(t, "s3cr3t", adapter.opts.Password)
	assert.Equal(t, 3, adapter.opts.DB)
}

func TestNew_DefaultsDBToZero(t *testing.T) {
	conn := &model.ConnectionRecord{ID: "1", Kind: model.SourceKindRedis, Host: "h", Port: 6379}
	a, err := New(conn)
	require.NoError(t, err)
	assert.Equal(t, 0, a.(*Adapter).opts.DB)
}

func TestExecute_RejectsNonSQLRequestKind(t *testing.T) {
	a := &Adapter{id: "1", opts: unreachableOpts()}
	_, err := a.Execute(context.Background(), model.DataRequest{Kind: model.RequestKindMongoQuery})
	require.Error(t, err)
	var kindErr *datasource.ErrInvalidRequestKind
	assert.ErrorAs(t, err, &kindErr)
}

func TestExecute_RejectsEmptyCommand(t *testing.T) {
	a := &Adapter{id: "1", opts: unreachableOpts()}
	result, err := a.Execute(context.Background(), model.DataRequest{Kind: model.RequestKindSQLQuery, SQL: "   "})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "empty")
}

func TestExecute_RejectsWriteCommandsBeforeDialing(t *testing.T) {
	// opts points nowhere reachable; a write command must be rejected by
	// the allowlist before the adapter ever dials out.
	a := &Adapter{id: "1", opts: unreachableOpts()}
	for _, cmd := range []string{"SET foo bar", "DEL foo", "FLUSHALL", "EXPIRE foo 10"} {
		result, err := a.Execute(context.Background(), model.DataRequest{Kind: model.RequestKindSQLQuery, SQL: cmd})
		require.NoError(t, err)
		assert.False(t, result.Success, cmd)
		assert.Contains(t, result.ErrorMessage, "read-only", cmd)
	}
}

func TestReadOnlyCommands_AllowsExpectedCommands(t *testing.T) {
	for _, cmd := range []string{"GET", "MGET", "HGETALL", "SCAN", "KEYS", "DBSIZE"} {
		assert.True(t, readOnlyCommands[cmd], cmd)
	}
	for _, cmd := range []string{"SET", "DEL", "FLUSHALL", "EXPIRE", "SHUTDOWN"} {
		assert.False(t, readOnlyCommands[cmd], cmd)
	}
}

func TestResultToRows(t *testing.T) {
	rows := resultToRows(map[any]any{"field1": "v1"})
	require.Len(t, rows, 1)
	assert.Equal(t, "field1", rows[0]["field"])
	assert.Equal(t, "v1", rows[0]["value"])

	rows = resultToRows([]any{"a", "b"})
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0]["value"])

	assert.Nil(t, resultToRows(nil))

	rows = resultToRows("scalar")
	require.Len(t, rows, 1)
	assert.Equal(t, "scalar", rows[0]["value"])
}

func TestColumnsOf(t *testing.T) {
	assert.Nil(t, columnsOf(nil))
	cols := columnsOf([]map[string]any{{"key": "a", "type": "string"}})
	assert.ElementsMatch(t, []string{"key", "type"}, cols)
}
