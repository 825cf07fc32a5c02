package planexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfold/querymind/internal/datasource"
	"github.com/riverfold/querymind/internal/model"
)

type fakeAdapter struct {
	id      string
	name    string
	execute func(req model.DataRequest) (model.ExecutionResult, error)
}

func (f *fakeAdapter) ID() string                     { return f.id }
func (f *fakeAdapter) Name() string                   { return f.name }
func (f *fakeAdapter) Kind() model.SourceKind          { return model.SourceKindPostgreSQL }
func (f *fakeAdapter) IsAvailable(ctx context.Context) bool { return true }
func (f *fakeAdapter) ExtractSchema(ctx context.Context) (*model.SourceSchema, error) {
	return nil, nil
}
func (f *fakeAdapter) Execute(ctx context.Context, req model.DataRequest) (model.ExecutionResult, error) {
	return f.execute(req)
}
func (f *fakeAdapter) Close() error { return nil }

// fakeRegistry satisfies the Registry interface without routing through
// model.ConnectionResolver, so tests can exercise the executor in
// isolation from C3's construction machinery.
type fakeRegistry struct {
	adapters map[string]datasource.Adapter
	denied   map[string]bool
}

func (r *fakeRegistry) GetDataSourceByConnectionID(ctx context.Context, connectionID, ownerID string) (datasource.Adapter, error) {
	if r.denied[connectionID] {
		return nil, nil
	}
	return r.adapters[connectionID], nil
}

func TestExecute_Parallel_GroupsByConnection(t *testing.T) {
	calls := make([]string, 0)
	reg := &fakeRegistry{adapters: map[string]datasource.Adapter{
		"1": &fakeAdapter{id: "1", name: "primary", execute: func(req model.DataRequest) (model.ExecutionResult, error) {
			calls = append(calls, req.SQL)
			return model.ExecutionResult{Success: true, Rows: []map[string]any{{"id": 1}}, RowCount: 1}, nil
		}},
	}}
	exec := NewExecutor(reg)

	requests := []model.DataRequest{
		{Kind: model.RequestKindSQLQuery, SQL: "SELECT 1"},
		{Kind: model.RequestKindSQLQuery, SQL: "SELECT 2"},
	}
	results := exec.Execute(context.Background(), requests, []string{"1"}, "owner-1")

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.ElementsMatch(t, []string{"SELECT 1", "SELECT 2"}, calls)
}

func TestExecute_Chained_SubstitutesOutputIntoDependent(t *testing.T) {
	var secondSQL string
	reg := &fakeRegistry{adapters: map[string]datasource.Adapter{
		"1": &fakeAdapter{id: "1", name: "primary", execute: func(req model.DataRequest) (model.ExecutionResult, error) {
			if *req.Step == 1 {
				return model.ExecutionResult{Success: true, Rows: []map[string]any{{"user_id": 42}}, RowCount: 1}, nil
			}
			secondSQL = req.SQL
			return model.ExecutionResult{Success: true, Rows: []map[string]any{{"total": 7}}, RowCount: 1}, nil
		}},
	}}
	exec := NewExecutor(reg)

	step1, step2, dep := 1, 2, 1
	requests := []model.DataRequest{
		{Kind: model.RequestKindSQLQuery, Step: &step1, SQL: "SELECT id AS user_id FROM users LIMIT 1", OutputAs: "$uid", OutputField: "user_id"},
		{Kind: model.RequestKindSQLQuery, Step: &step2, DependsOn: &dep, SQL: "SELECT count(*) AS total FROM orders WHERE user_id = $uid"},
	}
	results := exec.Execute(context.Background(), requests, []string{"1"}, "owner-1")

	require.Len(t, results, 2)
	assert.Equal(t, "SELECT count(*) AS total FROM orders WHERE user_id = 42", secondSQL)
	assert.True(t, results[1].Success)
}

func TestExecute_OwnershipDenied_ProducesErrorResult(t *testing.T) {
	reg := &fakeRegistry{
		adapters: map[string]datasource.Adapter{},
		denied:   map[string]bool{"1": true},
	}
	exec := NewExecutor(reg)

	results := exec.Execute(context.Background(), []model.DataRequest{
		{Kind: model.RequestKindSQLQuery, SQL: "SELECT 1"},
	}, []string{"1"}, "owner-1")

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].ErrorMessage, "not found")
}

func TestExecute_OutputField_CaseInsensitiveAndMultiRowJoin(t *testing.T) {
	var secondSQL string
	reg := &fakeRegistry{adapters: map[string]datasource.Adapter{
		"1": &fakeAdapter{id: "1", name: "primary", execute: func(req model.DataRequest) (model.ExecutionResult, error) {
			if *req.Step == 1 {
				return model.ExecutionResult{
					Success: true,
					Rows: []map[string]any{
						{"UserID": 1},
						{"UserID": 2},
					},
					RowCount: 2,
				}, nil
			}
			secondSQL = req.SQL
			return model.ExecutionResult{Success: true, Rows: nil}, nil
		}},
	}}
	exec := NewExecutor(reg)

	step1, step2, dep := 1, 2, 1
	requests := []model.DataRequest{
		{Kind: model.RequestKindSQLQuery, Step: &step1, SQL: "SELECT id AS UserID FROM users", OutputAs: "$uids", OutputField: "userid"},
		{Kind: model.RequestKindSQLQuery, Step: &step2, DependsOn: &dep, SQL: "SELECT * FROM orders WHERE user_id IN ($uids)"},
	}

	results := exec.executeChained(context.Background(), requests, []string{"1"}, "owner-1")
	require.Len(t, results, 2)
	assert.Equal(t, "SELECT * FROM orders WHERE user_id IN (1, 2)", secondSQL)
}

func TestResolveConnectionID_PrefersSourceIDWhenPresentInCallerList(t *testing.T) {
	got := resolveConnectionID(model.DataRequest{SourceID: "2"}, []string{"1", "2", "3"})
	assert.Equal(t, "2", got)
}

func TestResolveConnectionID_RefusesToGuessAcrossMultipleConnections(t *testing.T) {
	got := resolveConnectionID(model.DataRequest{SourceID: "99"}, []string{"1", "2"})
	assert.Equal(t, "", got)
}

func TestResolveConnectionID_RefusesToGuessWithNoConnections(t *testing.T) {
	got := resolveConnectionID(model.DataRequest{}, nil)
	assert.Equal(t, "", got)
}

func TestResolveConnectionID_SingleConnectionFallback(t *testing.T) {
	got := resolveConnectionID(model.DataRequest{}, []string{"7"})
	assert.Equal(t, "7", got)
}
