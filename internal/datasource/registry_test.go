package datasource

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfold/querymind/internal/model"
)

type stubAdapter struct {
	id     string
	closed bool
}

func (a *stubAdapter) ID() string                     { return a.id }
func (a *stubAdapter) Name() string                   { return a.id }
func (a *stubAdapter) Kind() model.SourceKind          { return model.SourceKindPostgreSQL }
func (a *stubAdapter) IsAvailable(ctx context.Context) bool { return true }
func (a *stubAdapter) ExtractSchema(ctx context.Context) (*model.SourceSchema, error) {
	return nil, nil
}
func (a *stubAdapter) Execute(ctx context.Context, req model.DataRequest) (model.ExecutionResult, error) {
	return model.ExecutionResult{}, nil
}
func (a *stubAdapter) Close() error { a.closed = true; return nil }

func TestGetDataSource_CachesAfterFirstConstruction(t *testing.T) {
	var calls int32
	reg := NewRegistry(nil)
	reg.Register(model.SourceKindPostgreSQL, func(conn *model.ConnectionRecord) (Adapter, error) {
		atomic.AddInt32(&calls, 1)
		return &stubAdapter{id: conn.ID}, nil
	})

	conn := &model.ConnectionRecord{ID: "1", Kind: model.SourceKindPostgreSQL}
	a1, err := reg.GetDataSource(conn)
	require.NoError(t, err)
	a2, err := reg.GetDataSource(conn)
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetDataSource_ConcurrentCallersConstructExactlyOnce(t *testing.T) {
	var calls int32
	reg := NewRegistry(nil)
	reg.Register(model.SourceKindPostgreSQL, func(conn *model.ConnectionRecord) (Adapter, error) {
		atomic.AddInt32(&calls, 1)
		return &stubAdapter{id: conn.ID}, nil
	})

	conn := &model.ConnectionRecord{ID: "1", Kind: model.SourceKindPostgreSQL}
	const n = 50
	results := make([]Adapter, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			a, err := reg.GetDataSource(conn)
			require.NoError(t, err)
			results[i] = a
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, a := range results {
		assert.Same(t, results[0], a)
	}
}

// TestGetDataSource_FailedConstructionPropagatesToEveryWaiter guards against
// the once.Do outcome being visible only to the goroutine that ran the
// closure: every concurrent caller for the same connection ID must observe
// the factory's error, not a nil/nil fallthrough.
func TestGetDataSource_FailedConstructionPropagatesToEveryWaiter(t *testing.T) {
	wantErr := fmt.Errorf("connection refused")
	reg := NewRegistry(nil)
	reg.Register(model.SourceKindPostgreSQL, func(conn *model.ConnectionRecord) (Adapter, error) {
		return nil, wantErr
	})

	conn := &model.ConnectionRecord{ID: "1", Kind: model.SourceKindPostgreSQL}
	const n = 50
	errs := make([]error, n)
	adapters := make([]Adapter, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			a, err := reg.GetDataSource(conn)
			errs[i] = err
			adapters[i] = a
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.Nil(t, adapters[i], "caller %d should not receive an adapter on failure", i)
		require.Error(t, errs[i], "caller %d should observe the construction error, not (nil, nil)", i)
		assert.Contains(t, errs[i].Error(), "connection refused")
	}
}

func TestGetDataSource_RetriesAfterPriorFailure(t *testing.T) {
	var calls int32
	reg := NewRegistry(nil)
	reg.Register(model.SourceKindPostgreSQL, func(conn *model.ConnectionRecord) (Adapter, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return nil, fmt.Errorf("transient failure")
		}
		return &stubAdapter{id: conn.ID}, nil
	})

	conn := &model.ConnectionRecord{ID: "1", Kind: model.SourceKindPostgreSQL}
	_, err := reg.GetDataSource(conn)
	require.Error(t, err)

	a, err := reg.GetDataSource(conn)
	require.NoError(t, err)
	require.NotNil(t, a)
}

func TestGetDataSource_UnknownKindReturnsError(t *testing.T) {
	reg := NewRegistry(nil)
	conn := &model.ConnectionRecord{ID: "1", Kind: model.SourceKind("BOGUS")}

	_, err := reg.GetDataSource(conn)
	assert.Error(t, err)
}

func TestGetDataSource_NoFactoryRegisteredReturnsError(t *testing.T) {
	reg := NewRegistry(nil)
	conn := &model.ConnectionRecord{ID: "1", Kind: model.SourceKindPostgreSQL}

	_, err := reg.GetDataSource(conn)
	assert.Error(t, err)
}

type fakeResolver struct {
	conn *model.ConnectionRecord
	err  error
}

func (r *fakeResolver) Resolve(ctx context.Context, connectionID, ownerID string) (*model.ConnectionRecord, error) {
	return r.conn, r.err
}

func TestGetDataSourceByConnectionID_OwnerMismatchReturnsNilNil(t *testing.T) {
	reg := NewRegistry(&fakeResolver{err: fmt.Errorf("not found")})
	a, err := reg.GetDataSourceByConnectionID(context.Background(), "1", "owner")
	assert.NoError(t, err)
	assert.Nil(t, a)
}

func TestGetDataSourceByConnectionID_ResolvesAndConstructs(t *testing.T) {
	conn := &model.ConnectionRecord{ID: "1", OwnerID: "owner", Kind: model.SourceKindPostgreSQL}
	reg := NewRegistry(&fakeResolver{conn: conn})
	reg.Register(model.SourceKindPostgreSQL, func(conn *model.ConnectionRecord) (Adapter, error) {
		return &stubAdapter{id: conn.ID}, nil
	})

	a, err := reg.GetDataSourceByConnectionID(context.Background(), "1", "owner")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "1", a.ID())
}

func TestClearCache_ClosesAndEvicts(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(model.SourceKindPostgreSQL, func(conn *model.ConnectionRecord) (Adapter, error) {
		return &stubAdapter{id: conn.ID}, nil
	})
	conn := &model.ConnectionRecord{ID: "1", Kind: model.SourceKindPostgreSQL}
	a1, err := reg.GetDataSource(conn)
	require.NoError(t, err)

	reg.ClearCache("1")
	assert.True(t, a1.(*stubAdapter).closed, "ClearCache should close the evicted adapter")

	var calls int32
	reg.factories[model.SourceKindPostgreSQL] = func(c *model.ConnectionRecord) (Adapter, error) {
		atomic.AddInt32(&calls, 1)
		return &stubAdapter{id: c.ID}, nil
	}
	a2, err := reg.GetDataSource(conn)
	require.NoError(t, err)
	assert.NotSame(t, a1, a2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
