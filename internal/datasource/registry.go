package datasource

import (
	"context"
	"fmt"
	"sync"

	"github.com/riverfold/querymind/internal/model"
)

// Factory builds a fresh Adapter for a connection record. One Factory is
// registered per SourceKind.
type Factory func(conn *model.ConnectionRecord) (Adapter, error)

// onceResult holds the outcome of a single in-flight Factory call. It is
// shared by every goroutine waiting on the same sync.Once, so a failed
// construction is visible to the losing goroutines too, not just the one
// that ran the closure.
type onceResult struct {
	once    sync.Once
	adapter Adapter
	err     error
}

// Registry resolves a connection record to a cached Adapter (C3). Adapter
// creation is idempotent: a cache hit never reconstructs. Eviction closes
// the underlying pooled handle.
type Registry struct {
	resolver  model.ConnectionResolver
	factories map[model.SourceKind]Factory

	mu       sync.RWMutex
	cache    map[string]Adapter // connectionID -> adapter
	inFlight map[string]*onceResult
}

// NewRegistry creates a Registry backed by the given connection resolver.
func NewRegistry(resolver model.ConnectionResolver) *Registry {
	return &Registry{
		resolver:  resolver,
		factories: make(map[model.SourceKind]Factory),
		cache:     make(map[string]Adapter),
		inFlight:  make(map[string]*onceResult),
	}
}

// Register wires a Factory for a given SourceKind. Called once per kind at
// startup.
func (r *Registry) Register(kind model.SourceKind, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// GetDataSource returns a cached adapter for conn, creating one on miss.
// Adapter construction for a given connection ID happens at most once even
// under concurrent callers (compare-and-swap via sync.Once keyed by ID).
func (r *Registry) GetDataSource(conn *model.ConnectionRecord) (Adapter, error) {
	r.mu.RLock()
	if a, ok := r.cache[conn.ID]; ok {
		r.mu.RUnlock()
		return a, nil
	}
	r.mu.RUnlock()

	if !conn.Kind.IsValid() {
		return nil, fmt.Errorf("%s: %s", model.ErrCodeUnknownSourceKind, conn.Kind)
	}

	r.mu.Lock()
	// Recheck the cache under the write lock: a caller that finished
	// constructing (and removed its inFlight entry) between our read-locked
	// miss above and here must not trigger a second construction.
	if a, ok := r.cache[conn.ID]; ok {
		r.mu.Unlock()
		return a, nil
	}
	res, exists := r.inFlight[conn.ID]
	if !exists {
		res = &onceResult{}
		r.inFlight[conn.ID] = res
	}
	r.mu.Unlock()

	res.once.Do(func() {
		r.mu.RLock()
		factory, ok := r.factories[conn.Kind]
		r.mu.RUnlock()
		if !ok {
			res.err = fmt.Errorf("%s: no adapter factory registered for %s", model.ErrCodeUnknownSourceKind, conn.Kind)
			return
		}
		a, err := factory(conn)
		if err != nil {
			res.err = err
			return
		}
		r.mu.Lock()
		r.cache[conn.ID] = a
		r.mu.Unlock()
		res.adapter = a
	})

	r.mu.Lock()
	delete(r.inFlight, conn.ID)
	r.mu.Unlock()

	// res.err/res.adapter are written exactly once inside once.Do, before
	// it returns to any caller (winner or waiter), so reading them here
	// without further synchronization is safe.
	if res.err != nil {
		return nil, res.err
	}
	return res.adapter, nil
}

// GetDataSourceByConnectionID resolves the connection record by (id,
// ownerID) through the resolver, enforcing ownership, then returns its
// adapter. Returns (nil, nil) on an owner mismatch per spec.md §4.3.
func (r *Registry) GetDataSourceByConnectionID(ctx context.Context, connectionID, ownerID string) (Adapter, error) {
	conn, err := r.resolver.Resolve(ctx, connectionID, ownerID)
	if err != nil {
		return nil, nil //nolint:nilerr // ownership mismatch / not-found resolves to "no adapter", not an error
	}
	if conn == nil {
		return nil, nil
	}
	return r.GetDataSource(conn)
}

// ClearCache evicts the adapter for connectionID, closing its pooled
// handle first. Safe to call when no adapter is cached.
func (r *Registry) ClearCache(connectionID string) {
	r.mu.Lock()
	a, ok := r.cache[connectionID]
	if ok {
		delete(r.cache, connectionID)
	}
	r.mu.Unlock()

	if ok {
		_ = a.Close()
	}
}
