// Package datasource defines the uniform Data Source Adapter contract (C2)
// and the per-kind constructors wired into the registry (C3).
package datasource

import (
	"context"

	"github.com/riverfold/querymind/internal/model"
)

// Adapter is the uniform contract every data source kind implements.
// Instances are owned exclusively by the Registry; callers borrow a
// reference for the duration of one request and must not retain it.
type Adapter interface {
	ID() string
	Name() string
	Kind() model.SourceKind

	// IsAvailable performs a lightweight liveness probe. It must never
	// panic or block longer than a few seconds; a failed probe returns
	// false, not an error.
	IsAvailable(ctx context.Context) bool

	// ExtractSchema implements C1 for this adapter's kind.
	ExtractSchema(ctx context.Context) (*model.SourceSchema, error)

	// Execute runs one DataRequest. Adapters reject requests whose Kind
	// does not match their own with ErrInvalidRequestKind.
	Execute(ctx context.Context, req model.DataRequest) (model.ExecutionResult, error)

	// Close releases any pooled resources. Called only by the registry on
	// eviction, never by a borrowing caller.
	Close() error
}

// ErrInvalidRequestKind is returned by Execute when a request's Kind is
// incompatible with the adapter's own kind.
type ErrInvalidRequestKind struct {
	Adapter model.SourceKind
	Request model.RequestKind
}

func (e *ErrInvalidRequestKind) Error() string {
	return "adapter " + string(e.Adapter) + " cannot execute request kind " + string(e.Request)
}
