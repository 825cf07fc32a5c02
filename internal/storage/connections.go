package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/riverfold/querymind/internal/model"
)

// ConnectionRepository implements model.ConnectionResolver (the
// (connectionID, ownerID) -> ConnectionRecord seam C3 depends on),
// grounded in pkg/services pattern of a thin Ent-free SQL query wrapped
// in a small repository type.
type ConnectionRepository struct {
	db *sql.DB
}

// NewConnectionRepository builds a ConnectionRepository over client.
func NewConnectionRepository(client *Client) *ConnectionRepository {
	return &ConnectionRepository{db: client.DB}
}

// Resolve reads the connection record and enforces (connectionID,
// ownerID) ownership: a row that exists but belongs to a different owner
// resolves the same as a missing row per spec.md §3 ("refuses mismatches").
func (r *ConnectionRepository) Resolve(ctx context.Context, connectionID, ownerID string) (*model.ConnectionRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, kind, host, port, database, username, secret, detail_json
		FROM connections WHERE id = $1`, connectionID)

	var (
		rec        model.ConnectionRecord
		kind       string
		detailJSON []byte
	)
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &kind, &rec.Host, &rec.Port,
		&rec.Database, &rec.Username, &rec.Secret, &detailJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilerr // not-found resolves to "no connection", not an error
	}
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != ownerID {
		return nil, nil
	}

	rec.Kind = model.SourceKind(kind)
	var detail map[string]any
	if len(detailJSON) > 0 {
		if err := json.Unmarshal(detailJSON, &detail); err != nil {
			return nil, err
		}
	}
	rec.DetailJSON = detail

	return &rec, nil
}
