// Package sqlsource implements the relational Data Source Adapter (C2) for
// every SQL-family connection kind. Grounded in the teacher's
// pkg/database/client.go connection-pooling shape (database/sql over the
// pgx stdlib driver) and pkg/database/health.go's ping-based probe, but
// retargeted from a single fixed Postgres pool to one read-only connection
// opened per ExtractSchema/Execute call, matching spec.md's Design Notes:
// "the invariant is that no query ever commits."
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/riverfold/querymind/internal/datasource"
	"github.com/riverfold/querymind/internal/datasource/sqlsafety"
	"github.com/riverfold/querymind/internal/model"
	"github.com/riverfold/querymind/internal/redact"
)

// statementTimeout is the per-query ceiling from spec.md §4.2 step 2.
const statementTimeout = 30 * time.Second

// sampleRowLimit is the default k in "SELECT * FROM <table> LIMIT k" used
// to ground the AI in real data shapes, per spec.md §4.1.
const sampleRowLimit = 3

// systemSchemaPrefixes filters catalog/system tables out of introspection,
// per spec.md §4.1 ("pg_*, information_schema, mysql.*").
var systemSchemaPrefixes = []string{"pg_", "information_schema", "mysql"}

// Adapter implements datasource.Adapter for a Postgres-wire-compatible
// connection (POSTGRESQL, SUPABASE, and — via the same wire protocol —
// CLICKHOUSE/STARROCKS deployments fronted by a pg-compatible proxy; see
// DESIGN.md for why MYSQL/SQLITE/SNOWFLAKE/BIGQUERY are not wired to a
// driver in this repo).
type Adapter struct {
	id, name string
	kind     model.SourceKind
	dsn      string
}

// New builds a SQL Adapter from a connection record. It does not open any
// connection eagerly; each ExtractSchema/Execute call opens, uses, and
// closes its own connection.
func New(conn *model.ConnectionRecord) (datasource.Adapter, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=prefer",
		conn.Host, conn.Port, conn.Username, conn.Secret, conn.Database)
	if sslmode, ok := conn.DetailJSON["sslmode"].(string); ok && sslmode != "" {
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			conn.Host, conn.Port, conn.Username, conn.Secret, conn.Database, sslmode)
	}
	return &Adapter{id: conn.ID, name: conn.Name, kind: conn.Kind, dsn: dsn}, nil
}

func (a *Adapter) ID() string             { return a.id }
func (a *Adapter) Name() string           { return a.name }
func (a *Adapter) Kind() model.SourceKind { return a.kind }
func (a *Adapter) Close() error           { return nil }

// IsAvailable performs the "SELECT 1" lightweight probe of spec.md §4.2.
// It never returns an error: a failed probe is simply unavailable.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	db, err := sql.Open("pgx", a.dsn)
	if err != nil {
		return false
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return false
	}
	var one int
	return db.QueryRowContext(pingCtx, "SELECT 1").Scan(&one) == nil
}

// ExtractSchema implements C1 for relational sources: enumerate
// non-system tables, their columns and primary keys, and a handful of
// sample rows per table for AI grounding. Sample rows are redacted at this
// boundary (spec.md Design Notes: "route sample rows through the same
// redactor as C9").
func (a *Adapter) ExtractSchema(ctx context.Context) (*model.SourceSchema, error) {
	db, err := a.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("schema extraction: %s", SanitizeError(err.Error()))
	}
	defer db.Close()

	tableNames, err := a.listTables(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %s", SanitizeError(err.Error()))
	}

	schema := &model.SourceSchema{SourceID: a.id, SourceName: a.name, SourceKind: a.kind}
	for _, table := range tableNames {
		cols, err := a.listColumns(ctx, db, table)
		if err != nil {
			continue // isolate per-table introspection failures; keep what succeeded
		}
		samples, _ := a.sampleRows(ctx, db, table, sampleRowLimit)
		schema.Tables = append(schema.Tables, model.Table{Name: table, Columns: cols, SampleRows: samples})
	}
	return schema, nil
}

func (a *Adapter) listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		if isSystemTable(n) {
			continue
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func isSystemTable(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range systemSchemaPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func (a *Adapter) listColumns(ctx context.Context, db *sql.DB, table string) ([]model.Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.column_name, c.data_type, c.is_nullable,
		       COALESCE(pk.is_pk, false) AS is_pk
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_name = $1
		) pk ON pk.column_name = c.column_name
		WHERE c.table_name = $1
		ORDER BY c.ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []model.Column
	for rows.Next() {
		var name, dataType, nullable string
		var isPK bool
		if err := rows.Scan(&name, &dataType, &nullable, &isPK); err != nil {
			return nil, err
		}
		cols = append(cols, model.Column{
			Name: name, DataType: dataType,
			Nullable: strings.EqualFold(nullable, "YES"), PrimaryKey: isPK,
		})
	}
	return cols, rows.Err()
}

func (a *Adapter) sampleRows(ctx context.Context, db *sql.DB, table string, limit int) ([]map[string]any, error) {
	if !isSimpleIdentifier(table) {
		return nil, fmt.Errorf("unsafe table identifier: %s", table)
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s LIMIT %d`, quoteIdent(table), limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result, err := materialize(rows)
	if err != nil {
		return nil, err
	}
	for i, row := range result.rows {
		result.rows[i] = redact.RedactRow(row)
	}
	return result.rows, nil
}

// Execute implements the relational execution algorithm of spec.md §4.2:
// validate, open read-only/no-autocommit, run, materialise, roll back
// unconditionally, sanitise any error.
func (a *Adapter) Execute(ctx context.Context, req model.DataRequest) (model.ExecutionResult, error) {
	if req.Kind != model.RequestKindSQLQuery {
		return model.ExecutionResult{}, &datasource.ErrInvalidRequestKind{Adapter: a.kind, Request: req.Kind}
	}

	if v := sqlsafety.Validate(req.SQL); !v.Valid {
		return model.ExecutionResult{Success: false, ErrorMessage: v.Reason}, nil
	}

	start := time.Now()
	db, err := a.open(ctx)
	if err != nil {
		return model.ExecutionResult{Success: false, ErrorMessage: SanitizeError(err.Error())}, nil
	}
	defer db.Close()

	execCtx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	tx, err := db.BeginTx(execCtx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return model.ExecutionResult{Success: false, ErrorMessage: SanitizeError(err.Error())}, nil
	}
	// No path ever commits: every Execute ends in Rollback, including on
	// success, guaranteeing no mutation can persist even if the safety
	// validator were ever wrong.
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(execCtx, req.SQL)
	if err != nil {
		if execCtx.Err() != nil {
			return model.ExecutionResult{Success: false, ErrorMessage: "query timed out after 30s"}, nil
		}
		return model.ExecutionResult{Success: false, ErrorMessage: SanitizeError(err.Error())}, nil
	}
	defer rows.Close()

	m, err := materialize(rows)
	if err != nil {
		return model.ExecutionResult{Success: false, ErrorMessage: SanitizeError(err.Error())}, nil
	}

	return model.ExecutionResult{
		Success: true, Rows: m.rows, Columns: m.columns,
		RowCount: len(m.rows), ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}

func (a *Adapter) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", a.dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func isSimpleIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
