// Package wiring registers every concrete Data Source Adapter factory
// (C2) into a datasource.Registry (C3). It is a separate package from
// internal/datasource so that the adapter contract package itself never
// imports a specific driver — only the composition root (cmd/queryengine,
// or a test harness) pulls in the full driver set.
package wiring

import (
	"github.com/riverfold/querymind/internal/datasource"
	"github.com/riverfold/querymind/internal/datasource/essource"
	"github.com/riverfold/querymind/internal/datasource/mcpsource"
	"github.com/riverfold/querymind/internal/datasource/mongosource"
	"github.com/riverfold/querymind/internal/datasource/redissource"
	"github.com/riverfold/querymind/internal/datasource/sqlsource"
	"github.com/riverfold/querymind/internal/model"
)

// RegisterDefaults wires every known SourceKind to its adapter factory.
// POSTGRESQL, SUPABASE, STARROCKS, CLICKHOUSE, SNOWFLAKE, MYSQL, SQLITE
// and BIGQUERY all route through sqlsource (see its doc comment and
// DESIGN.md for why only the pg-wire-compatible subset is actually
// reachable with the drivers this module vendors).
func RegisterDefaults(reg *datasource.Registry) {
	reg.Register(model.SourceKindPostgreSQL, sqlsource.New)
	reg.Register(model.SourceKindSupabase, sqlsource.New)
	reg.Register(model.SourceKindStarRocks, sqlsource.New)
	reg.Register(model.SourceKindClickHouse, sqlsource.New)
	reg.Register(model.SourceKindSnowflake, sqlsource.New)
	reg.Register(model.SourceKindMySQL, sqlsource.New)
	reg.Register(model.SourceKindSQLite, sqlsource.New)
	reg.Register(model.SourceKindBigQuery, sqlsource.New)

	reg.Register(model.SourceKindMongoDB, mongosource.New)
	reg.Register(model.SourceKindElastic, essource.New)
	reg.Register(model.SourceKindMCP, mcpsource.New)
	reg.Register(model.SourceKindRedis, redissource.New)
}
