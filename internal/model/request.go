package model

import "regexp"

// RequestKind discriminates the DataRequest tagged union.
type RequestKind string

const (
	RequestKindSQLQuery       RequestKind = "SQL_QUERY"
	RequestKindMongoQuery     RequestKind = "MONGO_QUERY"
	RequestKindESQuery        RequestKind = "ES_QUERY"
	RequestKindMCPToolCall    RequestKind = "MCP_TOOL_CALL"
	RequestKindMCPResourceRead RequestKind = "MCP_RESOURCE_READ"
)

// OutputVarPattern matches a valid `$name` placeholder / outputAs binding.
var OutputVarPattern = regexp.MustCompile(`^\$[A-Za-z_][A-Za-z0-9_]*$`)

// PlaceholderPattern matches any `$name` placeholder occurring inside text
// such as SQL, independent of position.
var PlaceholderPattern = regexp.MustCompile(`\$[A-Za-z_][A-Za-z0-9_]*`)

// MongoOperation enumerates supported MongoDB operations.
type MongoOperation string

const (
	MongoOpFind      MongoOperation = "find"
	MongoOpCount     MongoOperation = "count"
	MongoOpAggregate MongoOperation = "aggregate"
)

// DataRequest is one step of an AI-generated query plan. It is a tagged
// union over five payload shapes, discriminated by Kind; exactly the
// fields relevant to Kind are populated.
type DataRequest struct {
	Kind        RequestKind
	SourceID    string
	Step        *int
	DependsOn   *int
	OutputAs    string
	OutputField string
	Description string
	Explanation string

	// SQL_QUERY
	SQL string

	// MONGO_QUERY
	Collection string
	Operation  MongoOperation
	FilterJSON string // raw JSON text for filter/pipeline
	Limit      *int

	// ES_QUERY
	Index    string
	QueryDSL string
	Size     *int

	// MCP_TOOL_CALL
	ToolName  string
	Arguments map[string]any

	// MCP_RESOURCE_READ
	URI string
}

// ExecutionResult is the raw per-request outcome produced by an adapter.
type ExecutionResult struct {
	Success      bool
	Rows         []map[string]any
	Columns      []string
	RowCount     int
	ElapsedMs    int64
	ErrorMessage string
}

// QueryResult is the user-facing per-request result: an ExecutionResult
// enriched with connection identity and the AI's stated explanation for
// why the request was issued.
type QueryResult struct {
	ExecutionResult
	ConnectionID   string
	ConnectionName string
	Explanation    string
	Query          string // human-readable request text: SQL, Mongo filter, ES DSL, or tool call
}
