package model

// Column describes a single relational column.
type Column struct {
	Name       string
	DataType   string
	Nullable   bool
	PrimaryKey bool
}

// Table describes a relational table and, optionally, a handful of sample
// rows used to ground the AI's understanding of real data shapes.
type Table struct {
	Name       string
	Columns    []Column
	SampleRows []map[string]any
}

// Collection describes a MongoDB collection.
type Collection struct {
	Name           string
	SampleDocument map[string]any
	Indexes        []string
	ApproxCount    int64
	Fields         []Field
}

// Field is a generic (name, inferred-type) pair used by document and
// search-index schemas.
type Field struct {
	Name string
	Type string
}

// Index describes an Elasticsearch index.
type Index struct {
	Name        string
	Fields      []Field
	ApproxCount int64
}

// MCPTool describes one tool exposed by an MCP server.
type MCPTool struct {
	Name            string
	Description     string
	InputSchemaJSON string
}

// MCPResource describes one readable resource exposed by an MCP server.
type MCPResource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// SourceSchema is the normalized schema extracted from one data source.
// Exactly one of the per-kind payload fields is populated, matching
// SourceKind.
type SourceSchema struct {
	SourceID   string
	SourceName string
	SourceKind SourceKind

	// Relational
	Tables []Table

	// Document (MongoDB)
	Collections []Collection

	// Search-index (Elasticsearch)
	Indices []Index

	// Tool/resource (MCP)
	Tools     []MCPTool
	Resources []MCPResource
}
