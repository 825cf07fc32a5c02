// Package mongosource implements the document Data Source Adapter (C2) for
// MONGODB connections, grounded in the mongo-driver usage shape of
// HyperionWave-AI-dev-ex-mcp's storage package (database handle wrapping a
// *mongo.Database, one *mongo.Collection per logical collection) adapted
// from a fixed knowledge store to generic collection introspection and
// read-only find/count/aggregate execution.
package mongosource

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/riverfold/querymind/internal/datasource"
	"github.com/riverfold/querymind/internal/model"
	"github.com/riverfold/querymind/internal/redact"
)

const (
	connectTimeout  = 10 * time.Second
	defaultFindLimit = 100
)

// Adapter implements datasource.Adapter for MongoDB. It opens a fresh
// client per call rather than holding one open across the adapter's
// lifetime, matching the relational adapter's per-call discipline; the
// driver's own connection pool amortises the cost.
type Adapter struct {
	id, name string
	uri      string
	dbName   string
}

// New builds a Mongo Adapter from a connection record. DetailJSON may
// carry "authSource" for kind-specific auth database selection, per
// spec.md §3.
func New(conn *model.ConnectionRecord) (datasource.Adapter, error) {
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", conn.Username, conn.Secret, conn.Host, conn.Port)
	if authSource, ok := conn.DetailJSON["authSource"].(string); ok && authSource != "" {
		uri += "/?authSource=" + authSource
	}
	return &Adapter{id: conn.ID, name: conn.Name, uri: uri, dbName: conn.Database}, nil
}

func (a *Adapter) ID() string             { return a.id }
func (a *Adapter) Name() string           { return a.name }
func (a *Adapter) Kind() model.SourceKind { return model.SourceKindMongoDB }
func (a *Adapter) Close() error           { return nil }

func (a *Adapter) connect(ctx context.Context) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(options.Client().ApplyURI(a.uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// IsAvailable pings via client.Ping / implicitly listDatabaseNames.first(),
// per spec.md §4.2; never returns an error.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	client, err := a.connect(ctx)
	if err != nil {
		return false
	}
	defer client.Disconnect(context.Background()) //nolint:errcheck
	_, err = client.ListDatabaseNames(ctx, bson.D{})
	return err == nil
}

// ExtractSchema implements C1 for MongoDB: list collections, fetch one
// document per collection as a field-shape sample, list index key names,
// and request an estimated document count.
func (a *Adapter) ExtractSchema(ctx context.Context) (*model.SourceSchema, error) {
	client, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(context.Background()) //nolint:errcheck

	db := client.Database(a.dbName)
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, err
	}

	schema := &model.SourceSchema{SourceID: a.id, SourceName: a.name, SourceKind: model.SourceKindMongoDB}
	for _, name := range names {
		coll := db.Collection(name)

		var sample bson.M
		_ = coll.FindOne(ctx, bson.D{}).Decode(&sample) // empty collection leaves sample nil, not an error

		count, _ := coll.EstimatedDocumentCount(ctx)

		idxNames := indexNames(ctx, coll)

		var sampleMap map[string]any
		if sample != nil {
			sampleMap = redact.MaskSampleDocument(bsonMToMap(sample))
		}

		schema.Collections = append(schema.Collections, model.Collection{
			Name:           name,
			SampleDocument: sampleMap,
			Indexes:        idxNames,
			ApproxCount:    count,
			Fields:         inferFields(sampleMap),
		})
	}
	return schema, nil
}

func indexNames(ctx context.Context, coll *mongo.Collection) []string {
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil
	}
	defer cursor.Close(ctx)

	var names []string
	for cursor.Next(ctx) {
		var idx bson.M
		if err := cursor.Decode(&idx); err != nil {
			continue
		}
		if n, ok := idx["name"].(string); ok {
			names = append(names, n)
		}
	}
	return names
}

// inferFields derives a (name, type) list from a sample document per
// spec.md §4.1: null -> "null", nested doc -> "Document", slice -> "Array",
// string/bool/integer/float -> "String"/"Boolean"/"Integer"/"Double", and
// any other value -> its Go dynamic type's name.
func inferFields(sample map[string]any) []model.Field {
	if sample == nil {
		return nil
	}
	fields := make([]model.Field, 0, len(sample))
	for name, v := range sample {
		fields = append(fields, model.Field{Name: name, Type: inferType(v)})
	}
	return fields
}

func inferType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any, bson.M:
		return "Document"
	case []any:
		return "Array"
	case string:
		return "String"
	case bool:
		return "Boolean"
	case int32, int64, int:
		return "Integer"
	case float64, float32:
		return "Double"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func bsonMToMap(m bson.M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = bsonValueToAny(v)
	}
	return out
}

func bsonValueToAny(v any) any {
	switch val := v.(type) {
	case bson.M:
		return bsonMToMap(val)
	case bson.A:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = bsonValueToAny(e)
		}
		return out
	default:
		return v
	}
}

// Execute dispatches on Operation per spec.md §4.2: find (default limit
// 100), count, and aggregate (Filter parsed as a JSON pipeline array).
func (a *Adapter) Execute(ctx context.Context, req model.DataRequest) (model.ExecutionResult, error) {
	if req.Kind != model.RequestKindMongoQuery {
		return model.ExecutionResult{}, &datasource.ErrInvalidRequestKind{Adapter: model.SourceKindMongoDB, Request: req.Kind}
	}

	start := time.Now()
	client, err := a.connect(ctx)
	if err != nil {
		return model.ExecutionResult{Success: false, ErrorMessage: err.Error()}, nil
	}
	defer client.Disconnect(context.Background()) //nolint:errcheck

	coll := client.Database(a.dbName).Collection(req.Collection)

	var result model.ExecutionResult
	switch req.Operation {
	case model.MongoOpCount:
		result, err = a.execCount(ctx, coll, req)
	case model.MongoOpAggregate:
		result, err = a.execAggregate(ctx, coll, req)
	default: // find is the default per spec.md
		result, err = a.execFind(ctx, coll, req)
	}
	if err != nil {
		return model.ExecutionResult{Success: false, ErrorMessage: err.Error()}, nil
	}

	result.Success = true
	result.ElapsedMs = time.Since(start).Milliseconds()
	return result, nil
}

func parseFilter(filterJSON string) (bson.D, error) {
	if filterJSON == "" {
		return bson.D{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(filterJSON), &m); err != nil {
		return nil, fmt.Errorf("invalid filter JSON: %w", err)
	}
	var d bson.D
	for k, v := range m {
		d = append(d, bson.E{Key: k, Value: v})
	}
	return d, nil
}

func (a *Adapter) execFind(ctx context.Context, coll *mongo.Collection, req model.DataRequest) (model.ExecutionResult, error) {
	filter, err := parseFilter(req.FilterJSON)
	if err != nil {
		return model.ExecutionResult{}, err
	}
	limit := int64(defaultFindLimit)
	if req.Limit != nil {
		limit = int64(*req.Limit)
	}
	cursor, err := coll.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return model.ExecutionResult{}, err
	}
	defer cursor.Close(ctx)

	var rows []map[string]any
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		rows = append(rows, bsonMToMap(doc))
	}
	return model.ExecutionResult{Rows: rows, Columns: columnsOf(rows), RowCount: len(rows)}, cursor.Err()
}

func (a *Adapter) execCount(ctx context.Context, coll *mongo.Collection, req model.DataRequest) (model.ExecutionResult, error) {
	filter, err := parseFilter(req.FilterJSON)
	if err != nil {
		return model.ExecutionResult{}, err
	}
	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return model.ExecutionResult{}, err
	}
	row := map[string]any{"count": n}
	return model.ExecutionResult{Rows: []map[string]any{row}, Columns: []string{"count"}, RowCount: 1}, nil
}

func (a *Adapter) execAggregate(ctx context.Context, coll *mongo.Collection, req model.DataRequest) (model.ExecutionResult, error) {
	var stages []bson.D
	if req.FilterJSON != "" {
		var raw []map[string]any
		if err := json.Unmarshal([]byte(req.FilterJSON), &raw); err != nil {
			return model.ExecutionResult{}, fmt.Errorf("invalid aggregate pipeline JSON: %w", err)
		}
		for _, stage := range raw {
			var d bson.D
			for k, v := range stage {
				d = append(d, bson.E{Key: k, Value: v})
			}
			stages = append(stages, d)
		}
	}
	cursor, err := coll.Aggregate(ctx, stages)
	if err != nil {
		return model.ExecutionResult{}, err
	}
	defer cursor.Close(ctx)

	var rows []map[string]any
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		rows = append(rows, bsonMToMap(doc))
	}
	return model.ExecutionResult{Rows: rows, Columns: columnsOf(rows), RowCount: len(rows)}, cursor.Err()
}

func columnsOf(rows []map[string]any) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	return cols
}
