// Package essource implements the search-index Data Source Adapter (C2)
// for ELASTICSEARCH connections, using the official go-elasticsearch v8
// client. Grounded in this repo's own sqlsource/mongosource shape (open a
// client per call, map driver-specific errors to a sanitised
// ExecutionResult) rather than a pack analogue, since no example repo
// wires an Elasticsearch client directly — see DESIGN.md.
package essource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/riverfold/querymind/internal/datasource"
	"github.com/riverfold/querymind/internal/model"
)

const defaultSearchSize = 100

// Adapter implements datasource.Adapter for Elasticsearch.
type Adapter struct {
	id, name string
	client   *elasticsearch.Client
}

// New builds an ES Adapter from a connection record. DetailJSON may carry
// "scheme" (http/https), per spec.md §3.
func New(conn *model.ConnectionRecord) (datasource.Adapter, error) {
	scheme := "http"
	if s, ok := conn.DetailJSON["scheme"].(string); ok && s != "" {
		scheme = s
	}
	addr := fmt.Sprintf("%s://%s:%d", scheme, conn.Host, conn.Port)

	cfg := elasticsearch.Config{Addresses: []string{addr}}
	if conn.Username != "" {
		cfg.Username = conn.Username
		cfg.Password = conn.Secret
	} else if conn.Secret != "" {
		cfg.APIKey = conn.Secret
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Adapter{id: conn.ID, name: conn.Name, client: client}, nil
}

func (a *Adapter) ID() string             { return a.id }
func (a *Adapter) Name() string           { return a.name }
func (a *Adapter) Kind() model.SourceKind { return model.SourceKindElastic }
func (a *Adapter) Close() error           { return nil }

// IsAvailable performs a lightweight ping, per spec.md §4.2.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	res, err := a.client.Ping(a.client.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// ExtractSchema implements C1 for Elasticsearch: list non-dotted indices,
// read each index's mapping properties mapped to a compact type token, and
// obtain a count via the count API.
func (a *Adapter) ExtractSchema(ctx context.Context) (*model.SourceSchema, error) {
	res, err := a.client.Cat.Indices(
		a.client.Cat.Indices.WithContext(ctx),
		a.client.Cat.Indices.WithFormat("json"),
		a.client.Cat.Indices.WithH("index"),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("cat indices: %s", res.String())
	}

	var catRows []struct {
		Index string `json:"index"`
	}
	if err := json.NewDecoder(res.Body).Decode(&catRows); err != nil {
		return nil, err
	}

	schema := &model.SourceSchema{SourceID: a.id, SourceName: a.name, SourceKind: model.SourceKindElastic}
	for _, row := range catRows {
		if strings.HasPrefix(row.Index, ".") {
			continue // spec.md §4.1: "list non-dotted indices"
		}
		fields, err := a.mappingFields(ctx, row.Index)
		if err != nil {
			continue // isolate per-index introspection failure
		}
		count := a.count(ctx, row.Index, "")
		schema.Indices = append(schema.Indices, model.Index{Name: row.Index, Fields: fields, ApproxCount: count})
	}
	return schema, nil
}

func (a *Adapter) mappingFields(ctx context.Context, index string) ([]model.Field, error) {
	res, err := a.client.Indices.GetMapping(
		a.client.Indices.GetMapping.WithContext(ctx),
		a.client.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("get mapping: %s", res.String())
	}

	var body map[string]struct {
		Mappings struct {
			Properties map[string]map[string]any `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, err
	}

	entry, ok := body[index]
	if !ok {
		return nil, nil
	}
	fields := make([]model.Field, 0, len(entry.Mappings.Properties))
	for name, prop := range entry.Mappings.Properties {
		esType, _ := prop["type"].(string)
		fields = append(fields, model.Field{Name: name, Type: compactTypeToken(esType, prop)})
	}
	return fields, nil
}

// compactTypeToken maps an ES property mapping to one of spec.md §4.1's
// compact type tokens.
func compactTypeToken(esType string, prop map[string]any) string {
	switch esType {
	case "text", "keyword", "long", "integer", "double", "boolean", "date", "object", "nested", "geo_point":
		return esType
	case "":
		if _, ok := prop["properties"]; ok {
			return "object"
		}
		return "unknown"
	default:
		return "unknown"
	}
}

func (a *Adapter) count(ctx context.Context, index, queryDSL string) int64 {
	opts := []func(*esapi.CountRequest){a.client.Count.WithContext(ctx), a.client.Count.WithIndex(index)}
	if queryDSL != "" {
		opts = append(opts, a.client.Count.WithBody(strings.NewReader(queryDSL)))
	}
	res, err := a.client.Count(opts...)
	if err != nil {
		return 0
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0
	}
	var body struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0
	}
	return body.Count
}

// Execute implements spec.md §4.2's ES execution: pass the Query-DSL JSON
// through verbatim with Size default 100, or match-all when empty; each
// hit is materialised as a row including _id, _index, _score plus source
// fields.
func (a *Adapter) Execute(ctx context.Context, req model.DataRequest) (model.ExecutionResult, error) {
	if req.Kind != model.RequestKindESQuery {
		return model.ExecutionResult{}, &datasource.ErrInvalidRequestKind{Adapter: model.SourceKindElastic, Request: req.Kind}
	}

	start := time.Now()
	size := defaultSearchSize
	if req.Size != nil {
		size = *req.Size
	}

	body := req.QueryDSL
	if strings.TrimSpace(body) == "" {
		body = `{"query":{"match_all":{}}}`
	}
	body = injectSize(body, size)

	res, err := a.client.Search(
		a.client.Search.WithContext(ctx),
		a.client.Search.WithIndex(req.Index),
		a.client.Search.WithBody(bytes.NewReader([]byte(body))),
	)
	if err != nil {
		return model.ExecutionResult{Success: false, ErrorMessage: err.Error()}, nil
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return model.ExecutionResult{Success: false, ErrorMessage: string(raw)}, nil
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Index  string         `json:"_index"`
				Score  *float64       `json:"_score"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return model.ExecutionResult{Success: false, ErrorMessage: err.Error()}, nil
	}

	rows := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		row := map[string]any{"_id": hit.ID, "_index": hit.Index}
		if hit.Score != nil {
			row["_score"] = *hit.Score
		}
		for k, v := range hit.Source {
			row[k] = v
		}
		rows = append(rows, row)
	}

	return model.ExecutionResult{
		Success: true, Rows: rows, Columns: columnsOf(rows),
		RowCount: len(rows), ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
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

// injectSize sets the top-level "size" key on a Query-DSL JSON document
// without disturbing the rest of the body.
func injectSize(body string, size int) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return body
	}
	if _, has := m["size"]; !has {
		m["size"] = size
	}
	out, err := json.Marshal(m)
	if err != nil {
		return body
	}
	return string(out)
}
