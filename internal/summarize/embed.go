package summarize

import (
	"encoding/json"

	"github.com/riverfold/querymind/internal/model"
)

// EmbeddableDataset is one entry of the embeddable datasets JSON consumed
// only by the server-side dashboard renderer — never sent to the AI, and
// never redacted (the renderer needs the real values).
type EmbeddableDataset struct {
	Query    string           `json:"query"`
	Columns  []string         `json:"columns"`
	RowCount int              `json:"rowCount"`
	Rows     []map[string]any `json:"rows"`
}

// BuildEmbeddableDatasets serialises successful results verbatim for the
// dashboard renderer, per spec.md §4.9.
func BuildEmbeddableDatasets(results []model.QueryResult) ([]byte, error) {
	datasets := make([]EmbeddableDataset, 0, len(results))
	for _, r := range results {
		datasets = append(datasets, EmbeddableDataset{
			Query:    r.Query,
			Columns:  r.Columns,
			RowCount: r.RowCount,
			Rows:     r.Rows,
		})
	}
	return json.Marshal(datasets)
}
