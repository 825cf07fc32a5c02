package sqlsource

import (
	"database/sql"
	"time"
)

type materialized struct {
	columns []string
	rows    []map[string]any
}

// binaryPlaceholder is substituted for any byte-array column value, per
// spec.md §4.2 step 3.
const binaryPlaceholder = "[binary data]"

// materialize drains rows into plain maps with type-normalised values:
// time.Time values become ISO-8601 strings and []byte values become the
// literal binaryPlaceholder token, so every result is safely JSON-
// serialisable without a custom marshaler downstream.
func materialize(rows *sql.Rows) (materialized, error) {
	cols, err := rows.Columns()
	if err != nil {
		return materialized{}, err
	}

	out := materialized{columns: cols}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return materialized{}, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(raw[i])
		}
		out.rows = append(out.rows, row)
	}
	return out, rows.Err()
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return binaryPlaceholder
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return val
	}
}
