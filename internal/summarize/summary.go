// Package summarize implements the structural summary and embeddable
// dataset JSON described in spec.md §4.9 (C9). It is the only place raw
// query rows are allowed to flow toward the AI — and only after sensitive
// columns have been stripped to a column-level profile.
package summarize

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/riverfold/querymind/internal/model"
	"github.com/riverfold/querymind/internal/redact"
)

const maxSampleRows = 5
const maxTopValues = 10

// ColumnProfile is the per-column statistical profile embedded in the
// structural summary.
type ColumnProfile struct {
	Name       string
	Redacted   bool
	Type       string // "numeric" | "date" | "string"
	NullCount  int
	Distinct   int
	TopValues  []ValueFrequency
	Min        *float64
	Max        *float64
	Avg        *float64
	Sum        *float64
}

// ValueFrequency pairs a distinct value with its occurrence count.
type ValueFrequency struct {
	Value string
	Count int
}

// DatasetSummary is the per-QueryResult structural summary section.
type DatasetSummary struct {
	Query      string
	Purpose    string
	Columns    []string
	RowCount   int
	Profiles   []ColumnProfile
	SampleRows []map[string]any
}

// Summarize builds the structural summary for a set of successful query
// results. Only successful results are summarised; callers filter first.
func Summarize(results []model.QueryResult) []DatasetSummary {
	out := make([]DatasetSummary, 0, len(results))
	for _, r := range results {
		out = append(out, summarizeOne(r))
	}
	return out
}

func summarizeOne(r model.QueryResult) DatasetSummary {
	profiles := make([]ColumnProfile, 0, len(r.Columns))
	for _, col := range r.Columns {
		profiles = append(profiles, profileColumn(col, r.Rows))
	}

	sampleCount := len(r.Rows)
	if sampleCount > maxSampleRows {
		sampleCount = maxSampleRows
	}
	samples := redact.RedactRows(r.Rows[:sampleCount])

	return DatasetSummary{
		Query:      r.Query,
		Purpose:    r.Explanation,
		Columns:    r.Columns,
		RowCount:   r.RowCount,
		Profiles:   profiles,
		SampleRows: samples,
	}
}

func profileColumn(name string, rows []map[string]any) ColumnProfile {
	if redact.IsSensitiveColumn(name) {
		return ColumnProfile{Name: name, Redacted: true}
	}

	values := make([]any, 0, len(rows))
	nullCount := 0
	for _, row := range rows {
		v, ok := row[name]
		if !ok || v == nil {
			nullCount++
			continue
		}
		values = append(values, v)
	}

	inferredType := inferType(values)

	freq := make(map[string]int, len(values))
	for _, v := range values {
		freq[fmt.Sprintf("%v", v)]++
	}
	distinct := len(freq)
	top := topN(freq, maxTopValues)

	profile := ColumnProfile{
		Name:      name,
		Type:      inferredType,
		NullCount: nullCount,
		Distinct:  distinct,
		TopValues: top,
	}

	if inferredType == "numeric" {
		min, max, avg, sum := numericStats(values)
		profile.Min, profile.Max, profile.Avg, profile.Sum = min, max, avg, sum
	}

	return profile
}

var dateISOPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
var dateUSPattern = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}`)

func inferType(values []any) string {
	if len(values) == 0 {
		return "string"
	}

	allNumeric := true
	for _, v := range values {
		if !isNumeric(v) {
			allNumeric = false
			break
		}
	}
	if allNumeric {
		return "numeric"
	}

	checked := values
	if len(checked) > 5 {
		checked = checked[:5]
	}
	allDate := len(checked) > 0
	for _, v := range checked {
		s := fmt.Sprintf("%v", v)
		if !dateISOPattern.MatchString(s) && !dateUSPattern.MatchString(s) {
			allDate = false
			break
		}
	}
	if allDate {
		return "date"
	}

	return "string"
}

func isNumeric(v any) bool {
	switch n := v.(type) {
	case float64, float32, int, int32, int64:
		_ = n
		return true
	case string:
		_, err := strconv.ParseFloat(n, 64)
		return err == nil
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func numericStats(values []any) (min, max, avg, sum *float64) {
	if len(values) == 0 {
		return nil, nil, nil, nil
	}
	var mn, mx, total float64
	first := true
	count := 0
	for _, v := range values {
		f, ok := toFloat(v)
		if !ok {
			continue
		}
		if first {
			mn, mx = f, f
			first = false
		}
		if f < mn {
			mn = f
		}
		if f > mx {
			mx = f
		}
		total += f
		count++
	}
	if count == 0 {
		return nil, nil, nil, nil
	}
	avgVal := round2(total / float64(count))
	sumVal := round2(total)
	mnVal := round2(mn)
	mxVal := round2(mx)
	return &mnVal, &mxVal, &avgVal, &sumVal
}

func round2(f float64) float64 {
	return float64(int64(f*100+sign(f)*0.5)) / 100
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

func topN(freq map[string]int, n int) []ValueFrequency {
	out := make([]ValueFrequency, 0, len(freq))
	for v, c := range freq {
		out = append(out, ValueFrequency{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Render formats the structural summary as the plain-text block sent to
// the AI in the analysis prompt, per spec.md §4.9.
func Render(summaries []DatasetSummary) string {
	var b strings.Builder
	for i, s := range summaries {
		fmt.Fprintf(&b, "Dataset %d\n", i+1)
		if s.Query != "" {
			fmt.Fprintf(&b, "  query: %s\n", s.Query)
		}
		if s.Purpose != "" {
			fmt.Fprintf(&b, "  purpose: %s\n", s.Purpose)
		}
		fmt.Fprintf(&b, "  columns: %s\n", strings.Join(s.Columns, ", "))
		fmt.Fprintf(&b, "  rowCount: %d\n", s.RowCount)
		for _, p := range s.Profiles {
			if p.Redacted {
				fmt.Fprintf(&b, "  - %s: [REDACTED COLUMN]\n", p.Name)
				continue
			}
			fmt.Fprintf(&b, "  - %s (%s): nulls=%d distinct=%d", p.Name, p.Type, p.NullCount, p.Distinct)
			if p.Min != nil {
				fmt.Fprintf(&b, " min=%.2f max=%.2f avg=%.2f sum=%.2f", *p.Min, *p.Max, *p.Avg, *p.Sum)
			}
			b.WriteByte('\n')
			if len(p.TopValues) > 0 {
				parts := make([]string, len(p.TopValues))
				for j, tv := range p.TopValues {
					parts[j] = fmt.Sprintf("%s(%d)", tv.Value, tv.Count)
				}
				fmt.Fprintf(&b, "    top values: %s\n", strings.Join(parts, ", "))
			}
		}
		if len(s.SampleRows) > 0 {
			b.WriteString("  sample rows:\n")
			for _, row := range s.SampleRows {
				fmt.Fprintf(&b, "    %v\n", row)
			}
		}
	}
	return b.String()
}
