// Package prompt implements the Prompt Builder (C5): the decision,
// analysis, and dashboard prompts of spec.md §4.5. Grounded in the
// teacher's pkg/agent/prompt package — a stateless builder whose methods
// assemble a system/user message from small, independently testable
// Format* section helpers (components.go), retargeted from
// alert/runbook/tool-call context to schema/history/data-request context.
package prompt

import (
	"fmt"
	"strings"

	"github.com/riverfold/querymind/internal/model"
)

// FormatSourceSchema renders one SourceSchema in the deterministic,
// parseable form the decision prompt requires: tables with `name:type`
// column tuples, sample rows pipe-delimited, MCP tools/resources as
// bullet lists.
func FormatSourceSchema(s model.SourceSchema) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### Source: %s (id=%s, kind=%s)\n", s.SourceName, s.SourceID, s.SourceKind)

	for _, t := range s.Tables {
		fmt.Fprintf(&sb, "- table %s: ", t.Name)
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = fmt.Sprintf("%s:%s", c.Name, c.DataType)
		}
		sb.WriteString(strings.Join(cols, ", "))
		sb.WriteString("\n")
		for _, row := range t.SampleRows {
			sb.WriteString("  | ")
			sb.WriteString(formatSampleRow(row, t.Columns))
			sb.WriteString(" |\n")
		}
	}

	for _, c := range s.Collections {
		fmt.Fprintf(&sb, "- collection %s (~%d documents): ", c.Name, c.ApproxCount)
		fields := make([]string, len(c.Fields))
		for i, f := range c.Fields {
			fields[i] = fmt.Sprintf("%s:%s", f.Name, f.Type)
		}
		sb.WriteString(strings.Join(fields, ", "))
		sb.WriteString("\n")
		if len(c.Indexes) > 0 {
			fmt.Fprintf(&sb, "  indexes: %s\n", strings.Join(c.Indexes, ", "))
		}
	}

	for _, idx := range s.Indices {
		fmt.Fprintf(&sb, "- index %s (~%d documents): ", idx.Name, idx.ApproxCount)
		fields := make([]string, len(idx.Fields))
		for i, f := range idx.Fields {
			fields[i] = fmt.Sprintf("%s:%s", f.Name, f.Type)
		}
		sb.WriteString(strings.Join(fields, ", "))
		sb.WriteString("\n")
	}

	for _, tool := range s.Tools {
		fmt.Fprintf(&sb, "- tool %s: %s\n", tool.Name, tool.Description)
	}
	for _, res := range s.Resources {
		fmt.Fprintf(&sb, "- resource %s (%s): %s\n", res.URI, res.MimeType, res.Description)
	}

	return sb.String()
}

func formatSampleRow(row map[string]any, cols []model.Column) string {
	values := make([]string, len(cols))
	for i, c := range cols {
		values[i] = fmt.Sprintf("%v", row[c.Name])
	}
	return strings.Join(values, " | ")
}
