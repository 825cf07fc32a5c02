package planexec

import (
	"regexp"
	"strings"

	"github.com/riverfold/querymind/internal/model"
)

var numberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// ReplaceVariables substitutes every `$name` placeholder in sql with its
// resolved value from vars, per spec.md §4.6's replacement policy. A
// placeholder whose name is absent from vars is left unchanged — the SQL
// will then fail the safety validator or at execution, which is
// preferable to silently substituting nothing.
func ReplaceVariables(sql string, vars map[string]string) string {
	return model.PlaceholderPattern.ReplaceAllStringFunc(sql, func(placeholder string) string {
		value, ok := vars[placeholder]
		if !ok {
			return placeholder
		}
		return formatValue(value)
	})
}

// formatValue applies the replacement policy to one resolved value:
//   - a bare number is inserted raw;
//   - a comma-separated list (", "-joined) is split, each piece re-quoted
//     per these same rules, and rejoined with ", " — producing a valid
//     SQL IN (...) list;
//   - anything else is single-quoted, with embedded single quotes doubled.
func formatValue(value string) string {
	if strings.Contains(value, ", ") {
		parts := strings.Split(value, ", ")
		quoted := make([]string, len(parts))
		for i, p := range parts {
			quoted[i] = formatScalar(p)
		}
		return strings.Join(quoted, ", ")
	}
	return formatScalar(value)
}

func formatScalar(value string) string {
	if numberPattern.MatchString(value) {
		return value
	}
	escaped := strings.ReplaceAll(value, "'", "''")
	return "'" + escaped + "'"
}
