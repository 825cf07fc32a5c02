// Package sqlsafety implements the read-only SQL safety validator shared by
// every relational Data Source Adapter. The adapter invokes it at execution
// time, immediately before a connection is opened; plan validation
// (planexec.ValidatePlan) does not call it.
package sqlsafety

import (
	"regexp"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// forbiddenKeywords must never appear as whole words in a submitted query.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "TRUNCATE",
	"GRANT", "REVOKE", "EXEC", "EXECUTE", "CALL", "MERGE", "REPLACE",
}

var forbiddenPattern = buildForbiddenPattern()

func buildForbiddenPattern() *regexp.Regexp {
	var b strings.Builder
	for i, kw := range forbiddenKeywords {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(`\b`)
		b.WriteString(kw)
		b.WriteString(`\b`)
	}
	return regexp.MustCompile(`(?i)(` + b.String() + `)`)
}

// Result is the outcome of validating one SQL string.
type Result struct {
	Valid  bool
	Reason string
}

// Invalid builds a failed Result with the given reason.
func Invalid(reason string) Result { return Result{Valid: false, Reason: reason} }

// validResult is the successful, zero-reason Result.
var validResult = Result{Valid: true}

// Validate rejects any SQL statement that is not a plain read-only SELECT
// (optionally wrapped in a WITH clause). Execution must never proceed past
// a Result with Valid == false.
func Validate(sql string) Result {
	trimmed := strings.TrimSpace(sql)
	trimmed = strings.TrimSuffix(trimmed, ";")
	trimmed = strings.TrimSpace(trimmed)

	if trimmed == "" {
		return Invalid("empty SQL statement")
	}

	if loc := forbiddenPattern.FindStringIndex(trimmed); loc != nil {
		word := trimmed[loc[0]:loc[1]]
		return Invalid("only SELECT statements are allowed: found forbidden keyword " + strings.ToUpper(word))
	}

	stmt, err := sqlparser.Parse(trimmed)
	if err != nil {
		// Parser doesn't understand every dialect (e.g. ClickHouse/Snowflake
		// extensions); fall back to a leading-keyword check rather than
		// rejecting a statement the keyword scan already cleared.
		return validateLeadingKeyword(trimmed)
	}

	switch s := stmt.(type) {
	case *sqlparser.Select:
		return validResult
	case *sqlparser.Union:
		return validResult
	case *sqlparser.ParenSelect:
		return validResult
	default:
		_ = s
		return Invalid("only SELECT statements are allowed: parsed as a non-SELECT statement")
	}
}

func validateLeadingKeyword(trimmed string) Result {
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH") {
		return validResult
	}
	return Invalid("only SELECT statements are allowed: statement does not begin with SELECT or WITH")
}
