package sqlsource

import "regexp"

// passwordPattern and dsnPattern redact credential material from any error
// message before it leaves the adapter, per spec.md §7's sanitisation rule.
var (
	passwordPattern = regexp.MustCompile(`(?i)password=\S+`)
	dsnPattern      = regexp.MustCompile(`(?i)(postgres|postgresql|mysql|jdbc|mongodb|redis)://\S+`)
)

// SanitizeError strips credential-bearing substrings from msg. Grounded in
// spec.md §7's "password=<non-whitespace>" / "jdbc:..." redaction rule,
// generalised to the connection-string schemes this adapter family opens.
func SanitizeError(msg string) string {
	msg = passwordPattern.ReplaceAllString(msg, "password=***")
	msg = dsnPattern.ReplaceAllString(msg, "[connection-url]")
	return msg
}
