// Package redact implements the sensitive-column detector and structural
// masking pipeline (C9), grounded in the teacher's pkg/masking package:
// a set of compiled patterns plus registered structural maskers, applied
// fail-closed. It is also used at the schema-extraction boundary (C1) to
// redact sample rows before they are embedded in the decision prompt, per
// spec.md's Design Notes correctness hazard.
package redact

import (
	"regexp"
	"strings"
)

// RedactedValue is the literal placeholder substituted for any sensitive
// cell value, matching spec.md §4.9.
const RedactedValue = "[REDACTED]"

// sensitiveNames is the sensitive-column vocabulary. Entries may be
// single words ("email") or multi-word ("access_key"); a column name is
// sensitive if, after normalization, it equals an entry or contains an
// entry's own tokens as a contiguous run (prefix_, _suffix, _infix_
// surrounds).
var sensitiveNames = map[string]bool{
	"password": true, "passwd": true, "pwd": true, "secret": true, "token": true,
	"apikey": true, "api_key": true, "access_key": true, "private_key": true,
	"salt": true, "hash": true, "ssn": true, "social_security": true,
	"national_id": true, "credit_card": true, "card_number": true, "cvv": true,
	"card_no": true, "bank_account": true, "account_number": true,
	"routing_number": true, "email": true, "phone": true, "mobile": true,
	"contact": true, "address": true, "street": true, "zipcode": true,
	"zip_code": true, "passport": true, "license": true, "driving_license": true,
	"dob": true, "date_of_birth": true, "birth_date": true,
}

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// normalizeColumnName splits camelCase boundaries with an underscore,
// lowercases the column name and collapses every run of non-alphanumeric
// characters to a single underscore before matching against the sensitive
// vocabulary.
func normalizeColumnName(name string) string {
	lower := strings.ToLower(camelBoundary.ReplaceAllString(name, "${1}_${2}"))
	normalized := nonAlphaNum.ReplaceAllString(lower, "_")
	normalized = strings.Trim(normalized, "_")
	return normalized
}

// IsSensitiveColumn reports whether name names a sensitive column: the
// normalized name itself, or any vocabulary entry, occurs as a
// `_`-delimited run within it (prefix_, _suffix, _infix_ surrounds). A
// multi-word entry like "access_key" matches "user_access_key" because
// its own tokens ("access", "key") appear as a contiguous run in the
// column's token list, not because any single token equals the whole
// entry.
func IsSensitiveColumn(name string) bool {
	normalized := normalizeColumnName(name)
	if normalized == "" {
		return false
	}
	if sensitiveNames[normalized] {
		return true
	}
	columnTokens := strings.Split(normalized, "_")
	for entry := range sensitiveNames {
		if containsTokenRun(columnTokens, strings.Split(entry, "_")) {
			return true
		}
	}
	return false
}

// containsTokenRun reports whether run appears as a contiguous, in-order
// subsequence of tokens.
func containsTokenRun(tokens, run []string) bool {
	if len(run) == 0 || len(run) > len(tokens) {
		return false
	}
	for start := 0; start+len(run) <= len(tokens); start++ {
		match := true
		for i, t := range run {
			if tokens[start+i] != t {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// RedactRow returns a copy of row with every sensitive column's value
// replaced by RedactedValue.
func RedactRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if IsSensitiveColumn(k) {
			out[k] = RedactedValue
		} else {
			out[k] = v
		}
	}
	return out
}

// RedactRows applies RedactRow to every row in rows.
func RedactRows(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = RedactRow(row)
	}
	return out
}
