package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSensitiveColumn(t *testing.T) {
	cases := map[string]bool{
		"email":           true,
		"user_email":      true,
		"email_address":   true,
		"password_hash":   true,
		"PasswordHash":    true,
		"api-key":         true,
		"user_access_key": true,
		"customer_social_security_number": true,
		"account_no":      false,
		"id":               false,
		"amount":           false,
		"created_at":       false,
		"username":         false,
	}
	for name, want := range cases {
		assert.Equal(t, want, IsSensitiveColumn(name), "column %q", name)
	}
}

func TestRedactRow(t *testing.T) {
	row := map[string]any{"id": 1, "email": "a@b.com", "amount": 5.0}
	out := RedactRow(row)
	assert.Equal(t, RedactedValue, out["email"])
	assert.Equal(t, 1, out["id"])
	assert.Equal(t, 5.0, out["amount"])
}

func TestMaskSampleDocument_Nested(t *testing.T) {
	doc := map[string]any{
		"user_id": 5,
		"profile": map[string]any{
			"email": "a@b.com",
			"name":  "Alice",
		},
		"tags": []any{"x", map[string]any{"password": "hunter2"}},
	}
	out := MaskSampleDocument(doc)
	profile := out["profile"].(map[string]any)
	assert.Equal(t, RedactedValue, profile["email"])
	assert.Equal(t, "Alice", profile["name"])
	tags := out["tags"].([]any)
	inner := tags[1].(map[string]any)
	assert.Equal(t, RedactedValue, inner["password"])
}
