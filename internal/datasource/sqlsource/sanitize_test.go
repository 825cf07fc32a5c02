package sqlsource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeError(t *testing.T) {
	cases := map[string]string{
		"dial tcp: password=hunter2 rejected":             "dial tcp: password=*** rejected",
		"failed to connect to postgres://user:pw@host/db": "failed to connect to [connection-url]",
		"mongodb://user:pw@host/db: connection refused":   "[connection-url] connection refused",
		"plain error with no secrets":                     "plain error with no secrets",
	}
	for input, want := range cases {
		assert.Equal(t, want, SanitizeError(input))
	}
}
