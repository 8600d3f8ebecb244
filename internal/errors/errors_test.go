package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByType(t *testing.T) {
	err := ParseErrorf(stderrors.New("unexpected EOF"), "decode %s", "feature.xml")

	assert.True(t, stderrors.Is(err, ParseError(nil, "")))
	assert.False(t, stderrors.Is(err, ConnectionError(nil, "")))
	assert.Equal(t, "decode feature.xml: unexpected EOF", err.Error())
}

func TestTypeHelpersWalkTheChain(t *testing.T) {
	inner := ConnectionError(stderrors.New("dial tcp: refused"), "neo4j unreachable")
	outer := fmt.Errorf("export failed: %w", DatabaseError(inner, "faces query"))

	tests := []struct {
		name string
		fn   func(error) bool
		want bool
	}{
		{"connection", IsConnection, true},
		{"parse", IsParse, false},
		{"not found", IsNotFound, false},
		{"validation", IsValidation, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(outer))
		})
	}

	assert.Equal(t, ErrorTypeDatabase, GetType(outer))
	assert.False(t, IsConnection(nil))
}

func TestSeverityAndFatal(t *testing.T) {
	assert.True(t, IsFatal(ConfigError("missing uri")))
	assert.False(t, IsFatal(ValidationError("labels required")))
	assert.Equal(t, SeverityMedium, GetSeverity(stderrors.New("plain")))
	assert.Equal(t, SeverityLow, GetSeverity(nil))
}

func TestDetailedStringIncludesContext(t *testing.T) {
	err := NotFoundErrorf("node %s not found", "4:abc:1").WithContext("operation", "update_node")

	out := err.DetailedString()
	assert.Contains(t, out, "[MEDIUM] [NOT_FOUND] node 4:abc:1 not found")
	assert.Contains(t, out, "operation: update_node")
}
