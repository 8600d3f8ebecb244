package remap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rohankatakam/featurekg/internal/graph"
)

func TestNormalizeProperties(t *testing.T) {
	in := graph.Properties{
		"face_no":   graph.String("1"),
		"empty":     graph.String(""),
		"missing":   graph.Null(),
		"zero":      graph.Int(0),
		"false":     graph.Bool(false),
		"blank_ish": graph.String(" "),
	}

	out := NormalizeProperties(in)

	assert.Equal(t, graph.Properties{
		"face_no":   graph.String("1"),
		"zero":      graph.Int(0),
		"false":     graph.Bool(false),
		"blank_ish": graph.String(" "),
	}, out)
	assert.Len(t, in, 6, "input is untouched")
	assert.NotNil(t, NormalizeProperties(nil))
}

func TestSanitizeType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HAS_FACE", "HAS_FACE"},
		{"a`b", "ab"},
		{`"quoted"`, "quoted"},
		{"it's", "its"},
		{"x`) DETACH DELETE (n", "x) DETACH DELETE (n"},
		{"``", graph.RelDefault},
		{"", graph.RelDefault},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeType(tt.in))
		})
	}
}

func TestIDMapResolve(t *testing.T) {
	m := NewIDMap()
	m.Bind("n1", "g:1")
	m.Bind("n2", "g:2")
	m.Bind("alias", "g:1")
	m.Bind("", "g:9")

	tests := []struct {
		name       string
		source     string
		target     string
		wantOK     bool
		wantReason SkipReason
	}{
		{"resolves", "n1", "n2", true, ""},
		{"dangling target", "n1", "n3", false, SkipDangling},
		{"dangling source", "", "n2", false, SkipDangling},
		{"same doc id", "n1", "n1", false, SkipSelfLoop},
		{"different doc ids, same node", "n1", "alias", false, SkipSelfLoop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ends, reason, ok := m.Resolve(tt.source, tt.target)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantReason, reason)
			if ok {
				assert.Equal(t, Endpoints{Source: "g:1", Target: "g:2"}, ends)
			}
		})
	}
	assert.Equal(t, 3, m.Len())
}

func TestIDMapReset(t *testing.T) {
	m := NewIDMap()
	m.Bind("1", "g:1")
	m.Reset()

	_, ok := m.Lookup("1")
	assert.False(t, ok)
	assert.Zero(t, m.Len())
}

func TestIDMapRebindOverwrites(t *testing.T) {
	m := NewIDMap()
	m.Bind("1", "g:1")
	m.Bind("1", "g:2")
	id, _ := m.Lookup("1")
	assert.Equal(t, "g:2", id)
}
