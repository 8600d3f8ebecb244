// Package remap maps document-scoped identifiers onto graph element ids and
// rejects degenerate relationships before they are written. It does no I/O.
package remap

import (
	"strings"

	"github.com/rohankatakam/featurekg/internal/graph"
)

// SkipReason explains why a relationship record was not created.
type SkipReason string

const (
	SkipDangling    SkipReason = "dangling_reference"
	SkipSelfLoop    SkipReason = "self_loop"
	SkipWriteFailed SkipReason = "write_failed"
)

// Kind is the record kind an Outcome refers to.
type Kind int

const (
	KindNode Kind = iota
	KindRelationship
)

// Outcome is the result of one record attempt during an import.
type Outcome struct {
	Kind    Kind
	Created bool
	Reason  SkipReason
}

func NodeCreated() Outcome         { return Outcome{Kind: KindNode, Created: true} }
func NodeFailed() Outcome          { return Outcome{Kind: KindNode, Reason: SkipWriteFailed} }
func RelationshipCreated() Outcome { return Outcome{Kind: KindRelationship, Created: true} }

func RelationshipSkipped(reason SkipReason) Outcome {
	return Outcome{Kind: KindRelationship, Reason: reason}
}

// NormalizeProperties drops every key whose value is null or the empty
// string. The input is never modified.
func NormalizeProperties(props graph.Properties) graph.Properties {
	out := make(graph.Properties, len(props))
	for k, v := range props {
		if v.IsBlank() {
			continue
		}
		out[k] = v
	}
	return out
}

// SanitizeType strips backticks and quotes from a relationship type so it
// can be used as a schema name. A type that sanitizes to nothing becomes
// RELATED.
func SanitizeType(relType string) string {
	cleaned := strings.NewReplacer("`", "", "'", "", `"`, "").Replace(relType)
	if strings.TrimSpace(cleaned) == "" {
		return graph.RelDefault
	}
	return cleaned
}

// Endpoints is a resolved relationship.
type Endpoints struct {
	Source string
	Target string
}

// IDMap maps document identifiers to freshly minted graph ids. The flat
// importer keeps one for the whole document; the hierarchical importer
// resets one per Structure because face numbers are structure-scoped.
type IDMap struct {
	ids map[string]string
}

// NewIDMap creates an empty map
func NewIDMap() *IDMap {
	return &IDMap{ids: make(map[string]string)}
}

// Bind records docID -> graphID. Empty document ids are not bindable.
// Re-binding a document id overwrites the earlier binding.
func (m *IDMap) Bind(docID, graphID string) {
	if docID == "" || graphID == "" {
		return
	}
	m.ids[docID] = graphID
}

// Lookup returns the graph id bound to docID.
func (m *IDMap) Lookup(docID string) (string, bool) {
	id, ok := m.ids[docID]
	return id, ok
}

// Resolve maps both ends of a relationship. ok is false when either end is
// unbound (SkipDangling) or both resolve to the same node (SkipSelfLoop).
func (m *IDMap) Resolve(source, target string) (Endpoints, SkipReason, bool) {
	s, okS := m.Lookup(source)
	t, okT := m.Lookup(target)
	if !okS || !okT {
		return Endpoints{}, SkipDangling, false
	}
	if s == t {
		return Endpoints{}, SkipSelfLoop, false
	}
	return Endpoints{Source: s, Target: t}, "", true
}

// Reset forgets every binding.
func (m *IDMap) Reset() {
	clear(m.ids)
}

func (m *IDMap) Len() int {
	return len(m.ids)
}

// FaceMap binds face_no to graph ids within one Structure.
type FaceMap = IDMap

func NewFaceMap() *FaceMap {
	return NewIDMap()
}
