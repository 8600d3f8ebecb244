package document

import (
	"encoding/json"
	"io"

	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/graph"
)

// FormatVersion tags every flat document this module writes.
const FormatVersion = "v8"

// ExportTypeSelective marks a label-filtered flat export.
const ExportTypeSelective = "selective"

// FlatNode is a node record of the flat exchange format.
type FlatNode struct {
	ID         string           `json:"id"`
	Labels     []string         `json:"labels"`
	Properties graph.Properties `json:"properties"`
}

// FlatRelationship is a relationship record of the flat exchange format.
type FlatRelationship struct {
	ID         string           `json:"id,omitempty"`
	Source     string           `json:"source"`
	Target     string           `json:"target"`
	Type       string           `json:"type"`
	Properties graph.Properties `json:"properties"`
}

// FlatDocument is the non-hierarchical node/relationship document.
type FlatDocument struct {
	Nodes         []FlatNode         `json:"nodes"`
	Relationships []FlatRelationship `json:"relationships"`
	ExportedAt    string             `json:"exported_at,omitempty"`
	Version       string             `json:"version,omitempty"`
}

// SelectiveStatistics summarises a selective export.
type SelectiveStatistics struct {
	TotalNodes           int `json:"total_nodes"`
	TotalRelationships   int `json:"total_relationships"`
	SelectedFeatureNodes int `json:"selected_feature_nodes"`
	RelatedFaceNodes     int `json:"related_face_nodes"`
}

// SelectiveDocument is a flat document restricted to some labels plus the
// faces they own.
type SelectiveDocument struct {
	ExportedAt     string              `json:"exported_at"`
	ExportType     string              `json:"export_type"`
	SelectedLabels []string            `json:"selected_labels"`
	Nodes          []FlatNode          `json:"nodes"`
	Relationships  []FlatRelationship  `json:"relationships"`
	Statistics     SelectiveStatistics `json:"statistics"`
	Version        string              `json:"version"`
}

// Flat drops the selective envelope, leaving an importable document.
func (d SelectiveDocument) Flat() FlatDocument {
	return FlatDocument{
		Nodes:         d.Nodes,
		Relationships: d.Relationships,
		ExportedAt:    d.ExportedAt,
		Version:       d.Version,
	}
}

// FlatNodeOf converts a graph node into its document record.
func FlatNodeOf(n graph.Node) FlatNode {
	labels := n.Labels
	if labels == nil {
		labels = []string{}
	}
	props := n.Properties
	if props == nil {
		props = graph.Properties{}
	}
	return FlatNode{ID: n.ID, Labels: labels, Properties: props}
}

// FlatRelationshipOf converts a graph relationship into its document record.
func FlatRelationshipOf(r graph.Relationship) FlatRelationship {
	props := r.Properties
	if props == nil {
		props = graph.Properties{}
	}
	return FlatRelationship{ID: r.ID, Source: r.Source, Target: r.Target, Type: r.Type, Properties: props}
}

// DecodeFlat reads a flat JSON document. Missing arrays decode as empty.
func DecodeFlat(r io.Reader) (FlatDocument, error) {
	var doc FlatDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return FlatDocument{}, errors.ParseError(err, "malformed flat document")
	}
	if doc.Nodes == nil {
		doc.Nodes = []FlatNode{}
	}
	if doc.Relationships == nil {
		doc.Relationships = []FlatRelationship{}
	}
	return doc, nil
}

// Encode writes the document as indented JSON.
func (d FlatDocument) Encode(w io.Writer) error {
	return encodeJSON(w, d)
}

// Encode writes the document as indented JSON.
func (d SelectiveDocument) Encode(w io.Writer) error {
	return encodeJSON(w, d)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
