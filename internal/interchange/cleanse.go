package interchange

import (
	"github.com/rohankatakam/featurekg/internal/document"
	"github.com/rohankatakam/featurekg/internal/remap"
)

type relationshipKey struct {
	source, target, relType string
}

// Cleanse returns a copy of doc that imports without rejected records:
// nodes without an id or with an already seen id are dropped, then
// relationships that dangle, loop onto their source, or repeat a
// (source, target, type) triple. Blank properties are stripped everywhere.
// Cleanse(Cleanse(d)) equals Cleanse(d).
func Cleanse(doc document.FlatDocument) document.FlatDocument {
	out := document.FlatDocument{
		Nodes:         make([]document.FlatNode, 0, len(doc.Nodes)),
		Relationships: make([]document.FlatRelationship, 0, len(doc.Relationships)),
		ExportedAt:    doc.ExportedAt,
		Version:       doc.Version,
	}

	ids := make(map[string]struct{}, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n.ID == "" {
			continue
		}
		if _, dup := ids[n.ID]; dup {
			continue
		}
		ids[n.ID] = struct{}{}
		out.Nodes = append(out.Nodes, document.FlatNode{
			ID:         n.ID,
			Labels:     append([]string{}, n.Labels...),
			Properties: remap.NormalizeProperties(n.Properties),
		})
	}

	seen := make(map[relationshipKey]struct{}, len(doc.Relationships))
	for _, r := range doc.Relationships {
		_, okS := ids[r.Source]
		_, okT := ids[r.Target]
		if !okS || !okT || r.Source == r.Target {
			continue
		}
		key := relationshipKey{r.Source, r.Target, r.Type}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Relationships = append(out.Relationships, document.FlatRelationship{
			ID:         r.ID,
			Source:     r.Source,
			Target:     r.Target,
			Type:       r.Type,
			Properties: remap.NormalizeProperties(r.Properties),
		})
	}
	return out
}

// CleanseReport counts what Cleanse removed.
type CleanseReport struct {
	NodesBefore         int `json:"nodes_before"`
	NodesAfter          int `json:"nodes_after"`
	RelationshipsBefore int `json:"relationships_before"`
	RelationshipsAfter  int `json:"relationships_after"`
}

// CleanseWithReport is Cleanse plus before/after counts.
func CleanseWithReport(doc document.FlatDocument) (document.FlatDocument, CleanseReport) {
	cleaned := Cleanse(doc)
	return cleaned, CleanseReport{
		NodesBefore:         len(doc.Nodes),
		NodesAfter:          len(cleaned.Nodes),
		RelationshipsBefore: len(doc.Relationships),
		RelationshipsAfter:  len(cleaned.Relationships),
	}
}
