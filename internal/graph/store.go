package graph

import (
	"context"
)

// Well-known labels and relationship types of the feature model.
const (
	LabelRepository = "Repository"
	LabelStructure  = "Structure"
	LabelFace       = "Face"
	LabelNode       = "Node"

	RelHasStructure  = "HAS_STRUCTURE"
	RelHasFace       = "HAS_FACE"
	RelRelationship  = "RELATIONSHIP"
	RelDefault       = "RELATED"
	DefaultSampleLen = 10
)

// Node is a labeled vertex. ID is minted by the store and only stable for
// the lifetime of one store session.
type Node struct {
	ID         string     `json:"id"`
	Labels     []string   `json:"labels"`
	Properties Properties `json:"properties"`
}

// HasLabel reports whether the node carries label.
func (n Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Relationship is a directed, typed edge between two nodes.
type Relationship struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Source     string     `json:"source"`
	Target     string     `json:"target"`
	Properties Properties `json:"properties"`
}

// FacePair is one Face-[RELATIONSHIP]->Face row of a hierarchical export.
type FacePair struct {
	Source       Node
	Relationship Relationship
	Target       Node
}

// ServerInfo describes the store a client is connected to.
type ServerInfo struct {
	Name    string   `json:"name"`
	Edition string   `json:"edition"`
	Version []string `json:"versions"`
}

// Store is the graph access port used by the snapshot, exporter, importer
// and editor. Implementations: Neo4jStore (driver), MemoryStore, BoltStore
// (embedded file) and OfflineStore (unreachable backend).
type Store interface {
	CreateNode(ctx context.Context, labels []string, props Properties) (string, error)
	CreateRelationship(ctx context.Context, source, target, relType string, props Properties) (string, error)
	// UpdateNode replaces both the label set and the property map.
	UpdateNode(ctx context.Context, id string, labels []string, props Properties) error
	// DeleteNode detaches the node from all relationships before removing it.
	DeleteNode(ctx context.Context, id string) error
	DeleteRelationship(ctx context.Context, id string) error
	GetNode(ctx context.Context, id string) (Node, bool, error)
	GetRelationship(ctx context.Context, id string) (Relationship, bool, error)

	AllNodes(ctx context.Context) ([]Node, error)
	AllRelationships(ctx context.Context) ([]Relationship, error)
	NodesByLabel(ctx context.Context, label string) ([]Node, error)
	DistinctLabels(ctx context.Context) ([]string, error)
	SampleNodes(ctx context.Context, limit int) ([]Node, error)

	// FacesLinkedTo returns distinct Face nodes adjacent to any of ids over
	// HAS_FACE in either direction.
	FacesLinkedTo(ctx context.Context, ids []string) ([]Node, error)
	// FacesOfStructure returns the distinct faces of one structure ordered by face_no.
	FacesOfStructure(ctx context.Context, structureID string) ([]Node, error)
	// RelationshipsAmong returns relationships of any type whose endpoints are both in ids.
	RelationshipsAmong(ctx context.Context, ids []string) ([]Relationship, error)
	// EdgesAmongFaces returns RELATIONSHIP edges between faces in ids.
	EdgesAmongFaces(ctx context.Context, faceIDs []string) ([]Relationship, error)
	// FacePairs returns Face-[RELATIONSHIP]->Face rows where both faces carry
	// structure_english_name == label. A non-empty repositoryID restricts the
	// source face to structures owned by that repository.
	FacePairs(ctx context.Context, label, repositoryID string) ([]FacePair, error)

	// Repositories returns Repository nodes ordered by name.
	Repositories(ctx context.Context) ([]Node, error)
	// StructureLabels returns the distinct labels of HAS_STRUCTURE targets.
	StructureLabels(ctx context.Context, repositoryID string) ([]string, error)

	Describe(ctx context.Context) (ServerInfo, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
