package graph

import (
	"context"

	"github.com/rohankatakam/featurekg/internal/errors"
)

// OfflineStore stands in for a backend that could not be reached. Every call
// fails with a connection error so callers degrade instead of crashing.
type OfflineStore struct {
	cause error
}

// NewOfflineStore records why the real store is unavailable
func NewOfflineStore(cause error) *OfflineStore {
	return &OfflineStore{cause: cause}
}

func (s *OfflineStore) err() error {
	return errors.ConnectionError(s.cause, "database not connected")
}

func (s *OfflineStore) CreateNode(context.Context, []string, Properties) (string, error) {
	return "", s.err()
}

func (s *OfflineStore) CreateRelationship(context.Context, string, string, string, Properties) (string, error) {
	return "", s.err()
}

func (s *OfflineStore) UpdateNode(context.Context, string, []string, Properties) error {
	return s.err()
}

func (s *OfflineStore) DeleteNode(context.Context, string) error         { return s.err() }
func (s *OfflineStore) DeleteRelationship(context.Context, string) error { return s.err() }

func (s *OfflineStore) GetNode(context.Context, string) (Node, bool, error) {
	return Node{}, false, s.err()
}

func (s *OfflineStore) GetRelationship(context.Context, string) (Relationship, bool, error) {
	return Relationship{}, false, s.err()
}

func (s *OfflineStore) AllNodes(context.Context) ([]Node, error)                 { return nil, s.err() }
func (s *OfflineStore) AllRelationships(context.Context) ([]Relationship, error) { return nil, s.err() }
func (s *OfflineStore) NodesByLabel(context.Context, string) ([]Node, error)     { return nil, s.err() }
func (s *OfflineStore) DistinctLabels(context.Context) ([]string, error)         { return nil, s.err() }
func (s *OfflineStore) SampleNodes(context.Context, int) ([]Node, error)         { return nil, s.err() }
func (s *OfflineStore) FacesLinkedTo(context.Context, []string) ([]Node, error)  { return nil, s.err() }
func (s *OfflineStore) FacesOfStructure(context.Context, string) ([]Node, error) { return nil, s.err() }
func (s *OfflineStore) Repositories(context.Context) ([]Node, error)             { return nil, s.err() }

func (s *OfflineStore) RelationshipsAmong(context.Context, []string) ([]Relationship, error) {
	return nil, s.err()
}

func (s *OfflineStore) EdgesAmongFaces(context.Context, []string) ([]Relationship, error) {
	return nil, s.err()
}

func (s *OfflineStore) FacePairs(context.Context, string, string) ([]FacePair, error) {
	return nil, s.err()
}

func (s *OfflineStore) StructureLabels(context.Context, string) ([]string, error) {
	return nil, s.err()
}

func (s *OfflineStore) Describe(context.Context) (ServerInfo, error) { return ServerInfo{}, s.err() }
func (s *OfflineStore) HealthCheck(context.Context) error            { return s.err() }
func (s *OfflineStore) Close(context.Context) error                  { return nil }
