package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rohankatakam/featurekg/internal/errors"
)

// persister receives every committed mutation of a MemoryStore.
type persister interface {
	putNode(n Node, seq uint64) error
	deleteNode(id string) error
	putRelationship(r Relationship, seq uint64) error
	deleteRelationship(id string) error
}

// Hooks lets tests inject per-record write failures.
type Hooks struct {
	BeforeCreateNode         func(labels []string, props Properties) error
	BeforeCreateRelationship func(source, target, relType string) error
}

// MemoryStore is an in-process Store. Element ids look like
// "<session>:<seq>" so, as with Neo4j, they never carry over to a new session.
type MemoryStore struct {
	mu      sync.RWMutex
	session string
	seq     uint64

	nodes     map[string]*memNode
	nodeOrder []string
	rels      map[string]*memRel
	relOrder  []string

	persist persister
	Hooks   Hooks
}

type memNode struct {
	node Node
	seq  uint64
}

type memRel struct {
	rel Relationship
	seq uint64
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		session: uuid.NewString()[:8],
		nodes:   make(map[string]*memNode),
		rels:    make(map[string]*memRel),
	}
}

func (s *MemoryStore) nextID() (string, uint64) {
	s.seq++
	return fmt.Sprintf("%s:%d", s.session, s.seq), s.seq
}

func (s *MemoryStore) CreateNode(ctx context.Context, labels []string, props Properties) (string, error) {
	if len(labels) == 0 {
		return "", errors.ValidationError("at least one label is required")
	}
	for _, l := range labels {
		if l == "" {
			return "", errors.ValidationError("invalid empty label")
		}
	}
	if s.Hooks.BeforeCreateNode != nil {
		if err := s.Hooks.BeforeCreateNode(labels, props); err != nil {
			return "", errors.DatabaseError(err, "create node failed")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, seq := s.nextID()
	n := Node{ID: id, Labels: append([]string(nil), labels...), Properties: props.Clone()}
	if s.persist != nil {
		if err := s.persist.putNode(n, seq); err != nil {
			return "", errors.DatabaseError(err, "persist node failed")
		}
	}
	s.nodes[id] = &memNode{node: n, seq: seq}
	s.nodeOrder = append(s.nodeOrder, id)
	return id, nil
}

func (s *MemoryStore) CreateRelationship(ctx context.Context, source, target, relType string, props Properties) (string, error) {
	if relType == "" {
		return "", errors.ValidationError("relationship type must not be empty")
	}
	if s.Hooks.BeforeCreateRelationship != nil {
		if err := s.Hooks.BeforeCreateRelationship(source, target, relType); err != nil {
			return "", errors.DatabaseError(err, "create relationship failed")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nodes[source] == nil || s.nodes[target] == nil {
		return "", errors.NotFoundErrorf("relationship endpoints not found: %s -> %s", source, target)
	}
	id, seq := s.nextID()
	r := Relationship{ID: id, Type: relType, Source: source, Target: target, Properties: props.Clone()}
	if s.persist != nil {
		if err := s.persist.putRelationship(r, seq); err != nil {
			return "", errors.DatabaseError(err, "persist relationship failed")
		}
	}
	s.rels[id] = &memRel{rel: r, seq: seq}
	s.relOrder = append(s.relOrder, id)
	return id, nil
}

func (s *MemoryStore) UpdateNode(ctx context.Context, id string, labels []string, props Properties) error {
	if len(labels) == 0 {
		return errors.ValidationError("at least one label is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.nodes[id]
	if m == nil {
		return errors.NotFoundErrorf("node %s not found", id)
	}
	updated := Node{ID: id, Labels: append([]string(nil), labels...), Properties: props.Clone()}
	if s.persist != nil {
		if err := s.persist.putNode(updated, m.seq); err != nil {
			return errors.DatabaseError(err, "persist node failed")
		}
	}
	m.node = updated
	return nil
}

func (s *MemoryStore) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nodes[id] == nil {
		return nil
	}
	var incident []string
	for _, rid := range s.relOrder {
		r := s.rels[rid].rel
		if r.Source == id || r.Target == id {
			incident = append(incident, rid)
		}
	}
	for _, rid := range incident {
		if err := s.deleteRelationshipLocked(rid); err != nil {
			return err
		}
	}
	if s.persist != nil {
		if err := s.persist.deleteNode(id); err != nil {
			return errors.DatabaseError(err, "persist node delete failed")
		}
	}
	delete(s.nodes, id)
	s.nodeOrder = without(s.nodeOrder, id)
	return nil
}

func (s *MemoryStore) DeleteRelationship(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteRelationshipLocked(id)
}

func (s *MemoryStore) deleteRelationshipLocked(id string) error {
	if s.rels[id] == nil {
		return nil
	}
	if s.persist != nil {
		if err := s.persist.deleteRelationship(id); err != nil {
			return errors.DatabaseError(err, "persist relationship delete failed")
		}
	}
	delete(s.rels, id)
	s.relOrder = without(s.relOrder, id)
	return nil
}

func (s *MemoryStore) GetNode(ctx context.Context, id string) (Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.nodes[id]
	if m == nil {
		return Node{}, false, nil
	}
	return copyNode(m.node), true, nil
}

func (s *MemoryStore) GetRelationship(ctx context.Context, id string) (Relationship, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.rels[id]
	if m == nil {
		return Relationship{}, false, nil
	}
	return copyRelationship(m.rel), true, nil
}

func (s *MemoryStore) AllNodes(ctx context.Context) ([]Node, error) {
	return s.filterNodes(func(Node) bool { return true }), nil
}

func (s *MemoryStore) AllRelationships(ctx context.Context) ([]Relationship, error) {
	return s.filterRelationships(func(Relationship) bool { return true }), nil
}

func (s *MemoryStore) NodesByLabel(ctx context.Context, label string) ([]Node, error) {
	if label == "" {
		return nil, errors.ValidationError("label must not be empty")
	}
	return s.filterNodes(func(n Node) bool { return n.HasLabel(label) }), nil
}

func (s *MemoryStore) DistinctLabels(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, m := range s.nodes {
		for _, l := range m.node.Labels {
			seen[l] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

func (s *MemoryStore) SampleNodes(ctx context.Context, limit int) ([]Node, error) {
	if limit <= 0 {
		limit = DefaultSampleLen
	}
	nodes := s.filterNodes(func(Node) bool { return true })
	if len(nodes) > limit {
		nodes = nodes[:limit]
	}
	return nodes, nil
}

func (s *MemoryStore) FacesLinkedTo(ctx context.Context, ids []string) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := toSet(ids)
	seen := make(map[string]struct{})
	var faces []Node
	add := func(id string) {
		m := s.nodes[id]
		if m == nil || !m.node.HasLabel(LabelFace) {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		faces = append(faces, copyNode(m.node))
	}
	for _, rid := range s.relOrder {
		r := s.rels[rid].rel
		if r.Type != RelHasFace {
			continue
		}
		if _, ok := wanted[r.Source]; ok {
			add(r.Target)
		}
		if _, ok := wanted[r.Target]; ok {
			add(r.Source)
		}
	}
	return faces, nil
}

func (s *MemoryStore) FacesOfStructure(ctx context.Context, structureID string) ([]Node, error) {
	faces, err := s.FacesLinkedTo(ctx, []string{structureID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(faces, func(i, j int) bool {
		return Compare(faces[i].Properties.Get("face_no"), faces[j].Properties.Get("face_no")) < 0
	})
	return faces, nil
}

func (s *MemoryStore) RelationshipsAmong(ctx context.Context, ids []string) ([]Relationship, error) {
	set := toSet(ids)
	return s.filterRelationships(func(r Relationship) bool {
		_, a := set[r.Source]
		_, b := set[r.Target]
		return a && b
	}), nil
}

func (s *MemoryStore) EdgesAmongFaces(ctx context.Context, faceIDs []string) ([]Relationship, error) {
	set := toSet(faceIDs)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Relationship
	for _, rid := range s.relOrder {
		r := s.rels[rid].rel
		if r.Type != RelRelationship {
			continue
		}
		_, a := set[r.Source]
		_, b := set[r.Target]
		if a && b && s.nodes[r.Source].node.HasLabel(LabelFace) && s.nodes[r.Target].node.HasLabel(LabelFace) {
			out = append(out, copyRelationship(r))
		}
	}
	return out, nil
}

func (s *MemoryStore) FacePairs(ctx context.Context, label, repositoryID string) ([]FacePair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := String(label)
	var pairs []FacePair
	for _, rid := range s.relOrder {
		r := s.rels[rid].rel
		if r.Type != RelRelationship {
			continue
		}
		a, b := s.nodes[r.Source].node, s.nodes[r.Target].node
		if !a.HasLabel(LabelFace) || !b.HasLabel(LabelFace) {
			continue
		}
		if a.Properties.Get("structure_english_name") != want || b.Properties.Get("structure_english_name") != want {
			continue
		}
		if repositoryID != "" && !s.ownedByRepositoryLocked(a.ID, repositoryID) {
			continue
		}
		pairs = append(pairs, FacePair{Source: copyNode(a), Relationship: copyRelationship(r), Target: copyNode(b)})
	}
	return pairs, nil
}

// ownedByRepositoryLocked checks repo-[:HAS_STRUCTURE]->()-[:HAS_FACE]->face.
func (s *MemoryStore) ownedByRepositoryLocked(faceID, repositoryID string) bool {
	repo := s.nodes[repositoryID]
	if repo == nil || !repo.node.HasLabel(LabelRepository) {
		return false
	}
	structures := make(map[string]struct{})
	for _, rid := range s.relOrder {
		r := s.rels[rid].rel
		if r.Type == RelHasStructure && r.Source == repositoryID {
			structures[r.Target] = struct{}{}
		}
	}
	for _, rid := range s.relOrder {
		r := s.rels[rid].rel
		if r.Type != RelHasFace || r.Target != faceID {
			continue
		}
		if _, ok := structures[r.Source]; ok {
			return true
		}
	}
	return false
}

func (s *MemoryStore) Repositories(ctx context.Context) ([]Node, error) {
	repos := s.filterNodes(func(n Node) bool { return n.HasLabel(LabelRepository) })
	sort.SliceStable(repos, func(i, j int) bool {
		return Compare(repos[i].Properties.Get("name"), repos[j].Properties.Get("name")) < 0
	})
	return repos, nil
}

func (s *MemoryStore) StructureLabels(ctx context.Context, repositoryID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo := s.nodes[repositoryID]
	if repo == nil || !repo.node.HasLabel(LabelRepository) {
		return []string{}, nil
	}
	seen := make(map[string]struct{})
	for _, rid := range s.relOrder {
		r := s.rels[rid].rel
		if r.Type != RelHasStructure || r.Source != repositoryID {
			continue
		}
		for _, l := range s.nodes[r.Target].node.Labels {
			seen[l] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

func (s *MemoryStore) Describe(ctx context.Context) (ServerInfo, error) {
	return ServerInfo{Name: "featurekg-memory", Edition: "embedded", Version: []string{s.session}}, nil
}

func (s *MemoryStore) HealthCheck(ctx context.Context) error { return nil }

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func (s *MemoryStore) filterNodes(keep func(Node) bool) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Node{}
	for _, id := range s.nodeOrder {
		if n := s.nodes[id].node; keep(n) {
			out = append(out, copyNode(n))
		}
	}
	return out
}

func (s *MemoryStore) filterRelationships(keep func(Relationship) bool) []Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Relationship{}
	for _, id := range s.relOrder {
		if r := s.rels[id].rel; keep(r) {
			out = append(out, copyRelationship(r))
		}
	}
	return out
}

// restore inserts a previously persisted record without minting a new id.
func (s *MemoryStore) restoreNode(n Node, seq uint64) {
	s.nodes[n.ID] = &memNode{node: n, seq: seq}
	s.nodeOrder = append(s.nodeOrder, n.ID)
	if seq > s.seq {
		s.seq = seq
	}
}

func (s *MemoryStore) restoreRelationship(r Relationship, seq uint64) {
	s.rels[r.ID] = &memRel{rel: r, seq: seq}
	s.relOrder = append(s.relOrder, r.ID)
	if seq > s.seq {
		s.seq = seq
	}
}

func copyNode(n Node) Node {
	return Node{ID: n.ID, Labels: append([]string(nil), n.Labels...), Properties: n.Properties.Clone()}
}

func copyRelationship(r Relationship) Relationship {
	r.Properties = r.Properties.Clone()
	return r
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
