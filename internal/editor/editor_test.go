package editor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/graph"
	"github.com/rohankatakam/featurekg/internal/snapshot"
)

func newEditor(t *testing.T) (*Editor, *graph.MemoryStore, *snapshot.Cache) {
	t.Helper()
	store := graph.NewMemoryStore()
	snap := snapshot.New(store, nil)
	require.NoError(t, snap.Reload(context.Background()))
	return New(store, snap, nil), store, snap
}

func TestNodeLifecycle(t *testing.T) {
	ctx := context.Background()
	ed, store, snap := newEditor(t)

	n, err := ed.CreateNode(ctx, []string{" Step ", "Step", ""}, graph.Properties{"name": graph.String("s1")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Step"}, n.Labels)

	cached, ok := snap.Node(n.ID)
	require.True(t, ok, "snapshot is patched without a reload")
	assert.Equal(t, graph.String("s1"), cached.Properties.Get("name"))

	updated, err := ed.UpdateNode(ctx, n.ID, []string{"Hole"}, graph.Properties{"depth": graph.Int(4)})
	require.NoError(t, err)
	stored, ok, err := store.GetNode(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Hole"}, stored.Labels)
	assert.Equal(t, graph.Properties{"depth": graph.Int(4)}, stored.Properties, "properties are replaced, not merged")
	assert.Equal(t, updated, mustSnapshotNode(t, snap, n.ID))

	require.NoError(t, ed.DeleteNode(ctx, n.ID))
	_, ok = snap.Node(n.ID)
	assert.False(t, ok)

	err = ed.DeleteNode(ctx, n.ID)
	assert.True(t, errors.IsNotFound(err))
}

func mustSnapshotNode(t *testing.T, snap *snapshot.Cache, id string) graph.Node {
	t.Helper()
	n, ok := snap.Node(id)
	require.True(t, ok)
	return n
}

func TestCreateNodeRequiresLabel(t *testing.T) {
	ed, _, _ := newEditor(t)
	_, err := ed.CreateNode(context.Background(), []string{" "}, nil)
	assert.True(t, errors.IsValidation(err))
}

func TestRelationshipValidation(t *testing.T) {
	ctx := context.Background()
	ed, _, _ := newEditor(t)
	a, err := ed.CreateNode(ctx, []string{"Face"}, nil)
	require.NoError(t, err)
	b, err := ed.CreateNode(ctx, []string{"Face"}, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		source  string
		target  string
		relType string
		check   func(error) bool
	}{
		{"self loop", a.ID, a.ID, "RELATIONSHIP", errors.IsValidation},
		{"missing type", a.ID, b.ID, "  ", errors.IsValidation},
		{"missing source", "nope", b.ID, "RELATIONSHIP", errors.IsNotFound},
		{"missing target", a.ID, "nope", "RELATIONSHIP", errors.IsNotFound},
		{"empty source id", "", b.ID, "RELATIONSHIP", errors.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ed.CreateRelationship(ctx, tt.source, tt.target, tt.relType, nil)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestRelationshipLifecycle(t *testing.T) {
	ctx := context.Background()
	ed, store, snap := newEditor(t)
	a, err := ed.CreateNode(ctx, []string{"Face"}, nil)
	require.NoError(t, err)
	b, err := ed.CreateNode(ctx, []string{"Face"}, nil)
	require.NoError(t, err)

	r, err := ed.CreateRelationship(ctx, a.ID, b.ID, "`RELATIONSHIP`", graph.Properties{"is_parallel": graph.String("0")})
	require.NoError(t, err)
	assert.Equal(t, graph.RelRelationship, r.Type)
	_, rels := snap.Counts()
	assert.Equal(t, 1, rels)

	updated, err := ed.UpdateRelationship(ctx, r.ID, b.ID, a.ID, "RELATIONSHIP", graph.Properties{"is_parallel": graph.String("1")})
	require.NoError(t, err)
	assert.NotEqual(t, r.ID, updated.ID, "update recreates the relationship")
	assert.Equal(t, b.ID, updated.Source)

	_, ok, err := store.GetRelationship(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Invalid input leaves the old relationship untouched.
	_, err = ed.UpdateRelationship(ctx, updated.ID, a.ID, a.ID, "RELATIONSHIP", nil)
	assert.True(t, errors.IsValidation(err))
	_, ok, err = store.GetRelationship(ctx, updated.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, ed.DeleteRelationship(ctx, updated.ID))
	_, rels = snap.Counts()
	assert.Equal(t, 0, rels)
	assert.True(t, errors.IsNotFound(ed.DeleteRelationship(ctx, updated.ID)))
}

func TestDeleteNodeDropsIncidentRelationshipsFromSnapshot(t *testing.T) {
	ctx := context.Background()
	ed, _, snap := newEditor(t)
	repo, err := ed.CreateNode(ctx, []string{"Repository"}, graph.Properties{"name": graph.String("r")})
	require.NoError(t, err)
	s, err := ed.CreateNode(ctx, []string{"Step"}, nil)
	require.NoError(t, err)
	_, err = ed.CreateRelationship(ctx, repo.ID, s.ID, graph.RelHasStructure, nil)
	require.NoError(t, err)

	require.NoError(t, ed.DeleteNode(ctx, repo.ID))
	nodes, rels := snap.Counts()
	assert.Equal(t, 1, nodes, "structures are not cascaded")
	assert.Equal(t, 0, rels)
}

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		name string
		node graph.Node
		want string
	}{
		{"name", graph.Node{ID: "1", Labels: []string{"Step"}, Properties: graph.Properties{"name": graph.String("Main"), "english_name": graph.String("E")}}, "Main [1]"},
		{"english name", graph.Node{ID: "2", Labels: []string{"Step"}, Properties: graph.Properties{"name": graph.String(""), "english_name": graph.String("Boss")}}, "Boss [2]"},
		{"first label", graph.Node{ID: "3", Labels: []string{"Face", "Extra"}}, "Face [3]"},
		{"fallback", graph.Node{ID: "4"}, "Node [4]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayTitle(tt.node))
		})
	}
}

func TestParseLabels(t *testing.T) {
	assert.Equal(t, []string{"Step", "Face"}, ParseLabels(" Step, Face ,Step"))
	assert.Equal(t, []string{"Step", "Face"}, ParseLabels("Step:Face"))
	assert.Empty(t, ParseLabels(" , "))
}

// pausedScanStore holds the first node scan open until release is closed.
type pausedScanStore struct {
	*graph.MemoryStore
	scanned chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *pausedScanStore) AllNodes(ctx context.Context) ([]graph.Node, error) {
	nodes, err := s.MemoryStore.AllNodes(ctx)
	s.once.Do(func() { close(s.scanned) })
	<-s.release
	return nodes, err
}

func TestCreateNodeDuringReloadStaysInSnapshot(t *testing.T) {
	ctx := context.Background()
	store := &pausedScanStore{
		MemoryStore: graph.NewMemoryStore(),
		scanned:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	snap := snapshot.New(store, nil)
	ed := New(store, snap, nil)

	reloaded := make(chan error, 1)
	go func() { reloaded <- snap.Reload(ctx) }()
	<-store.scanned

	type result struct {
		node graph.Node
		err  error
	}
	created := make(chan result, 1)
	go func() {
		n, err := ed.CreateNode(ctx, []string{"Step"}, graph.Properties{"name": graph.String("late")})
		created <- result{n, err}
	}()

	close(store.release)
	require.NoError(t, <-reloaded)
	res := <-created
	require.NoError(t, res.err)

	_, inStore, err := store.GetNode(ctx, res.node.ID)
	require.NoError(t, err)
	assert.True(t, inStore)
	_, inSnapshot := snap.Node(res.node.ID)
	assert.True(t, inSnapshot, "committed write is still mirrored after the reload")
}
