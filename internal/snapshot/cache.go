// Package snapshot keeps an in-memory mirror of every node and relationship
// in the graph store.
package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/featurekg/internal/graph"
	"github.com/rohankatakam/featurekg/internal/metrics"
)

// Cache mirrors the graph. Reload and the mutators are serialized by
// writeMu, which Reload holds from the first scan until the swap, so a
// mutation never lands between a scan and the swap. Readers take the read
// lock and get copies.
type Cache struct {
	store  graph.Store
	logger *slog.Logger

	writeMu    sync.Mutex
	mu         sync.RWMutex
	nodes      []graph.Node
	rels       []graph.Relationship
	loadedAt   time.Time
	generation uint64
}

// New creates an empty cache over store. Call Reload to populate it.
func New(store graph.Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:  store,
		logger: logger.With("component", "snapshot"),
		nodes:  []graph.Node{},
		rels:   []graph.Relationship{},
	}
}

// Reload replaces the whole snapshot with two fresh full scans. On failure
// the previous snapshot stays in place and the error is returned.
func (c *Cache) Reload(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var nodes []graph.Node
	var rels []graph.Relationship

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nodes, err = c.store.AllNodes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rels, err = c.store.AllRelationships(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.logger.Error("snapshot reload failed, keeping previous snapshot", "error", err)
		metrics.RecordSnapshotReload(err)
		return err
	}

	c.mu.Lock()
	c.nodes = nodes
	c.rels = rels
	c.loadedAt = time.Now().UTC()
	c.generation++
	c.mu.Unlock()

	metrics.RecordSnapshotReload(nil)
	metrics.SetSnapshotSize(len(nodes), len(rels))
	c.logger.Info("snapshot reloaded", "nodes", len(nodes), "relationships", len(rels))
	return nil
}

// Nodes returns a copy of the node list. Property maps are shared and must
// be treated as read-only.
func (c *Cache) Nodes() []graph.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]graph.Node(nil), c.nodes...)
}

// Relationships returns a copy of the relationship list.
func (c *Cache) Relationships() []graph.Relationship {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]graph.Relationship(nil), c.rels...)
}

// View gives fn a consistent view of both lists under one read lock.
func (c *Cache) View(fn func(nodes []graph.Node, rels []graph.Relationship)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.nodes, c.rels)
}

func (c *Cache) Counts() (nodes, relationships int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes), len(c.rels)
}

func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Generation increases on every reload or mutation.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Node looks a node up by id.
func (c *Cache) Node(id string) (graph.Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, n := range c.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return graph.Node{}, false
}

// PutNode replaces the node with the same id, or appends it.
func (c *Cache) PutNode(n graph.Node) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	for i := range c.nodes {
		if c.nodes[i].ID == n.ID {
			c.nodes[i] = n
			return
		}
	}
	c.nodes = append(c.nodes, n)
}

// RemoveNode drops a node and every relationship touching it.
func (c *Cache) RemoveNode(id string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++

	nodes := make([]graph.Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}
	rels := make([]graph.Relationship, 0, len(c.rels))
	for _, r := range c.rels {
		if r.Source != id && r.Target != id {
			rels = append(rels, r)
		}
	}
	c.nodes, c.rels = nodes, rels
}

// PutRelationship replaces the relationship with the same id, or appends it.
func (c *Cache) PutRelationship(r graph.Relationship) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	for i := range c.rels {
		if c.rels[i].ID == r.ID {
			c.rels[i] = r
			return
		}
	}
	c.rels = append(c.rels, r)
}

func (c *Cache) RemoveRelationship(id string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	rels := make([]graph.Relationship, 0, len(c.rels))
	for _, r := range c.rels {
		if r.ID != id {
			rels = append(rels, r)
		}
	}
	c.rels = rels
}

// The query helpers go to the store, which filters natively.

func (c *Cache) NodesByLabel(ctx context.Context, label string) ([]graph.Node, error) {
	return c.store.NodesByLabel(ctx, label)
}

// FacesOfStructure returns the distinct faces of a structure ordered by face_no.
func (c *Cache) FacesOfStructure(ctx context.Context, structureID string) ([]graph.Node, error) {
	return c.store.FacesOfStructure(ctx, structureID)
}

func (c *Cache) EdgesAmongFaces(ctx context.Context, faceIDs []string) ([]graph.Relationship, error) {
	return c.store.EdgesAmongFaces(ctx, faceIDs)
}
