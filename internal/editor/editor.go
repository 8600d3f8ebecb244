// Package editor is the CRUD path for individual nodes and relationships.
// Every successful write is patched into the snapshot directly instead of
// reloading it.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/graph"
	"github.com/rohankatakam/featurekg/internal/remap"
	"github.com/rohankatakam/featurekg/internal/snapshot"
)

// Editor serializes CRUD writes against one store.
type Editor struct {
	store  graph.Store
	snap   *snapshot.Cache
	logger *slog.Logger

	mu sync.Mutex
}

func New(store graph.Store, snap *snapshot.Cache, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{store: store, snap: snap, logger: logger.With("component", "editor")}
}

// CreateNode creates a node with the given labels and properties.
func (e *Editor) CreateNode(ctx context.Context, labels []string, props graph.Properties) (graph.Node, error) {
	labels = CleanLabels(labels)
	if len(labels) == 0 {
		return graph.Node{}, errors.ValidationError("at least one label is required")
	}
	props = props.Clone()

	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.store.CreateNode(ctx, labels, props)
	if err != nil {
		e.logger.Error("error creating node", "labels", labels, "error", err)
		return graph.Node{}, err
	}

	n := graph.Node{ID: id, Labels: labels, Properties: props}
	e.snap.PutNode(n)
	e.logger.Info("created node", "id", id)
	return n, nil
}

// UpdateNode replaces both the labels and the properties of a node.
func (e *Editor) UpdateNode(ctx context.Context, id string, labels []string, props graph.Properties) (graph.Node, error) {
	labels = CleanLabels(labels)
	if len(labels) == 0 {
		return graph.Node{}, errors.ValidationError("at least one label is required")
	}
	props = props.Clone()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireNode(ctx, id, "node"); err != nil {
		return graph.Node{}, err
	}
	if err := e.store.UpdateNode(ctx, id, labels, props); err != nil {
		e.logger.Error("error updating node", "id", id, "error", err)
		return graph.Node{}, err
	}

	n := graph.Node{ID: id, Labels: labels, Properties: props}
	e.snap.PutNode(n)
	e.logger.Info("updated node", "id", id)
	return n, nil
}

// DeleteNode detaches and deletes a node. Nothing it owns is deleted with it.
func (e *Editor) DeleteNode(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireNode(ctx, id, "node"); err != nil {
		return err
	}
	if err := e.store.DeleteNode(ctx, id); err != nil {
		e.logger.Error("error deleting node", "id", id, "error", err)
		return err
	}

	e.snap.RemoveNode(id)
	e.logger.Info("deleted node", "id", id)
	return nil
}

// CreateRelationship links two existing, distinct nodes.
func (e *Editor) CreateRelationship(ctx context.Context, source, target, relType string, props graph.Properties) (graph.Relationship, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	relType, err := e.validateRelationship(ctx, source, target, relType)
	if err != nil {
		return graph.Relationship{}, err
	}
	return e.createRelationship(ctx, source, target, relType, props)
}

// UpdateRelationship replaces a relationship: the old one is deleted and a
// new one, with a new id, is created. Input is validated before anything
// is deleted.
func (e *Editor) UpdateRelationship(ctx context.Context, id, source, target, relType string, props graph.Properties) (graph.Relationship, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok, err := e.store.GetRelationship(ctx, id); err != nil {
		return graph.Relationship{}, err
	} else if !ok {
		return graph.Relationship{}, errors.NotFoundErrorf("relationship not found: %s", id)
	}
	relType, err := e.validateRelationship(ctx, source, target, relType)
	if err != nil {
		return graph.Relationship{}, err
	}

	if err := e.deleteRelationship(ctx, id); err != nil {
		return graph.Relationship{}, err
	}
	r, err := e.createRelationship(ctx, source, target, relType, props)
	if err != nil {
		return graph.Relationship{}, err
	}
	e.logger.Info("updated relationship", "old_id", id, "new_id", r.ID)
	return r, nil
}

// DeleteRelationship deletes one relationship.
func (e *Editor) DeleteRelationship(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok, err := e.store.GetRelationship(ctx, id); err != nil {
		return err
	} else if !ok {
		return errors.NotFoundErrorf("relationship not found: %s", id)
	}
	return e.deleteRelationship(ctx, id)
}

func (e *Editor) validateRelationship(ctx context.Context, source, target, relType string) (string, error) {
	if strings.TrimSpace(relType) == "" {
		return "", errors.ValidationError("relationship type is required")
	}
	if source == target {
		return "", errors.ValidationErrorf("self-loops are not allowed: %s", source)
	}
	if err := e.requireNode(ctx, source, "source node"); err != nil {
		return "", err
	}
	if err := e.requireNode(ctx, target, "target node"); err != nil {
		return "", err
	}
	return remap.SanitizeType(relType), nil
}

func (e *Editor) createRelationship(ctx context.Context, source, target, relType string, props graph.Properties) (graph.Relationship, error) {
	props = props.Clone()
	e.logger.Info("creating relationship", "source", source, "type", relType, "target", target)

	id, err := e.store.CreateRelationship(ctx, source, target, relType, props)
	if err != nil {
		e.logger.Error("error creating relationship", "error", err)
		return graph.Relationship{}, err
	}

	r := graph.Relationship{ID: id, Type: relType, Source: source, Target: target, Properties: props}
	e.snap.PutRelationship(r)
	return r, nil
}

func (e *Editor) deleteRelationship(ctx context.Context, id string) error {
	if err := e.store.DeleteRelationship(ctx, id); err != nil {
		e.logger.Error("error deleting relationship", "id", id, "error", err)
		return err
	}
	e.snap.RemoveRelationship(id)
	e.logger.Info("deleted relationship", "id", id)
	return nil
}

func (e *Editor) requireNode(ctx context.Context, id, what string) error {
	if id == "" {
		return errors.ValidationErrorf("%s id is required", what)
	}
	_, ok, err := e.store.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NotFoundErrorf("%s not found: %s", what, id)
	}
	return nil
}

// DisplayTitle renders "title [id]" where title is the first non-blank of
// name, english_name, the first label, or "Node".
func DisplayTitle(n graph.Node) string {
	title := ""
	for _, key := range []string{"name", "english_name"} {
		if v := n.Properties.Get(key); !v.IsBlank() {
			title = v.String()
			break
		}
	}
	if title == "" && len(n.Labels) > 0 {
		title = n.Labels[0]
	}
	if title == "" {
		title = graph.LabelNode
	}
	return fmt.Sprintf("%s [%s]", title, n.ID)
}

// ParseLabels splits "Step, Face" or "Step:Face" into labels.
func ParseLabels(s string) []string {
	return CleanLabels(strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ':' }))
}

// CleanLabels trims labels and drops blanks and repeats, keeping order.
func CleanLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
