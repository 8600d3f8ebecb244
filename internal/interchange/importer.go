// Package interchange converts between the graph and its document forms:
// flat JSON, selective JSON and hierarchical StandardFeatureStructure XML.
package interchange

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/featurekg/internal/document"
	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/graph"
	"github.com/rohankatakam/featurekg/internal/journal"
	"github.com/rohankatakam/featurekg/internal/metrics"
	"github.com/rohankatakam/featurekg/internal/remap"
	"github.com/rohankatakam/featurekg/internal/snapshot"
)

// Importer loads documents into the store. Imports are serialized: one
// batch at a time per Importer.
type Importer struct {
	store   graph.Store
	snap    *snapshot.Cache
	logger  *slog.Logger
	batch   BatchConfig
	journal journal.Recorder
	now     func() time.Time

	mu sync.Mutex
}

// ImporterOption configures an Importer
type ImporterOption func(*Importer)

func WithBatchConfig(bc BatchConfig) ImporterOption {
	return func(i *Importer) { i.batch = bc }
}

func WithImportJournal(r journal.Recorder) ImporterOption {
	return func(i *Importer) {
		if r != nil {
			i.journal = r
		}
	}
}

// WithImportClock overrides time.Now, for tests.
func WithImportClock(now func() time.Time) ImporterOption {
	return func(i *Importer) { i.now = now }
}

// NewImporter creates an importer writing to store and reloading snap after
// every batch.
func NewImporter(store graph.Store, snap *snapshot.Cache, logger *slog.Logger, opts ...ImporterOption) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Importer{
		store:   store,
		snap:    snap,
		logger:  logger.With("component", "importer"),
		batch:   DefaultBatchConfig(),
		journal: journal.Nop{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// run is the state of one import batch.
type run struct {
	id      string
	kind    string
	started time.Time
	ctx     context.Context
	limiter *rate.Limiter
	batch   BatchConfig
	logger  *slog.Logger
	summary Summary
}

func (i *Importer) begin(ctx context.Context, kind string, records int) (*run, error) {
	if err := i.store.HealthCheck(ctx); err != nil {
		if errors.IsConnection(err) {
			return nil, err
		}
		return nil, errors.ConnectionError(err, "graph store unavailable")
	}

	id := uuid.New().String()
	bc := i.batch.forRecords(records)
	limiter := rate.NewLimiter(rate.Inf, 1)
	if bc.WritesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(bc.WritesPerSecond), 1)
	}

	r := &run{
		id:      id,
		kind:    kind,
		started: i.now(),
		// A batch runs to completion once started; the store still applies
		// its per-statement timeout.
		ctx:     context.WithoutCancel(ctx),
		limiter: limiter,
		batch:   bc,
		logger:  i.logger.With("run_id", id, "kind", kind),
		summary: newSummary(id),
	}
	r.logger.Info("import started", "records", records)
	return r, nil
}

func (r *run) createNode(store graph.Store, labels []string, props graph.Properties) (string, bool) {
	if err := r.limiter.Wait(r.ctx); err != nil {
		r.logger.Warn("write throttle rejected node", "labels", strings.Join(labels, ":"), "error", err)
		r.summary.Record(remap.NodeFailed())
		return "", false
	}
	id, err := store.CreateNode(r.ctx, labels, props)
	if err != nil {
		r.logger.Warn("node creation failed", "labels", strings.Join(labels, ":"), "error", err)
		r.summary.Record(remap.NodeFailed())
		return "", false
	}
	r.summary.Record(remap.NodeCreated())
	if progressDue(r.summary.NodesCreated, r.batch.NodeProgressEvery) {
		r.logger.Info("import progress", "nodes_created", r.summary.NodesCreated)
	}
	return id, true
}

func (r *run) createRelationship(store graph.Store, ends remap.Endpoints, relType string, props graph.Properties) {
	if err := r.limiter.Wait(r.ctx); err != nil {
		r.logger.Warn("write throttle rejected relationship", "type", relType, "error", err)
		r.summary.Record(remap.RelationshipSkipped(remap.SkipWriteFailed))
		return
	}
	if _, err := store.CreateRelationship(r.ctx, ends.Source, ends.Target, relType, props); err != nil {
		r.logger.Warn("relationship creation failed", "type", relType, "source", ends.Source, "target", ends.Target, "error", err)
		r.summary.Record(remap.RelationshipSkipped(remap.SkipWriteFailed))
		return
	}
	r.summary.Record(remap.RelationshipCreated())
	if progressDue(r.summary.RelationshipsCreated, r.batch.RelationshipProgressEvery) {
		r.logger.Info("import progress", "relationships_created", r.summary.RelationshipsCreated)
	}
}

func (r *run) skip(reason remap.SkipReason, source, target string) {
	r.logger.Debug("relationship skipped", "reason", reason, "source", source, "target", target)
	r.summary.Record(remap.RelationshipSkipped(reason))
}

// finish reloads the snapshot whatever happened, then records the run.
func (i *Importer) finish(r *run, repository string) Summary {
	if err := i.snap.Reload(r.ctx); err != nil {
		r.logger.Error("snapshot reload after import failed", "error", err)
	}

	finished := i.now()
	s := r.summary
	metrics.RecordImport(r.kind, s.NodesCreated, s.NodesFailed, s.RelationshipsCreated, s.RelationshipsSkipped, finished.Sub(r.started), nil)

	entry := journal.Entry{
		ID:                   r.id,
		Kind:                 r.kind,
		Repository:           repository,
		NodesCreated:         s.NodesCreated,
		NodesFailed:          s.NodesFailed,
		RelationshipsCreated: s.RelationshipsCreated,
		RelationshipsSkipped: s.RelationshipsSkipped,
		StartedAt:            r.started,
		FinishedAt:           finished,
	}
	if err := i.journal.Record(r.ctx, entry); err != nil {
		r.logger.Warn("failed to record import in journal", "error", err)
	}

	r.logger.Info("import completed",
		"nodes_created", s.NodesCreated,
		"nodes_failed", s.NodesFailed,
		"relationships_created", s.RelationshipsCreated,
		"relationships_skipped", s.RelationshipsSkipped,
		"duration", finished.Sub(r.started))
	return s
}

// ImportFlat creates every node, then every relationship whose endpoints
// were created in this batch. Failed and rejected records are counted, not
// returned.
func (i *Importer) ImportFlat(ctx context.Context, doc document.FlatDocument) (Summary, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	r, err := i.begin(ctx, journal.KindImportFlat, len(doc.Nodes)+len(doc.Relationships))
	if err != nil {
		return Summary{}, err
	}

	ids := remap.NewIDMap()
	for _, n := range doc.Nodes {
		labels := n.Labels
		if len(labels) == 0 {
			labels = []string{graph.LabelNode}
		}
		graphID, ok := r.createNode(i.store, labels, remap.NormalizeProperties(n.Properties))
		if ok {
			ids.Bind(n.ID, graphID)
		}
	}

	for _, rel := range doc.Relationships {
		ends, reason, ok := ids.Resolve(rel.Source, rel.Target)
		if !ok {
			r.skip(reason, rel.Source, rel.Target)
			continue
		}
		r.createRelationship(i.store, ends, remap.SanitizeType(rel.Type), remap.NormalizeProperties(rel.Properties))
	}

	return i.finish(r, ""), nil
}

// ImportFlatJSON decodes a flat document, optionally cleanses it, and imports it.
func (i *Importer) ImportFlatJSON(ctx context.Context, rd io.Reader, cleanse bool) (Summary, error) {
	doc, err := document.DecodeFlat(rd)
	if err != nil {
		return Summary{}, err
	}
	if cleanse {
		doc = Cleanse(doc)
	}
	return i.ImportFlat(ctx, doc)
}

// ImportHierarchicalXML parses a StandardFeatureStructure document and
// imports it. A parse error aborts before anything is written.
func (i *Importer) ImportHierarchicalXML(ctx context.Context, rd io.Reader, repositoryName string) (Summary, error) {
	doc, err := document.DecodeFeatureDocument(rd)
	if err != nil {
		return Summary{}, err
	}
	return i.ImportHierarchical(ctx, doc, repositoryName)
}

// ImportHierarchical rebuilds the document depth first: an optional
// Repository, then per Structure its node, its faces and the edges between
// them. Face numbers resolve only within their own Structure.
func (i *Importer) ImportHierarchical(ctx context.Context, doc *document.FeatureDocument, repositoryName string) (Summary, error) {
	if doc == nil {
		return Summary{}, errors.ValidationError("feature document is required")
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	r, err := i.begin(ctx, journal.KindImportHierarchical, countRecords(doc))
	if err != nil {
		return Summary{}, err
	}

	var repositoryID string
	if repositoryName != "" {
		props := graph.Properties{
			"name":       graph.String(repositoryName),
			"type":       graph.String(graph.LabelRepository),
			"created_at": graph.String(r.started.UTC().Format(time.RFC3339)),
		}
		if id, ok := r.createNode(i.store, []string{graph.LabelRepository}, props); ok {
			repositoryID = id
			r.logger.Info("repository node created", "repository", repositoryName, "id", id)
		}
	}

	faces := remap.NewFaceMap()
	for _, s := range doc.Structures {
		i.importStructure(r, s, repositoryID, faces)
	}

	return i.finish(r, repositoryName), nil
}

func (i *Importer) importStructure(r *run, s document.Structure, repositoryID string, faces *remap.FaceMap) {
	label := s.StructureEnglishName
	if label == "" {
		label = graph.LabelStructure
	}
	structureProps := remap.NormalizeProperties(graph.Properties{
		"structure_no":           graph.String(s.StructureNo),
		"structure_name":         graph.String(s.StructureName),
		"structure_english_name": graph.String(s.StructureEnglishName),
	})

	structureID, ok := r.createNode(i.store, []string{label}, structureProps)
	if ok && repositoryID != "" {
		r.createRelationship(i.store, remap.Endpoints{Source: repositoryID, Target: structureID}, graph.RelHasStructure, graph.Properties{})
	}

	faces.Reset()
	for _, f := range s.FaceList.Faces {
		innerLoop := f.InnerLoopSize
		if innerLoop == "" {
			innerLoop = document.DefaultInnerLoopSize
		}
		props := remap.NormalizeProperties(graph.Properties{
			"face_no":                graph.String(f.FaceNo),
			"face_type":              graph.String(f.FaceType),
			"outter_loop_size":       graph.String(f.OutterLoopSize),
			"inner_loop_size":        graph.String(innerLoop),
			"is_convex_surface":      graph.String(f.IsConvexSurface),
			"structure_no":           graph.String(s.StructureNo),
			"structure_english_name": graph.String(s.StructureEnglishName),
		})

		faceID, created := r.createNode(i.store, []string{graph.LabelFace}, props)
		if !created {
			continue
		}
		faces.Bind(f.FaceNo, faceID)
		if structureID != "" {
			r.createRelationship(i.store, remap.Endpoints{Source: structureID, Target: faceID}, graph.RelHasFace, graph.Properties{})
		}
	}

	for _, e := range s.Edges() {
		ends, reason, ok := faces.Resolve(e.SourceFaceNo, e.TargetFaceNo)
		if !ok {
			r.skip(reason, e.SourceFaceNo, e.TargetFaceNo)
			continue
		}
		r.createRelationship(i.store, ends, graph.RelRelationship, edgeProperties(e))
	}
}

func edgeProperties(e document.Edge) graph.Properties {
	size := e.SizeEdgeIntersection
	if size == "" {
		size = document.DefaultSizeEdgeIntersection
	}
	return remap.NormalizeProperties(graph.Properties{
		"is_intersection":        graph.String(e.IsIntersection),
		"is_parallel":            graph.String(e.IsParallel),
		"is_vertical":            graph.String(e.IsVertical),
		"is_convexity":           graph.String(e.IsConvexity),
		"size_edge_intersection": graph.String(size),
		"relationship_type":      graph.String(e.RelationShipType),
		"flag_angle_degree":      graph.String(e.FlagAngleDegree),
	})
}

func countRecords(doc *document.FeatureDocument) int {
	n := 0
	for _, s := range doc.Structures {
		n += 1 + len(s.FaceList.Faces) + len(s.Edges())
	}
	return n
}
