package interchange

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/featurekg/internal/cache"
	"github.com/rohankatakam/featurekg/internal/document"
	"github.com/rohankatakam/featurekg/internal/graph"
	"github.com/rohankatakam/featurekg/internal/journal"
	"github.com/rohankatakam/featurekg/internal/labels"
	"github.com/rohankatakam/featurekg/internal/metrics"
	"github.com/rohankatakam/featurekg/internal/snapshot"
)

// maxLabelQueries bounds concurrent per-label store queries during a
// hierarchical export.
const maxLabelQueries = 4

// Exporter renders the graph into document form. Flat and selective exports
// read the snapshot; hierarchical exports query the store per label.
type Exporter struct {
	store       graph.Store
	snap        *snapshot.Cache
	logger      *slog.Logger
	cache       cache.Store
	categorizer *labels.Categorizer
	journal     journal.Recorder
	now         func() time.Time
}

// ExporterOption configures an Exporter
type ExporterOption func(*Exporter)

// WithCache keeps rendered XML exports in c.
func WithCache(c cache.Store) ExporterOption {
	return func(e *Exporter) {
		if c != nil {
			e.cache = c
		}
	}
}

func WithExportJournal(r journal.Recorder) ExporterOption {
	return func(e *Exporter) {
		if r != nil {
			e.journal = r
		}
	}
}

func WithCategorizer(c *labels.Categorizer) ExporterOption {
	return func(e *Exporter) { e.categorizer = c }
}

// WithExportClock overrides time.Now, for tests.
func WithExportClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) { e.now = now }
}

func NewExporter(store graph.Store, snap *snapshot.Cache, logger *slog.Logger, opts ...ExporterOption) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Exporter{
		store:       store,
		snap:        snap,
		logger:      logger.With("component", "exporter"),
		cache:       cache.Nop{},
		categorizer: labels.NewCategorizer(),
		journal:     journal.Nop{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exporter) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// ExportAll returns the whole snapshot as a flat document.
func (e *Exporter) ExportAll() document.FlatDocument {
	start := e.now()
	doc := document.FlatDocument{
		ExportedAt: e.timestamp(),
		Version:    document.FormatVersion,
	}
	e.snap.View(func(nodes []graph.Node, rels []graph.Relationship) {
		doc.Nodes = make([]document.FlatNode, 0, len(nodes))
		for _, n := range nodes {
			doc.Nodes = append(doc.Nodes, document.FlatNodeOf(n))
		}
		doc.Relationships = make([]document.FlatRelationship, 0, len(rels))
		for _, r := range rels {
			doc.Relationships = append(doc.Relationships, document.FlatRelationshipOf(r))
		}
	})
	metrics.RecordExport(journal.KindExportFlat, e.now().Sub(start), nil)
	return doc
}

// ExportSelective returns the nodes carrying any of selected, the faces
// they own over HAS_FACE in either direction, and every relationship whose
// endpoints both lie in that set.
func (e *Exporter) ExportSelective(ctx context.Context, selected []string) (document.SelectiveDocument, error) {
	start := e.now()
	want := make(map[string]struct{}, len(selected))
	for _, l := range selected {
		want[l] = struct{}{}
	}

	doc := document.SelectiveDocument{
		ExportedAt:     e.timestamp(),
		ExportType:     document.ExportTypeSelective,
		SelectedLabels: append([]string{}, selected...),
		Nodes:          []document.FlatNode{},
		Relationships:  []document.FlatRelationship{},
		Version:        document.FormatVersion,
	}

	e.snap.View(func(nodes []graph.Node, rels []graph.Relationship) {
		byID := make(map[string]graph.Node, len(nodes))
		included := make(map[string]struct{})
		add := func(n graph.Node) {
			if _, dup := included[n.ID]; dup {
				return
			}
			included[n.ID] = struct{}{}
			doc.Nodes = append(doc.Nodes, document.FlatNodeOf(n))
			if n.HasLabel(graph.LabelFace) {
				doc.Statistics.RelatedFaceNodes++
			}
		}

		matched := make(map[string]struct{})
		for _, n := range nodes {
			byID[n.ID] = n
			if hasAnyLabel(n, want) {
				matched[n.ID] = struct{}{}
				add(n)
			}
		}
		doc.Statistics.SelectedFeatureNodes = len(matched)

		for _, r := range rels {
			if r.Type != graph.RelHasFace {
				continue
			}
			if _, ok := matched[r.Source]; ok {
				if n, ok := byID[r.Target]; ok && n.HasLabel(graph.LabelFace) {
					add(n)
				}
			}
			if _, ok := matched[r.Target]; ok {
				if n, ok := byID[r.Source]; ok && n.HasLabel(graph.LabelFace) {
					add(n)
				}
			}
		}

		for _, r := range rels {
			_, okS := included[r.Source]
			_, okT := included[r.Target]
			if okS && okT {
				doc.Relationships = append(doc.Relationships, document.FlatRelationshipOf(r))
			}
		}
	})

	doc.Statistics.TotalNodes = len(doc.Nodes)
	doc.Statistics.TotalRelationships = len(doc.Relationships)

	finished := e.now()
	metrics.RecordExport(journal.KindExportSelective, finished.Sub(start), nil)
	e.record(ctx, journal.Entry{
		Kind:                 journal.KindExportSelective,
		Labels:               strings.Join(selected, ","),
		NodesCreated:         doc.Statistics.TotalNodes,
		RelationshipsCreated: doc.Statistics.TotalRelationships,
		StartedAt:            start,
		FinishedAt:           finished,
	})
	return doc, nil
}

func hasAnyLabel(n graph.Node, want map[string]struct{}) bool {
	for _, l := range n.Labels {
		if _, ok := want[l]; ok {
			return true
		}
	}
	return false
}

// structureGroup accumulates one exported Structure.
type structureGroup struct {
	structure document.Structure
	faces     map[document.FaceKey]struct{}
}

// ExportHierarchical builds a StandardFeatureStructure document from the
// Face-[RELATIONSHIP]->Face pairs of each label. An empty label list
// exports every label in the graph. repositoryID, when set, restricts the
// export to faces owned by that repository.
func (e *Exporter) ExportHierarchical(ctx context.Context, selected []string, repositoryID string) (*document.FeatureDocument, error) {
	start := e.now()
	doc, err := e.exportHierarchical(ctx, selected, repositoryID)
	finished := e.now()
	metrics.RecordExport(journal.KindExportHierarchical, finished.Sub(start), err)
	if err != nil {
		return nil, err
	}

	entry := journal.Entry{
		Kind:       journal.KindExportHierarchical,
		Repository: repositoryID,
		Labels:     strings.Join(selected, ","),
		StartedAt:  start,
		FinishedAt: finished,
	}
	for _, s := range doc.Structures {
		entry.NodesCreated += len(s.FaceList.Faces)
		entry.RelationshipsCreated += len(s.Edges())
	}
	e.record(ctx, entry)
	return doc, nil
}

func (e *Exporter) exportHierarchical(ctx context.Context, selected []string, repositoryID string) (*document.FeatureDocument, error) {
	if len(selected) == 0 {
		all, err := e.store.DistinctLabels(ctx)
		if err != nil {
			return nil, err
		}
		selected = e.categorizer.Categorize(all).Flatten()
	}

	results := make([][]graph.FacePair, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLabelQueries)
	for idx, label := range selected {
		g.Go(func() error {
			pairs, err := e.store.FacePairs(gctx, label, repositoryID)
			if err != nil {
				return err
			}
			results[idx] = pairs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error("hierarchical export failed", "error", err)
		return nil, err
	}

	doc := &document.FeatureDocument{Structures: []document.Structure{}}
	for idx, label := range selected {
		doc.Structures = append(doc.Structures, groupPairs(label, results[idx])...)
		e.logger.Debug("label exported", "label", label, "pairs", len(results[idx]))
	}
	return doc, nil
}

// groupPairs folds one label's pairs into Structures keyed by the source
// face's structure_no, in discovery order. Faces are deduplicated on their
// five attributes; edges are kept as found.
func groupPairs(label string, pairs []graph.FacePair) []document.Structure {
	var order []graph.Value
	groups := make(map[graph.Value]*structureGroup)

	for _, p := range pairs {
		src := p.Source.Properties
		key := src.Get("structure_no")
		if key.IsNull() {
			key = graph.String(document.DefaultStructureNo)
		}

		g, ok := groups[key]
		if !ok {
			englishName := src.Get("structure_english_name").String()
			if englishName == "" {
				englishName = label
			}
			g = &structureGroup{
				structure: document.Structure{
					StructureNo:          key.String(),
					StructureName:        src.Get("structure_name").String(),
					StructureEnglishName: englishName,
					EdgeList:             &document.EdgeList{Edges: []document.Edge{}},
				},
				faces: make(map[document.FaceKey]struct{}),
			}
			groups[key] = g
			order = append(order, key)
		}

		for _, face := range []graph.Node{p.Source, p.Target} {
			fk := document.FaceKeyOf(face.Properties)
			if _, dup := g.faces[fk]; dup {
				continue
			}
			g.faces[fk] = struct{}{}
			g.structure.FaceList.Faces = append(g.structure.FaceList.Faces, fk.Face())
		}
		g.structure.EdgeList.Edges = append(g.structure.EdgeList.Edges, document.EdgeOf(p.Source, p.Target, p.Relationship))
	}

	out := make([]document.Structure, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key].structure)
	}
	return out
}

// ExportHierarchicalXML renders ExportHierarchical as XML. Renders are
// cached per snapshot generation, so any mutation invalidates them.
func (e *Exporter) ExportHierarchicalXML(ctx context.Context, selected []string, repositoryID string) ([]byte, error) {
	key := cache.ExportKey("xml", e.snap.Generation(), repositoryID, selected)
	data, hit, err := e.cache.Lookup(ctx, key)
	if err != nil {
		e.logger.Warn("export cache lookup failed", "key", key, "error", err)
	}
	metrics.RecordCacheLookup(hit)
	if hit {
		return data, nil
	}

	doc, err := e.ExportHierarchical(ctx, selected, repositoryID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := doc.Encode(&buf); err != nil {
		return nil, err
	}

	if err := e.cache.Store(ctx, key, buf.Bytes()); err != nil {
		e.logger.Warn("export cache store failed", "key", key, "error", err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) record(ctx context.Context, entry journal.Entry) {
	entry.ID = uuid.New().String()
	if err := e.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		e.logger.Warn("failed to record export in journal", "error", err)
	}
}
