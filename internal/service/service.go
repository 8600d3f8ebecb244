// Package service wires a graph store, its snapshot, the interchange engine
// and the editor into the single object the HTTP layer and CLI talk to.
package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rohankatakam/featurekg/internal/cache"
	"github.com/rohankatakam/featurekg/internal/document"
	"github.com/rohankatakam/featurekg/internal/editor"
	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/graph"
	"github.com/rohankatakam/featurekg/internal/interchange"
	"github.com/rohankatakam/featurekg/internal/journal"
	"github.com/rohankatakam/featurekg/internal/labels"
	"github.com/rohankatakam/featurekg/internal/snapshot"
)

// AppTitle is reported by the health endpoint.
const AppTitle = "Feature recognition rule repository"

// Dialer opens a graph store. It is called on start and on every reconnect.
type Dialer func(ctx context.Context) (graph.Store, error)

// Options holds the collaborators shared across reconnects.
type Options struct {
	Logger      *slog.Logger
	Journal     journal.Journal
	Cache       cache.Store
	Batch       interchange.BatchConfig
	Categorizer *labels.Categorizer
	// Now overrides time.Now, for tests.
	Now func() time.Time
}

// Service owns the current store session. Reconnect swaps the session; all
// other methods hold the session read lock for their whole duration.
type Service struct {
	dial        Dialer
	logger      *slog.Logger
	journal     journal.Journal
	cache       cache.Store
	batch       interchange.BatchConfig
	categorizer *labels.Categorizer
	now         func() time.Time

	mu        sync.RWMutex
	store     graph.Store
	connected bool
	snap      *snapshot.Cache
	editor    *editor.Editor
	importer  *interchange.Importer
	exporter  *interchange.Exporter
}

// New dials the store and loads the first snapshot. A failed dial is not an
// error: the service starts disconnected and every graph call reports the
// dial failure until Reconnect succeeds.
func New(ctx context.Context, dial Dialer, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.Batch == (interchange.BatchConfig{}) {
		opts.Batch = interchange.DefaultBatchConfig()
	}
	if opts.Categorizer == nil {
		opts.Categorizer = labels.NewCategorizer()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		dial:        dial,
		logger:      opts.Logger.With("component", "service"),
		journal:     opts.Journal,
		cache:       opts.Cache,
		batch:       opts.Batch,
		categorizer: opts.Categorizer,
		now:         opts.Now,
	}

	store, err := dial(ctx)
	if err != nil {
		s.logger.Error("graph store connection failed, starting disconnected", "error", err)
		s.install(graph.NewOfflineStore(err), false)
		return s
	}
	s.install(store, true)
	if err := s.snap.Reload(ctx); err != nil {
		s.logger.Warn("initial snapshot load failed", "error", err)
	}
	return s
}

// install builds the per-session components around store. Caller holds mu
// or has exclusive access.
func (s *Service) install(store graph.Store, connected bool) {
	base := s.logger
	s.store = store
	s.connected = connected
	s.snap = snapshot.New(store, base)
	s.editor = editor.New(store, s.snap, base)
	s.importer = interchange.NewImporter(store, s.snap, base,
		interchange.WithBatchConfig(s.batch),
		interchange.WithImportJournal(s.journal),
		interchange.WithImportClock(s.now))
	s.exporter = interchange.NewExporter(store, s.snap, base,
		interchange.WithCache(s.cache),
		interchange.WithExportJournal(s.journal),
		interchange.WithCategorizer(s.categorizer),
		interchange.WithExportClock(s.now))
}

// Reconnect re-dials the store and reloads the snapshot. On failure the
// service is left disconnected.
func (s *Service) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Close(ctx); err != nil {
		s.logger.Warn("error closing previous store", "error", err)
	}
	// A new snapshot restarts its generation count, so cached exports keyed
	// by the old generations must go.
	if err := s.cache.Purge(ctx); err != nil {
		s.logger.Warn("export cache purge failed", "error", err)
	}

	store, err := s.dial(ctx)
	if err != nil {
		s.logger.Error("reconnect failed", "error", err)
		s.install(graph.NewOfflineStore(err), false)
		if errors.IsConnection(err) {
			return err
		}
		return errors.ConnectionError(err, "reconnect failed")
	}

	s.install(store, true)
	if err := s.snap.Reload(ctx); err != nil {
		return err
	}
	s.logger.Info("reconnected to graph store")
	return nil
}

// HealthStatus is the liveness report.
type HealthStatus struct {
	Status            string    `json:"status"`
	DatabaseConnected bool      `json:"database_connected"`
	AppTitle          string    `json:"app_title"`
	Nodes             int       `json:"nodes"`
	Relationships     int       `json:"relationships"`
	SnapshotLoadedAt  time.Time `json:"snapshot_loaded_at"`
}

// Health reports whether the last dial succeeded, plus snapshot size. It
// does not touch the store.
func (s *Service) Health() HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes, rels := s.snap.Counts()
	return HealthStatus{
		Status:            "ok",
		DatabaseConnected: s.connected,
		AppTitle:          AppTitle,
		Nodes:             nodes,
		Relationships:     rels,
		SnapshotLoadedAt:  s.snap.LoadedAt(),
	}
}

// HealthCheck probes the store. It lets graph.WatchHealth follow reconnects.
func (s *Service) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.HealthCheck(ctx)
}

// Watch publishes periodic store health until ctx is done.
func (s *Service) Watch(ctx context.Context, interval time.Duration) {
	graph.WatchHealth(ctx, s, interval, s.logger, func(healthy bool) {
		if !healthy {
			s.logger.Warn("graph store became unhealthy")
		}
	})
}

// ConnectionTest is the result of an explicit round trip to the store.
type ConnectionTest struct {
	Connected bool              `json:"connected"`
	Version   string            `json:"neo4j_version,omitempty"`
	Info      *graph.ServerInfo `json:"database_info,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// TestConnection runs a health check and asks the store to describe itself.
// Failures are reported in the result, not returned.
func (s *Service) TestConnection(ctx context.Context) ConnectionTest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.Error("connection test failed", "error", err)
		return ConnectionTest{Error: err.Error()}
	}
	info, err := s.store.Describe(ctx)
	if err != nil {
		s.logger.Error("connection test failed", "error", err)
		return ConnectionTest{Error: err.Error()}
	}
	version := "Unknown"
	if len(info.Version) > 0 {
		version = info.Version[0]
	}
	return ConnectionTest{Connected: true, Version: version, Info: &info}
}

// GraphData is the whole snapshot.
type GraphData struct {
	Nodes         []graph.Node         `json:"nodes"`
	Relationships []graph.Relationship `json:"relationships"`
}

// GraphData reloads the snapshot when connected and returns it. When
// disconnected the last snapshot is returned as is.
func (s *Service) GraphData(ctx context.Context) (GraphData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.connected {
		if err := s.snap.Reload(ctx); err != nil {
			return GraphData{}, err
		}
	}
	var out GraphData
	s.snap.View(func(nodes []graph.Node, rels []graph.Relationship) {
		out.Nodes = append(make([]graph.Node, 0, len(nodes)), nodes...)
		out.Relationships = append(make([]graph.Relationship, 0, len(rels)), rels...)
	})
	return out, nil
}

// Labels returns every label in the graph, categorized.
func (s *Service) Labels(ctx context.Context) (labels.Categorized, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.store.DistinctLabels(ctx)
	if err != nil {
		return nil, err
	}
	return s.categorizer.Categorize(all), nil
}

// DebugNodes returns the first few nodes straight from the store.
func (s *Service) DebugNodes(ctx context.Context) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.SampleNodes(ctx, graph.DefaultSampleLen)
}

// Repository is a Repository node in list form.
type Repository struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Properties graph.Properties `json:"properties"`
}

// Repositories lists Repository nodes ordered by name.
func (s *Service) Repositories(ctx context.Context) ([]Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes, err := s.store.Repositories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Repository, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Repository{
			ID:         n.ID,
			Name:       n.Properties.Get("name").String(),
			Properties: n.Properties,
		})
	}
	return out, nil
}

// RepositoryStructures returns the categorized labels of the structures a
// repository owns.
func (s *Service) RepositoryStructures(ctx context.Context, repositoryID string) (labels.Categorized, error) {
	if repositoryID == "" {
		return nil, errors.ValidationError("repository id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := s.store.StructureLabels(ctx, repositoryID)
	if err != nil {
		return nil, err
	}
	return s.categorizer.Categorize(found), nil
}

// CRUD

func (s *Service) CreateNode(ctx context.Context, labels []string, props graph.Properties) (graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editor.CreateNode(ctx, labels, props)
}

func (s *Service) UpdateNode(ctx context.Context, id string, labels []string, props graph.Properties) (graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editor.UpdateNode(ctx, id, labels, props)
}

func (s *Service) DeleteNode(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editor.DeleteNode(ctx, id)
}

func (s *Service) CreateRelationship(ctx context.Context, source, target, relType string, props graph.Properties) (graph.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editor.CreateRelationship(ctx, source, target, relType, props)
}

func (s *Service) UpdateRelationship(ctx context.Context, id, source, target, relType string, props graph.Properties) (graph.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editor.UpdateRelationship(ctx, id, source, target, relType, props)
}

func (s *Service) DeleteRelationship(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editor.DeleteRelationship(ctx, id)
}

// Exports

// ExportFlat returns the whole snapshot as a flat document.
func (s *Service) ExportFlat() document.FlatDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exporter.ExportAll()
}

func (s *Service) ExportSelective(ctx context.Context, selected []string) (document.SelectiveDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exporter.ExportSelective(ctx, selected)
}

func (s *Service) ExportHierarchical(ctx context.Context, selected []string, repositoryID string) (*document.FeatureDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exporter.ExportHierarchical(ctx, selected, repositoryID)
}

// ExportHierarchicalXML returns the encoded hierarchical document, served
// from the export cache when the snapshot has not changed.
func (s *Service) ExportHierarchicalXML(ctx context.Context, selected []string, repositoryID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exporter.ExportHierarchicalXML(ctx, selected, repositoryID)
}

// Imports

func (s *Service) ImportHierarchicalXML(ctx context.Context, r io.Reader, repositoryName string) (interchange.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.importer.ImportHierarchicalXML(ctx, r, repositoryName)
}

func (s *Service) ImportFlat(ctx context.Context, doc document.FlatDocument) (interchange.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.importer.ImportFlat(ctx, doc)
}

func (s *Service) ImportFlatJSON(ctx context.Context, r io.Reader, cleanse bool) (interchange.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.importer.ImportFlatJSON(ctx, r, cleanse)
}

// Cleanse repairs a flat document without touching the graph.
func (s *Service) Cleanse(doc document.FlatDocument) (document.FlatDocument, interchange.CleanseReport) {
	return interchange.CleanseWithReport(doc)
}

// History returns recent interchange runs, newest first.
func (s *Service) History(ctx context.Context, limit int, kinds ...string) ([]journal.Entry, error) {
	entries, err := s.journal.Recent(ctx, limit, kinds...)
	if err != nil {
		return nil, errors.DatabaseError(err, "failed to read journal")
	}
	return entries, nil
}

// Run returns one journal entry.
func (s *Service) Run(ctx context.Context, id string) (journal.Entry, error) {
	e, err := s.journal.Get(ctx, id)
	if err == journal.ErrNotFound {
		return journal.Entry{}, errors.NotFoundErrorf("run not found: %s", id)
	}
	if err != nil {
		return journal.Entry{}, errors.DatabaseError(err, "failed to read journal")
	}
	return e, nil
}

// Close releases the store, journal and cache.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.Close(ctx)
	if jerr := s.journal.Close(); jerr != nil && err == nil {
		err = jerr
	}
	if cerr := s.cache.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
