package interchange

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/featurekg/internal/document"
	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/graph"
	"github.com/rohankatakam/featurekg/internal/journal"
	"github.com/rohankatakam/featurekg/internal/remap"
	"github.com/rohankatakam/featurekg/internal/snapshot"
)

const singleEdgeXML = `<?xml version="1.0" encoding="UTF-8"?>
<StandardFeatureStructure>
    <Structure StructureNo="1" StructureName="台阶" StructureEnglishName="Step">
        <FaceList>
            <Face FaceNo="1" FaceType="1" OutterLoopSize="4" InnerLoopSize="0" IsConvexSurface="0"/>
            <Face FaceNo="2" FaceType="1" OutterLoopSize="4" InnerLoopSize="" IsConvexSurface="0"/>
        </FaceList>
        <EdgeList>
            <Edge SourceFaceNo="1" TargetFaceNo="{{target}}" IsIntersection="1" IsParallel="0" IsVertical="1" IsConvexity="1" SizeEdgeIntersection="" RelationShipType="2" FlagAngleDegree="90"/>
        </EdgeList>
    </Structure>
</StandardFeatureStructure>`

const twoStructuresXML = `<StandardFeatureStructure>
    <Structure StructureNo="1" StructureEnglishName="Step">
        <FaceList>
            <Face FaceNo="1"/>
            <Face FaceNo="2"/>
        </FaceList>
        <EdgeList>
            <Edge SourceFaceNo="1" TargetFaceNo="2"/>
        </EdgeList>
    </Structure>
    <Structure StructureNo="2" StructureEnglishName="Step">
        <FaceList>
            <Face FaceNo="1" FaceType="3"/>
            <Face FaceNo="2" FaceType="3"/>
        </FaceList>
        <EdgeList>
            <Edge SourceFaceNo="2" TargetFaceNo="1"/>
        </EdgeList>
    </Structure>
</StandardFeatureStructure>`

// recorder keeps journal entries in memory.
type recorder struct {
	entries []journal.Entry
}

func (r *recorder) Record(_ context.Context, e journal.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

type engine struct {
	store    *graph.MemoryStore
	snap     *snapshot.Cache
	importer *Importer
	exporter *Exporter
	journal  *recorder
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	store := graph.NewMemoryStore()
	snap := snapshot.New(store, nil)
	rec := &recorder{}
	clock := func() time.Time { return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC) }
	return &engine{
		store:    store,
		snap:     snap,
		importer: NewImporter(store, snap, nil, WithImportJournal(rec), WithImportClock(clock)),
		exporter: NewExporter(store, snap, nil, WithExportJournal(rec), WithExportClock(clock)),
		journal:  rec,
	}
}

func singleEdge(target string) string {
	return strings.Replace(singleEdgeXML, "{{target}}", target, 1)
}

func relationshipsOfType(t *testing.T, store graph.Store, relType string) []graph.Relationship {
	t.Helper()
	all, err := store.AllRelationships(context.Background())
	require.NoError(t, err)
	var out []graph.Relationship
	for _, r := range all {
		if r.Type == relType {
			out = append(out, r)
		}
	}
	return out
}

func TestImportHierarchicalScenarios(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		wantRels    int
		wantSkipped int
		wantReason  remap.SkipReason
		wantEdges   int
	}{
		{name: "single edge", target: "2", wantRels: 3, wantEdges: 1},
		{name: "self loop", target: "1", wantRels: 2, wantSkipped: 1, wantReason: remap.SkipSelfLoop},
		{name: "dangling face", target: "9", wantRels: 2, wantSkipped: 1, wantReason: remap.SkipDangling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			summary, err := e.importer.ImportHierarchicalXML(context.Background(), strings.NewReader(singleEdge(tt.target)), "")
			require.NoError(t, err)

			assert.Equal(t, 3, summary.NodesCreated, "structure plus two faces")
			assert.Equal(t, tt.wantRels, summary.RelationshipsCreated)
			assert.Equal(t, tt.wantSkipped, summary.RelationshipsSkipped)
			if tt.wantReason != "" {
				assert.Equal(t, 1, summary.SkipReasons[tt.wantReason])
			}
			assert.Len(t, relationshipsOfType(t, e.store, graph.RelRelationship), tt.wantEdges)
			assert.Len(t, relationshipsOfType(t, e.store, graph.RelHasFace), 2)
		})
	}
}

func TestImportHierarchicalProperties(t *testing.T) {
	e := newEngine(t)
	_, err := e.importer.ImportHierarchicalXML(context.Background(), strings.NewReader(singleEdge("2")), "")
	require.NoError(t, err)

	faces, err := e.store.NodesByLabel(context.Background(), graph.LabelFace)
	require.NoError(t, err)
	require.Len(t, faces, 2)
	assert.Equal(t, graph.String("0"), faces[1].Properties.Get("inner_loop_size"), "empty InnerLoopSize becomes 0")
	assert.Equal(t, graph.String("Step"), faces[0].Properties.Get("structure_english_name"))
	assert.Equal(t, graph.String("1"), faces[0].Properties.Get("structure_no"))

	edges := relationshipsOfType(t, e.store, graph.RelRelationship)
	require.Len(t, edges, 1)
	assert.Equal(t, graph.String("1"), edges[0].Properties.Get("size_edge_intersection"), "empty SizeEdgeIntersection becomes 1")
	assert.Equal(t, graph.String("90"), edges[0].Properties.Get("flag_angle_degree"))

	structures, err := e.store.NodesByLabel(context.Background(), "Step")
	require.NoError(t, err)
	require.Len(t, structures, 1)
	assert.Equal(t, graph.String("台阶"), structures[0].Properties.Get("structure_name"))
}

func TestImportHierarchicalFaceNumbersAreStructureScoped(t *testing.T) {
	e := newEngine(t)
	summary, err := e.importer.ImportHierarchicalXML(context.Background(), strings.NewReader(twoStructuresXML), "")
	require.NoError(t, err)

	assert.Equal(t, 6, summary.NodesCreated)
	assert.Equal(t, 0, summary.RelationshipsSkipped)

	faces, err := e.store.NodesByLabel(context.Background(), graph.LabelFace)
	require.NoError(t, err)
	assert.Len(t, faces, 4, "FaceNo 1 and 2 exist once per structure")

	edges := relationshipsOfType(t, e.store, graph.RelRelationship)
	require.Len(t, edges, 2)
	for _, edge := range edges {
		src, ok, err := e.store.GetNode(context.Background(), edge.Source)
		require.NoError(t, err)
		require.True(t, ok)
		dst, ok, err := e.store.GetNode(context.Background(), edge.Target)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, src.Properties.Get("structure_no"), dst.Properties.Get("structure_no"))
	}
}

func TestImportHierarchicalLegacyNames(t *testing.T) {
	legacy := strings.NewReplacer("EdgeList", "RelationShipList", "<Edge ", "<RelationShip ").Replace(singleEdge("2"))
	require.Contains(t, legacy, "RelationShipList")

	current := newEngine(t)
	want, err := current.importer.ImportHierarchicalXML(context.Background(), strings.NewReader(singleEdge("2")), "")
	require.NoError(t, err)

	old := newEngine(t)
	got, err := old.importer.ImportHierarchicalXML(context.Background(), strings.NewReader(legacy), "")
	require.NoError(t, err)

	want.RunID, got.RunID = "", ""
	assert.Equal(t, want, got)

	wantEdges := relationshipsOfType(t, current.store, graph.RelRelationship)
	gotEdges := relationshipsOfType(t, old.store, graph.RelRelationship)
	require.Len(t, gotEdges, 1)
	assert.Equal(t, wantEdges[0].Properties, gotEdges[0].Properties)
}

func TestImportHierarchicalWithRepository(t *testing.T) {
	e := newEngine(t)
	summary, err := e.importer.ImportHierarchicalXML(context.Background(), strings.NewReader(singleEdge("2")), "bracket-v2")
	require.NoError(t, err)

	assert.Equal(t, 4, summary.NodesCreated)
	assert.Equal(t, 4, summary.RelationshipsCreated)

	repos, err := e.store.Repositories(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, graph.String("bracket-v2"), repos[0].Properties.Get("name"))
	assert.Equal(t, graph.String("Repository"), repos[0].Properties.Get("type"))
	assert.Equal(t, graph.String("2026-05-04T12:00:00Z"), repos[0].Properties.Get("created_at"))
	assert.Len(t, relationshipsOfType(t, e.store, graph.RelHasStructure), 1)

	require.Len(t, e.journal.entries, 1)
	assert.Equal(t, journal.KindImportHierarchical, e.journal.entries[0].Kind)
	assert.Equal(t, "bracket-v2", e.journal.entries[0].Repository)
	assert.Equal(t, summary.RunID, e.journal.entries[0].ID)
}

func TestImportHierarchicalParseErrorWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"truncated", `<StandardFeatureStructure><Structure StructureNo="1">`},
		{"wrong root", `<Neo4jGraphData><Nodes/></Neo4jGraphData>`},
		{"junk after root", singleEdge("2") + `<Structure StructureNo="9"><FaceList><Face FaceNo="1"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			_, err := e.importer.ImportHierarchicalXML(context.Background(), strings.NewReader(tt.xml), "repo")
			require.Error(t, err)
			assert.True(t, errors.IsParse(err))

			nodes, err := e.store.AllNodes(context.Background())
			require.NoError(t, err)
			assert.Empty(t, nodes)
			assert.Empty(t, e.journal.entries)
		})
	}
}

func TestImportReloadsSnapshot(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.snap.Reload(context.Background()))
	before := e.snap.Generation()

	_, err := e.importer.ImportHierarchicalXML(context.Background(), strings.NewReader(singleEdge("2")), "")
	require.NoError(t, err)

	nodes, rels := e.snap.Counts()
	assert.Equal(t, 3, nodes)
	assert.Equal(t, 3, rels)
	assert.Greater(t, e.snap.Generation(), before)
}

func TestImportOfflineStore(t *testing.T) {
	store := graph.NewOfflineStore(stderrors.New("dial tcp: connection refused"))
	imp := NewImporter(store, snapshot.New(store, nil), nil)

	_, err := imp.ImportHierarchicalXML(context.Background(), strings.NewReader(singleEdge("2")), "")
	require.Error(t, err)
	assert.True(t, errors.IsConnection(err))

	_, err = imp.ImportFlat(context.Background(), document.FlatDocument{})
	assert.True(t, errors.IsConnection(err))
}

func TestImportContinuesPastFailedRecords(t *testing.T) {
	e := newEngine(t)
	e.store.Hooks.BeforeCreateNode = func(labels []string, props graph.Properties) error {
		if props.Get("face_no") == graph.String("2") {
			return stderrors.New("constraint violated")
		}
		return nil
	}

	summary, err := e.importer.ImportHierarchicalXML(context.Background(), strings.NewReader(singleEdge("2")), "")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.NodesCreated)
	assert.Equal(t, 1, summary.NodesFailed)
	assert.Equal(t, 1, summary.RelationshipsCreated, "only the HAS_FACE of face 1")
	assert.Equal(t, 1, summary.SkipReasons[remap.SkipDangling])
	assert.True(t, summary.Partial())
}

func TestImportFlat(t *testing.T) {
	e := newEngine(t)
	doc := document.FlatDocument{
		Nodes: []document.FlatNode{
			{ID: "a", Labels: []string{"Step"}, Properties: graph.Properties{"structure_no": graph.String("1"), "note": graph.String("")}},
			{ID: "b", Labels: []string{"Face"}, Properties: graph.Properties{"face_no": graph.Int(1), "missing": graph.Null()}},
			{ID: "c", Labels: nil, Properties: nil},
		},
		Relationships: []document.FlatRelationship{
			{Source: "a", Target: "b", Type: "`HAS_FACE`", Properties: graph.Properties{}},
			{Source: "a", Target: "a", Type: "LOOP"},
			{Source: "a", Target: "zzz", Type: "HAS_FACE"},
			{Source: "b", Target: "c", Type: `"'"`},
		},
	}

	summary, err := e.importer.ImportFlat(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.NodesCreated)
	assert.Equal(t, 2, summary.RelationshipsCreated)
	assert.Equal(t, 2, summary.RelationshipsSkipped)
	assert.Equal(t, map[remap.SkipReason]int{remap.SkipSelfLoop: 1, remap.SkipDangling: 1}, summary.SkipReasons)

	steps, err := e.store.NodesByLabel(context.Background(), "Step")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	_, hasNote := steps[0].Properties.Lookup("note")
	assert.False(t, hasNote, "blank properties are dropped")

	assert.Len(t, relationshipsOfType(t, e.store, graph.RelHasFace), 1, "quotes stripped from type")
	assert.Len(t, relationshipsOfType(t, e.store, graph.RelDefault), 1, "type made only of quotes")

	untyped, err := e.store.NodesByLabel(context.Background(), graph.LabelNode)
	require.NoError(t, err)
	assert.Len(t, untyped, 1)
}

func TestImportFlatJSONCleanse(t *testing.T) {
	raw := `{"nodes":[{"id":"1","labels":["Face"],"properties":{}},{"id":"1","labels":["Face"],"properties":{}}],
	"relationships":[{"source":"1","target":"1","type":"X","properties":{}}]}`

	e := newEngine(t)
	summary, err := e.importer.ImportFlatJSON(context.Background(), strings.NewReader(raw), true)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NodesCreated)
	assert.Equal(t, 0, summary.RelationshipsSkipped, "cleanse removed the self loop first")

	_, err = e.importer.ImportFlatJSON(context.Background(), strings.NewReader("{nodes"), false)
	assert.True(t, errors.IsParse(err))
}

func TestRoundTripHierarchical(t *testing.T) {
	ctx := context.Background()
	src := newEngine(t)
	first, err := src.importer.ImportHierarchicalXML(ctx, strings.NewReader(twoStructuresXML), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	doc, err := src.exporter.ExportHierarchical(ctx, []string{"Step"}, "")
	require.NoError(t, err)
	require.NoError(t, doc.Encode(&buf))

	dst := newEngine(t)
	second, err := dst.importer.ImportHierarchicalXML(ctx, &buf, "")
	require.NoError(t, err)

	assert.Equal(t, first.NodesCreated, second.NodesCreated)
	assert.Equal(t, first.RelationshipsCreated, second.RelationshipsCreated)
	assert.Equal(t, 0, second.RelationshipsSkipped)

	again, err := dst.exporter.ExportHierarchical(ctx, []string{"Step"}, "")
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestThrottleFailureCountsAsFailedWrite(t *testing.T) {
	store := graph.NewMemoryStore()
	r := &run{
		ctx:     context.Background(),
		limiter: rate.NewLimiter(1, 0),
		batch:   DefaultBatchConfig(),
		logger:  slog.Default(),
		summary: newSummary("run-1"),
	}

	_, ok := r.createNode(store, []string{"Face"}, graph.Properties{})
	assert.False(t, ok)
	r.createRelationship(store, remap.Endpoints{Source: "a", Target: "b"}, graph.RelRelationship, graph.Properties{})

	assert.Equal(t, 1, r.summary.NodesFailed)
	assert.Equal(t, 1, r.summary.SkipReasons[remap.SkipWriteFailed])
	nodes, err := store.AllNodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, nodes)
}
