package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/featurekg/internal/config"
	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/journal"
	"github.com/rohankatakam/featurekg/internal/service"
)

const stepXML = `<StandardFeatureStructure>
    <Structure StructureNo="1" StructureEnglishName="Step">
        <FaceList>
            <Face FaceNo="1" FaceType="1"/>
            <Face FaceNo="2" FaceType="1"/>
        </FaceList>
        <EdgeList>
            <Edge SourceFaceNo="1" TargetFaceNo="2" IsParallel="1"/>
        </EdgeList>
    </Structure>
</StandardFeatureStructure>`

const dirtyJSON = `{
  "nodes": [
    {"id": "a", "labels": ["Face"], "properties": {"face_no": "1"}},
    {"id": "a", "labels": ["Face"], "properties": {}},
    {"id": "b", "labels": ["Face"], "properties": {"face_no": "2"}}
  ],
  "relationships": [
    {"source": "a", "target": "b", "type": "RELATIONSHIP"},
    {"source": "a", "target": "b", "type": "RELATIONSHIP"},
    {"source": "b", "target": "b", "type": "RELATIONSHIP"}
  ]
}`

func testService(t *testing.T) *service.Service {
	t.Helper()
	jlog := logrus.New()
	jlog.SetLevel(logrus.WarnLevel)
	j, err := journal.OpenSQLite(":memory:", jlog)
	require.NoError(t, err)

	svc := service.New(context.Background(),
		service.DialerFromConfig(config.GraphConfig{Backend: config.BackendMemory}, nil),
		service.Options{Journal: j})
	t.Cleanup(func() { svc.Close(context.Background()) })
	return svc
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	_, err := importFile(ctx, svc, writeFile(t, "rules.csv", "x"), "alpha", false)
	assert.True(t, errors.IsValidation(err))

	_, err = importFile(ctx, svc, writeFile(t, "step.xml", stepXML), " ", false)
	assert.True(t, errors.IsValidation(err), "xml needs a repository")

	_, err = importFile(ctx, svc, filepath.Join(t.TempDir(), "missing.xml"), "alpha", false)
	assert.Error(t, err)

	summary, err := importFile(ctx, svc, writeFile(t, "step.XML", stepXML), "alpha", false)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.NodesCreated)
	assert.Equal(t, 4, summary.RelationshipsCreated)

	summary, err = importFile(ctx, svc, writeFile(t, "dirty.json", dirtyJSON), "", true)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.NodesCreated)
	assert.Equal(t, 1, summary.RelationshipsCreated)
	assert.Equal(t, 0, summary.RelationshipsSkipped)

	var buf bytes.Buffer
	printSummary(newPrinter(&buf), summary)
	assert.Contains(t, buf.String(), "Import completed: 2 nodes, 1 relationships")
}

func TestExportTo(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	_, err := importFile(ctx, svc, writeFile(t, "step.xml", stepXML), "alpha", false)
	require.NoError(t, err)

	tests := []struct {
		name    string
		format  string
		labels  []string
		want    string
		wantErr bool
	}{
		{name: "xml all labels", format: "xml", want: `StructureEnglishName="Step"`},
		{name: "xml selected", format: "XML", labels: []string{"Step"}, want: `IsParallel="1"`},
		{name: "flat", format: "flat", want: `"relationships"`},
		{name: "selective", format: "selective", labels: []string{"Step"}, want: `"related_face_nodes": 2`},
		{name: "selective without labels", format: "selective", wantErr: true},
		{name: "unknown", format: "csv", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := exportTo(ctx, svc, &buf, tt.format, tt.labels, "")
			if tt.wantErr {
				assert.True(t, errors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestCleanseFile(t *testing.T) {
	var buf bytes.Buffer
	report, err := cleanseFile(writeFile(t, "dirty.json", dirtyJSON), &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, report.NodesBefore)
	assert.Equal(t, 2, report.NodesAfter)
	assert.Equal(t, 3, report.RelationshipsBefore)
	assert.Equal(t, 1, report.RelationshipsAfter)
	assert.Contains(t, buf.String(), `"source": "a"`)

	_, err = cleanseFile(writeFile(t, "bad.json", "{"), &buf)
	assert.True(t, errors.IsParse(err))
}

func TestPrintHistory(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	var buf bytes.Buffer
	require.NoError(t, printHistory(ctx, newPrinter(&buf), svc, nil, 10, nil))
	assert.Contains(t, buf.String(), "No runs recorded")

	summary, err := importFile(ctx, svc, writeFile(t, "step.xml", stepXML), "alpha", false)
	require.NoError(t, err)

	buf.Reset()
	require.NoError(t, printHistory(ctx, newPrinter(&buf), svc, nil, 10, []string{journal.KindImportHierarchical}))
	assert.Contains(t, buf.String(), journal.KindImportHierarchical)
	assert.Contains(t, buf.String(), "repo=alpha")

	buf.Reset()
	require.NoError(t, printHistory(ctx, newPrinter(&buf), svc, []string{summary.RunID}, 10, nil))
	assert.Contains(t, buf.String(), "Run "+summary.RunID)

	err = printHistory(ctx, newPrinter(&buf), svc, []string{"missing"}, 10, nil)
	assert.True(t, errors.IsNotFound(err))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "3 (unchanged)", formatBeforeAfter(3, 3))
	assert.Equal(t, "5 -> 2 (-3)", formatBeforeAfter(5, 2))
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a, ,b "))

	var buf bytes.Buffer
	newPrinter(&buf).OK("done")
	assert.Equal(t, "✓ done\n", buf.String(), "no styling off a terminal")
}

func TestReportError(t *testing.T) {
	connErr := errors.ConnectionError(stderrors.New("dial tcp: connection refused"), "neo4j unreachable")
	tests := []struct {
		name     string
		err      error
		verbose  bool
		contains string
		code     int
	}{
		{name: "plain error", err: stderrors.New("boom"), contains: "Error: boom", code: 1},
		{name: "validation", err: errors.ValidationError("labels required"), contains: "labels required", code: 1},
		{name: "critical", err: connErr, contains: "neo4j unreachable", code: 2},
		{name: "critical verbose", err: connErr, verbose: true, contains: "Caused by: dial tcp: connection refused", code: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			reportError(&buf, tt.err, tt.verbose)
			assert.Contains(t, buf.String(), tt.contains)
			assert.Equal(t, tt.code, exitCode(tt.err))
		})
	}
}
