package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStatementCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(statementErrors.WithLabelValues("write"))

	ObserveStatement("write", 5*time.Millisecond, nil)
	ObserveStatement("write", 5*time.Millisecond, errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(statementErrors.WithLabelValues("write")))
}

func TestGauges(t *testing.T) {
	SetGraphUp(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(graphUp))
	SetGraphUp(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(graphUp))

	SetBreakerState("neo4j", 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(breakerState.WithLabelValues("neo4j")))

	SetSnapshotSize(7, 3)
	assert.Equal(t, 7.0, testutil.ToFloat64(snapshotNodes))
	assert.Equal(t, 3.0, testutil.ToFloat64(snapshotRelationships))
}

func TestRecordImport(t *testing.T) {
	created := testutil.ToFloat64(importRecords.WithLabelValues("flat", "node_created"))
	skipped := testutil.ToFloat64(importRecords.WithLabelValues("flat", "relationship_skipped"))

	RecordImport("flat", 4, 0, 2, 1, time.Second, nil)

	assert.Equal(t, created+4, testutil.ToFloat64(importRecords.WithLabelValues("flat", "node_created")))
	assert.Equal(t, skipped+1, testutil.ToFloat64(importRecords.WithLabelValues("flat", "relationship_skipped")))
}

func TestCountersByOutcome(t *testing.T) {
	hits := testutil.ToFloat64(exportCacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(exportCacheLookups.WithLabelValues("miss"))
	RecordCacheLookup(true)
	RecordCacheLookup(false)
	RecordCacheLookup(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(exportCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(exportCacheLookups.WithLabelValues("miss")))

	failed := testutil.ToFloat64(snapshotReloads.WithLabelValues("error"))
	RecordSnapshotReload(errors.New("scan failed"))
	assert.Equal(t, failed+1, testutil.ToFloat64(snapshotReloads.WithLabelValues("error")))

	requests := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/health", "200"))
	ObserveHTTP("GET", "/api/health", 200, time.Millisecond)
	assert.Equal(t, requests+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/health", "200")))
}

func TestHandlerExposesNamespace(t *testing.T) {
	RecordExport("hierarchical", time.Millisecond, nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "featurekg_interchange_duration_seconds")
}
