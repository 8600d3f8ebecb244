// Package journal records one row per import or export run so operators can
// see what was loaded, when, and how much of it was skipped.
package journal

import (
	"context"
	"errors"
	"time"
)

// Run kinds
const (
	KindImportFlat         = "import_flat"
	KindImportHierarchical = "import_hierarchical"
	KindExportFlat         = "export_flat"
	KindExportSelective    = "export_selective"
	KindExportHierarchical = "export_hierarchical"
)

var ErrNotFound = errors.New("not found")

// Entry is one interchange run.
type Entry struct {
	ID                   string    `db:"id" json:"id"`
	Kind                 string    `db:"kind" json:"kind"`
	Repository           string    `db:"repository" json:"repository,omitempty"`
	Labels               string    `db:"labels" json:"labels,omitempty"`
	NodesCreated         int       `db:"nodes_created" json:"nodes_created"`
	NodesFailed          int       `db:"nodes_failed" json:"nodes_failed"`
	RelationshipsCreated int       `db:"relationships_created" json:"relationships_created"`
	RelationshipsSkipped int       `db:"relationships_skipped" json:"relationships_skipped"`
	Error                string    `db:"error" json:"error,omitempty"`
	StartedAt            time.Time `db:"started_at" json:"started_at"`
	FinishedAt           time.Time `db:"finished_at" json:"finished_at"`
}

// Duration of the run
func (e Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// Recorder is what the importer and exporter need.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Journal is a queryable Recorder.
type Journal interface {
	Recorder
	Get(ctx context.Context, id string) (Entry, error)
	// Recent returns the newest entries first, optionally filtered by kind.
	Recent(ctx context.Context, limit int, kinds ...string) ([]Entry, error)
	Close() error
}

// Nop discards entries. Used when journal.driver is "none".
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
func (Nop) Get(context.Context, string) (Entry, error) { return Entry{}, ErrNotFound }
func (Nop) Recent(context.Context, int, ...string) ([]Entry, error) { return []Entry{}, nil }
func (Nop) Close() error { return nil }
