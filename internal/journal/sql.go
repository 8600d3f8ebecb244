package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS interchange_runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	repository TEXT NOT NULL DEFAULT '',
	labels TEXT NOT NULL DEFAULT '',
	nodes_created INTEGER NOT NULL DEFAULT 0,
	nodes_failed INTEGER NOT NULL DEFAULT 0,
	relationships_created INTEGER NOT NULL DEFAULT 0,
	relationships_skipped INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interchange_runs_started ON interchange_runs(started_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS interchange_runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	repository TEXT NOT NULL DEFAULT '',
	labels TEXT NOT NULL DEFAULT '',
	nodes_created INTEGER NOT NULL DEFAULT 0,
	nodes_failed INTEGER NOT NULL DEFAULT 0,
	relationships_created INTEGER NOT NULL DEFAULT 0,
	relationships_skipped INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interchange_runs_started ON interchange_runs(started_at);
`

// SQLJournal stores entries through sqlx. The same queries run on SQLite
// and PostgreSQL; sqlx rebinds placeholders per driver.
type SQLJournal struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// OpenSQLite opens (or creates) a journal file for local use
func OpenSQLite(path string, logger *logrus.Logger) (*SQLJournal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}
	// One writer; an in-memory database also lives on a single connection.
	db.SetMaxOpenConns(1)
	db.Exec("PRAGMA journal_mode = WAL")

	return newSQLJournal(db, sqliteSchema, logger)
}

// OpenPostgres connects with driverName "postgres" (lib/pq) or "pgx" (pgx stdlib).
func OpenPostgres(driverName, dsn string, logger *logrus.Logger) (*SQLJournal, error) {
	if driverName != "postgres" && driverName != "pgx" {
		return nil, fmt.Errorf("unsupported postgres driver %q", driverName)
	}
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQLJournal(db, postgresSchema, logger)
}

func newSQLJournal(db *sqlx.DB, schema string, logger *logrus.Logger) (*SQLJournal, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLJournal{db: db, logger: logger}, nil
}

// Close closes the database connection
func (j *SQLJournal) Close() error {
	return j.db.Close()
}

func (j *SQLJournal) Record(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO interchange_runs (id, kind, repository, labels, nodes_created, nodes_failed,
			relationships_created, relationships_skipped, error, started_at, finished_at)
		VALUES (:id, :kind, :repository, :labels, :nodes_created, :nodes_failed,
			:relationships_created, :relationships_skipped, :error, :started_at, :finished_at)
	`
	e.StartedAt = e.StartedAt.UTC()
	e.FinishedAt = e.FinishedAt.UTC()

	if _, err := j.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	j.logger.WithFields(logrus.Fields{
		"run_id":                e.ID,
		"kind":                  e.Kind,
		"nodes_created":         e.NodesCreated,
		"relationships_created": e.RelationshipsCreated,
		"relationships_skipped": e.RelationshipsSkipped,
	}).Debug("journal entry recorded")
	return nil
}

func (j *SQLJournal) Get(ctx context.Context, id string) (Entry, error) {
	var e Entry
	err := j.db.GetContext(ctx, &e, j.db.Rebind(`SELECT * FROM interchange_runs WHERE id = ?`), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("get run: %w", err)
	}
	return e, nil
}

func (j *SQLJournal) Recent(ctx context.Context, limit int, kinds ...string) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT * FROM interchange_runs ORDER BY started_at DESC, id LIMIT ?`
	args := []interface{}{limit}
	if len(kinds) > 0 {
		var err error
		query, args, err = sqlx.In(
			`SELECT * FROM interchange_runs WHERE kind IN (?) ORDER BY started_at DESC, id LIMIT ?`,
			kinds, limit)
		if err != nil {
			return nil, fmt.Errorf("build recent query: %w", err)
		}
	}

	entries := []Entry{}
	if err := j.db.SelectContext(ctx, &entries, j.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return entries, nil
}
