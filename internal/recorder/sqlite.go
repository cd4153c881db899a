package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *slog.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL lets the HTTP API read while a job writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ingests (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			source      TEXT,
			fetched     INTEGER,
			new_count   INTEGER,
			dropped     INTEGER,
			total       INTEGER,
			latest_date TEXT,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ingests_ts ON ingests(timestamp)`,

		`CREATE TABLE IF NOT EXISTS publications (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL,
			timestamp      INTEGER NOT NULL,
			state          TEXT NOT NULL,
			candidate_date TEXT,
			level          REAL,
			content_source TEXT,
			text           TEXT,
			post_id        TEXT,
			dry_run        INTEGER NOT NULL DEFAULT 0,
			error          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_publications_ts ON publications(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func runID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func timestamp(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().Unix()
	}
	return t.Unix()
}

func (r *SQLiteRecorder) RecordIngest(evt *IngestEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO ingests
		(run_id, timestamp, source, fetched, new_count, dropped, total, latest_date, error)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		runID(evt.RunID), timestamp(evt.At), evt.Source,
		evt.Fetched, evt.NewCount, evt.Dropped, evt.Total, evt.LatestDate, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordPublication(evt *PublicationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO publications
		(run_id, timestamp, state, candidate_date, level, content_source, text, post_id, dry_run, error)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		runID(evt.RunID), timestamp(evt.At), evt.State, evt.CandidateDate, evt.Level,
		evt.ContentSource, evt.Text, evt.PostID, evt.DryRun, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) LastPublication() (*PublicationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		evt PublicationEvent
		ts  int64
	)
	err := r.db.QueryRow(`SELECT run_id, timestamp, state, candidate_date, level,
			content_source, text, post_id, dry_run, error
		FROM publications ORDER BY id DESC LIMIT 1`).Scan(
		&evt.RunID, &ts, &evt.State, &evt.CandidateDate, &evt.Level,
		&evt.ContentSource, &evt.Text, &evt.PostID, &evt.DryRun, &evt.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last publication: %w", err)
	}
	evt.At = time.Unix(ts, 0)
	return &evt, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
