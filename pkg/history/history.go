// Package history records confirmed selections in a SQLite database so the
// picker can start on the value chosen last time.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/pick/pkg/debug"
	"github.com/vanderheijden86/pick/pkg/metrics"
)

// ErrNotFound is returned by Last when a source has no recorded selection.
var ErrNotFound = errors.New("no selection recorded")

const schema = `
CREATE TABLE IF NOT EXISTS selections (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source      TEXT NOT NULL,
	value       TEXT NOT NULL,
	selected_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_selections_source ON selections(source, id DESC);
`

// Entry is one recorded selection.
type Entry struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Value      string    `json:"value"`
	SelectedAt time.Time `json:"selected_at"`
}

// Store is a selection history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// dsn percent-encodes path into a file: URI, so file names with '?' or '#'
// open the file they name.
func dsn(path string) string {
	return "file:" + (&url.URL{Path: path}).EscapedPath() +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("cannot open history: %w", err)
	}
	// A single connection keeps WAL writes from different goroutines ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	debug.Log("history: opened %s", path)
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a selection and returns the new entry.
func (s *Store) Record(ctx context.Context, source, value string) (Entry, error) {
	defer metrics.Timer(metrics.HistoryQuery)()

	e := Entry{Source: source, Value: value, SelectedAt: s.now().UTC()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO selections (source, value, selected_at) VALUES (?, ?, ?)`,
		e.Source, e.Value, e.SelectedAt.UnixNano())
	if err != nil {
		return Entry{}, fmt.Errorf("recording selection: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("reading selection id: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries for source, newest first. An empty
// source returns entries from all sources.
func (s *Store) Recent(ctx context.Context, source string, limit int) ([]Entry, error) {
	defer metrics.Timer(metrics.HistoryQuery)()

	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, source, value, selected_at FROM selections`
	args := []any{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &e.Source, &e.Value, &ts); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.SelectedAt = time.Unix(0, ts).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

// Last returns the newest entry for source.
func (s *Store) Last(ctx context.Context, source string) (Entry, error) {
	entries, err := s.Recent(ctx, source, 1)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return entries[0], nil
}

// Prune keeps the newest keep entries per source and deletes the rest. It
// returns the number of deleted rows.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	defer metrics.Timer(metrics.HistoryQuery)()

	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM selections WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY source ORDER BY id DESC) AS rn
				FROM selections
			) WHERE rn > ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	if n > 0 {
		debug.Log("history: pruned %d rows", n)
	}
	return n, nil
}
