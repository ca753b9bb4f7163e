package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/pick/pkg/debug"
)

// SQLiteReader provides read-only access to a SQLite database used as a
// candidate source.
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// readOnlyDSN builds a file: URI for path. The path is percent-encoded so a
// '?', '#' or '%' in a file name is not read as URI syntax.
func readOnlyDSN(path string) string {
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro&_pragma=busy_timeout(5000)"
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(path string) (*SQLiteReader, error) {
	// Open in read-only mode so a picker can never modify the database
	db, err := sql.Open("sqlite", readOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set pragmas for read performance
	pragmas := []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("datasource: %s on %s: %v", pragma, path, err)
		}
	}

	return &SQLiteReader{
		db:   db,
		path: path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Labels runs query and returns the first column of every row. NULL values
// and empty strings are skipped.
func (r *SQLiteReader) Labels(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		return nil, ErrMissingQuery
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	if len(cols) != 1 {
		return nil, fmt.Errorf("query must return one column, got %d", len(cols))
	}

	var labels []string
	for rows.Next() {
		var label sql.NullString
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if !label.Valid || label.String == "" {
			continue
		}
		labels = append(labels, label.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return labels, nil
}
