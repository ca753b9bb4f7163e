// Package datasource reads candidate values for the picker from files,
// SQLite databases, and stdin. Several sources can be loaded at once; their
// candidates are merged in the order the sources were given.
package datasource

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies how a source is parsed.
type Format string

const (
	// FormatLines is one candidate per line.
	FormatLines Format = "lines"
	// FormatJSON is a JSON array of strings or objects.
	FormatJSON Format = "json"
	// FormatJSONL is one JSON string or object per line.
	FormatJSONL Format = "jsonl"
	// FormatYAML is a YAML sequence of strings or mappings.
	FormatYAML Format = "yaml"
	// FormatSQLite is a SQLite database queried with Source.Query.
	FormatSQLite Format = "sqlite"
)

// StdinPath is the path that selects standard input.
const StdinPath = "-"

// Errors callers branch on.
var (
	ErrUnknownFormat = errors.New("unknown source format")
	ErrMissingField  = errors.New("object candidate has no label field")
	ErrMissingQuery  = errors.New("sqlite source needs a query")
	ErrNoCandidates  = errors.New("no candidates loaded")
)

// Source describes one place candidates are read from.
type Source struct {
	Name   string
	Path   string
	Format Format // empty means DetectFormat(Path)
	Field  string // label field for object candidates
	Query  string // sqlite only
}

// DisplayName returns Name, or the base name of Path when Name is empty.
func (s Source) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Path == StdinPath || s.Path == "" {
		return "stdin"
	}
	return filepath.Base(s.Path)
}

// ResolvedFormat returns the explicit format or the one implied by the path.
func (s Source) ResolvedFormat() (Format, error) {
	if s.Format != "" {
		return ParseFormat(string(s.Format))
	}
	return DetectFormat(s.Path), nil
}

// String returns a human-readable description of the source.
func (s Source) String() string {
	f, err := s.ResolvedFormat()
	if err != nil {
		f = s.Format
	}
	return fmt.Sprintf("%s (%s, %s)", s.DisplayName(), s.Path, f)
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatLines, FormatJSON, FormatJSONL, FormatYAML, FormatSQLite:
		return f, nil
	case "txt", "text":
		return FormatLines, nil
	case "ndjson":
		return FormatJSONL, nil
	case "yml":
		return FormatYAML, nil
	case "db", "sqlite3":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// DetectFormat picks a format from the file extension. Unknown extensions and
// stdin are read as lines.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".yaml", ".yml":
		return FormatYAML
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return FormatLines
	}
}

// Candidate is one selectable value and the source it came from.
type Candidate struct {
	Label  string
	Source string
}

// String returns the label. The picker formats candidates with it.
func (c Candidate) String() string {
	return c.Label
}
