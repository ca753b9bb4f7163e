package datasource

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/pick/pkg/debug"
	"github.com/vanderheijden86/pick/pkg/metrics"
)

// maxParallelLoads bounds concurrently open sources.
const maxParallelLoads = 8

// LoadResult contains the outcome of loading one source.
type LoadResult struct {
	Source     Source
	Candidates []Candidate
	Duration   time.Duration
	Error      error
}

// Loader reads sources. Stdin defaults to os.Stdin.
type Loader struct {
	Stdin io.Reader
}

// Load reads all sources concurrently with the default loader.
func Load(ctx context.Context, sources ...Source) ([]Candidate, []LoadResult, error) {
	return (&Loader{}).Load(ctx, sources...)
}

// Load reads all sources concurrently and merges their candidates in source
// order. Individual failures are reported in the results; an error is
// returned only when no source could be read.
func (l *Loader) Load(ctx context.Context, sources ...Source) ([]Candidate, []LoadResult, error) {
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("%w: no sources given", ErrNoCandidates)
	}

	results := make([]LoadResult, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)

	for i, src := range sources {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				results[i] = LoadResult{Source: src, Error: ctx.Err()}
				return nil // Don't propagate context errors as fatal
			default:
			}

			start := time.Now()
			candidates, err := l.LoadSource(ctx, src)
			results[i] = LoadResult{
				Source:     src,
				Candidates: candidates,
				Duration:   time.Since(start),
				Error:      err,
			}
			return nil // Individual source errors are captured in results
		})
	}

	if err := g.Wait(); err != nil {
		return nil, results, err
	}

	var all []Candidate
	var firstErr error
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			debug.Log("datasource: %s failed: %v", r.Source.DisplayName(), r.Error)
			failed++
			if firstErr == nil {
				firstErr = r.Error
			}
			continue
		}
		debug.Log("datasource: %s loaded %d candidates in %v", r.Source.DisplayName(), len(r.Candidates), r.Duration)
		all = append(all, r.Candidates...)
	}

	if failed == len(results) {
		return nil, results, fmt.Errorf("all sources failed: %w", firstErr)
	}
	return all, results, nil
}

// LoadSource reads a single source.
func (l *Loader) LoadSource(ctx context.Context, src Source) ([]Candidate, error) {
	defer metrics.Timer(metrics.SourceLoad)()

	format, err := src.ResolvedFormat()
	if err != nil {
		return nil, err
	}

	labels, err := l.readLabels(ctx, src, format)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", src.DisplayName(), err)
	}

	name := src.DisplayName()
	candidates := make([]Candidate, len(labels))
	for i, label := range labels {
		candidates[i] = Candidate{Label: label, Source: name}
	}
	return candidates, nil
}

func (l *Loader) readLabels(ctx context.Context, src Source, format Format) ([]string, error) {
	if format == FormatSQLite {
		if src.Path == StdinPath {
			return nil, fmt.Errorf("sqlite cannot be read from stdin")
		}
		reader, err := NewSQLiteReader(src.Path)
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		return reader.Labels(ctx, src.Query)
	}

	r, closeFn, err := l.open(src.Path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	switch format {
	case FormatLines:
		return readLines(r)
	case FormatJSON:
		return readJSON(r, src.Field)
	case FormatJSONL:
		return readJSONL(r, src.Field)
	case FormatYAML:
		return readYAML(r, src.Field)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func (l *Loader) open(path string) (io.Reader, func(), error) {
	if path == StdinPath {
		in := l.Stdin
		if in == nil {
			in = os.Stdin
		}
		return in, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// Labels returns the labels of candidates in order.
func Labels(candidates []Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Label
	}
	return out
}
