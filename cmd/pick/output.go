package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/pick/internal/datasource"
	"github.com/vanderheijden86/pick/pkg/config"
	"github.com/vanderheijden86/pick/pkg/history"
	"github.com/vanderheijden86/pick/pkg/ui"
)

// cliSourceOptions apply to sources given as paths on the command line.
type cliSourceOptions struct {
	Format string
	Field  string
	Query  string
}

// resolveSources turns command-line arguments into sources. An argument is a
// configured source name or a path. Without arguments piped stdin is used,
// then every configured source.
func resolveSources(cfg config.Config, args []string, cli cliSourceOptions, stdinPiped bool) ([]datasource.Source, error) {
	if len(args) == 0 {
		switch {
		case stdinPiped:
			args = []string{datasource.StdinPath}
		case len(cfg.Sources) > 0:
			out := make([]datasource.Source, 0, len(cfg.Sources))
			for _, s := range cfg.Sources {
				out = append(out, fromConfig(s))
			}
			return out, nil
		default:
			return nil, fmt.Errorf("no source: pass a file, pipe candidates on stdin, or configure sources in %s", config.ConfigPath())
		}
	}

	var format datasource.Format
	if cli.Format != "" {
		f, err := datasource.ParseFormat(cli.Format)
		if err != nil {
			return nil, err
		}
		format = f
	}

	out := make([]datasource.Source, 0, len(args))
	for _, arg := range args {
		if s := cfg.FindSource(arg); s != nil {
			out = append(out, fromConfig(*s))
			continue
		}
		out = append(out, datasource.Source{
			Path:   arg,
			Format: format,
			Field:  cli.Field,
			Query:  cli.Query,
		})
	}
	return out, nil
}

func fromConfig(s config.Source) datasource.Source {
	return datasource.Source{
		Name:   s.Name,
		Path:   s.Path,
		Format: datasource.Format(s.Format),
		Field:  s.Field,
		Query:  s.Query,
	}
}

// historyKey names a set of sources in the history store.
func historyKey(sources []datasource.Source) string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.DisplayName()
	}
	return strings.Join(names, "+")
}

// historyFilter returns the history key a picker run over args records
// under, or "" for every source when no argument is given.
func historyFilter(cfg config.Config, args []string, cli cliSourceOptions) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	sources, err := resolveSources(cfg, args, cli, false)
	if err != nil {
		return "", err
	}
	return historyKey(sources), nil
}

func sourceTitle(sources []datasource.Source) string {
	if len(sources) == 1 {
		return sources[0].DisplayName()
	}
	return fmt.Sprintf("%d sources", len(sources))
}

// watchablePath returns the first source backed by a file.
func watchablePath(sources []datasource.Source) string {
	for _, s := range sources {
		if s.Path != "" && s.Path != datasource.StdinPath {
			return s.Path
		}
	}
	return ""
}

// selectionJSON is the --json output.
type selectionJSON struct {
	Value      string    `json:"value"`
	Source     string    `json:"source"`
	SelectedAt time.Time `json:"selected_at"`
}

// writeResult prints the picked value, or a JSON object with --json.
func writeResult(w io.Writer, res ui.Result, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, res.Value)
		return err
	}
	data, err := json.Marshal(selectionJSON{
		Value:      res.Value,
		Source:     res.Source,
		SelectedAt: res.SelectedAt,
	})
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printHistory lists recent selections, optionally for one source key.
func printHistory(w io.Writer, cfg config.Config, source string, limit int, asJSON bool) int {
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	defer store.Close()

	entries, err := store.Recent(context.Background(), source, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	if err := writeHistory(w, entries, asJSON); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	return exitSelected
}

func writeHistory(w io.Writer, entries []history.Entry, asJSON bool) error {
	if asJSON {
		if entries == nil {
			entries = []history.Entry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No selections recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.SelectedAt.Local().Format("2006-01-02 15:04"), e.Source, e.Value)
	}
	return tw.Flush()
}
