package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/pick/internal/datasource"
	"github.com/vanderheijden86/pick/pkg/config"
	"github.com/vanderheijden86/pick/pkg/history"
	"github.com/vanderheijden86/pick/pkg/hooks"
	"github.com/vanderheijden86/pick/pkg/metrics"
	_ "github.com/vanderheijden86/pick/pkg/ttyguard"
	"github.com/vanderheijden86/pick/pkg/ui"
	"github.com/vanderheijden86/pick/pkg/version"
	"github.com/vanderheijden86/pick/pkg/watcher"
)

// Exit codes.
const (
	exitSelected   = 0
	exitNoSelected = 1
	exitError      = 2
)

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var sourceFlags stringList
	flag.Var(&sourceFlags, "source", "Source file, configured source name, or - for stdin (repeatable)")
	format := flag.String("format", "", "Source format: lines, json, jsonl, yaml, sqlite (default: by extension)")
	field := flag.String("field", "", "Object field holding the label (json, jsonl, yaml)")
	query := flag.String("query", "", "SQL query returning one text column (sqlite)")
	initial := flag.String("initial", "", "Preset the query with this value")
	jsonOut := flag.Bool("json", false, "Print the selection as JSON")
	copyFlag := flag.Bool("copy", false, "Copy the selection to the clipboard")
	watchFlag := flag.Bool("watch", false, "Reload candidates when the source file changes")
	noHistory := flag.Bool("no-history", false, "Do not read or record selection history")
	noHooks := flag.Bool("no-hooks", false, "Do not run on-select hooks")
	historyFlag := flag.Bool("history", false, "Print recent selections and exit")
	limit := flag.Int("limit", 20, "Number of entries printed by --history")
	initFlag := flag.Bool("init", false, "Create a config file interactively")
	configPath := flag.String("config", "", "Config file (default: "+config.ConfigPath()+")")
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	stats := flag.Bool("stats", false, "Print timing statistics to stderr on exit")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	// CPU profiling support
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			return exitError
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			return exitError
		}
		defer pprof.StopCPUProfile()
	}
	if *stats {
		defer metrics.WriteSummary(os.Stderr)
	}

	if *help {
		fmt.Println("Usage: pick [options] [source...]")
		fmt.Println("\nInteractively pick one value from a list of candidates.")
		fmt.Println("The picked value is printed to stdout; nothing picked exits with status 1.")
		flag.PrintDefaults()
		return exitSelected
	}

	if *versionFlag {
		fmt.Printf("pick %s\n", version.String())
		return exitSelected
	}

	cfgFile := *configPath
	if cfgFile == "" {
		cfgFile = config.ConfigPath()
	}

	if *initFlag {
		if err := runInitWizard(cfgFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitError
		}
		return exitSelected
	}

	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		// Non-fatal: continue with defaults
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}

	cli := cliSourceOptions{Format: *format, Field: *field, Query: *query}
	args := append(sourceFlags, flag.Args()...)

	if *historyFlag {
		key, err := historyFilter(cfg, args, cli)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitError
		}
		return printHistory(os.Stdout, cfg, key, *limit, *jsonOut)
	}

	stdinPiped := !term.IsTerminal(int(os.Stdin.Fd()))
	sources, err := resolveSources(cfg, args, cli, stdinPiped)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	ctx := context.Background()
	loader := &datasource.Loader{}
	candidates, results, err := loader.Load(ctx, sources...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading candidates: %v\n", err)
		return exitError
	}
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", r.Error)
		}
	}

	opts := ui.Options{
		Title:       "pick · " + sourceTitle(sources),
		HistoryKey:  historyKey(sources),
		Candidates:  candidates,
		Initial:     *initial,
		Prompt:      cfg.UI.Prompt,
		Placeholder: cfg.UI.Placeholder,
		Width:       cfg.UI.Width,
		Copy:        *copyFlag,
	}

	if cfg.HistoryEnabled() && !*noHistory {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
		} else {
			defer store.Close()
			defer pruneHistory(store, cfg.History.Limit)
			opts.History = store
		}
	}

	if !*noHooks {
		hookCfg, err := loadHooks(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: hooks disabled: %v\n", err)
		} else {
			opts.Hooks = hookCfg
		}
	}

	if *watchFlag {
		// Reading stdin again is not possible, so only files are watched.
		if path := watchablePath(sources); path != "" {
			w, err := watcher.New(path)
			if err == nil {
				err = w.Start()
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: cannot watch %s: %v\n", path, err)
			} else {
				defer w.Stop()
				opts.Watcher = w
				opts.Reload = func(ctx context.Context) ([]datasource.Candidate, error) {
					c, _, err := (&datasource.Loader{Stdin: strings.NewReader("")}).Load(ctx, sources...)
					return c, err
				}
			}
		} else {
			fmt.Fprintln(os.Stderr, "Warning: --watch needs a file source")
		}
	}

	m := ui.NewModel(opts)
	res, err := runTUIProgram(m, cfg, stdinPiped)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running pick: %v\n", err)
		return exitError
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	if os.Getenv("PICK_DEBUG") != "" {
		fmt.Fprint(os.Stderr, hooks.Summarize(res.Hooks))
	}

	if !res.Selected {
		return exitNoSelected
	}
	if err := writeResult(os.Stdout, res, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	return exitSelected
}

// loadHooks merges .pick/hooks.yaml from the working directory with the
// hooks of the main config.
func loadHooks(cfg config.Config) (*hooks.Config, error) {
	hookCfg, warnings, err := hooks.Resolve("", cfg.Hooks)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	return hookCfg, err
}

// pruneHistory trims the store to limit rows per source.
func pruneHistory(store *history.Store, limit int) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := store.Prune(ctx, limit); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: pruning history: %v\n", err)
	}
}

func runTUIProgram(m ui.Model, cfg config.Config, stdinPiped bool) (ui.Result, error) {
	opts := []tea.ProgramOption{tea.WithoutSignalHandler()}
	if cfg.AltScreenEnabled() {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.MouseEnabled() {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	if stdinPiped {
		// Candidates came through stdin; keys come from the terminal.
		opts = append(opts, tea.WithInputTTY())
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		// stdout carries the result, so draw on stderr.
		opts = append(opts, tea.WithOutput(os.Stderr))
	}

	p := tea.NewProgram(m, opts...)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set PICK_TUI_AUTOCLOSE_MS.
	if ms := autocloseDelay(os.Getenv("PICK_TUI_AUTOCLOSE_MS")); ms > 0 {
		go func() {
			timer := time.NewTimer(ms)
			defer timer.Stop()

			select {
			case <-runDone:
				return
			case <-timer.C:
			}

			p.Quit()

			select {
			case <-runDone:
				return
			case <-time.After(2 * time.Second):
			}

			p.Kill()
		}()
	}

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, tea.ErrInterrupted) {
		return ui.Result{}, err
	}
	if fm, ok := final.(ui.Model); ok {
		return fm.Result(), nil
	}
	return ui.Result{}, nil
}

func autocloseDelay(v string) time.Duration {
	if v == "" {
		return 0
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
