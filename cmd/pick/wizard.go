package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/pick/internal/datasource"
	"github.com/vanderheijden86/pick/pkg/config"
)

// errNotTerminal is returned by --init when stdin is not a terminal.
var errNotTerminal = errors.New("--init needs an interactive terminal")

// wizardAnswers holds the values collected by the --init form.
type wizardAnswers struct {
	Prompt      string
	Placeholder string
	SourceName  string
	SourcePath  string
	Format      string // "" means by extension
	Field       string
	Query       string
	Mouse       bool
	History     bool
}

func answersFrom(cfg config.Config) wizardAnswers {
	a := wizardAnswers{
		Prompt:      cfg.UI.Prompt,
		Placeholder: cfg.UI.Placeholder,
		Mouse:       cfg.MouseEnabled(),
		History:     cfg.HistoryEnabled(),
	}
	if len(cfg.Sources) > 0 {
		s := cfg.Sources[0]
		a.SourceName, a.SourcePath, a.Format, a.Field, a.Query = s.Name, s.Path, s.Format, s.Field, s.Query
	}
	return a
}

// apply merges the answers into cfg. The first source is replaced; other
// configured sources are kept.
func (a wizardAnswers) apply(cfg config.Config) config.Config {
	cfg.UI.Prompt = a.Prompt
	cfg.UI.Placeholder = a.Placeholder
	mouse, hist := a.Mouse, a.History
	cfg.UI.Mouse = &mouse
	cfg.History.Enabled = &hist

	path := strings.TrimSpace(a.SourcePath)
	if path == "" {
		return cfg
	}
	name := strings.TrimSpace(a.SourceName)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	src := config.Source{
		Name:   name,
		Path:   path,
		Format: a.Format,
		Field:  strings.TrimSpace(a.Field),
		Query:  strings.TrimSpace(a.Query),
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = []config.Source{src}
	} else {
		cfg.Sources = append([]config.Source{src}, cfg.Sources[1:]...)
	}
	return cfg
}

// runInitWizard asks for the basic settings and writes them to path.
func runInitWizard(path string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errNotTerminal
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	a := answersFrom(cfg)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Prompt").
				Description("Shown before the query").
				Value(&a.Prompt),
			huh.NewInput().
				Title("Placeholder").
				Description("Shown while the query is empty").
				Value(&a.Placeholder),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Default source file").
				Description("Leave empty to always pass a source or pipe stdin").
				Value(&a.SourcePath),
			huh.NewInput().
				Title("Source name").
				Description("Used with --source and in the history").
				Value(&a.SourceName),
			huh.NewSelect[string]().
				Title("Format").
				Options(
					huh.NewOption("By file extension", ""),
					huh.NewOption("One value per line", string(datasource.FormatLines)),
					huh.NewOption("JSON array", string(datasource.FormatJSON)),
					huh.NewOption("JSON lines", string(datasource.FormatJSONL)),
					huh.NewOption("YAML sequence", string(datasource.FormatYAML)),
					huh.NewOption("SQLite query", string(datasource.FormatSQLite)),
				).
				Value(&a.Format),
			huh.NewInput().
				Title("Label field").
				Description("For JSON/YAML objects").
				Value(&a.Field),
			huh.NewInput().
				Title("SQL query").
				Description("For SQLite: must return one text column").
				Value(&a.Query),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable mouse support?").
				Value(&a.Mouse),
			huh.NewConfirm().
				Title("Remember selections?").
				Description("The last pick becomes the initial query").
				Value(&a.History),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("Cancelled, nothing written.")
			return nil
		}
		return fmt.Errorf("running wizard: %w", err)
	}

	if err := config.SaveTo(a.apply(cfg), path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
