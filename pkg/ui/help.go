package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/pick/pkg/debug"
)

// helpMarkdown builds the help page from the active key bindings.
func helpMarkdown(picker, host []key.Binding) string {
	var sb strings.Builder
	sb.WriteString("# pick\n\n")
	sb.WriteString("Type to filter the list. Matching is a case-insensitive substring match.\n\n")
	sb.WriteString("## Picker\n\n| Key | Action |\n|---|---|\n")
	writeBindings(&sb, picker)
	sb.WriteString("\n## Screen\n\n| Key | Action |\n|---|---|\n")
	writeBindings(&sb, host)
	sb.WriteString("\n## Mouse\n\n")
	sb.WriteString("- Click the input to open the list and select the query.\n")
	sb.WriteString("- Click an option to pick it.\n")
	sb.WriteString("- Click anywhere else to close the list.\n")
	sb.WriteString("\nPress any key to close this help.\n")
	return sb.String()
}

func writeBindings(sb *strings.Builder, bindings []key.Binding) {
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		fmt.Fprintf(sb, "| `%s` | %s |\n", h.Key, h.Desc)
	}
}

// renderHelp renders markdown for the terminal. Without a renderer, or when
// rendering fails, the raw markdown is returned.
func renderHelp(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		debug.Log("ui: rendering help: %v", err)
		return md
	}
	return strings.TrimRight(out, "\n")
}

func newHelpRenderer(width int) *glamour.TermRenderer {
	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		debug.Log("ui: creating help renderer: %v", err)
		return nil
	}
	return r
}
