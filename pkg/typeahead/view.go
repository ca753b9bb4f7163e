package typeahead

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// View renders the input row and, while open with matches, the option list.
func (m Model[V]) View() string {
	in := m.renderInput()
	if !m.listRendered() {
		return in
	}

	list := m.list.View()
	if m.hasScrollbar() {
		bar := renderScrollbar(m.styles, m.list.Height, len(m.filtered), ValuesShownInBox, m.ScrollOffset())
		list = lipgloss.JoinHorizontal(lipgloss.Top, list, bar)
	}
	return lipgloss.JoinVertical(lipgloss.Left, in, list)
}

func (m Model[V]) renderInput() string {
	if !m.selectAll || m.input.Value() == "" {
		return m.input.View()
	}
	text := truncate(m.input.Value(), m.input.Width)
	return m.input.PromptStyle.Render(m.input.Prompt) + m.styles.Selection.Render(text)
}

// renderOptions draws every filtered candidate, one per row. The viewport
// shows the window of them selected by its offset.
func (m Model[V]) renderOptions() string {
	if len(m.filtered) == 0 {
		return ""
	}
	width := m.rowWidth()
	lines := make([]string, len(m.filtered))
	for i, v := range m.filtered {
		active := i == m.state.SelectedIndex
		lines[i] = m.renderOption(m.format(v), active, width)
	}
	return strings.Join(lines, "\n")
}

func (m Model[V]) renderOption(label string, active bool, width int) string {
	prefix := "  "
	style := m.styles.Option
	if active {
		prefix = "> "
		style = m.styles.Active
	}

	text := truncate(label, width-runewidth.StringWidth(prefix))
	body := style.Render(text)
	if start, end, ok := matchSpan(text, m.state.Query); ok {
		body = style.Render(text[:start]) +
			style.Inherit(m.styles.Match).Render(text[start:end]) +
			style.Render(text[end:])
	}

	line := style.Render(prefix) + body
	if pad := width - lipgloss.Width(line); pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	return line
}

// renderScrollbar draws a one-column bar whose thumb spans the visible share
// of the list.
func renderScrollbar(s Styles, height, total, visible, offset int) string {
	if height <= 0 {
		return ""
	}
	lines := make([]string, height)
	if total <= visible {
		for i := range lines {
			lines[i] = s.ScrollbarThumb.Render("┃")
		}
		return strings.Join(lines, "\n")
	}

	thumb := max(1, height*visible/total)
	scrollable := total - visible
	track := height - thumb
	thumbOffset := 0
	if scrollable > 0 && track > 0 {
		thumbOffset = offset * track / scrollable
	}
	if thumbOffset+thumb > height {
		thumbOffset = height - thumb
	}

	for i := range lines {
		if i >= thumbOffset && i < thumbOffset+thumb {
			lines[i] = s.ScrollbarThumb.Render("┃")
		} else {
			lines[i] = s.ScrollbarTrack.Render("│")
		}
	}
	return strings.Join(lines, "\n")
}

// truncate shortens s to at most width cells, marking the cut.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, ellipsis)
}
