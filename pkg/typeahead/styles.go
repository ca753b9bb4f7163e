package typeahead

import "github.com/charmbracelet/lipgloss"

// Styles controls how the widget draws itself.
type Styles struct {
	Selection      lipgloss.Style // input text while it is selected as a whole
	Option         lipgloss.Style
	Active         lipgloss.Style // the highlighted option
	Match          lipgloss.Style // the part of an option matching the query
	ScrollbarTrack lipgloss.Style
	ScrollbarThumb lipgloss.Style
}

// DefaultStyles returns styles that work on light and dark terminals.
func DefaultStyles() Styles {
	return Styles{
		Selection: lipgloss.NewStyle().Reverse(true),
		Option:    lipgloss.NewStyle(),
		Active: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}).
			Bold(true),
		Match:          lipgloss.NewStyle().Underline(true),
		ScrollbarTrack: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"}),
		ScrollbarThumb: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}),
	}
}
