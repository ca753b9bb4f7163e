package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/pick/pkg/typeahead"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background instead of a down-converted approximation.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme holds the colors and pre-built styles of the picker screen.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor

	Base        lipgloss.Style
	Header      lipgloss.Style
	StatusBar   lipgloss.Style
	StatusOK    lipgloss.Style
	StatusError lipgloss.Style
	KeyHint     lipgloss.Style
	MutedText   lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   ColorPrimary,
		Secondary: ColorSecondary,
		Subtext:   ColorSubtext,
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: ColorBgHighlight,
		Muted:     ColorMuted,
		Success:   ColorSuccess,
		Danger:    ColorDanger,
	}

	t.Base = r.NewStyle().Foreground(ColorText)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.StatusBar = r.NewStyle().
		Foreground(t.Subtext).
		Background(ColorBgSubtle)
	t.StatusOK = r.NewStyle().Foreground(t.Success).Background(ColorBgSubtle)
	t.StatusError = r.NewStyle().Foreground(t.Danger).Background(ColorBgSubtle).Bold(true)
	t.KeyHint = r.NewStyle().Foreground(t.Primary).Background(ColorBgSubtle).Bold(true)
	t.MutedText = r.NewStyle().Foreground(t.Muted)

	return t
}

// TypeaheadStyles derives the picker widget styles from the theme.
func (t Theme) TypeaheadStyles() typeahead.Styles {
	r := t.Renderer
	return typeahead.Styles{
		Selection:      r.NewStyle().Background(t.Highlight).Foreground(ColorText),
		Option:         r.NewStyle().Foreground(ColorText),
		Active:         r.NewStyle().Foreground(t.Primary).Background(t.Highlight).Bold(true),
		Match:          r.NewStyle().Foreground(ThemeFg("#FFB86C")).Underline(true),
		ScrollbarTrack: r.NewStyle().Foreground(t.Border),
		ScrollbarThumb: r.NewStyle().Foreground(t.Primary),
	}
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
