package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ticker-rain/internal/rain"
)

// Theme defines the colours each rain tone is drawn with
type Theme struct {
	Name       string
	Background lipgloss.Color
	Neutral    lipgloss.Color
	Positive   lipgloss.Color
	Negative   lipgloss.Color
}

// Predefined themes
var Themes = []Theme{
	// 0: Matrix (black background, like the classic screensaver)
	{
		Name:       "Matrix",
		Background: lipgloss.Color("#000000"),
		Neutral:    lipgloss.Color("#d0d0d0"),
		Positive:   lipgloss.Color("#00ff41"),
		Negative:   lipgloss.Color("#ff3131"),
	},
	// 1: Tokyo Night
	{
		Name:       "Tokyo Night",
		Background: lipgloss.Color("#1a1b26"),
		Neutral:    lipgloss.Color("#c0caf5"),
		Positive:   lipgloss.Color("#9ece6a"),
		Negative:   lipgloss.Color("#f7768e"),
	},
	// 2: Cyberpunk/Neon
	{
		Name:       "Cyberpunk",
		Background: lipgloss.Color("#0a0a0a"),
		Neutral:    lipgloss.Color("#00ffff"),
		Positive:   lipgloss.Color("#39ff14"),
		Negative:   lipgloss.Color("#ff00ff"),
	},
	// 3: Light
	{
		Name:       "Light",
		Background: lipgloss.Color("#ffffff"),
		Neutral:    lipgloss.Color("#24292f"),
		Positive:   lipgloss.Color("#1a7f37"),
		Negative:   lipgloss.Color("#cf222e"),
	},
}

// ThemeByName finds a theme case-insensitively, falling back to the first one
func ThemeByName(name string) (Theme, int) {
	for i, t := range Themes {
		if strings.EqualFold(t.Name, name) {
			return t, i
		}
	}
	return Themes[0], 0
}

// NextTheme returns the theme after index i, wrapping around
func NextTheme(i int) (Theme, int) {
	i = (i + 1) % len(Themes)
	if i < 0 {
		i = 0
	}
	return Themes[i], i
}

// Color returns the foreground colour for a tone
func (t Theme) Color(tone rain.Tone) lipgloss.Color {
	switch tone {
	case rain.TonePositive:
		return t.Positive
	case rain.ToneNegative:
		return t.Negative
	case rain.ToneBackground:
		return t.Background
	default:
		return t.Neutral
	}
}

// Style builds the lipgloss style a glyph style maps to
func (t Theme) Style(s rain.Style) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.Background).
		Foreground(t.Color(s.Tone)).
		Bold(s.Bold)
}
