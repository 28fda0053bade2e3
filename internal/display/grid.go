// Package display provides the character grids the rain is drawn on: an
// in-memory Grid rendered through lipgloss for bubbletea, and a tcell-backed
// Terminal that draws straight to the screen.
package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ticker-rain/internal/rain"
)

// Grid is an in-memory cell buffer implementing rain.Sink
type Grid struct {
	width, height int
	bg            rain.Style
	cells         []rain.Glyph
}

// NewGrid creates a blank grid
func NewGrid(width, height int, bg rain.Style) *Grid {
	g := &Grid{bg: bg}
	g.Resize(width, height)
	return g
}

// Size implements rain.Sink
func (g *Grid) Size() (int, int) { return g.width, g.height }

// SetGlyph implements rain.Sink. Out of range writes are dropped.
func (g *Grid) SetGlyph(row, col int, gl rain.Glyph) {
	if row < 0 || row >= g.height || col < 0 || col >= g.width {
		return
	}
	g.cells[row*g.width+col] = gl
}

// At returns the glyph in a cell, or a blank for out of range cells
func (g *Grid) At(row, col int) rain.Glyph {
	if row < 0 || row >= g.height || col < 0 || col >= g.width {
		return rain.Blank(g.bg)
	}
	return g.cells[row*g.width+col]
}

// Resize reallocates the grid and clears it
func (g *Grid) Resize(width, height int) {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	g.width, g.height = width, height
	g.cells = make([]rain.Glyph, width*height)
	g.Clear()
}

// Clear blanks every cell
func (g *Grid) Clear() {
	blank := rain.Blank(g.bg)
	for i := range g.cells {
		g.cells[i] = blank
	}
}

// WriteString writes s left to right from (row, col), clipped to the grid
func (g *Grid) WriteString(row, col int, s string, style rain.Style) {
	for _, r := range s {
		g.SetGlyph(row, col, rain.Glyph{Rune: r, Style: style})
		col++
	}
}

// narrowRune keeps every cell exactly one column wide: zero-width runes
// become spaces and wide ones a placeholder
func narrowRune(r rune) rune {
	switch runewidth.RuneWidth(r) {
	case 1:
		return r
	case 0:
		return ' '
	default:
		return '?'
	}
}

func cellRune(g rain.Glyph) string {
	return string(narrowRune(g.Rune))
}

// Plain returns the frame without styling, one line per row
func (g *Grid) Plain() string {
	var b strings.Builder
	for row := 0; row < g.height; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < g.width; col++ {
			b.WriteString(cellRune(g.cells[row*g.width+col]))
		}
	}
	return b.String()
}

// Render returns the frame styled with theme. Consecutive cells sharing a
// style are rendered as one run.
func (g *Grid) Render(theme Theme) string {
	styles := make(map[rain.Style]lipgloss.Style)
	styleFor := func(s rain.Style) lipgloss.Style {
		st, ok := styles[s]
		if !ok {
			st = theme.Style(s)
			styles[s] = st
		}
		return st
	}

	var b strings.Builder
	var run strings.Builder
	for row := 0; row < g.height; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		line := g.cells[row*g.width : (row+1)*g.width]
		for i := 0; i < len(line); {
			style := line[i].Style
			run.Reset()
			for ; i < len(line) && line[i].Style == style; i++ {
				run.WriteString(cellRune(line[i]))
			}
			b.WriteString(styleFor(style).Render(run.String()))
		}
	}
	return b.String()
}
