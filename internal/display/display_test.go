package display

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticker-rain/internal/rain"
)

func TestGridSetAndAt(t *testing.T) {
	g := NewGrid(4, 2, rain.Style{Tone: rain.ToneBackground})
	w, h := g.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)

	g.SetGlyph(1, 2, rain.Glyph{Rune: 'x'})
	assert.Equal(t, 'x', g.At(1, 2).Rune)

	// out of range writes are ignored, reads are blank
	g.SetGlyph(5, 5, rain.Glyph{Rune: 'y'})
	g.SetGlyph(-1, 0, rain.Glyph{Rune: 'y'})
	assert.Equal(t, ' ', g.At(5, 5).Rune)
	assert.Equal(t, "    \n  x ", g.Plain())
}

func TestGridWriteStringClips(t *testing.T) {
	g := NewGrid(5, 1, rain.Style{})
	g.WriteString(0, 2, "HELLO", rain.Style{Bold: true})
	assert.Equal(t, "  HEL", g.Plain())
	assert.True(t, g.At(0, 2).Style.Bold)
}

func TestGridResizeClears(t *testing.T) {
	g := NewGrid(3, 3, rain.Style{})
	g.SetGlyph(0, 0, rain.Glyph{Rune: 'a'})
	g.Resize(2, 1)
	assert.Equal(t, "  ", g.Plain())

	g.Resize(-1, 4)
	w, h := g.Size()
	assert.Zero(t, w)
	assert.Zero(t, h)
	assert.Equal(t, "", g.Plain())
}

func TestGridWideRunesKeepWidth(t *testing.T) {
	g := NewGrid(3, 1, rain.Style{})
	g.SetGlyph(0, 0, rain.Glyph{Rune: '株'})
	g.SetGlyph(0, 1, rain.Glyph{Rune: '́'})
	g.SetGlyph(0, 2, rain.Glyph{Rune: 'k'})
	assert.Equal(t, "? k", g.Plain())
}

func TestGridRenderKeepsText(t *testing.T) {
	g := NewGrid(12, 2, rain.Style{Tone: rain.ToneBackground})
	g.WriteString(0, 0, "AAPL", rain.Style{Tone: rain.TonePositive, Bold: true})
	g.WriteString(1, 0, "-1.20", rain.Style{Tone: rain.ToneNegative})

	out := g.Render(Themes[0])
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "-1.20")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestThemeByName(t *testing.T) {
	th, idx := ThemeByName("tokyo night")
	assert.Equal(t, "Tokyo Night", th.Name)
	assert.Equal(t, 1, idx)

	th, idx = ThemeByName("nope")
	assert.Equal(t, Themes[0].Name, th.Name)
	assert.Zero(t, idx)
}

func TestNextThemeWraps(t *testing.T) {
	_, idx := NextTheme(len(Themes) - 1)
	assert.Zero(t, idx)
	_, idx = NextTheme(0)
	assert.Equal(t, 1, idx)
}

func TestThemeColor(t *testing.T) {
	th := Themes[0]
	assert.Equal(t, th.Positive, th.Color(rain.TonePositive))
	assert.Equal(t, th.Negative, th.Color(rain.ToneNegative))
	assert.Equal(t, th.Neutral, th.Color(rain.ToneNeutral))
	assert.Equal(t, th.Background, th.Color(rain.ToneBackground))
}

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(w, h)
	return s
}

func TestTerminalSink(t *testing.T) {
	s := newSimScreen(t, 6, 3)
	term := NewTerminal(s, Themes[0])
	defer term.Close()

	w, h := term.Size()
	assert.Equal(t, 6, w)
	assert.Equal(t, 3, h)

	term.SetGlyph(2, 4, rain.Glyph{Rune: 'Z', Style: rain.Style{Tone: rain.TonePositive, Bold: true}})
	mainc, _, style, _ := s.GetContent(4, 2)
	assert.Equal(t, 'Z', mainc)

	fg, bg, attrs := style.Decompose()
	assert.Equal(t, tcell.GetColor(string(Themes[0].Positive)), fg)
	assert.Equal(t, tcell.GetColor(string(Themes[0].Background)), bg)
	assert.NotZero(t, attrs&tcell.AttrBold)
}

func TestTerminalRunQuitsOnKey(t *testing.T) {
	s := newSimScreen(t, 10, 8)
	term := NewTerminal(s, Themes[0])
	defer term.Close()

	scene := rain.NewForSink(term, rain.Options{MaxPadding: 2})
	scene.Push(rain.Message{Title: "MSFT", Body: " +1.00", Tone: rain.TonePositive})
	term.Apply(func(_ *Terminal, sc *rain.Scene) { sc.SetMaxPadding(3) })

	go func() {
		time.Sleep(80 * time.Millisecond)
		s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	}()

	done := make(chan error, 1)
	go func() { done <- term.Run(context.Background(), scene, 5*time.Millisecond) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after q")
	}

	assert.Equal(t, 3, scene.MaxPadding())
	assert.Positive(t, scene.Streaks())
}

func TestTerminalNarrowsWideRunes(t *testing.T) {
	s := newSimScreen(t, 4, 1)
	term := NewTerminal(s, Themes[0])
	defer term.Close()

	term.SetGlyph(0, 0, rain.Glyph{Rune: '株'})
	term.SetGlyph(0, 1, rain.Glyph{Rune: 'k'})
	term.SetGlyph(0, 2, rain.Glyph{Rune: '\u0301'})

	for col, want := range []rune{'?', 'k', ' '} {
		mainc, _, _, width := s.GetContent(col, 0)
		assert.Equal(t, want, mainc, "col %d", col)
		assert.Equal(t, 1, width, "col %d", col)
	}
}

func TestTerminalThemeKeyReportsName(t *testing.T) {
	s := newSimScreen(t, 6, 4)
	term := NewTerminal(s, Themes[0])
	defer term.Close()

	names := make(chan string, 1)
	term.OnTheme = func(name string) { names <- name }

	go func() {
		time.Sleep(40 * time.Millisecond)
		s.InjectKey(tcell.KeyRune, 't', tcell.ModNone)
		time.Sleep(40 * time.Millisecond)
		s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	}()

	scene := rain.NewForSink(term, rain.Options{})
	require.NoError(t, term.Run(context.Background(), scene, 5*time.Millisecond))

	select {
	case name := <-names:
		assert.Equal(t, Themes[1].Name, name)
	default:
		t.Fatal("theme change was not reported")
	}
	assert.Equal(t, Themes[1].Name, term.Theme().Name)
}

func TestTerminalRunStopsOnCancel(t *testing.T) {
	s := newSimScreen(t, 4, 4)
	term := NewTerminal(s, Themes[1])
	defer term.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	scene := rain.NewForSink(term, rain.Options{})
	require.NoError(t, term.Run(ctx, scene, 5*time.Millisecond))
}
