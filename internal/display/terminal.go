package display

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"ticker-rain/internal/rain"
)

// Terminal draws the rain straight onto a tcell screen
type Terminal struct {
	screen   tcell.Screen
	theme    Theme
	themeIdx int
	styles   map[rain.Style]tcell.Style
	interval time.Duration
	updates  chan func(*Terminal, *rain.Scene)

	// OnTheme is called with the new theme name when the user cycles themes
	OnTheme func(name string)
}

// OpenTerminal initialises the real terminal
func OpenTerminal(theme Theme) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	return NewTerminal(screen, theme), nil
}

// NewTerminal wraps an initialised screen
func NewTerminal(screen tcell.Screen, theme Theme) *Terminal {
	t := &Terminal{
		screen:   screen,
		interval: 100 * time.Millisecond,
		updates:  make(chan func(*Terminal, *rain.Scene), 8),
	}
	_, t.themeIdx = ThemeByName(theme.Name)
	t.SetTheme(theme)
	screen.HideCursor()
	return t
}

// Size implements rain.Sink
func (t *Terminal) Size() (int, int) {
	return t.screen.Size()
}

// SetGlyph implements rain.Sink
func (t *Terminal) SetGlyph(row, col int, g rain.Glyph) {
	t.screen.SetContent(col, row, narrowRune(g.Rune), nil, t.style(g.Style))
}

func (t *Terminal) style(s rain.Style) tcell.Style {
	st, ok := t.styles[s]
	if !ok {
		st = tcell.StyleDefault.
			Background(tcell.GetColor(string(t.theme.Background))).
			Foreground(tcell.GetColor(string(t.theme.Color(s.Tone)))).
			Bold(s.Bold)
		t.styles[s] = st
	}
	return st
}

// SetTheme switches colours and repaints the background. Call it from the
// goroutine running Run, or through Apply.
func (t *Terminal) SetTheme(theme Theme) {
	t.theme = theme
	t.styles = make(map[rain.Style]tcell.Style)
	t.screen.SetStyle(t.style(rain.Style{Tone: rain.ToneBackground}))
	t.screen.Clear()
}

// Theme returns the active theme
func (t *Terminal) Theme() Theme { return t.theme }

// SetInterval changes the tick cadence
func (t *Terminal) SetInterval(d time.Duration) {
	if d > 0 {
		t.interval = d
	}
}

// Apply schedules fn on the render goroutine, between two ticks
func (t *Terminal) Apply(fn func(*Terminal, *rain.Scene)) {
	select {
	case t.updates <- fn:
	default:
		log.Warn().Msg("terminal update queue full, dropping update")
	}
}

// Close restores the terminal
func (t *Terminal) Close() {
	t.screen.Fini()
}

// Run drives the scene at a fixed cadence until ctx is cancelled or the user
// quits with q, Esc or Ctrl-C. Each tick advances the scene and shows the
// frame. Resizes rebuild the scene; t cycles themes.
func (t *Terminal) Run(ctx context.Context, scene *rain.Scene, interval time.Duration) error {
	t.SetInterval(interval)

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case fn := <-t.updates:
			fn(t, scene)
			ticker.Reset(t.interval)

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
					return nil
				case ev.Rune() == 't':
					theme, idx := NextTheme(t.themeIdx)
					t.themeIdx = idx
					t.SetTheme(theme)
					log.Debug().Str("theme", theme.Name).Msg("theme changed")
					if t.OnTheme != nil {
						t.OnTheme(theme.Name)
					}
				}
			case *tcell.EventResize:
				t.screen.Sync()
				w, h := t.screen.Size()
				scene.Resize(w, h)
				t.screen.Clear()
				log.Debug().Int("width", w).Int("height", h).Msg("terminal resized")
			}

		case <-ticker.C:
			scene.Advance(t)
			t.screen.Show()
		}
	}
}
