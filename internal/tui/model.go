package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ticker-rain/internal/config"
	"ticker-rain/internal/display"
	"ticker-rain/internal/rain"
)

// Global Keys
type KeyMap struct {
	Quit, Theme, Pause, Help key.Binding
}

var keys = KeyMap{
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Theme: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
	Pause: key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause")),
	Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

func (k KeyMap) bindings() []key.Binding {
	return []key.Binding{k.Quit, k.Theme, k.Pause, k.Help}
}

// Messages
type TickMsg time.Time

// StatusMsg sets the status line on the top row; empty clears it
type StatusMsg struct{ Text string }

// ConfigMsg carries hot-reloaded settings
type ConfigMsg struct {
	Theme      string
	MaxPadding int
	Interval   time.Duration
}

// Model drives a rain scene from bubbletea ticks
type Model struct {
	scene    *rain.Scene
	grid     *display.Grid
	theme    display.Theme
	themeIdx int
	interval time.Duration

	Width, Height int
	Paused        bool
	ShowHelp      bool
	Status        string

	// OnTheme is called with the new theme name when the user cycles themes
	OnTheme func(name string)
}

// NewModel creates a model around an existing scene. The scene is resized
// on the first WindowSizeMsg.
func NewModel(scene *rain.Scene, themeName string, interval time.Duration) Model {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	theme, idx := display.ThemeByName(themeName)
	w, h := scene.Size()
	return Model{
		scene:    scene,
		grid:     display.NewGrid(w, h, scene.Background()),
		theme:    theme,
		themeIdx: idx,
		interval: interval,
		Width:    w,
		Height:   h,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("ticker-rain"),
		m.tick(),
	)
}

// Scene returns the driven scene
func (m Model) Scene() *rain.Scene { return m.scene }

// Grid returns the frame buffer
func (m Model) Grid() *display.Grid { return m.grid }

// Theme returns the active theme
func (m Model) Theme() display.Theme { return m.theme }

// Interval returns the tick cadence
func (m Model) Interval() time.Duration { return m.interval }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleInput(msg)

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.grid.Resize(msg.Width, msg.Height)
		m.scene.Resize(msg.Width, msg.Height)

	case TickMsg:
		if !m.Paused {
			m.scene.Advance(m.grid)
		}
		return m, m.tick()

	case StatusMsg:
		m.Status = msg.Text

	case ConfigMsg:
		if msg.Theme != "" && !strings.EqualFold(msg.Theme, m.theme.Name) {
			m.theme, m.themeIdx = display.ThemeByName(msg.Theme)
		}
		m.scene.SetMaxPadding(msg.MaxPadding)
		if msg.Interval > 0 {
			m.interval = msg.Interval
		}
	}

	return m, nil
}

func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Theme):
		m.theme, m.themeIdx = display.NextTheme(m.themeIdx)
		if m.OnTheme != nil {
			m.OnTheme(m.theme.Name)
		}
	case key.Matches(msg, keys.Pause):
		m.Paused = !m.Paused
	case key.Matches(msg, keys.Help):
		m.ShowHelp = !m.ShowHelp
	}
	return m, nil
}

func (m Model) View() string {
	if m.Width <= 0 || m.Height <= 0 {
		return ""
	}

	lines := strings.Split(m.grid.Render(m.theme), "\n")

	status := m.Status
	if status == "" && m.Paused {
		status = "PAUSED"
	}
	if status != "" {
		lines[0] = m.overlayLine(status, true)
	}
	if m.ShowHelp {
		lines[len(lines)-1] = m.overlayLine(m.helpLine(), false)
	}

	return strings.Join(lines, "\n")
}

// overlayLine renders text padded to the full width in the theme's colours
func (m Model) overlayLine(text string, bold bool) string {
	text = runewidth.Truncate(text, m.Width, "")
	text = runewidth.FillRight(text, m.Width)
	return lipgloss.NewStyle().
		Background(m.theme.Background).
		Foreground(m.theme.Neutral).
		Bold(bold).
		Render(text)
}

func (m Model) helpLine() string {
	parts := make([]string, 0, len(keys.bindings()))
	for _, b := range keys.bindings() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

// SendStatus updates the status line from outside the program
func SendStatus(p *tea.Program, text string) { p.Send(StatusMsg{text}) }

// SendConfig forwards a reloaded config to the program
func SendConfig(p *tea.Program, cfg *config.Config) {
	p.Send(ConfigMsg{
		Theme:      cfg.Display.Theme,
		MaxPadding: cfg.Scene.MaxPadding,
		Interval:   cfg.TickInterval(),
	})
}
