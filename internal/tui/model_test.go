package tui

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ticker-rain/internal/display"
	"ticker-rain/internal/rain"
)

func newTestModel(t *testing.T, w, h int) Model {
	t.Helper()
	scene := rain.New(0, 0, rain.Options{Rand: rand.New(rand.NewPCG(1, 2))})
	scene.Push(rain.Message{Title: "AB", Tone: rain.TonePositive})

	m := NewModel(scene, "Matrix", 10*time.Millisecond)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatal("Model type assertion failed")
	}
	return out, cmd
}

func TestWindowSizeResizesSceneAndGrid(t *testing.T) {
	m := newTestModel(t, 12, 6)

	if w, h := m.Grid().Size(); w != 12 || h != 6 {
		t.Errorf("grid size = %dx%d, want 12x6", w, h)
	}
	if w, h := m.Scene().Size(); w != 12 || h != 6 {
		t.Errorf("scene size = %dx%d, want 12x6", w, h)
	}
	if m.Scene().Queue().Len() != 1 {
		t.Error("resize should keep queued messages")
	}
}

func TestTickAdvancesScene(t *testing.T) {
	m := newTestModel(t, 4, 6)

	m, cmd := update(t, m, TickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick should schedule the next tick")
	}
	if m.Scene().Streaks() != 4 {
		t.Errorf("streaks = %d, want one per column", m.Scene().Streaks())
	}

	var sawGlyph bool
	for col := 0; col < 4; col++ {
		if r := m.Grid().At(0, col).Rune; r != ' ' {
			sawGlyph = true
		}
	}
	if !sawGlyph && m.Scene().MaxPadding() == 0 {
		t.Error("expected message glyphs on the top row")
	}
}

func TestPauseFreezesFrame(t *testing.T) {
	m := newTestModel(t, 5, 5)
	m, _ = update(t, m, TickMsg(time.Now()))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	if !m.Paused {
		t.Fatal("p should pause")
	}

	before := m.Grid().Plain()
	heads := m.Scene().Columns()[0].Streaks()[0].Head()
	m, cmd := update(t, m, TickMsg(time.Now()))
	if cmd == nil {
		t.Error("paused model should keep ticking")
	}
	if m.Grid().Plain() != before {
		t.Error("frame changed while paused")
	}
	if got := m.Scene().Columns()[0].Streaks()[0].Head(); got != heads {
		t.Errorf("head moved while paused: %d -> %d", heads, got)
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("view should show PAUSED")
	}
}

func TestQuitKeys(t *testing.T) {
	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEscape},
	} {
		m := newTestModel(t, 3, 3)
		_, cmd := update(t, m, msg)
		if cmd == nil {
			t.Fatalf("%v: expected quit command", msg)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%v: expected tea.QuitMsg", msg)
		}
	}
}

func TestThemeKeyCyclesAndNotifies(t *testing.T) {
	m := newTestModel(t, 3, 3)
	var notified string
	m.OnTheme = func(name string) { notified = name }

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	if m.Theme().Name != display.Themes[1].Name {
		t.Errorf("theme = %q, want %q", m.Theme().Name, display.Themes[1].Name)
	}
	if notified != m.Theme().Name {
		t.Errorf("OnTheme got %q", notified)
	}
}

func TestStatusLine(t *testing.T) {
	m := newTestModel(t, 40, 4)
	m, _ = update(t, m, StatusMsg{"Downloading stock prices..."})

	first := strings.Split(m.View(), "\n")[0]
	if !strings.Contains(first, "Downloading stock prices...") {
		t.Errorf("status not on top row: %q", first)
	}

	m, _ = update(t, m, StatusMsg{""})
	if strings.Contains(m.View(), "Downloading") {
		t.Error("status should clear")
	}
}

func TestHelpLine(t *testing.T) {
	m := newTestModel(t, 60, 4)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	if !m.ShowHelp {
		t.Fatal("? should toggle help")
	}
	lines := strings.Split(m.View(), "\n")
	if !strings.Contains(lines[len(lines)-1], "q quit") {
		t.Errorf("help not on bottom row: %q", lines[len(lines)-1])
	}
}

func TestConfigMsgApplies(t *testing.T) {
	m := newTestModel(t, 3, 3)
	m, _ = update(t, m, ConfigMsg{Theme: "light", MaxPadding: 4, Interval: 250 * time.Millisecond})

	if m.Theme().Name != "Light" {
		t.Errorf("theme = %q, want Light", m.Theme().Name)
	}
	if m.Scene().MaxPadding() != 4 {
		t.Errorf("max padding = %d, want 4", m.Scene().MaxPadding())
	}
	if m.Interval() != 250*time.Millisecond {
		t.Errorf("interval = %v", m.Interval())
	}
}

func TestViewBeforeSize(t *testing.T) {
	scene := rain.New(0, 0, rain.Options{})
	m := NewModel(scene, "", 0)
	if m.View() != "" {
		t.Error("view should be empty before the first WindowSizeMsg")
	}
	if m.Interval() <= 0 {
		t.Error("interval should default")
	}
}
