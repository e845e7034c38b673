package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"forma/internal/audio"
	"forma/internal/notes"
	"forma/internal/visual"
)

type fakeController struct {
	toggles int
	resizes [][2]float64
}

func (f *fakeController) RequestToggle() error {
	f.toggles++
	return nil
}

func (f *fakeController) RequestResize(w, h float64) error {
	f.resizes = append(f.resizes, [2]float64{w, h})
	return nil
}

func TestCanvasSetAndString(t *testing.T) {
	c := NewCanvas(2, 1)
	if w, h := c.Dots(); w != 4 || h != 4 {
		t.Fatalf("Dots() = %d, %d", w, h)
	}
	c.Set(0, 0)  // Bit 0.
	c.Set(1, 3)  // Bit 7.
	c.Set(9, 9)  // Outside.
	c.Set(-1, 0) // Outside.

	if got := c.Cell(0, 0); got != 0x81 {
		t.Errorf("cell = %#x, want 0x81", got)
	}
	if got, want := c.String(), string([]rune{0x2881, 0x2800}); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	c.Clear()
	if c.Cell(0, 0) != 0 {
		t.Error("Clear left dots set")
	}
}

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(4, 1)
	c.Line(0, 1, 7, 1)
	for col := range 4 {
		if got := c.Cell(col, 0); got != 1<<1|1<<4 {
			t.Errorf("cell %d = %#x", col, got)
		}
	}

	d := NewCanvas(1, 1)
	d.Line(1, 3, 0, 0)
	if d.Cell(0, 0)&(1<<0) == 0 || d.Cell(0, 0)&(1<<7) == 0 {
		t.Errorf("diagonal missing endpoints: %#x", d.Cell(0, 0))
	}
}

func TestCanvasCircle(t *testing.T) {
	c := NewCanvas(10, 5)
	c.Circle(10, 10, 6)
	lit := 0
	for row := range 5 {
		for col := range 10 {
			if c.Cell(col, row) != 0 {
				lit++
			}
		}
	}
	if lit == 0 || c.Cell(5, 2) != 0 {
		t.Errorf("circle drew %d cells, centre %#x", lit, c.Cell(5, 2))
	}
}

func TestProjectionKeepsAspect(t *testing.T) {
	c := NewCanvas(50, 10) // 100x40 dots.
	p := newProjection(200, 40, c)
	if x, y := p.point(0, 0); x != 0 || y != 10 {
		t.Errorf("origin -> %d,%d, want 0,10", x, y)
	}
	if x, y := p.point(200, 40); x != 100 || y != 30 {
		t.Errorf("corner -> %d,%d, want 100,30", x, y)
	}
	if p.length(20) != 10 {
		t.Errorf("length(20) = %d", p.length(20))
	}
}

func testScene(t *testing.T, visible bool) *visual.Scene {
	t.Helper()
	layout := visual.NewLayout(visual.DefaultWidth, visual.DefaultHeight)
	a, err := visual.NewAnimator(visual.DefaultAnimatorConfig())
	if err != nil {
		t.Fatal(err)
	}
	var m notes.AmplitudeMap
	m.Add(notes.Key{Class: notes.G, Octave: 4}, 1800)
	now := time.Unix(0, 0)
	sel, _ := visual.Select(&m, layout, 2048)
	a.Update(sel, now)

	var vis visual.Visibility
	if !visible {
		vis.Toggle()
	}
	return visual.Compose(7, now, layout, &vis, &m, &sel, a)
}

func TestModelWindowSizeRequestsResize(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(ctrl, "forma")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 82, Height: 33})
	model := next.(Model)

	if len(ctrl.resizes) != 1 || ctrl.resizes[0] != [2]float64{160, 80} {
		t.Errorf("resizes = %v, want [[160 80]]", ctrl.resizes)
	}
	if cols, rows := model.canvas.Cells(); cols != 80 || rows != 20 {
		t.Errorf("canvas = %dx%d", cols, rows)
	}
}

func TestModelToggleAndQuitKeys(t *testing.T) {
	ctrl := &fakeController{}
	var model tea.Model = NewModel(ctrl, "forma")

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyCtrlH})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	if ctrl.toggles != 2 {
		t.Errorf("toggles = %d, want 2", ctrl.toggles)
	}

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestModelViewShowsDominant(t *testing.T) {
	var model tea.Model = NewModel(&fakeController{}, "forma")
	if model.View() != "Initializing..." {
		t.Errorf("View before size = %q", model.View())
	}
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	model, _ = model.Update(SceneMsg{Scene: testScene(t, true)})
	model, _ = model.Update(StatusMsg("attached"))

	view := model.View()
	for _, want := range []string{"forma", "frame 7", "G4", "attached", "oct 7", "oct 0"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	model, _ = model.Update(SceneMsg{Scene: testScene(t, false)})
	if view := model.View(); !strings.Contains(view, "hidden") || strings.Contains(view, "G4") {
		t.Error("hidden scene still shows the dominant note")
	}
}

func TestModelCanvasBlankWhenHidden(t *testing.T) {
	dots := func(s string) int {
		n := 0
		for _, r := range s {
			if r > 0x2800 && r <= 0x28FF {
				n++
			}
		}
		return n
	}

	var model tea.Model = NewModel(&fakeController{}, "forma")
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 30})

	model, _ = model.Update(SceneMsg{Scene: testScene(t, true)})
	if dots(model.(Model).renderCanvas()) == 0 {
		t.Fatal("visible scene drew nothing")
	}

	model, _ = model.Update(SceneMsg{Scene: testScene(t, false)})
	if n := dots(model.(Model).renderCanvas()); n != 0 {
		t.Errorf("hidden scene drew %d braille cells", n)
	}
}

func TestMetersFollowLevels(t *testing.T) {
	var model tea.Model = NewModel(&fakeController{}, "forma")
	scene := &visual.Scene{}
	scene.Levels[4] = 1
	for range 120 {
		model, _ = model.Update(SceneMsg{Scene: scene})
	}
	m := model.(Model)
	if m.meters.pos[4] < 0.9 || m.meters.pos[3] != 0 {
		t.Errorf("meters = %v", m.meters.pos)
	}
}

func TestSurfaceWithoutProgram(t *testing.T) {
	var s Surface
	if err := s.Draw(&visual.Scene{}); err != nil {
		t.Errorf("Draw() = %v", err)
	}
}

func TestDeviceListPick(t *testing.T) {
	devices := []audio.Device{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100},
		{ID: 1, Name: "Mic", MaxInputChannels: 1, DefaultSampleRate: 48000},
	}
	var model tea.Model = NewDeviceListModel(func() ([]audio.Device, error) { return devices, nil })

	msg := model.Init()()
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(msg)

	enter := tea.KeyMsg{Type: tea.KeyEnter}
	model, _ = model.Update(enter) // Speakers have no input; stays on the list.
	if model.(DeviceListModel).activeScreen != ListScreen {
		t.Fatal("output-only device opened the config screen")
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model, _ = model.Update(enter)
	if !strings.Contains(model.View(), "Configure Device: Mic") {
		t.Fatalf("config screen not shown:\n%s", model.View())
	}
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown}) // 48 kHz -> 88.2 kHz.
	model, cmd := model.Update(enter)

	choice, ok := model.(DeviceListModel).Choice()
	if !ok || choice.DeviceID != 1 || choice.SampleRate != 88200 {
		t.Errorf("Choice() = %+v, %v", choice, ok)
	}
	if cmd == nil {
		t.Error("confirming did not quit")
	}
}

func TestDeviceListError(t *testing.T) {
	var model tea.Model = NewDeviceListModel(func() ([]audio.Device, error) { return nil, errors.New("no host") })
	msg := model.Init()()
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(msg)
	if !strings.Contains(model.View(), "no host") {
		t.Errorf("error not shown: %q", model.View())
	}
}
