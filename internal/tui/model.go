// Package tui draws scenes in the terminal and turns key presses and window
// changes into session requests.
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	applog "forma/internal/log"
	"forma/internal/notes"
	"forma/internal/visual"
)

var logger = applog.Named("TUI")

// Controller receives the requests a user can make from the terminal.
type Controller interface {
	RequestToggle() error
	RequestResize(width, height float64) error
}

// SceneMsg delivers a composed scene to the model.
type SceneMsg struct{ Scene *visual.Scene }

// StatusMsg replaces the status line.
type StatusMsg string

const (
	chromeLines = 13 // Title, blank, blank, eight meters, blank, help.
	meterFPS    = 60
	minCols     = 8
	minRows     = 4
)

var (
	toggleKey = key.NewBinding(key.WithKeys("ctrl+h", "h"), key.WithHelp("ctrl+h", "show/hide"))
	quitKey   = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit"))
)

// Model is the Bubble Tea model for the live scene.
type Model struct {
	ctrl   Controller
	title  string
	status string

	width, height int
	canvas        *Canvas
	scene         *visual.Scene
	meters        springField
	bar           progress.Model
	ready         bool
}

// NewModel returns a model that forwards requests to ctrl.
func NewModel(ctrl Controller, title string) Model {
	bar := progress.New(
		progress.WithScaledGradient("#FF8C00", "#FF5F1F"),
		progress.WithoutPercentage(),
	)
	bar.Width = 30
	m := Model{
		ctrl:   ctrl,
		title:  title,
		canvas: NewCanvas(minCols, minRows),
		meters: newSpringField(meterFPS, 6.0, 0.8),
		bar:    bar,
	}
	m.meters.resize(notes.NumOctaves)
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.canvas = NewCanvas(max(msg.Width-2, minCols), max(msg.Height-chromeLines, minRows))
		m.bar.Width = max(msg.Width-12, 10)
		m.ready = true
		w, h := m.canvas.Dots()
		if err := m.ctrl.RequestResize(float64(w), float64(h)); err != nil {
			logger.Debugf("Resize request refused: %v", err)
		}

	case SceneMsg:
		m.scene = msg.Scene
		for i, level := range msg.Scene.Levels {
			m.meters.step(i, level)
		}

	case StatusMsg:
		m.status = string(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKey):
			return m, tea.Quit
		case key.Matches(msg, toggleKey):
			if err := m.ctrl.RequestToggle(); err != nil {
				logger.Debugf("Toggle request refused: %v", err)
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("  ")
	sb.WriteString(infoStyle.Render(m.statusLine()))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderCanvas())
	sb.WriteString("\n\n")
	sb.WriteString(m.renderMeters())
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(fmt.Sprintf("%s: %s • %s: %s",
		toggleKey.Help().Key, toggleKey.Help().Desc, quitKey.Help().Key, quitKey.Help().Desc)))
	return sb.String()
}

func (m Model) statusLine() string {
	if m.scene == nil {
		return "waiting for audio"
	}
	parts := []string{"frame " + humanize.Comma(int64(m.scene.Seq))}
	switch {
	case !m.scene.Visible:
		parts = append(parts, "hidden")
	case m.scene.Dominant != nil:
		d := m.scene.Dominant
		parts = append(parts, highlightStyle.Render(d.Key.String()),
			fmt.Sprintf("weight %s", humanize.FtoaWithDigits(d.Weight, 1)))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return strings.Join(parts, " · ")
}

// renderCanvas draws the ring grid in a muted colour and the trail in the scene
// colour on top of it. A hidden scene leaves the canvas blank.
func (m Model) renderCanvas() string {
	cols, rows := m.canvas.Cells()
	grid := NewCanvas(cols, rows)
	trail := NewCanvas(cols, rows)
	stroke := lipgloss.Color(visual.InitialColor.Hex())

	if s := m.scene; s != nil && s.Visible {
		pr := newProjection(s.Width, s.Height, grid)
		for _, r := range s.Rings {
			x, y := pr.point(r.CX, r.CY)
			grid.Circle(x, y, pr.length(r.R))
		}
		for _, mk := range s.Markers {
			if mk.Amplitude > 0 {
				grid.Set(pr.point(mk.CX+mk.X, mk.CY+mk.Y))
			}
		}
		if len(s.Path.Points) > 1 {
			pts := s.Path.Points
			for i := range pts {
				a, b := pts[i], pts[(i+1)%len(pts)]
				x0, y0 := pr.point(a.X, a.Y)
				x1, y1 := pr.point(b.X, b.Y)
				trail.Line(x0, y0, x1, y1)
			}
			stroke = lipgloss.Color(s.Path.Stroke)
		}
	}

	trailStyle := lipgloss.NewStyle().Foreground(stroke)
	var sb strings.Builder
	for row := range rows {
		if row > 0 {
			sb.WriteByte('\n')
		}
		var run strings.Builder
		runTrail := false
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runTrail {
				sb.WriteString(trailStyle.Render(run.String()))
			} else {
				sb.WriteString(gridStyle.Render(run.String()))
			}
			run.Reset()
		}
		for col := range cols {
			t := trail.Cell(col, row)
			onTrail := t != 0
			if onTrail != runTrail {
				flush()
				runTrail = onTrail
			}
			run.WriteRune(rune(0x2800 + int(t|grid.Cell(col, row))))
		}
		flush()
	}
	return sb.String()
}

func (m Model) renderMeters() string {
	var sb strings.Builder
	for octave := notes.NumOctaves - 1; octave >= 0; octave-- {
		fmt.Fprintf(&sb, "%s %s\n", infoStyle.Render(fmt.Sprintf("oct %d", octave)), m.bar.ViewAs(m.meters.pos[octave]))
	}
	return sb.String()
}

// projection maps scene coordinates onto canvas dots, preserving aspect ratio and
// centring the scene.
type projection struct {
	scale, ox, oy float64
}

func newProjection(width, height float64, c *Canvas) projection {
	dw, dh := c.Dots()
	if width <= 0 || height <= 0 {
		return projection{}
	}
	scale := math.Min(float64(dw)/width, float64(dh)/height)
	return projection{
		scale: scale,
		ox:    (float64(dw) - width*scale) / 2,
		oy:    (float64(dh) - height*scale) / 2,
	}
}

func (p projection) point(x, y float64) (int, int) {
	return int(math.Round(p.ox + x*p.scale)), int(math.Round(p.oy + y*p.scale))
}

func (p projection) length(v float64) int { return int(math.Round(v * p.scale)) }
