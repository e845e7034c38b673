package visual

import (
	"time"

	"forma/internal/notes"
)

const (
	pathFillOpacity = 0.5
	pathStrokeWidth = 2.0
	pathOpacity     = 0.9
)

// Path is the dominant-note trail as drawn.
type Path struct {
	Points      []Point    `json:"points"`
	D           string     `json:"d"`
	Style       CurveStyle `json:"style"`
	Fill        string     `json:"fill"`
	Stroke      string     `json:"stroke"`
	FillOpacity float64    `json:"fill_opacity"`
	StrokeWidth float64    `json:"stroke_width"`
	Opacity     float64    `json:"opacity"`
	Animating   bool       `json:"animating"`
}

// Scene is everything a surface needs to draw one frame. A composed scene is never
// mutated again, so surfaces may keep it.
type Scene struct {
	Type     string                    `json:"type"`
	Seq      uint64                    `json:"seq"`
	Time     time.Time                 `json:"time"`
	Width    float64                   `json:"width"`
	Height   float64                   `json:"height"`
	Visible  bool                      `json:"visible"`
	Rings    []Ring                    `json:"rings"`
	Markers  []Marker                  `json:"markers"`
	Path     Path                      `json:"path"`
	Dominant *Selection                `json:"dominant,omitempty"`
	Levels   [notes.NumOctaves]float64 `json:"levels"` // Per-ring energy in [0, 1].
	Table    [notes.TableSize]float64  `json:"-"`      // Raw weights, octave-major.
}

// Surface draws scenes: a terminal, a socket, an image.
type Surface interface {
	Draw(scene *Scene) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(scene *Scene) error

func (f SurfaceFunc) Draw(scene *Scene) error { return f(scene) }

// Compose builds the scene for the current state. m may be nil before the first
// analysis frame. dominant is the selection of the frame in m, nil when that
// frame had no note.
func Compose(seq uint64, now time.Time, l Layout, vis *Visibility, m *notes.AmplitudeMap, dominant *Selection, a *Animator) *Scene {
	if m == nil {
		m = &notes.AmplitudeMap{}
	}
	capacity := a.Config().Capacity
	render := a.Render()
	color := render.Color.Hex()

	s := &Scene{
		Type:    "scene",
		Seq:     seq,
		Time:    now,
		Width:   l.Width,
		Height:  l.Height,
		Visible: vis.Visible(),
		Rings:   Rings(l),
		Markers: Markers(make([]Marker, 0, notes.TableSize), m, l, capacity),
		Path: Path{
			Points:      render.Shape,
			D:           PathData(render.Shape, true),
			Style:       render.Style,
			Fill:        color,
			Stroke:      color,
			FillOpacity: pathFillOpacity,
			StrokeWidth: pathStrokeWidth,
			Opacity:     pathOpacity,
			Animating:   render.Animating,
		},
		Levels: m.RingLevels(1 / float64(capacity)),
	}
	if dominant != nil {
		sel := *dominant
		s.Dominant = &sel
	}
	m.CopyTable(&s.Table)
	return s
}
