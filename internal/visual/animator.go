package visual

import (
	"fmt"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	DefaultHistorySize       = 20
	DefaultAnimationDuration = 100 * time.Millisecond
	DefaultCapacity          = 2048
	DefaultSharpThreshold    = 0.75
)

// AnimatorConfig tunes the trail.
type AnimatorConfig struct {
	HistorySize    int           // Most recent distinct points kept.
	Duration       time.Duration // Length of one interpolation cycle.
	Capacity       int           // Analysis window size; weights are measured against it.
	SharpThreshold float64       // Fraction of Capacity a weight must exceed for a sharp curve.
}

// DefaultAnimatorConfig returns the stock trail settings.
func DefaultAnimatorConfig() AnimatorConfig {
	return AnimatorConfig{
		HistorySize:    DefaultHistorySize,
		Duration:       DefaultAnimationDuration,
		Capacity:       DefaultCapacity,
		SharpThreshold: DefaultSharpThreshold,
	}
}

func (c AnimatorConfig) validate() error {
	if c.HistorySize < 1 {
		return fmt.Errorf("history size must be at least 1, got %d", c.HistorySize)
	}
	if c.Duration < 0 {
		return fmt.Errorf("animation duration must not be negative, got %s", c.Duration)
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if c.SharpThreshold <= 0 || c.SharpThreshold > 1 {
		return fmt.Errorf("sharp threshold must be in (0, 1], got %g", c.SharpThreshold)
	}
	return nil
}

// RenderState is what a surface draws for the trail at one instant.
type RenderState struct {
	Shape     []Point
	Color     colorful.Color
	Style     CurveStyle
	Animating bool
}

// Animator owns the bounded trail history and the interpolation from the shape
// currently on screen to the curve through that history. It is Idle until Update
// accepts a new point, then Animating until Tick reaches the end of the cycle. An
// Update during a cycle starts a new one from wherever the render state is.
type Animator struct {
	cfg       AnimatorConfig
	threshold float64

	history []PathPoint
	scratch []Point // History coordinates fed to BuildShape.
	last    Selection
	hasLast bool

	style    CurveStyle
	from     []Point
	target   []Point
	rendered []Point

	fromColor     colorful.Color
	targetColor   colorful.Color
	renderedColor colorful.Color

	drawn     bool // False until the first cycle; the first shape is not morphed in.
	animating bool
	start     time.Time
	cycles    uint64
}

// NewAnimator returns an idle animator showing the placeholder shape.
func NewAnimator(cfg AnimatorConfig) (*Animator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("animator: %w", err)
	}
	a := &Animator{
		cfg:           cfg,
		threshold:     cfg.SharpThreshold * float64(cfg.Capacity),
		history:       make([]PathPoint, 0, cfg.HistorySize),
		scratch:       make([]Point, 0, cfg.HistorySize),
		from:          make([]Point, ShapeVertices),
		renderedColor: InitialColor,
		targetColor:   InitialColor,
		fromColor:     InitialColor,
	}
	a.target = BuildShape(nil, nil, Smooth)
	a.rendered = BuildShape(nil, nil, Smooth)
	return a, nil
}

// StyleFor returns the curve style a dominant weight triggers. A weight must be
// strictly above the threshold to turn the curve sharp.
func (a *Animator) StyleFor(weight float64) CurveStyle {
	if weight > a.threshold {
		return Sharp
	}
	return Smooth
}

// Update offers a new dominant selection. A point equal to the newest stored point
// is ignored and Update returns false. Otherwise the point is appended, the oldest
// point is evicted beyond the history size, the curve is rebuilt and a new
// animation cycle starts at now from the current render state.
func (a *Animator) Update(sel Selection, now time.Time) bool {
	if n := len(a.history); n > 0 {
		prev := a.history[n-1]
		if prev.X == sel.Point.X && prev.Y == sel.Point.Y {
			return false
		}
	}

	// Bring the render state up to now so the new cycle anchors on what is shown.
	a.Tick(now)

	if len(a.history) == a.cfg.HistorySize {
		copy(a.history, a.history[1:])
		a.history = a.history[:len(a.history)-1]
	}
	a.history = append(a.history, sel.Point)
	a.last, a.hasLast = sel, true

	a.scratch = a.scratch[:0]
	for _, p := range a.history {
		a.scratch = append(a.scratch, Point{X: p.X, Y: p.Y})
	}
	a.style = a.StyleFor(sel.Weight)
	a.target = BuildShape(a.target, a.scratch, a.style)

	if a.drawn {
		copy(a.from, a.rendered)
	} else {
		copy(a.from, a.target)
		a.drawn = true
	}
	a.fromColor = a.renderedColor
	a.targetColor = HueColor(sel.Point.Hue)

	a.start = now
	a.animating = true
	a.cycles++
	return true
}

// Tick advances the interpolation to now and reports whether a cycle is still in
// flight.
func (a *Animator) Tick(now time.Time) bool {
	if !a.animating {
		return false
	}

	progress := 1.0
	if a.cfg.Duration > 0 {
		progress = float64(now.Sub(a.start)) / float64(a.cfg.Duration)
	}
	if progress >= 1 {
		copy(a.rendered, a.target)
		a.renderedColor = a.targetColor
		a.animating = false
		return false
	}
	if progress < 0 {
		progress = 0
	}

	e := easeCubicInOut(progress)
	for i := range a.rendered {
		a.rendered[i] = a.from[i].lerp(a.target[i], e)
	}
	a.renderedColor = blend(a.fromColor, a.targetColor, e)
	return true
}

// Render returns a copy of the current render state.
func (a *Animator) Render() RenderState {
	return RenderState{
		Shape:     append([]Point(nil), a.rendered...),
		Color:     a.renderedColor,
		Style:     a.style,
		Animating: a.animating,
	}
}

// History returns a copy of the stored points, oldest first.
func (a *Animator) History() []PathPoint {
	return append([]PathPoint(nil), a.history...)
}

// Target returns a copy of the shape the current cycle is heading to.
func (a *Animator) Target() []Point {
	return append([]Point(nil), a.target...)
}

// Last returns the selection that produced the newest stored point.
func (a *Animator) Last() (Selection, bool) { return a.last, a.hasLast }

// Animating reports whether a cycle is in flight.
func (a *Animator) Animating() bool { return a.animating }

// Cycles counts animation cycles started since construction.
func (a *Animator) Cycles() uint64 { return a.cycles }

// Config returns the settings the animator was built with.
func (a *Animator) Config() AnimatorConfig { return a.cfg }

// easeCubicInOut accelerates through the first half and decelerates through the
// second.
func easeCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}
