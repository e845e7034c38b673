// Package visual turns amplitude maps into the radial scene: ring markers, the
// dominant-note trail and its animated render state. Everything here runs on the
// session goroutine and is not safe for concurrent use.
package visual

import (
	"fmt"
	"math"
	"strings"

	"forma/internal/notes"
)

const (
	DefaultWidth       = 600.0
	DefaultHeight      = 600.0 / (16.0 / 9.0) // 337.5, a 16:9 frame.
	DefaultRingSpacing = 24.0
	radiusDivisor      = 3.0
	ringOutlineFactor  = 1.2
	ringOutlineOpacity = 0.1
)

// OctaveOrder decides which octave sits on the first (top) ring.
type OctaveOrder uint8

const (
	// Descending puts octave 7 on ring 0 and octave 0 on ring 7.
	Descending OctaveOrder = iota
	// Ascending puts octave 0 on ring 0.
	Ascending
)

func (o OctaveOrder) String() string {
	if o == Ascending {
		return "ascending"
	}
	return "descending"
}

// ParseOctaveOrder accepts "descending" (or "desc") and "ascending" (or "asc").
func ParseOctaveOrder(s string) (OctaveOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "descending", "desc":
		return Descending, nil
	case "ascending", "asc":
		return Ascending, nil
	default:
		return Descending, fmt.Errorf("unknown octave order %q", s)
	}
}

// Layout is the geometry every coordinate is derived from.
type Layout struct {
	Width       float64
	Height      float64
	Radius      float64
	RingSpacing float64
	Order       OctaveOrder
}

// NewLayout returns a descending layout for the given surface size.
func NewLayout(width, height float64) Layout {
	l := Layout{RingSpacing: DefaultRingSpacing, Order: Descending}
	return l.Resize(width, height)
}

// Resize returns a copy with the new size and a recomputed radius. Negative or
// NaN sizes are treated as zero.
func (l Layout) Resize(width, height float64) Layout {
	l.Width = nonNegative(width)
	l.Height = nonNegative(height)
	l.Radius = math.Min(l.Width, l.Height) / radiusDivisor
	return l
}

// RingIndex maps an octave to its ring position.
func (l Layout) RingIndex(octave int) int {
	if l.Order == Ascending {
		return octave
	}
	return notes.MaxOctave - octave
}

// RingCenter is the centre of the ring drawn for octave.
func (l Layout) RingCenter(octave int) (x, y float64) {
	return l.Width / 2, l.Radius + float64(l.RingIndex(octave))*l.RingSpacing
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
