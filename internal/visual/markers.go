package visual

import (
	"math"

	"forma/internal/notes"
)

// Glyph is the shape drawn for one ring position.
type Glyph uint8

const (
	// GlyphBar is a rounded bar whose width follows the amplitude.
	GlyphBar Glyph = iota
	// GlyphLine is a thin symmetric line, used on the top octave where energy is
	// mostly percussive.
	GlyphLine
)

func (g Glyph) String() string {
	if g == GlyphLine {
		return "line"
	}
	return "bar"
}

func (g Glyph) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

const (
	lineOctave     = 6 // Octaves above this draw lines.
	lineMaxHalf    = 100.0
	lineOpacity    = 0.4
	barScaleRange  = 200.0
	barMaxWidth    = 100.0
	barMaxOffset   = 50.0
	barMaxCorner   = 4.0
	barOpacity     = 0.9
	barHeightScale = 10
)

// Marker is one of the 96 ring readouts. X and Y are relative to the ring centre
// (CX, CY); the glyph is rotated by Rotation degrees around (X, Y).
type Marker struct {
	Key       notes.Key `json:"key"`
	Glyph     Glyph     `json:"glyph"`
	Amplitude float64   `json:"amplitude"`
	CX        float64   `json:"cx"`
	CY        float64   `json:"cy"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Rotation  float64   `json:"rotation"`
	Opacity   float64   `json:"opacity"`

	// Line glyph.
	HalfLength float64 `json:"half_length,omitempty"`

	// Bar glyph.
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Offset float64 `json:"offset,omitempty"`
	Corner float64 `json:"corner,omitempty"`
	Fill   string  `json:"fill,omitempty"`
}

// Ring is the faint outline drawn behind each octave.
type Ring struct {
	Octave  int     `json:"octave"`
	CX      float64 `json:"cx"`
	CY      float64 `json:"cy"`
	R       float64 `json:"r"`
	Opacity float64 `json:"opacity"`
}

// Rings returns the outline of every octave ring.
func Rings(l Layout) []Ring {
	out := make([]Ring, 0, notes.NumOctaves)
	for octave := range notes.NumOctaves {
		cx, cy := l.RingCenter(octave)
		out = append(out, Ring{
			Octave:  octave,
			CX:      cx,
			CY:      cy,
			R:       l.Radius * ringOutlineFactor,
			Opacity: ringOutlineOpacity,
		})
	}
	return out
}

// Markers lays out a readout for every ring position, octave-major, appending to
// dst. Missing keys read as zero amplitude. Bar sizes are measured against half
// the capacity.
func Markers(dst []Marker, m *notes.AmplitudeMap, l Layout, capacity int) []Marker {
	half := float64(capacity) / 2
	for octave := range notes.NumOctaves {
		cx, cy := l.RingCenter(octave)
		for _, class := range notes.PitchClasses() {
			key := notes.Key{Class: class, Octave: octave}
			amp, _ := m.Weight(key)

			deg := class.Angle() - 90
			rad := deg * math.Pi / 180
			mk := Marker{
				Key:       key,
				Amplitude: amp,
				CX:        cx,
				CY:        cy,
				X:         math.Cos(rad) * l.Radius,
				Y:         math.Sin(rad) * l.Radius,
				Rotation:  class.Angle(),
			}

			if octave > lineOctave {
				mk.Glyph = GlyphLine
				mk.HalfLength = math.Min(amp, lineMaxHalf)
				mk.Opacity = lineOpacity
			} else {
				s := 0.0
				if half > 0 {
					s = amp * barScaleRange / half
				}
				mk.Glyph = GlyphBar
				mk.Width = math.Max(math.Min(2*s, barMaxWidth), 0)
				mk.Offset = math.Min(s, barMaxOffset)
				mk.Height = float64(2 * (barHeightScale - octave))
				// Negative amplitudes would give a negative radius; clamp it.
				mk.Corner = math.Max(0, math.Min(barMaxCorner, s/2))
				mk.Fill = HueColor(deg).Hex()
				mk.Opacity = barOpacity
			}
			dst = append(dst, mk)
		}
	}
	return dst
}
