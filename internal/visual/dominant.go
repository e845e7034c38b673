package visual

import (
	"math"

	"forma/internal/notes"
)

// PathPoint is one stored trail point: a coordinate plus the hue of the note that
// produced it.
type PathPoint struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Hue float64 `json:"hue"`
}

// Selection is the dominant note of one frame placed on the layout.
type Selection struct {
	Key    notes.Key `json:"key"`
	Point  PathPoint `json:"point"`
	Weight float64   `json:"weight"`
}

// Select picks the strongest note in m and places it on its ring. The point sits
// at the note's angle, rotated so C is at the top, at a distance proportional to
// weight/capacity (capped at the full radius). Equal weights resolve to the lower
// octave, then the lower pitch class. ok is false for an empty map.
func Select(m *notes.AmplitudeMap, l Layout, capacity int) (sel Selection, ok bool) {
	best, ok := m.Dominant()
	if !ok {
		return Selection{}, false
	}

	hue := best.Key.Class.Angle() - 90
	ratio := 1.0
	if capacity > 0 {
		ratio = math.Min(best.Weight/float64(capacity), 1)
	}
	scaled := l.Radius * ratio
	cx, cy := l.RingCenter(best.Key.Octave)
	rad := hue * math.Pi / 180

	return Selection{
		Key: best.Key,
		Point: PathPoint{
			X:   math.Cos(rad)*scaled + cx,
			Y:   math.Sin(rad)*scaled + cy,
			Hue: hue,
		},
		Weight: best.Weight,
	}, true
}
