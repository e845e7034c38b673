package visual

import (
	"math"
	"strconv"
)

// Point is a vertex of a rendered shape.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) lerp(to Point, t float64) Point {
	return Point{X: p.X + (to.X-p.X)*t, Y: p.Y + (to.Y-p.Y)*t}
}

// CurveStyle selects how the trail joins its points.
type CurveStyle uint8

const (
	// Smooth is a closed uniform cubic B-spline through the history.
	Smooth CurveStyle = iota
	// Sharp joins the history with straight closed segments.
	Sharp
)

func (s CurveStyle) String() string {
	if s == Sharp {
		return "sharp"
	}
	return "smooth"
}

func (s CurveStyle) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

const (
	// ShapeVertices is the fixed vertex count every shape is resampled to, so that
	// two shapes can be interpolated point by point.
	ShapeVertices = 120

	// splineSteps is how many samples each B-spline segment contributes before
	// resampling.
	splineSteps = 16

	minClosedPoints = 3
)

// placeholder is drawn while there is no closed curve to show.
var placeholder = [2]Point{{X: 10, Y: 10}, {X: 20, Y: 20}}

// BuildShape traces the closed curve through pts in the given style and resamples
// it into dst, which is grown to ShapeVertices. With fewer than three points the
// result is degenerate: the placeholder segment when pts is empty, otherwise the
// shape collapsed onto the points.
func BuildShape(dst []Point, pts []Point, style CurveStyle) []Point {
	var outline []Point
	switch {
	case len(pts) == 0:
		outline = placeholder[:]
	case len(pts) < minClosedPoints:
		outline = linearClosed(pts)
	case style == Sharp:
		outline = linearClosed(pts)
	default:
		outline = basisClosed(pts, splineSteps)
	}
	return resample(dst, outline, ShapeVertices)
}

// linearClosed returns pts followed by pts[0].
func linearClosed(pts []Point) []Point {
	out := make([]Point, 0, len(pts)+1)
	out = append(out, pts...)
	return append(out, pts[0])
}

// basisClosed samples a closed uniform cubic B-spline whose control polygon is pts.
// The curve does not pass through the control points; it is pulled towards them.
func basisClosed(pts []Point, steps int) []Point {
	n := len(pts)
	out := make([]Point, 0, n*steps+1)
	for i := range n {
		p0, p1, p2, p3 := pts[i], pts[(i+1)%n], pts[(i+2)%n], pts[(i+3)%n]
		for s := range steps {
			t := float64(s) / float64(steps)
			t2, t3 := t*t, t*t*t
			b0 := (1 - 3*t + 3*t2 - t3) / 6
			b1 := (4 - 6*t2 + 3*t3) / 6
			b2 := (1 + 3*t + 3*t2 - 3*t3) / 6
			b3 := t3 / 6
			out = append(out, Point{
				X: b0*p0.X + b1*p1.X + b2*p2.X + b3*p3.X,
				Y: b0*p0.Y + b1*p1.Y + b2*p2.Y + b3*p3.Y,
			})
		}
	}
	return append(out, out[0])
}

// resample walks the polyline and emits n points evenly spaced by arc length, the
// first on poly[0] and the last on poly[len-1]. A zero-length polyline collapses
// every vertex onto poly[0].
func resample(dst []Point, poly []Point, n int) []Point {
	if cap(dst) < n {
		dst = make([]Point, n)
	}
	dst = dst[:n]

	var total float64
	for i := 1; i < len(poly); i++ {
		total += dist(poly[i-1], poly[i])
	}
	if total == 0 || len(poly) < 2 {
		for i := range dst {
			dst[i] = poly[0]
		}
		return dst
	}

	seg, segStart := 1, 0.0
	segLen := dist(poly[0], poly[1])
	for i := range n {
		target := total * float64(i) / float64(n-1)
		for seg < len(poly)-1 && segStart+segLen < target {
			segStart += segLen
			seg++
			segLen = dist(poly[seg-1], poly[seg])
		}
		if segLen == 0 {
			dst[i] = poly[seg]
			continue
		}
		t := math.Min(1, math.Max(0, (target-segStart)/segLen))
		dst[i] = poly[seg-1].lerp(poly[seg], t)
	}
	return dst
}

func dist(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// PathData renders the shape as SVG path data ("M x,y L x,y ... Z").
func PathData(shape []Point, closed bool) string {
	if len(shape) == 0 {
		return ""
	}
	buf := make([]byte, 0, len(shape)*16)
	for i, p := range shape {
		if i == 0 {
			buf = append(buf, 'M')
		} else {
			buf = append(buf, 'L')
		}
		buf = strconv.AppendFloat(buf, round2(p.X), 'f', -1, 64)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, round2(p.Y), 'f', -1, 64)
	}
	if closed {
		buf = append(buf, 'Z')
	}
	return string(buf)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
