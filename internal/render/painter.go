package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"

	"forma/internal/visual"
)

// painter fills polygons in scene coordinates onto an RGBA image.
type painter struct {
	img   *image.RGBA
	scale float64
}

type pt struct{ x, y float64 }

func (p *painter) rasterizer() *vector.Rasterizer {
	b := p.img.Bounds()
	return vector.NewRasterizer(b.Dx(), b.Dy())
}

func (p *painter) polygon(z *vector.Rasterizer, pts []pt) {
	if len(pts) < 3 {
		return
	}
	z.MoveTo(float32(pts[0].x*p.scale), float32(pts[0].y*p.scale))
	for _, q := range pts[1:] {
		z.LineTo(float32(q.x*p.scale), float32(q.y*p.scale))
	}
	z.ClosePath()
}

func (p *painter) fill(z *vector.Rasterizer, c color.Color) {
	z.Draw(p.img, p.img.Bounds(), image.NewUniform(c), image.Point{})
}

// segment adds a quad of the given width around a to b.
func (p *painter) segment(z *vector.Rasterizer, a, b pt, width float64) {
	dx, dy := b.x-a.x, b.y-a.y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	p.polygon(z, []pt{{a.x + nx, a.y + ny}, {b.x + nx, b.y + ny}, {b.x - nx, b.y - ny}, {a.x - nx, a.y - ny}})
}

func circle(cx, cy, r float64, reverse bool) []pt {
	out := make([]pt, circleSteps)
	for i := range out {
		a := 2 * math.Pi * float64(i) / circleSteps
		if reverse {
			a = -a
		}
		out[i] = pt{cx + r*math.Cos(a), cy + r*math.Sin(a)}
	}
	return out
}

// ring strokes a circle outline as an annulus; the inner contour runs the other
// way so it cuts a hole.
func (p *painter) ring(cx, cy, r, width float64, c color.Color) {
	z := p.rasterizer()
	p.polygon(z, circle(cx, cy, r+width/2, false))
	p.polygon(z, circle(cx, cy, math.Max(r-width/2, 0), true))
	p.fill(z, c)
}

// marker draws a bar or line glyph rotated about its anchor.
func (p *painter) marker(mk visual.Marker) {
	theta := mk.Rotation * math.Pi / 180
	sin, cos := math.Sincos(theta)
	ax, ay := mk.CX+mk.X, mk.CY+mk.Y
	local := func(u, v float64) pt {
		return pt{ax + u*cos - v*sin, ay + u*sin + v*cos}
	}

	z := p.rasterizer()
	switch mk.Glyph {
	case visual.GlyphLine:
		if mk.HalfLength <= 0 {
			return
		}
		p.segment(z, local(-mk.HalfLength, 0), local(mk.HalfLength, 0), markerStroke)
		p.fill(z, withAlpha(ringColor, mk.Opacity))
	default:
		if mk.Width <= 0 || mk.Height <= 0 {
			return
		}
		u0, u1 := -mk.Offset, mk.Width-mk.Offset
		v0, v1 := -mk.Height/2, mk.Height/2
		p.polygon(z, []pt{local(u0, v0), local(u1, v0), local(u1, v1), local(u0, v1)})
		p.fill(z, withAlpha(parseColor(mk.Fill), mk.Opacity))
	}
}

// path fills the trail shape and strokes its outline.
func (p *painter) path(path visual.Path) {
	pts := make([]pt, len(path.Points))
	for i, q := range path.Points {
		pts[i] = pt{q.X, q.Y}
	}

	fill := parseColor(path.Fill)
	z := p.rasterizer()
	p.polygon(z, pts)
	p.fill(z, withAlpha(fill, path.FillOpacity*path.Opacity))

	stroke := parseColor(path.Stroke)
	z = p.rasterizer()
	for i := range pts {
		p.segment(z, pts[i], pts[(i+1)%len(pts)], path.StrokeWidth)
	}
	p.fill(z, withAlpha(stroke, path.Opacity))
}
