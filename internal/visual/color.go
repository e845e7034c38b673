package visual

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	saturation = 0.7
	lightness  = 0.5
)

// InitialColor is the rendered colour before the first note arrives (#ff5200).
var InitialColor = colorful.Color{R: 1, G: 0x52 / 255.0, B: 0}

// HueColor maps a hue angle in degrees, any sign, to the trail and marker colour.
func HueColor(degrees float64) colorful.Color {
	h := math.Mod(degrees, 360)
	if h < 0 {
		h += 360
	}
	return colorful.Hsl(h, saturation, lightness)
}

// blend interpolates in RGB, matching how the trail fades between notes.
func blend(from, to colorful.Color, t float64) colorful.Color {
	return from.BlendRgb(to, t).Clamped()
}
