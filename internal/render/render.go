// Package render rasterises scenes to images for snapshots.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"forma/internal/visual"
)

const (
	dpi          = 72.0
	fontSize     = 12.0
	lineSpacing  = 1.3
	circleSteps  = 96
	captionLines = 3
	captionInset = 6
	markerStroke = 1.0
)

var (
	defaultBackground = color.RGBA{0x10, 0x10, 0x14, 0xff}
	ringColor         = colorful.Color{R: 1, G: 1, B: 1}
	captionColor      = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
)

// Options tune the rasteriser. Zero values select the defaults.
type Options struct {
	Scale      float64     // Pixels per scene unit; 1 by default.
	Background color.Color // Opaque backdrop.
	NoCaption  bool        // Skip the text caption.
}

// Renderer draws scenes to RGBA images. As a visual.Surface it keeps the most
// recent scene so a snapshot can be taken at any point.
type Renderer struct {
	opts    Options
	context *freetype.Context

	mu   sync.Mutex
	last *visual.Scene
}

var _ visual.Surface = (*Renderer)(nil)

// NewRenderer parses the caption font and prepares a renderer.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.Background == nil {
		opts.Background = defaultBackground
	}

	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(fontSize)
	context.SetSrc(image.NewUniform(captionColor))
	context.SetHinting(font.HintingFull)

	return &Renderer{opts: opts, context: context}, nil
}

// Draw records scene as the latest one.
func (r *Renderer) Draw(scene *visual.Scene) error {
	r.mu.Lock()
	r.last = scene
	r.mu.Unlock()
	return nil
}

// Last returns the most recently drawn scene, or nil.
func (r *Renderer) Last() *visual.Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Render rasterises scene.
func (r *Renderer) Render(scene *visual.Scene) (*image.RGBA, error) {
	if scene == nil {
		return nil, fmt.Errorf("render: nil scene")
	}
	s := r.opts.Scale
	w, h := int(math.Ceil(scene.Width*s)), int(math.Ceil(scene.Height*s))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: empty scene %gx%g", scene.Width, scene.Height)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.opts.Background), image.Point{}, draw.Src)

	// A hidden scene shows nothing but the background and caption.
	if scene.Visible {
		p := &painter{img: img, scale: s}
		for _, ring := range scene.Rings {
			p.ring(ring.CX, ring.CY, ring.R, markerStroke, withAlpha(ringColor, ring.Opacity))
		}
		for _, mk := range scene.Markers {
			if mk.Amplitude == 0 {
				continue
			}
			p.marker(mk)
		}
		if len(scene.Path.Points) > 2 {
			p.path(scene.Path)
		}
	}

	if !r.opts.NoCaption {
		if err := r.caption(img, scene); err != nil {
			return nil, fmt.Errorf("drawing caption: %w", err)
		}
	}
	return img, nil
}

// WritePNG renders scene and encodes it to w.
func (r *Renderer) WritePNG(w io.Writer, scene *visual.Scene) error {
	img, err := r.Render(scene)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// SavePNG renders scene into a new file at path.
func (r *Renderer) SavePNG(path string, scene *visual.Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WritePNG(f, scene); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r *Renderer) caption(img *image.RGBA, scene *visual.Scene) error {
	r.context.SetClip(img.Bounds())
	r.context.SetDst(img)

	lines := make([]string, 0, captionLines)
	if d := scene.Dominant; d != nil && scene.Visible {
		lines = append(lines, fmt.Sprintf("%s  weight %s", d.Key, humanize.FtoaWithDigits(d.Weight, 1)))
	}
	lines = append(lines, "frame "+humanize.Comma(int64(scene.Seq)))
	if !scene.Time.IsZero() {
		lines = append(lines, scene.Time.Format(time.DateTime))
	}

	pt := freetype.Pt(captionInset, captionInset+int(fontSize))
	for _, line := range lines {
		if _, err := r.context.DrawString(line, pt); err != nil {
			return err
		}
		pt.Y += r.context.PointToFixed(fontSize * lineSpacing)
	}
	return nil
}

func withAlpha(c colorful.Color, alpha float64) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(math.Max(0, math.Min(1, alpha)) * 255))}
}

// parseColor reads a scene colour, falling back to the initial trail colour.
func parseColor(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return visual.InitialColor
	}
	return c
}
