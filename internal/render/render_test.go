package render

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"forma/internal/notes"
	"forma/internal/visual"
)

// triangleScene drives three full-strength notes through the animator and returns
// the settled scene.
func triangleScene(t testing.TB) *visual.Scene {
	t.Helper()
	layout := visual.NewLayout(visual.DefaultWidth, visual.DefaultHeight)
	cfg := visual.DefaultAnimatorConfig()
	a, err := visual.NewAnimator(cfg)
	if err != nil {
		t.Fatal(err)
	}

	var (
		m   notes.AmplitudeMap
		sel visual.Selection
		ok  bool
	)
	now := time.Unix(100, 0)
	for _, class := range []notes.PitchClass{notes.C, notes.E, notes.G} {
		m.Reset()
		m.Add(notes.Key{Class: class, Octave: 4}, float64(cfg.Capacity))
		sel, ok = visual.Select(&m, layout, cfg.Capacity)
		if !ok {
			t.Fatal("no selection")
		}
		a.Update(sel, now)
		now = now.Add(time.Second)
		a.Tick(now)
	}
	return visual.Compose(1, now, layout, &visual.Visibility{}, &m, &sel, a)
}

func centroid(pts []visual.Point) (int, int) {
	var x, y float64
	for _, p := range pts {
		x += p.X
		y += p.Y
	}
	n := float64(len(pts))
	return int(x / n), int(y / n)
}

func TestRenderScene(t *testing.T) {
	r, err := NewRenderer(Options{NoCaption: true})
	if err != nil {
		t.Fatal(err)
	}
	scene := triangleScene(t)
	img, err := r.Render(scene)
	if err != nil {
		t.Fatal(err)
	}

	if b := img.Bounds(); b.Dx() != 600 || b.Dy() != 338 {
		t.Fatalf("bounds = %v, want 600x338", b)
	}
	if got := img.RGBAAt(599, 337); got != defaultBackground {
		t.Errorf("corner = %v, want background", got)
	}
	cx, cy := centroid(scene.Path.Points)
	if got := img.RGBAAt(cx, cy); got == defaultBackground {
		t.Errorf("trail interior at %d,%d not filled", cx, cy)
	}
}

func TestRenderHiddenDrawsNothing(t *testing.T) {
	r, _ := NewRenderer(Options{NoCaption: true})
	scene := triangleScene(t)

	hidden := *scene
	hidden.Visible = false
	img, err := r.Render(&hidden)
	if err != nil {
		t.Fatal(err)
	}

	b := img.Bounds()
	drawn := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) != defaultBackground {
				drawn++
			}
		}
	}
	if drawn != 0 {
		t.Errorf("hidden scene drew %d pixels", drawn)
	}

	shown, _ := r.Render(scene)
	cx, cy := centroid(scene.Path.Points)
	if shown.RGBAAt(cx, cy) == defaultBackground {
		t.Error("visible scene lost its trail")
	}
}

func TestRenderScale(t *testing.T) {
	r, _ := NewRenderer(Options{Scale: 0.5, NoCaption: true})
	img, err := r.Render(&visual.Scene{Width: 100, Height: 41})
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 21 {
		t.Errorf("bounds = %v, want 50x21", b)
	}
}

func TestRenderCaption(t *testing.T) {
	plain, _ := NewRenderer(Options{NoCaption: true})
	captioned, _ := NewRenderer(Options{})
	scene := triangleScene(t)

	a, _ := plain.Render(scene)
	b, err := captioned.Render(scene)
	if err != nil {
		t.Fatal(err)
	}

	changed := 0
	for y := range 60 {
		for x := range 200 {
			if a.RGBAAt(x, y) != b.RGBAAt(x, y) {
				changed++
			}
		}
	}
	if changed == 0 {
		t.Error("caption drew nothing")
	}
}

func TestRenderErrors(t *testing.T) {
	r, _ := NewRenderer(Options{})
	if _, err := r.Render(nil); err == nil {
		t.Error("expected error for nil scene")
	}
	if _, err := r.Render(&visual.Scene{}); err == nil {
		t.Error("expected error for empty scene")
	}
}

func TestWritePNGAndSurface(t *testing.T) {
	r, _ := NewRenderer(Options{})
	if r.Last() != nil {
		t.Fatal("new renderer has a scene")
	}
	scene := triangleScene(t)
	if err := r.Draw(scene); err != nil || r.Last() != scene {
		t.Fatalf("Draw() = %v", err)
	}

	var buf bytes.Buffer
	if err := r.WritePNG(&buf, r.Last()); err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 600 || cfg.Height != 338 {
		t.Errorf("png is %dx%d", cfg.Width, cfg.Height)
	}

	path := filepath.Join(t.TempDir(), "scene.png")
	if err := r.SavePNG(path, scene); err != nil {
		t.Fatal(err)
	}
	if err := r.SavePNG(filepath.Join(t.TempDir(), "missing", "scene.png"), scene); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestParseColorFallback(t *testing.T) {
	if got := parseColor("nonsense"); got != visual.InitialColor {
		t.Errorf("parseColor() = %v", got)
	}
	if got := parseColor("#ff0000").Hex(); got != "#ff0000" {
		t.Errorf("parseColor(#ff0000) = %s", got)
	}
}
