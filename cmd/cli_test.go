package cmd

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"forma/pkg/build"
)

// writeTone writes one second of a 16-bit mono sine at freq Hz.
func writeTone(t *testing.T, freq float64) string {
	t.Helper()
	const rate = 44100
	data := make([]int, rate)
	for i := range data {
		data[i] = int(0.8 * 32767 * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir()) // Keep a stray config.yaml out of the test.
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if want := build.Current().String(); strings.TrimSpace(out) != want {
		t.Errorf("version = %q, want %q", out, want)
	}
}

func TestAnalyzeReportsDominantNote(t *testing.T) {
	path := writeTone(t, 440)
	out, err := execute(t, "analyze", path, "--top", "3")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "Dominant notes:") {
		t.Fatalf("no note listing in:\n%s", out)
	}
	listing := out[strings.Index(out, "Dominant notes:"):]
	lines := strings.Split(listing, "\n")
	if len(lines) < 2 || !strings.HasPrefix(strings.TrimSpace(lines[1]), "A4 ") {
		t.Errorf("top note is not A4:\n%s", out)
	}
	if !strings.Contains(out, "44.1 kHz") {
		t.Errorf("sample rate missing:\n%s", out)
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	if _, err := execute(t, "analyze", filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSnapshotWritesPNG(t *testing.T) {
	path := writeTone(t, 261.63)
	outPath := filepath.Join(t.TempDir(), "out.png")
	out, err := execute(t, "snapshot", path, "--out", outPath, "--no-caption")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !strings.Contains(out, "Wrote "+outPath) {
		t.Errorf("output = %q", out)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		t.Errorf("empty image %v", b)
	}
}

func TestLoadConfigFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"Defaults", nil, false},
		{"Overrides", []string{"-s", "48000", "-b", "1024", "-c", "2", "--no-tui", "--udp", "-v"}, false},
		{"BadBuffer", []string{"-b", "1000"}, true},
		{"BadChannels", []string{"-c", "0"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			opts := &options{}
			root := newRootCommand(opts)
			if err := root.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}
			cfg, err := loadConfig(root, opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !strings.Contains(err.Error(), "invalid configuration") {
					t.Errorf("error %v not wrapped", err)
				}
				return
			}
			if tt.name == "Overrides" {
				if cfg.Audio.SampleRate != 48000 || cfg.Audio.FramesPerBuffer != 1024 || cfg.Audio.InputChannels != 2 {
					t.Errorf("audio = %+v", cfg.Audio)
				}
				if cfg.Visual.TUI || !cfg.Transport.UDPEnabled || !cfg.Debug {
					t.Errorf("switches not applied: %+v", cfg)
				}
			}
		})
	}
}
