// SPDX-License-Identifier: MIT
package analysis

import (
	"strings"
	"testing"
	"time"

	"forma/internal/notes"
	"forma/pkg/utils"
)

const (
	testBufferSize = 2048
	// 440 Hz falls exactly on bin 20 at this rate.
	testSampleRate = 440.0 * testBufferSize / 20
)

func newTestSpectrum(t *testing.T) *SpectrumProcessor {
	t.Helper()
	p, err := NewSpectrumProcessor(testBufferSize, testSampleRate, Hann)
	if err != nil {
		t.Fatalf("NewSpectrumProcessor: %v", err)
	}
	return p
}

func TestNewSpectrumProcessorValidation(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		rate   float64
		substr string
	}{
		{"Not power of two", 1000, 44100, "power of 2"},
		{"Zero size", 0, 44100, "power of 2"},
		{"Zero rate", 1024, 0, "sample rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSpectrumProcessor(tt.size, tt.rate, Hann)
			if err == nil || !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error = %v, want substring %q", err, tt.substr)
			}
		})
	}
}

func TestSpectrumPeakAtSineBin(t *testing.T) {
	p := newTestSpectrum(t)
	p.Process(utils.GenerateSineWave(testBufferSize, testSampleRate, 440))

	power := p.PowerSpectrum()
	if len(power) != testBufferSize/2 {
		t.Fatalf("power spectrum length = %d, want %d", len(power), testBufferSize/2)
	}
	if peak := utils.FindPeakBin(power, 0, len(power)-1); peak != 20 {
		t.Errorf("peak bin = %d, want 20", peak)
	}
	if f := p.FrequencyForBin(20); f != 440 {
		t.Errorf("FrequencyForBin(20) = %f, want 440", f)
	}
}

func TestPowerSpectrumIntoLength(t *testing.T) {
	p := newTestSpectrum(t)
	if err := p.PowerSpectrumInto(make([]float64, 3)); err == nil {
		t.Error("expected length mismatch error")
	}
	if err := p.PowerSpectrumInto(make([]float64, p.Bins())); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		in      string
		want    WindowFunc
		wantErr bool
	}{
		{"hann", Hann, false},
		{"Hanning", Hann, false},
		{"BLACKMAN", Blackman, false},
		{"rect", Rectangular, false},
		{"triangle", Hann, true},
	}
	for _, tt := range tests {
		got, err := ParseWindowFunc(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseWindowFunc(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestNoteProcessorFindsA4(t *testing.T) {
	var got []notes.AmplitudeMap
	sink := FrameSinkFunc(func(m notes.AmplitudeMap) bool {
		got = append(got, m)
		return true
	})

	np, err := NewNoteProcessor(newTestSpectrum(t), sink)
	if err != nil {
		t.Fatal(err)
	}
	np.Process(utils.GenerateSineWave(testBufferSize, testSampleRate, 440))

	if len(got) != 1 {
		t.Fatalf("sink received %d frames, want 1", len(got))
	}
	best, ok := got[0].Dominant()
	if !ok || best.Key != (notes.Key{Class: notes.A, Octave: 4}) {
		t.Errorf("dominant = %v (ok=%v), want A4", best.Key, ok)
	}
	if frames, dropped := np.Stats(); frames != 1 || dropped != 0 {
		t.Errorf("Stats() = %d, %d, want 1, 0", frames, dropped)
	}
}

func TestNoteProcessorCountsDrops(t *testing.T) {
	sink := FrameSinkFunc(func(notes.AmplitudeMap) bool { return false })
	np, err := NewNoteProcessor(newTestSpectrum(t), sink)
	if err != nil {
		t.Fatal(err)
	}
	np.Process(utils.GenerateSineWave(testBufferSize, testSampleRate, 440))
	if _, dropped := np.Stats(); dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
}

func TestNoteProcessorRequiresCollaborators(t *testing.T) {
	if _, err := NewNoteProcessor(nil, FrameSinkFunc(func(notes.AmplitudeMap) bool { return true })); err == nil {
		t.Error("expected error for nil spectrum processor")
	}
	if _, err := NewNoteProcessor(newTestSpectrum(t), nil); err == nil {
		t.Error("expected error for nil sink")
	}
}

func TestNoteProcessorHotPath(t *testing.T) {
	sink := FrameSinkFunc(func(notes.AmplitudeMap) bool { return true })
	np, err := NewNoteProcessor(newTestSpectrum(t), sink)
	if err != nil {
		t.Fatal(err)
	}
	input := utils.GenerateComplexWave(testBufferSize, testSampleRate)

	np.Process(input)
	allocs := testing.AllocsPerRun(100, func() {
		np.Process(input)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in NoteProcessor hot path, got %.1f", allocs)
	}
}

func TestRingEnergyProcessorRateLimits(t *testing.T) {
	tr := &utils.MockTransport{}
	rp := NewRingEnergyProcessor(tr, testBufferSize, 50*time.Millisecond)

	clock := time.Unix(100, 0)
	rp.now = func() time.Time { return clock }

	var m notes.AmplitudeMap
	m.Add(notes.Key{Class: notes.A, Octave: 4}, testBufferSize/2)
	m.Add(notes.Key{Class: notes.C, Octave: 2}, -10)

	rp.Observe(&m)
	rp.Observe(&m) // Same instant, dropped.
	clock = clock.Add(60 * time.Millisecond)
	rp.Observe(&m)

	if len(tr.Sent) != 2 {
		t.Fatalf("sent %d summaries, want 2", len(tr.Sent))
	}
	data, ok := tr.Sent[0].(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload type %T", tr.Sent[0])
	}
	if data["4"] != 0.5 {
		t.Errorf("ring 4 energy = %v, want 0.5", data["4"])
	}
	if data["2"] != 0.0 {
		t.Errorf("ring 2 energy = %v, want 0 (negative clamped)", data["2"])
	}
}

func BenchmarkNoteProcessor(b *testing.B) {
	sp, err := NewSpectrumProcessor(testBufferSize, 44100, Hann)
	if err != nil {
		b.Fatal(err)
	}
	np, _ := NewNoteProcessor(sp, FrameSinkFunc(func(notes.AmplitudeMap) bool { return true }))
	input := utils.GenerateComplexWave(testBufferSize, 44100)

	b.ReportAllocs()
	for b.Loop() {
		np.Process(input)
	}
}
