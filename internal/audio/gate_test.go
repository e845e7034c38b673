// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"
)

func TestGateEnableHotPath(t *testing.T) {
	g := Gate{threshold: lowThreshold}

	if g.Enabled() {
		t.Error("Gate should be disabled initially")
	}

	g.Enable()
	if !g.Enabled() {
		t.Error("Gate should be enabled after Enable()")
	}

	g.Disable()
	if g.Enabled() {
		t.Error("Gate should be disabled after Disable()")
	}

	g.Enable()
	g.Enable() // Multiple calls should be idempotent
	if !g.Enabled() {
		t.Error("Gate should remain enabled after multiple Enable()")
	}
}

func TestNewGate(t *testing.T) {
	if g := NewGate(0); g.Enabled() {
		t.Error("zero threshold should leave the gate disabled")
	}
	if g := NewGate(0.25); !g.Enabled() || absFloat(g.Threshold()-0.25) > 0.0001 {
		t.Errorf("NewGate(0.25) = %+v", g)
	}
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0}, // Below min
		{0.0, 0.0},  // Minimum
		{0.5, 0.5},  // Middle
		{1.0, 1.0},  // Maximum
		{1.5, 1.0},  // Above max
	}

	var g Gate
	for _, tt := range tests {
		t.Run(formatFloat(tt.input), func(t *testing.T) {
			g.SetThreshold(tt.input)
			got := g.Threshold()

			if absFloat(got-tt.expected) > 0.001 {
				t.Errorf("Gate threshold conversion: got %.3f, want %.3f", got, tt.expected)
			}
		})
	}
}

func TestGateThresholdPrecisionHotPath(t *testing.T) {
	var g Gate

	tests := []struct {
		ratio float64
		desc  string
	}{
		{0.0, "Zero"},
		{0.1, "10%"},
		{0.25, "Quarter"},
		{0.5, "Half"},
		{0.999, "Near max"},
		{1.0, "Unity"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			g.SetThreshold(tt.ratio)
			if absFloat(g.Threshold()-tt.ratio) > 0.0001 {
				t.Errorf("Threshold conversion error: got %.6f, want %.6f", g.Threshold(), tt.ratio)
			}

			expectedInt32 := int32(tt.ratio * float64(math.MaxInt32))
			if absInt32(expectedInt32-g.threshold) > 100 {
				t.Errorf("Int32 threshold mismatch: got %d, want %d", g.threshold, expectedInt32)
			}
		})
	}
}

func TestGateOpen(t *testing.T) {
	tests := []struct {
		desc        string
		buffer      []int32
		gateEnabled bool
		threshold   float64
		open        bool
	}{
		{"Gate disabled/Quiet signal", quietBuffer, false, 0.1, true},
		{"Gate disabled/Loud signal", loudBuffer, false, 0.1, true},
		{"Gate enabled/Quiet signal/Low threshold", quietBuffer, true, 0.0001, true},
		{"Gate enabled/Quiet signal/Mid threshold", quietBuffer, true, 0.1, false},
		{"Gate enabled/Loud signal/Mid threshold", loudBuffer, true, 0.1, true},
		{"Gate enabled/Loud signal/High threshold", loudBuffer, true, 0.999, false},
		{"Gate enabled/Silence", make([]int32, 64), true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			g := Gate{enabled: tt.gateEnabled}
			g.SetThreshold(tt.threshold)
			if got := g.Open(tt.buffer); got != tt.open {
				t.Errorf("Open() = %v, want %v (peak=%d, threshold=%d)",
					got, tt.open, PeakAmplitude(tt.buffer), g.threshold)
			}
		})
	}
}

func TestPeakAmplitude(t *testing.T) {
	tests := []struct {
		name string
		in   []int32
		want int32
	}{
		{"Empty", nil, 0},
		{"Positive", []int32{1, 5, 3}, 5},
		{"Negative", []int32{-9, 4, -2}, 9},
		{"MaxInt32", []int32{math.MaxInt32, -math.MaxInt32}, math.MaxInt32},
		{"MinInt32Ignored", []int32{math.MinInt32, 7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeakAmplitude(tt.in); got != tt.want {
				t.Errorf("PeakAmplitude(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestGateNoAllocsHotPath(t *testing.T) {
	g := NewGate(0.1)
	allocs := testing.AllocsPerRun(100, func() {
		_ = g.Open(testBuffer)
	})
	if allocs > 0 {
		t.Errorf("Gate allocated: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkGateThresholdConversionHotPath(b *testing.B) {
	var g Gate
	values := []float64{0.0, 0.25, 0.5, 0.75, 1.0}

	for _, v := range values {
		b.Run(formatFloat(v), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				g.SetThreshold(v)
				_ = g.Threshold()
			}
		})
	}
}

func BenchmarkGateProcessingHotPath(b *testing.B) {
	benchmarks := []struct {
		name      string
		buffer    []int32
		threshold int32
		enabled   bool
	}{
		{"Gate disabled/Normal", testBuffer, lowThreshold, false},
		{"Gate enabled/Quiet signal/Low threshold", quietBuffer, lowThreshold, true},
		{"Gate enabled/Normal signal/Low threshold", testBuffer, lowThreshold, true},
		{"Gate enabled/Loud signal/High threshold", loudBuffer, highThreshold, true},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			g := Gate{enabled: bm.enabled, threshold: bm.threshold}
			b.ReportAllocs()
			for b.Loop() {
				_ = g.Open(bm.buffer)
			}
		})
	}
}

// absInt32 returns the absolute value of x.
func absInt32(x int32) int32 {
	mask := x >> 31
	return (x ^ mask) - mask
}
