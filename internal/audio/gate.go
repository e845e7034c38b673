// SPDX-License-Identifier: MIT
package audio

import "math"

// Gate skips analysis for buffers whose peak never exceeds the threshold.
type Gate struct {
	enabled   bool
	threshold int32 // Absolute amplitude threshold (0-2147483647)
}

// NewGate returns an enabled gate at threshold. A threshold of 0 leaves it disabled.
func NewGate(threshold float64) Gate {
	var g Gate
	g.SetThreshold(threshold)
	g.enabled = threshold > 0
	return g
}

func (g *Gate) Enable() {
	g.enabled = true
}

func (g *Gate) Disable() {
	g.enabled = false
}

func (g *Gate) Enabled() bool { return g.enabled }

// SetThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	g.threshold = int32(threshold * float64(math.MaxInt32))
}

// Threshold returns the current noise gate threshold as a float64.
func (g *Gate) Threshold() float64 {
	return float64(g.threshold) / float64(math.MaxInt32)
}

// Open reports whether buffer should reach the analysis chain.
func (g *Gate) Open(buffer []int32) bool {
	return !g.enabled || PeakAmplitude(buffer) > g.threshold
}

// PeakAmplitude returns the largest absolute sample value without branching.
// math.MinInt32 has no positive counterpart and is ignored.
func PeakAmplitude(buffer []int32) int32 {
	var maxAmplitude int32
	for _, sample := range buffer {
		// Get absolute value without branching.
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask

		// Update max using math instead of branching.
		diff := amplitude - maxAmplitude
		maxAmplitude += (diff & (diff >> 31)) ^ diff
	}
	return maxAmplitude
}
