// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"testing"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{-10, 1},
		{0, 1},
		{1, 1},
		{2048, 2048}, // Default analysis window
		{2049, 4096},
		{1000, 1024},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.n, tt.expected), func(t *testing.T) {
			if got := NextPowerOfTwo(tt.n); got != tt.expected {
				t.Errorf("NextPowerOfTwo(%d) = %d, expected %d", tt.n, got, tt.expected)
			}
		})
	}
}

func TestIsPowerOfTwoAndLog2(t *testing.T) {
	tests := []struct {
		n     int
		isPow bool
		log2  int
	}{
		{-8, false, -1},
		{0, false, -1},
		{1, true, 0},
		{1024, true, 10},
		{2048, true, 11},
		{1536, false, -1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.n), func(t *testing.T) {
			if got := IsPowerOfTwo(tt.n); got != tt.isPow {
				t.Errorf("IsPowerOfTwo(%d) = %v, expected %v", tt.n, got, tt.isPow)
			}
			if got := Log2(tt.n); got != tt.log2 {
				t.Errorf("Log2(%d) = %d, expected %d", tt.n, got, tt.log2)
			}
		})
	}
}

func BenchmarkNextPowerOfTwo(b *testing.B) {
	var i int
	b.ReportAllocs()
	for b.Loop() {
		NextPowerOfTwo(i % 10000)
		i++
	}
}
