// Package bitint holds the power-of-two helpers used to size analysis windows.
// Both functions are constant time and never allocate, so they are safe on the
// audio callback path.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size, or 1 for size <= 0.
// Subtracting one first keeps exact powers unchanged (8 -> 8, 9 -> 16).
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns log2(n) for a power of two n, and -1 otherwise.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
