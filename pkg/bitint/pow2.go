// SPDX-License-Identifier: MIT
//
// Package bitint provides the power-of-two helpers used to size transforms.
// Every function is constant time and allocation free.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size, or 1 for
// non-positive sizes. Powers of 2 map to themselves: the highest set bit of
// size-1 is one below that of size exactly when size is a power of 2.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns k such that 1<<k is the largest power of 2 <= n, or -1 for
// non-positive n.
func Log2(n int) int {
	if n <= 0 {
		return -1
	}
	return bits.Len(uint(n)) - 1
}
