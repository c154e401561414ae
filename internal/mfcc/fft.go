// SPDX-License-Identifier: MIT
package mfcc

import (
	"math"
	"math/cmplx"

	"audiosim/pkg/bitint"
)

// plan is a radix-2 FFT with twiddle factors precomputed for every
// power-of-two size up to n; twiddle[k] serves size 1<<k. It is read-only
// after newPlan returns.
type plan struct {
	n       int
	twiddle [][]complex128
}

func newPlan(n int) *plan {
	p := &plan{n: n, twiddle: make([][]complex128, bitint.Log2(n)+1)}
	for k := 1; k < len(p.twiddle); k++ {
		size := 1 << k
		tw := make([]complex128, size/2)
		for j := range tw {
			tw[j] = cmplx.Exp(complex(0, -2*math.Pi*float64(j)/float64(size)))
		}
		p.twiddle[k] = tw
	}
	return p
}

// transform returns the DFT of x. len(x) must be a power of two no larger
// than the plan size.
func (p *plan) transform(x []complex128) []complex128 {
	n := len(x)
	if n == 1 {
		return []complex128{x[0]}
	}

	half := n / 2
	even := make([]complex128, half)
	odd := make([]complex128, half)
	for i := 0; i < half; i++ {
		even[i] = x[2*i]
		odd[i] = x[2*i+1]
	}
	e := p.transform(even)
	o := p.transform(odd)

	out := make([]complex128, n)
	tw := p.twiddle[bitint.Log2(n)]
	for k := 0; k < half; k++ {
		t := tw[k] * o[k]
		out[k] = e[k] + t
		out[k+half] = e[k] - t
	}
	return out
}
