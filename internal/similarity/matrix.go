// SPDX-License-Identifier: MIT
//
// Package similarity builds the cosine-distance self-similarity matrix of an
// MFCC feature sequence.
package similarity

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"audiosim/internal/mfcc"
)

// Matrix bounds used by Build.
const (
	DefaultRows = 350
	DefaultCols = 500
)

// Matrix holds d(i,j) = 1 - cos(v_i, v_j) for 0 <= i < Rows and
// i <= j < Cols, stored row by row with only the upper triangle kept.
// It is immutable once built.
type Matrix struct {
	rows, cols int
	values     []float64
}

// Build computes the matrix with the default 350x500 bounds.
func Build(seq mfcc.Sequence) *Matrix {
	return BuildSize(seq, DefaultRows, DefaultCols)
}

// BuildSize computes the matrix over the first rows x cols vectors. Both
// bounds shrink to len(seq) for shorter sequences. A pair involving an
// all-zero vector has distance 1.
func BuildSize(seq mfcc.Sequence, rows, cols int) *Matrix {
	cols = min(cols, len(seq))
	rows = min(rows, cols)
	if rows < 0 {
		rows = 0
	}

	norms := make([]float64, cols)
	for j := 0; j < cols; j++ {
		norms[j] = floats.Dot(seq[j], seq[j])
	}

	m := &Matrix{rows: rows, cols: cols, values: make([]float64, 0, entries(rows, cols))}
	for i := 0; i < rows; i++ {
		for j := i; j < cols; j++ {
			m.values = append(m.values, distance(seq[i], seq[j], norms[i], norms[j]))
		}
	}
	return m
}

func distance(a, b []float64, aa, bb float64) float64 {
	if aa == 0 || bb == 0 {
		return 1
	}
	return 1 - floats.Dot(a, b)/math.Sqrt(aa*bb)
}

// entries is the number of stored values for a rows x cols triangle.
func entries(rows, cols int) int {
	return rows*cols - rows*(rows-1)/2
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }
func (m *Matrix) Len() int  { return len(m.values) }

// Values returns the flattened triangle. The slice must not be modified.
func (m *Matrix) Values() []float64 { return m.values }

// At returns d(i,j). Pairs below the diagonal are answered from the mirrored
// entry when it is stored.
func (m *Matrix) At(i, j int) float64 {
	if j < i {
		i, j = j, i
	}
	if i < 0 || i >= m.rows || j >= m.cols {
		panic(fmt.Sprintf("similarity: index (%d,%d) outside %dx%d triangle", i, j, m.rows, m.cols))
	}
	return m.values[i*m.cols-i*(i-1)/2+(j-i)]
}

// WriteText writes one line per row holding d(i,i)..d(i,Cols-1) in %e
// notation separated by ", ".
func (m *Matrix) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var num []byte
	k := 0
	for i := 0; i < m.rows; i++ {
		for j := i; j < m.cols; j++ {
			if j > i {
				bw.WriteString(", ")
			}
			num = strconv.AppendFloat(num[:0], m.values[k], 'e', 6, 64)
			bw.Write(num)
			k++
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
