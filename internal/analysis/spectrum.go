// SPDX-License-Identifier: MIT
//
// Package analysis computes compressed magnitude spectra from level windows.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// DefaultSize is the analysis slice, about 40 ms at 44.1 kHz.
	DefaultSize = 1764
	// DefaultStep advances Sequence by a quarter of a 100 ms window at 44.1 kHz.
	DefaultStep = 2205
	// DefaultScale compresses magnitudes as scale*ln(mag).
	DefaultScale = 0.15
)

var ErrShortWindow = errors.New("analysis: slice does not fit in level window")

// Frame is one compressed spectrum. Magnitudes are in [0, 1]; Frequencies
// holds the centre of each bin in Hz. Offset is the first sample of the slice
// within the analysed level sequence.
type Frame struct {
	Offset      int
	Magnitudes  []float64
	Frequencies []float64
}

// Analyzer runs a real FFT over fixed-size slices of a level sequence.
// It keeps no results between calls and is safe for concurrent use.
type Analyzer struct {
	size       int
	bins       int
	sampleRate float64
	scale      float64
	window     []float64

	mu     sync.Mutex
	fft    *fourier.FFT
	input  []float64
	coeffs []complex128
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithWindow tapers each slice before the transform.
func WithWindow(w WindowFunc) AnalyzerOption {
	return func(a *Analyzer) { a.window = w.coefficients(a.size) }
}

// WithScale replaces the log compression factor.
func WithScale(scale float64) AnalyzerOption {
	return func(a *Analyzer) { a.scale = scale }
}

// NewAnalyzer prepares a transform of size samples at sampleRate.
func NewAnalyzer(size int, sampleRate float64, opts ...AnalyzerOption) (*Analyzer, error) {
	if size < 2 || size%2 != 0 {
		return nil, fmt.Errorf("analysis: slice size must be even and at least 2, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("analysis: sample rate must be positive, got %f", sampleRate)
	}
	a := &Analyzer{
		size:       size,
		bins:       size / 2,
		sampleRate: sampleRate,
		scale:      DefaultScale,
		fft:        fourier.NewFFT(size),
		input:      make([]float64, size),
		coeffs:     make([]complex128, size/2+1),
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Size is the number of samples per slice.
func (a *Analyzer) Size() int { return a.size }

// Bins is the number of bins in a Frame.
func (a *Analyzer) Bins() int { return a.bins }

// Frequency returns the centre frequency of bin in hertz, unrounded.
func (a *Analyzer) Frequency(bin int) float64 {
	return float64(bin) * a.sampleRate / float64(a.size)
}

// Analyze transforms levels[offset:offset+Size()].
func (a *Analyzer) Analyze(levels []float32, offset int) (Frame, error) {
	f := Frame{
		Magnitudes:  make([]float64, a.bins),
		Frequencies: make([]float64, a.bins),
	}
	if err := a.AnalyzeInto(&f, levels, offset); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// AnalyzeInto is Analyze writing into f, whose slices must hold Bins() values.
func (a *Analyzer) AnalyzeInto(f *Frame, levels []float32, offset int) error {
	if offset < 0 || offset+a.size > len(levels) {
		return fmt.Errorf("%w: [%d,%d) of %d samples", ErrShortWindow, offset, offset+a.size, len(levels))
	}
	if len(f.Magnitudes) != a.bins || len(f.Frequencies) != a.bins {
		return fmt.Errorf("analysis: frame holds %d/%d bins, need %d", len(f.Magnitudes), len(f.Frequencies), a.bins)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	slice := levels[offset : offset+a.size]
	for i, v := range slice {
		a.input[i] = float64(v)
		if a.window != nil {
			a.input[i] *= a.window[i]
		}
	}
	a.fft.Coefficients(a.coeffs, a.input)

	for i := 0; i < a.bins; i++ {
		y := a.scale * math.Log(cmplx.Abs(a.coeffs[i]))
		// ln(0) is -Inf, which the clamp maps to 0.
		f.Magnitudes[i] = math.Max(0, math.Min(1, y))
		f.Frequencies[i] = a.Frequency(i)
	}
	f.Offset = offset
	return nil
}

// Sequence analyses every slice of levels starting at 0 and advancing by
// step samples while a full slice fits. step <= 0 selects DefaultStep.
func (a *Analyzer) Sequence(levels []float32, step int) ([]Frame, error) {
	if step <= 0 {
		step = DefaultStep
	}
	var frames []Frame
	for pos := 0; pos+a.size <= len(levels); pos += step {
		f, err := a.Analyze(levels, pos)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}
