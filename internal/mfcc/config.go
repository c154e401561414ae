// SPDX-License-Identifier: MIT
package mfcc

import (
	"errors"
	"fmt"
	"math"

	"audiosim/pkg/bitint"
)

// Default extractor parameters.
const (
	DefaultSampleRate  = 8000
	DefaultWindowMs    = 25
	DefaultShiftMs     = 10
	DefaultPreEmphasis = 0.97
	DefaultNumFilters  = 40
	DefaultLowFreq     = 50.0
	DefaultHighFreq    = 4000.0
	DefaultFFTSize     = 512
	DefaultNumCepstral = 12
	DefaultMaxFrames   = 500
)

var ErrInvalidConfig = errors.New("mfcc: invalid config")

// Config fixes the parameters of an Extractor.
type Config struct {
	SampleRate  int     `yaml:"sample_rate"`  // Expected stream sample rate in Hz.
	WindowMs    int     `yaml:"window_ms"`    // Analysis window width.
	ShiftMs     int     `yaml:"shift_ms"`     // Frame shift.
	PreEmphasis float64 `yaml:"pre_emphasis"` // First-order high-pass coefficient.
	NumFilters  int     `yaml:"num_filters"`  // Mel filters in the bank.
	LowFreq     float64 `yaml:"low_freq"`     // Filterbank low cutoff in Hz.
	HighFreq    float64 `yaml:"high_freq"`    // Filterbank high cutoff in Hz, capped at fs/2.
	FFTSize     int     `yaml:"fft_size"`     // Must be a power of two.
	NumCepstral int     `yaml:"num_cepstral"` // Output has NumCepstral+1 values.
	MaxFrames   int     `yaml:"max_frames"`   // Extraction stops after this many frames.
}

// DefaultConfig returns the standard 8 kHz configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:  DefaultSampleRate,
		WindowMs:    DefaultWindowMs,
		ShiftMs:     DefaultShiftMs,
		PreEmphasis: DefaultPreEmphasis,
		NumFilters:  DefaultNumFilters,
		LowFreq:     DefaultLowFreq,
		HighFreq:    DefaultHighFreq,
		FFTSize:     DefaultFFTSize,
		NumCepstral: DefaultNumCepstral,
		MaxFrames:   DefaultMaxFrames,
	}
}

// WindowSamples is the frame width in samples.
func (c Config) WindowSamples() int { return c.WindowMs * c.SampleRate / 1000 }

// ShiftSamples is the number of new samples consumed per frame.
func (c Config) ShiftSamples() int { return c.ShiftMs * c.SampleRate / 1000 }

// NumBins is the number of non-redundant FFT bins.
func (c Config) NumBins() int { return c.FFTSize/2 + 1 }

// UpperFreq is the effective filterbank high cutoff.
func (c Config) UpperFreq() float64 {
	return math.Min(c.HighFreq, float64(c.SampleRate)/2)
}

// Validate checks that an Extractor can be built from c.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	case !bitint.IsPowerOfTwo(c.FFTSize):
		return fmt.Errorf("%w: fft size must be a power of 2, got %d (next is %d)", ErrInvalidConfig, c.FFTSize, bitint.NextPowerOfTwo(c.FFTSize))
	case c.ShiftSamples() <= 0:
		return fmt.Errorf("%w: frame shift of %d ms is shorter than one sample", ErrInvalidConfig, c.ShiftMs)
	case c.WindowSamples() < c.ShiftSamples():
		return fmt.Errorf("%w: window (%d samples) shorter than shift (%d samples)", ErrInvalidConfig, c.WindowSamples(), c.ShiftSamples())
	case c.WindowSamples() > c.FFTSize:
		return fmt.Errorf("%w: window of %d samples exceeds fft size %d", ErrInvalidConfig, c.WindowSamples(), c.FFTSize)
	case c.NumFilters <= 0:
		return fmt.Errorf("%w: num filters must be positive, got %d", ErrInvalidConfig, c.NumFilters)
	case c.NumCepstral < 0:
		return fmt.Errorf("%w: num cepstral must not be negative, got %d", ErrInvalidConfig, c.NumCepstral)
	case c.LowFreq < 0 || c.LowFreq >= c.UpperFreq():
		return fmt.Errorf("%w: filterbank range [%g, %g] is empty", ErrInvalidConfig, c.LowFreq, c.UpperFreq())
	case c.MaxFrames <= 0:
		return fmt.Errorf("%w: max frames must be positive, got %d", ErrInvalidConfig, c.MaxFrames)
	}
	return nil
}
