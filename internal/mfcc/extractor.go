// SPDX-License-Identifier: MIT
//
// Package mfcc turns a 16 bit PCM WAV stream into a sequence of
// mel-frequency cepstral coefficient vectors.
//
// Each frame goes through pre-emphasis and a Hamming window, is zero padded to
// the FFT size, transformed, reduced to a power spectrum, passed through a
// triangular mel filterbank (energies floored at 1 before the log) and finally
// decorrelated with a DCT-II.
package mfcc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/mat"

	"audiosim/internal/pcm"
)

var (
	ErrUnsupportedFormat  = errors.New("mfcc: unsupported audio format, use 16 bit PCM wave")
	ErrSampleRateMismatch = errors.New("mfcc: sample rate mismatch")
)

// HeaderError reports a stream header the extractor refuses to process.
type HeaderError struct {
	Header     pcm.Header
	SampleRate int // rate the extractor was configured for
	Err        error
}

func (e *HeaderError) Error() string {
	if errors.Is(e.Err, ErrSampleRateMismatch) {
		return fmt.Sprintf("%v: found %d Hz instead of %d Hz", e.Err, e.Header.SampleRate, e.SampleRate)
	}
	return fmt.Sprintf("%v: format tag %d, %d bits", e.Err, e.Header.FormatTag, e.Header.BitsPerSample)
}

func (e *HeaderError) Unwrap() error { return e.Err }

// Vector holds the cepstral coefficients of one frame, coefficient 0 first.
type Vector []float64

// Sequence is the ordered list of frame vectors of one stream.
type Sequence []Vector

// Extractor computes MFCC sequences for a fixed Config. All tables are built
// once in New; an Extractor is safe for concurrent use.
type Extractor struct {
	cfg     Config
	win     int
	shift   int
	bins    int
	hamming []float64
	fbank   *mat.Dense // NumFilters x bins
	dct     *mat.Dense // (NumCepstral+1) x NumFilters
	fft     *plan
}

// New validates cfg and precomputes the filterbank, window, DCT basis and
// FFT twiddle factors.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Extractor{
		cfg:   cfg,
		win:   cfg.WindowSamples(),
		shift: cfg.ShiftSamples(),
		bins:  cfg.NumBins(),
		fft:   newPlan(cfg.FFTSize),
	}
	e.fbank = melFilterbank(cfg)
	e.dct = dctBasis(cfg.NumCepstral+1, cfg.NumFilters)

	e.hamming = make([]float64, e.win)
	for i := range e.hamming {
		e.hamming[i] = 1
	}
	window.Hamming(e.hamming)
	return e, nil
}

// Config returns the configuration the extractor was built with.
func (e *Extractor) Config() Config { return e.cfg }

func hzToMel(f float64) float64 { return 2595 * math.Log10(1+f/700) }

func melToHz(m float64) float64 { return 700 * (math.Pow(10, m/2595) - 1) }

// melFilterbank lays NumFilters triangles between LowFreq and UpperFreq with
// centres evenly spaced on the mel scale.
func melFilterbank(cfg Config) *mat.Dense {
	bins := cfg.NumBins()
	lowMel := hzToMel(cfg.LowFreq)
	highMel := hzToMel(cfg.UpperFreq())

	centres := make([]float64, cfg.NumFilters+2)
	for i := range centres {
		centres[i] = melToHz(lowMel + (highMel-lowMel)/float64(cfg.NumFilters+1)*float64(i))
	}

	binFreq := make([]float64, bins)
	for i := range binFreq {
		binFreq[i] = float64(cfg.SampleRate) / 2.0 / float64(bins-1) * float64(i)
	}

	fbank := mat.NewDense(cfg.NumFilters, bins, nil)
	for filt := 1; filt <= cfg.NumFilters; filt++ {
		lo, mid, hi := centres[filt-1], centres[filt], centres[filt+1]
		for bin, f := range binFreq {
			var w float64
			switch {
			case f < lo:
				w = 0
			case f <= mid:
				w = (f - lo) / (mid - lo)
			case f <= hi:
				w = (hi - f) / (hi - mid)
			}
			fbank.Set(filt-1, bin, w)
		}
	}
	return fbank
}

// dctBasis returns the scaled DCT-II matrix.
func dctBasis(rows, cols int) *mat.Dense {
	c := math.Sqrt(2.0 / float64(cols))
	d := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d.Set(i, j, c*math.Cos(math.Pi/float64(cols)*float64(i)*(float64(j)+0.5)))
		}
	}
	return d
}

// frameState is the per-call scratch space; it lives only as long as one
// Extract call.
type frameState struct {
	prev     []float64
	frame    []float64
	spectrum []complex128
	power    *mat.VecDense
	energies *mat.VecDense
	ceps     *mat.VecDense
	raw      []byte
}

func (e *Extractor) newFrameState() *frameState {
	return &frameState{
		prev:     make([]float64, e.win-e.shift),
		frame:    make([]float64, e.win),
		spectrum: make([]complex128, e.cfg.FFTSize),
		power:    mat.NewVecDense(e.bins, nil),
		energies: mat.NewVecDense(e.cfg.NumFilters, nil),
		ceps:     mat.NewVecDense(e.cfg.NumCepstral+1, nil),
		raw:      make([]byte, 2*e.shift),
	}
}

// CheckHeader verifies that h describes a stream the extractor can process.
func (e *Extractor) CheckHeader(h pcm.Header) error {
	if h.FormatTag != pcm.FormatTagPCM || h.BitsPerSample != 16 {
		return &HeaderError{Header: h, SampleRate: e.cfg.SampleRate, Err: ErrUnsupportedFormat}
	}
	if int(h.SampleRate) != e.cfg.SampleRate {
		return &HeaderError{Header: h, SampleRate: e.cfg.SampleRate, Err: ErrSampleRateMismatch}
	}
	return nil
}

// Extract reads a WAV stream from r and returns its MFCC sequence. The header
// is validated before any sample is consumed; on a mismatch no vectors are
// returned. Extraction ends at the first short read or after MaxFrames frames.
func (e *Extractor) Extract(r io.Reader) (Sequence, error) {
	h, err := pcm.ReadHeader(r)
	if err != nil {
		return nil, fmt.Errorf("mfcc: %w", err)
	}
	if err := e.CheckHeader(h); err != nil {
		return nil, err
	}

	st := e.newFrameState()

	prime := make([]byte, 2*len(st.prev))
	if _, err := io.ReadFull(r, prime); err != nil {
		if isShortRead(err) {
			return Sequence{}, nil
		}
		return nil, fmt.Errorf("mfcc: read samples: %w", err)
	}
	for i := range st.prev {
		st.prev[i] = float64(int16(binary.LittleEndian.Uint16(prime[2*i:])))
	}

	seq := make(Sequence, 0, e.cfg.MaxFrames)
	for len(seq) < e.cfg.MaxFrames {
		if _, err := io.ReadFull(r, st.raw); err != nil {
			if isShortRead(err) {
				break
			}
			return nil, fmt.Errorf("mfcc: read samples: %w", err)
		}
		seq = append(seq, e.processFrame(st))
	}
	return seq, nil
}

func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// processFrame appends the shift samples in st.raw to the carried-over tail
// and computes one cepstral vector.
func (e *Extractor) processFrame(st *frameState) Vector {
	carried := len(st.prev)
	copy(st.frame, st.prev)
	for i := 0; i < e.shift; i++ {
		st.frame[carried+i] = float64(int16(binary.LittleEndian.Uint16(st.raw[2*i:])))
	}
	copy(st.prev, st.frame[e.shift:])

	// Pre-emphasis then Hamming, written into the zero-padded FFT input.
	x := st.frame
	st.spectrum[0] = complex(e.hamming[0]*x[0], 0)
	for i := 1; i < len(x); i++ {
		st.spectrum[i] = complex(e.hamming[i]*(x[i]-e.cfg.PreEmphasis*x[i-1]), 0)
	}
	for i := len(x); i < len(st.spectrum); i++ {
		st.spectrum[i] = 0
	}

	X := e.fft.transform(st.spectrum)
	for i := 0; i < e.bins; i++ {
		re, im := real(X[i]), imag(X[i])
		st.power.SetVec(i, re*re+im*im)
	}

	st.energies.MulVec(e.fbank, st.power)
	for i := 0; i < st.energies.Len(); i++ {
		v := st.energies.AtVec(i)
		if v < 1.0 {
			v = 1.0
		}
		st.energies.SetVec(i, math.Log(v))
	}

	st.ceps.MulVec(e.dct, st.energies)
	out := make(Vector, st.ceps.Len())
	for i := range out {
		out[i] = st.ceps.AtVec(i)
	}
	return out
}
