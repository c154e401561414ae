// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"sync"

	applog "audiosim/internal/log"
	"audiosim/internal/metrics"
	"audiosim/internal/transport"
)

var ErrNoFrame = errors.New("analysis: no spectrum computed yet")

// SpectrumProcessor consumes published level windows, computes the spectrum
// of the slice at a fixed sample offset within each window, keeps the latest
// frame and forwards it as a SpectrumEvent. It is a transport.Transport so it
// can sit next to network transports in a fan-out.
type SpectrumProcessor struct {
	analyzer *Analyzer
	offset   int
	next     transport.Transport
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	latest Frame
	valid  bool
}

// NewSpectrumProcessor forwards frames to next (nil discards them).
func NewSpectrumProcessor(a *Analyzer, offset int, next transport.Transport, m *metrics.Metrics) (*SpectrumProcessor, error) {
	if a == nil {
		return nil, errors.New("analysis: analyzer cannot be nil")
	}
	if offset < 0 {
		return nil, fmt.Errorf("analysis: negative offset %d", offset)
	}
	if next == nil {
		next = transport.Discard
	}
	return &SpectrumProcessor{
		analyzer: a,
		offset:   offset,
		next:     next,
		metrics:  m,
		latest: Frame{
			Magnitudes:  make([]float64, a.Bins()),
			Frequencies: make([]float64, a.Bins()),
		},
	}, nil
}

// Send handles LevelsEvent values and ignores everything else. Windows too
// short for the slice are skipped.
func (p *SpectrumProcessor) Send(data any) error {
	ev, ok := data.(transport.LevelsEvent)
	if !ok {
		return nil
	}
	if p.offset+p.analyzer.Size() > len(ev.Levels) {
		applog.Debugf("Spectrum: window of %d samples too short for offset %d", len(ev.Levels), p.offset)
		return nil
	}

	f, err := p.analyzer.Analyze(ev.Levels, p.offset)
	if err != nil {
		return err
	}
	p.mu.Lock()
	copy(p.latest.Magnitudes, f.Magnitudes)
	copy(p.latest.Frequencies, f.Frequencies)
	p.latest.Offset = f.Offset
	p.valid = true
	p.mu.Unlock()
	p.metrics.SpectrumFrame()

	return p.next.Send(transport.SpectrumEvent{
		Type:        transport.TypeSpectrum,
		Position:    ev.Position + 2*int64(p.offset),
		Magnitudes:  f.Magnitudes,
		Frequencies: f.Frequencies,
	})
}

// Latest returns a copy of the most recent frame.
func (p *SpectrumProcessor) Latest() (Frame, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.valid {
		return Frame{}, false
	}
	return Frame{
		Offset:      p.latest.Offset,
		Magnitudes:  append([]float64(nil), p.latest.Magnitudes...),
		Frequencies: append([]float64(nil), p.latest.Frequencies...),
	}, true
}

// Bins is the number of magnitudes per frame.
func (p *SpectrumProcessor) Bins() int { return p.analyzer.Bins() }

// MagnitudesInto copies the latest magnitudes into dst without allocating.
func (p *SpectrumProcessor) MagnitudesInto(dst []float64) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.valid {
		return ErrNoFrame
	}
	if len(dst) != len(p.latest.Magnitudes) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dst), len(p.latest.Magnitudes))
	}
	copy(dst, p.latest.Magnitudes)
	return nil
}

// Close is a no-op; the downstream transport is owned by the caller.
func (p *SpectrumProcessor) Close() error { return nil }

var _ transport.Transport = (*SpectrumProcessor)(nil)
