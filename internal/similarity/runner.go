// SPDX-License-Identifier: MIT
package similarity

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	applog "audiosim/internal/log"
	"audiosim/internal/metrics"
	"audiosim/internal/mfcc"
	"audiosim/internal/transport"
)

// Result is a completed analysis job. Nothing in it changes after it has been
// published.
type Result struct {
	Source   string
	Features mfcc.Sequence
	Matrix   *Matrix
	Elapsed  time.Duration
}

// Event converts r into its published form.
func (r *Result) Event() transport.SimilarityEvent {
	features := make([][]float64, len(r.Features))
	for i, v := range r.Features {
		features[i] = v
	}
	return transport.SimilarityEvent{
		Type:     transport.TypeSimilarity,
		Source:   r.Source,
		Rows:     r.Matrix.Rows(),
		Cols:     r.Matrix.Cols(),
		Features: features,
		Values:   r.Matrix.Values(),
	}
}

// Opener supplies the stream for a job. The returned reader is closed when
// the job finishes.
type Opener func() (io.ReadCloser, error)

// Runner executes extraction and matrix construction on worker goroutines.
// A result becomes visible through Latest and the transport only once both
// stages have finished. Jobs run to completion; there is no cancellation.
type Runner struct {
	extractor  *mfcc.Extractor
	out        transport.Transport
	metrics    *metrics.Metrics
	rows, cols int

	group  errgroup.Group
	latest atomic.Pointer[Result]
}

// Option configures a Runner.
type Option func(*Runner)

// WithTransport publishes completed results to t.
func WithTransport(t transport.Transport) Option {
	return func(r *Runner) { r.out = t }
}

// WithMetrics records job timings in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithBounds overrides the matrix row and column limits.
func WithBounds(rows, cols int) Option {
	return func(r *Runner) { r.rows, r.cols = rows, cols }
}

func NewRunner(ex *mfcc.Extractor, opts ...Option) *Runner {
	r := &Runner{
		extractor: ex,
		out:       transport.Discard,
		rows:      DefaultRows,
		cols:      DefaultCols,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Submit starts a job on a new goroutine and returns immediately.
func (r *Runner) Submit(name string, open Opener) {
	r.group.Go(func() error {
		rc, err := open()
		if err != nil {
			err = fmt.Errorf("open %s: %w", name, err)
			applog.Errorf("Similarity: %v", err)
			return err
		}
		defer rc.Close()
		_, err = r.Run(name, rc)
		return err
	})
}

// Wait blocks until every submitted job has finished and returns the first
// error.
func (r *Runner) Wait() error {
	return r.group.Wait()
}

// Latest returns the most recently completed result, or nil.
func (r *Runner) Latest() *Result {
	return r.latest.Load()
}

// Run processes src on the calling goroutine and publishes the result.
func (r *Runner) Run(name string, src io.Reader) (*Result, error) {
	started := time.Now()
	seq, err := r.extractor.Extract(src)
	r.metrics.ObserveAnalysis("mfcc", started, len(seq), err)
	if err != nil {
		applog.Errorf("Similarity: %s: %v", name, err)
		return nil, err
	}

	buildStarted := time.Now()
	m := BuildSize(seq, r.rows, r.cols)
	r.metrics.ObserveAnalysis("similarity", buildStarted, 0, nil)

	res := &Result{
		Source:   name,
		Features: seq,
		Matrix:   m,
		Elapsed:  time.Since(started),
	}
	r.latest.Store(res)
	applog.Infof("Similarity: %s: %d frames, %d entries in %s", name, len(seq), m.Len(), res.Elapsed)

	if err := r.out.Send(res.Event()); err != nil {
		applog.Warnf("Similarity: publish %s: %v", name, err)
	}
	return res, nil
}
