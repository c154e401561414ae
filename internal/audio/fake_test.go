// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"io"
	"sync"
	"time"

	"audiosim/internal/pcm"
)

// fakeDevice hands out streams driven by the test instead of hardware.
type fakeDevice struct {
	mu        sync.Mutex
	supported func(pcm.Format) bool
	openErr   error
	inputs    []*fakeInput
	outputs   []*fakeOutput
	formats   []pcm.Format
}

func (d *fakeDevice) Supports(f pcm.Format) bool {
	if d.supported == nil {
		return f == pcm.DefaultFormat
	}
	return d.supported(f)
}

func (d *fakeDevice) OpenInput(f pcm.Format, _ time.Duration) (InputStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeInput{fakeStream: newFakeStream(), ready: make(chan struct{}, 1)}
	d.inputs = append(d.inputs, s)
	d.formats = append(d.formats, f)
	return s, nil
}

func (d *fakeDevice) OpenOutput(f pcm.Format, src io.Reader, _ time.Duration) (OutputStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeOutput{fakeStream: newFakeStream(), src: src}
	d.outputs = append(d.outputs, s)
	d.formats = append(d.formats, f)
	return s, nil
}

type fakeStream struct {
	mu        sync.Mutex
	notify    chan struct{}
	processed int64
	stopped   bool
	closed    bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{notify: make(chan struct{}, 1)}
}

func (s *fakeStream) Notify() <-chan struct{} { return s.notify }

func (s *fakeStream) ProcessedMicroseconds() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed
}

func (s *fakeStream) ElapsedMicroseconds() int64 { return s.ProcessedMicroseconds() }

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *fakeStream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// tick advances the processed time and signals Notify.
func (s *fakeStream) tick(us int64) {
	s.mu.Lock()
	s.processed = us
	s.mu.Unlock()
	s.notify <- struct{}{}
}

// finish closes Notify like a drained output stream.
func (s *fakeStream) finish(us int64) {
	s.mu.Lock()
	s.processed = us
	if !s.closed {
		s.closed = true
		close(s.notify)
	}
	s.mu.Unlock()
}

type fakeInput struct {
	*fakeStream
	ready   chan struct{}
	pending []byte
}

// feed queues data for Read without signalling.
func (s *fakeInput) feed(data []byte) {
	s.mu.Lock()
	s.pending = append(s.pending, data...)
	s.mu.Unlock()
}

// push queues data and signals DataReady.
func (s *fakeInput) push(data []byte) {
	s.feed(data)
	s.ready <- struct{}{}
}

func (s *fakeInput) DataReady() <-chan struct{} { return s.ready }

func (s *fakeInput) BytesReady() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *fakeInput) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

type fakeOutput struct {
	*fakeStream
	src io.Reader
}

// seekFailSource wraps a source and fails every seek after the first failAfter.
type seekFailSource struct {
	ByteSource
	mu        sync.Mutex
	seeks     int
	failAfter int
}

var errSeek = errors.New("seek refused")

func (s *seekFailSource) Seek(offset int64) error {
	s.mu.Lock()
	s.seeks++
	fail := s.seeks > s.failAfter
	s.mu.Unlock()
	if fail {
		return errSeek
	}
	return s.ByteSource.Seek(offset)
}
