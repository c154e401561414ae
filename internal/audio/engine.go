// SPDX-License-Identifier: MIT
/*
Package audio implements the capture/playback session engine.

An Engine owns one session at a time. In capture mode it fills a fixed-size
in-memory buffer from an input stream and stops on its own once the buffer is
full. In playback mode it plays a byte source through an output stream while
keeping a small window of the source, just behind the play position, loaded
for level analysis.

Thread Safety:
  - All session state is guarded by a single mutex
  - Events are published while the mutex is held; transports must not call
    back into the Engine
  - Stream callbacks never touch Engine state; Run drains their channels
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	applog "audiosim/internal/log"
	"audiosim/internal/metrics"
	"audiosim/internal/pcm"
	"audiosim/internal/transport"
)

// Session defaults.
const (
	DefaultBufferDuration = 5 * time.Second
	DefaultLevelWindow    = 100 * time.Millisecond
	DefaultNotifyInterval = 10 * time.Millisecond
)

var (
	ErrUnsupportedFormat = errors.New("audio: format not supported by device")
	ErrDeviceOpen        = errors.New("audio: failed to open device stream")
	ErrNoRecording       = errors.New("audio: no recorded audio")
)

// Mode is the direction of the current or last session.
type Mode int

const (
	ModeCapture Mode = iota
	ModePlayback
)

func (m Mode) String() string {
	switch m {
	case ModeCapture:
		return "capture"
	case ModePlayback:
		return "playback"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is the activity of the engine.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures an Engine. Zero fields take the defaults.
type Options struct {
	BufferDuration time.Duration
	LevelWindow    time.Duration
	NotifyInterval time.Duration
	Transport      transport.Transport
	Metrics        *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.BufferDuration <= 0 {
		o.BufferDuration = DefaultBufferDuration
	}
	if o.LevelWindow <= 0 {
		o.LevelWindow = DefaultLevelWindow
	}
	if o.NotifyInterval <= 0 {
		o.NotifyInterval = DefaultNotifyInterval
	}
	if o.Transport == nil {
		o.Transport = transport.Discard
	}
	return o
}

type Engine struct {
	mu sync.Mutex

	device  Device
	opts    Options
	out     transport.Transport
	metrics *metrics.Metrics

	mode   Mode
	state  State
	format pcm.Format

	// levelWindow is LevelWindow expressed in bytes of format.
	levelWindow int64

	// buffer holds dataLength valid bytes. In capture mode it is the whole
	// recording and bufferPosition trails the write position by one level
	// window. In playback mode it is a copy of the source data starting at
	// bufferPosition.
	buffer         []byte
	bufferLength   int64
	dataLength     int64
	bufferPosition int64

	recordPosition int64
	playPosition   int64

	input  InputStream
	output OutputStream

	// playback feeds the output stream, analysis is read on rebuffer.
	playback ByteSource
	analysis ByteSource
	dataSize int64

	recorded []byte
	done     chan struct{}
}

// New returns an idle engine bound to device.
func New(device Device, opts Options) *Engine {
	opts = opts.withDefaults()
	done := make(chan struct{})
	close(done)
	return &Engine{
		device:  device,
		opts:    opts,
		out:     opts.Transport,
		metrics: opts.Metrics,
		done:    done,
	}
}

// StartRecording stops any running session and starts capturing into a
// fresh buffer of BufferDuration in the default format.
func (e *Engine) StartRecording() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	format := pcm.DefaultFormat
	in, err := e.device.OpenInput(format, e.opts.NotifyInterval)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceOpen, err)
	}

	e.stopLocked("restart")
	e.setFormatLocked(format)

	e.bufferLength = pcm.ByteLength(format, e.opts.BufferDuration.Microseconds())
	e.buffer = make([]byte, e.bufferLength)
	e.dataLength = 0
	e.bufferPosition = 0
	e.input = in
	e.done = make(chan struct{})

	e.metrics.SessionStarted(ModeCapture.String())
	e.metrics.BufferSize(int(e.bufferLength))
	applog.Infof("Engine: recording %s into %d byte buffer", format, e.bufferLength)

	e.setStateLocked(ModeCapture, StateRecording)
	e.setRecordPositionLocked(0, true)
	return nil
}

// OnDataAvailable copies up to available bytes from the input stream into
// the buffer. Bytes beyond the remaining capacity are left unread. When the
// buffer becomes full the session stops.
func (e *Engine) OnDataAvailable(available int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRecording || e.input == nil {
		return
	}

	toRead := min(int64(available), e.bufferLength-e.dataLength)
	if toRead > 0 {
		n, err := e.input.Read(e.buffer[e.dataLength : e.dataLength+toRead])
		if err != nil && n == 0 {
			applog.Warnf("Engine: input read failed: %v", err)
		}
		e.dataLength += int64(n)
		e.metrics.Captured(n)
	}

	if e.dataLength == e.bufferLength {
		applog.Debugf("Engine: capture buffer full at %d bytes", e.dataLength)
		e.stopLocked("full")
	}
}

// OnTick advances the session by the stream's processed duration.
func (e *Engine) OnTick(processedMicroseconds int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateRecording:
		e.captureTickLocked()
	case StatePlaying:
		e.playbackTickLocked(processedMicroseconds)
	}
}

func (e *Engine) captureTickLocked() {
	levelPosition := e.dataLength - e.levelWindow
	e.bufferPosition = max(0, levelPosition)
	e.setRecordPositionLocked(e.dataLength, false)
	e.publish(transport.BufferEvent{Type: transport.TypeBuffer, Position: 0, Length: e.dataLength})

	if levelPosition >= 0 {
		e.publishLevelsLocked(levelPosition, e.buffer[levelPosition:e.dataLength])
	}
}

// Stop ends the current session. It is a no-op when idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked("stopped")
}

// Reset stops the session and clears the buffer, the recording and the
// chosen format.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked("reset")
	e.buffer = nil
	e.bufferLength = 0
	e.dataLength = 0
	e.bufferPosition = 0
	e.recorded = nil
	e.setRecordPositionLocked(0, false)
	e.setPlayPositionLocked(0, false)
	e.setFormatLocked(pcm.Format{})
	e.publish(transport.BufferEvent{Type: transport.TypeBuffer})
}

func (e *Engine) stopLocked(reason string) {
	if e.state == StateIdle {
		return
	}

	if e.input != nil {
		if err := e.input.Stop(); err != nil {
			applog.Warnf("Engine: failed to stop input stream: %v", err)
		}
		e.input = nil
		e.recorded = e.buffer[:e.dataLength]
	}
	if e.output != nil {
		if err := e.output.Stop(); err != nil {
			applog.Warnf("Engine: failed to stop output stream: %v", err)
		}
		e.output = nil
	}
	for _, src := range []ByteSource{e.playback, e.analysis} {
		if src == nil {
			continue
		}
		if err := src.Close(); err != nil {
			applog.Warnf("Engine: failed to close source: %v", err)
		}
	}
	e.playback, e.analysis = nil, nil

	e.metrics.SessionStopped(e.mode.String(), reason)
	applog.Infof("Engine: %s stopped (%s)", e.mode, reason)

	e.setStateLocked(e.mode, StateIdle)
	close(e.done)
}

// Run drives the current session from its stream channels until the
// session returns to idle or ctx is done. Cancelling ctx stops the session.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	done := e.done
	var (
		stream Stream
		in     InputStream
		ready  <-chan struct{}
	)
	switch {
	case e.input != nil:
		in = e.input
		stream, ready = in, in.DataReady()
	case e.output != nil:
		stream = e.output
	}
	e.mu.Unlock()

	if stream == nil {
		return nil
	}
	notify := stream.Notify()

	for {
		select {
		case <-ctx.Done():
			e.Stop()
			return ctx.Err()
		case <-done:
			return nil
		case _, ok := <-ready:
			if !ok {
				ready = nil
				continue
			}
			e.OnDataAvailable(in.BytesReady())
		case _, ok := <-notify:
			if !ok {
				e.drained(stream)
				return nil
			}
			e.OnTick(stream.ProcessedMicroseconds())
		}
	}
}

// drained handles a stream that finished on its own.
func (e *Engine) drained(s Stream) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StatePlaying && e.output == s {
		e.playbackTickLocked(s.ProcessedMicroseconds())
	}
	if (e.input != nil && e.input == s) || (e.output != nil && e.output == s) {
		e.stopLocked("drained")
	}
}

// Done is closed when the current session ends.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Format() pcm.Format {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.format
}

// RecordPosition is the number of bytes captured so far.
func (e *Engine) RecordPosition() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordPosition
}

// PlayPosition is the playback position in bytes of audio data.
func (e *Engine) PlayPosition() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playPosition
}

// Buffer returns a copy of the valid buffer contents and the source offset
// of its first byte.
func (e *Engine) Buffer() ([]byte, int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.buffer[:e.dataLength]...), e.bufferPosition
}

// BufferLength is the capture capacity in bytes.
func (e *Engine) BufferLength() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bufferLength
}

// Recorded returns a copy of the last completed capture.
func (e *Engine) Recorded() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.recorded...)
}

func (e *Engine) setStateLocked(mode Mode, state State) {
	changed := e.mode != mode || e.state != state
	e.mode, e.state = mode, state
	if changed {
		e.publish(transport.StateEvent{Type: transport.TypeState, Mode: mode.String(), State: state.String()})
	}
}

func (e *Engine) setFormatLocked(f pcm.Format) {
	e.levelWindow = pcm.ByteLength(f, e.opts.LevelWindow.Microseconds())
	if f == e.format {
		return
	}
	e.format = f
	e.publish(transport.FormatEvent{
		Type:          transport.TypeFormat,
		SampleRate:    f.SampleRate,
		BitsPerSample: f.BitsPerSample,
		Channels:      f.Channels,
	})
}

func (e *Engine) setRecordPositionLocked(pos int64, force bool) {
	changed := pos != e.recordPosition
	e.recordPosition = pos
	if changed || force {
		e.publish(transport.PositionEvent{Type: transport.TypePosition, Mode: ModeCapture.String(), Position: pos})
	}
}

func (e *Engine) setPlayPositionLocked(pos int64, force bool) {
	changed := pos != e.playPosition
	e.playPosition = pos
	if changed || force {
		e.publish(transport.PositionEvent{Type: transport.TypePosition, Mode: ModePlayback.String(), Position: pos})
	}
}

func (e *Engine) publishLevelsLocked(position int64, window []byte) {
	window = window[:len(window)&^1]
	if len(window) == 0 {
		return
	}
	levels := make([]float32, len(window)/2)
	pcm.LevelsInto(levels, window)
	e.publish(transport.LevelsEvent{
		Type:       transport.TypeLevels,
		Position:   position,
		SampleRate: e.format.SampleRate,
		Levels:     levels,
	})
}

func (e *Engine) publish(ev any) {
	if err := e.out.Send(ev); err != nil {
		applog.Debugf("Engine: publish failed: %v", err)
	}
}
