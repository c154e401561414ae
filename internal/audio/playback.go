// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"

	applog "audiosim/internal/log"
	"audiosim/internal/pcm"
	"audiosim/internal/transport"
)

// StartPlayback opens two handles on a source, one for the device and one
// for analysis, and plays it. The current session is only stopped once the
// output stream is open; on error nothing changes.
func (e *Engine) StartPlayback(open SourceOpener) error {
	playback, err := open()
	if err != nil {
		return fmt.Errorf("failed to open playback source: %w", err)
	}
	analysis, err := open()
	if err != nil {
		playback.Close()
		return fmt.Errorf("failed to open analysis source: %w", err)
	}
	return e.startPlayback(playback, analysis)
}

// StartPlaybackBuffer plays the last completed capture.
func (e *Engine) StartPlaybackBuffer() error {
	e.mu.Lock()
	data := e.recorded
	e.mu.Unlock()

	if len(data) == 0 {
		return ErrNoRecording
	}
	return e.startPlayback(
		newMemorySource(pcm.DefaultFormat, data),
		newMemorySource(pcm.DefaultFormat, data),
	)
}

func (e *Engine) startPlayback(playback, analysis ByteSource) (err error) {
	defer func() {
		if err != nil {
			playback.Close()
			analysis.Close()
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	format, err := e.negotiate(analysis.Header())
	if err != nil {
		return err
	}
	if err := playback.Seek(playback.HeaderLength()); err != nil {
		return fmt.Errorf("failed to seek past header: %w", err)
	}
	out, err := e.device.OpenOutput(format, playback, e.opts.NotifyInterval)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceOpen, err)
	}

	e.stopLocked("restart")
	e.setFormatLocked(format)

	e.playback, e.analysis = playback, analysis
	e.dataSize = max(0, analysis.Size()-analysis.HeaderLength())
	e.buffer = nil
	e.bufferLength = 0
	e.dataLength = 0
	e.bufferPosition = 0
	e.output = out
	e.done = make(chan struct{})

	e.metrics.SessionStarted(ModePlayback.String())
	applog.Infof("Engine: playing %d bytes as %s", e.dataSize, format)

	e.setStateLocked(ModePlayback, StatePlaying)
	e.setPlayPositionLocked(0, true)
	return nil
}

// negotiate picks the output format for a source header. Anything other
// than signed 16 bit little-endian PCM plays in the default format.
func (e *Engine) negotiate(h pcm.Header) (pcm.Format, error) {
	f := h.Format()
	if h.FormatTag != pcm.FormatTagPCM || !f.IsPCMS16LE() || !f.IsValid() {
		applog.Debugf("Engine: source format %s not PCM S16LE, using default", f)
		return pcm.DefaultFormat, nil
	}
	if !e.device.Supports(f) {
		return pcm.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return f, nil
}

func (e *Engine) playbackTickLocked(processedMicroseconds int64) {
	playPosition := pcm.ByteLength(e.format, processedMicroseconds)
	levelPosition := playPosition - e.levelWindow
	e.setPlayPositionLocked(min(playPosition, e.dataSize), false)

	if levelPosition > e.bufferPosition {
		e.rebufferLocked(levelPosition)
	}
	if levelPosition >= 0 {
		e.publishLevelsLocked(e.bufferPosition, e.buffer[:min(e.levelWindow, e.dataLength)])
	}

	if e.bufferPosition+e.dataLength >= e.dataSize {
		e.stopLocked("end")
	}
}

// rebufferLocked loads the level window starting at levelPosition from the
// analysis source. On a seek failure the previous buffer is kept.
func (e *Engine) rebufferLocked(levelPosition int64) {
	readStart := max(0, levelPosition)
	readEnd := max(readStart, min(e.dataSize, levelPosition+e.levelWindow))

	if err := e.analysis.Seek(e.analysis.HeaderLength() + readStart); err != nil {
		applog.Warnf("Engine: file seek error: %v", err)
		e.metrics.Rebuffered(false)
		return
	}

	buf := make([]byte, readEnd-readStart)
	n, err := io.ReadFull(e.analysis, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		applog.Warnf("Engine: file read error: %v", err)
	}
	e.buffer = buf[:n]
	e.bufferPosition = readStart
	e.dataLength = int64(n)
	e.metrics.Rebuffered(true)

	e.publish(transport.BufferEvent{Type: transport.TypeBuffer, Position: e.bufferPosition, Length: e.dataLength})
}
