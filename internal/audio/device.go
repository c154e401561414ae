// SPDX-License-Identifier: MIT
package audio

import (
	"io"
	"time"

	"audiosim/internal/pcm"
)

// Stream is the timing side of an open device stream.
//
// Notify delivers a tick roughly every notify interval of processed audio.
// An output stream closes its Notify channel once the source is exhausted
// and every sample has been handed to the device.
type Stream interface {
	Notify() <-chan struct{}
	ProcessedMicroseconds() int64
	ElapsedMicroseconds() int64
	Stop() error
}

// InputStream is a capture stream. DataReady signals that BytesReady bytes
// can be read without blocking.
type InputStream interface {
	Stream
	DataReady() <-chan struct{}
	BytesReady() int
	Read(p []byte) (int, error)
}

// OutputStream is a playback stream pulling samples from the reader it was
// opened with.
type OutputStream interface {
	Stream
}

// Device opens capture and playback streams. Streams are running when Open
// returns.
type Device interface {
	Supports(f pcm.Format) bool
	OpenInput(f pcm.Format, notify time.Duration) (InputStream, error)
	OpenOutput(f pcm.Format, src io.Reader, notify time.Duration) (OutputStream, error)
}
