// SPDX-License-Identifier: MIT
package transport

import (
	applog "audiosim/internal/log"
)

// LoggingTransport writes a one-line summary of every event to the log.
// Bulk payloads are summarized by length only.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received event.
func (lt *LoggingTransport) Send(data any) error {
	switch e := data.(type) {
	case StateEvent:
		applog.Infof("Session: %s %s", e.Mode, e.State)
	case FormatEvent:
		applog.Infof("Session: format %d Hz, %d bit, %d ch", e.SampleRate, e.BitsPerSample, e.Channels)
	case PositionEvent:
		applog.Debugf("Session: %s position %d", e.Mode, e.Position)
	case BufferEvent:
		applog.Debugf("Session: buffer [%d, +%d)", e.Position, e.Length)
	case LevelsEvent:
		applog.Debugf("Levels: %d samples at %d", len(e.Levels), e.Position)
	case SpectrumEvent:
		applog.Debugf("Spectrum: %d bins at %d", len(e.Magnitudes), e.Position)
	case SimilarityEvent:
		applog.Infof("Similarity: %s, %d frames, %dx%d matrix (%d entries)", e.Source, len(e.Features), e.Rows, e.Cols, len(e.Values))
	default:
		applog.Debugf("Transport: %T %+v", data, data)
	}
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
