// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"audiosim/internal/pcm"
)

// ByteSource is a seekable audio file: a fixed-size header followed by raw
// sample data. Offsets passed to Seek are absolute, header included.
type ByteSource interface {
	Size() int64
	HeaderLength() int64
	Header() pcm.Header
	Seek(offset int64) error
	Read(p []byte) (int, error)
	Close() error
}

// SourceOpener opens an independent handle on the same source. Playback
// opens two: one feeds the device, the other is read for analysis.
type SourceOpener func() (ByteSource, error)

// OpenWAV returns an opener for a canonical 44-byte-header WAV file.
func OpenWAV(path string) SourceOpener {
	return func() (ByteSource, error) {
		return openWAVFile(path)
	}
}

type wavFile struct {
	f      *os.File
	size   int64
	header pcm.Header
}

func openWAVFile(path string) (*wavFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat wav file: %w", err)
	}
	h, err := pcm.ReadHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &wavFile{f: f, size: st.Size(), header: h}, nil
}

func (w *wavFile) Size() int64         { return w.size }
func (w *wavFile) HeaderLength() int64 { return pcm.HeaderLength }
func (w *wavFile) Header() pcm.Header  { return w.header }

func (w *wavFile) Seek(offset int64) error {
	if offset < 0 || offset > w.size {
		return fmt.Errorf("seek to %d outside file of %d bytes", offset, w.size)
	}
	_, err := w.f.Seek(offset, io.SeekStart)
	return err
}

func (w *wavFile) Read(p []byte) (int, error) { return w.f.Read(p) }
func (w *wavFile) Close() error               { return w.f.Close() }

// memorySource exposes raw samples held in memory. It has no header.
type memorySource struct {
	r      *bytes.Reader
	header pcm.Header
}

func newMemorySource(f pcm.Format, data []byte) *memorySource {
	return &memorySource{r: bytes.NewReader(data), header: pcm.NewHeader(f, len(data))}
}

func (m *memorySource) Size() int64         { return m.r.Size() }
func (m *memorySource) HeaderLength() int64 { return 0 }
func (m *memorySource) Header() pcm.Header  { return m.header }

func (m *memorySource) Seek(offset int64) error {
	if offset < 0 || offset > m.r.Size() {
		return fmt.Errorf("seek to %d outside buffer of %d bytes", offset, m.r.Size())
	}
	_, err := m.r.Seek(offset, io.SeekStart)
	return err
}

func (m *memorySource) Read(p []byte) (int, error) { return m.r.Read(p) }
func (m *memorySource) Close() error               { return nil }
