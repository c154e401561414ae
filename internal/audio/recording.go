// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "audiosim/internal/log"
	"audiosim/internal/pcm"
)

// SaveRecording writes the last completed capture to path as a 16 bit PCM
// WAV file.
func (e *Engine) SaveRecording(path string) error {
	e.mu.Lock()
	data := e.recorded
	format := e.format
	if e.mode != ModeCapture || !format.IsValid() {
		format = pcm.DefaultFormat
	}
	e.mu.Unlock()

	if len(data) == 0 {
		return ErrNoRecording
	}
	return WriteWAV(path, format, data)
}

// WriteWAV encodes little-endian 16 bit samples into a WAV file.
func WriteWAV(path string, f pcm.Format, data []byte) error {
	if !f.IsPCMS16LE() {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(file, f.SampleRate, f.BitsPerSample, f.Channels, pcm.FormatTagPCM)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: f.Channels,
			SampleRate:  f.SampleRate,
		},
		Data:           make([]int, len(data)/2),
		SourceBitDepth: f.BitsPerSample,
	}
	for i := range buf.Data {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(data[2*i:])))
	}

	if err := enc.Write(buf); err != nil {
		file.Close()
		return fmt.Errorf("failed to write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}
	if err := file.Close(); err != nil {
		return err
	}

	applog.Infof("Engine: wrote %d bytes to %s", len(data)/2*2, path)
	return nil
}

// ReadWAV decodes a whole WAV file into normalized levels. Unlike OpenWAV it
// accepts any header layout the decoder understands.
func ReadWAV(path string) (pcm.Format, []float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return pcm.Format{}, nil, err
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return pcm.Format{}, nil, fmt.Errorf("%s: %w", path, pcm.ErrInvalidHeader)
	}
	if dec.BitDepth != 16 {
		return pcm.Format{}, nil, fmt.Errorf("%w: %d bit samples", ErrUnsupportedFormat, dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm.Format{}, nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	f := pcm.Format{
		SampleRate:    int(dec.SampleRate),
		BitsPerSample: int(dec.BitDepth),
		Channels:      int(dec.NumChans),
		Signed:        true,
		LittleEndian:  true,
	}
	levels := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		levels[i] = float32(float64(s) / 32768)
	}
	return f, levels, nil
}
