// SPDX-License-Identifier: MIT
//
// Package pcm holds the linear PCM primitives shared by the session engine and
// the analysis pipelines: format descriptions, duration/byte conversion, level
// extraction and the canonical 44-byte WAV header.
package pcm

import "fmt"

// Format describes a linear PCM sample layout.
type Format struct {
	SampleRate    int
	BitsPerSample int
	Channels      int
	Signed        bool
	LittleEndian  bool
}

// DefaultFormat is the only profile guaranteed to be supported end to end:
// 44.1 kHz, 16 bit, mono, signed, little-endian.
var DefaultFormat = Format{
	SampleRate:    44100,
	BitsPerSample: 16,
	Channels:      1,
	Signed:        true,
	LittleEndian:  true,
}

// IsValid reports whether every numeric field is positive.
func (f Format) IsValid() bool {
	return f.SampleRate > 0 && f.BitsPerSample > 0 && f.Channels > 0
}

// IsPCMS16LE reports whether the format carries signed 16 bit little-endian samples.
func (f Format) IsPCMS16LE() bool {
	return f.BitsPerSample == 16 && f.Signed && f.LittleEndian
}

// BytesPerFrame is the size of one sample across all channels.
func (f Format) BytesPerFrame() int {
	return f.Channels * (f.BitsPerSample / 8)
}

func (f Format) String() string {
	sign := "unsigned"
	if f.Signed {
		sign = "signed"
	}
	endian := "BE"
	if f.LittleEndian {
		endian = "LE"
	}
	return fmt.Sprintf("%d Hz, %d bit, %d ch, %s %s", f.SampleRate, f.BitsPerSample, f.Channels, sign, endian)
}

// ByteLength converts a duration in microseconds into a byte count for f.
//
// The result is rounded down to a multiple of Channels*BitsPerSample. That is a
// bit count rather than a byte count; recordings and position reports made by
// earlier versions depend on this rounding, so it is kept as is.
func ByteLength(f Format, microseconds int64) int64 {
	if microseconds <= 0 || !f.IsValid() {
		return 0
	}
	n := int64(f.SampleRate) * int64(f.Channels) * int64(f.BitsPerSample/8) * microseconds / 1_000_000
	align := int64(f.Channels * f.BitsPerSample)
	return n - n%align
}

// Duration converts a byte count into microseconds of audio for f.
func Duration(f Format, bytes int64) int64 {
	bpf := int64(f.BytesPerFrame())
	if bytes <= 0 || bpf == 0 || f.SampleRate <= 0 {
		return 0
	}
	return (bytes / bpf) * 1_000_000 / int64(f.SampleRate)
}
