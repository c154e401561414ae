// SPDX-License-Identifier: MIT
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderLength is the size of the canonical RIFF/WAVE header with a 16 byte
// fmt chunk immediately followed by the data chunk.
const HeaderLength = 44

// FormatTagPCM is the WAVE format tag for uncompressed integer PCM.
const FormatTagPCM = 1

var (
	ErrInvalidHeader = errors.New("pcm: invalid wav header")
	ErrShortHeader   = errors.New("pcm: short wav header")
)

// Header is the decoded canonical WAV header.
type Header struct {
	FormatTag     uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// NewHeader builds a PCM header for dataSize bytes of f-formatted samples.
func NewHeader(f Format, dataSize int) Header {
	return Header{
		FormatTag:     FormatTagPCM,
		Channels:      uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.SampleRate * f.BytesPerFrame()),
		BlockAlign:    uint16(f.BytesPerFrame()),
		BitsPerSample: uint16(f.BitsPerSample),
		DataSize:      uint32(dataSize),
	}
}

// Format maps the header onto a Format. WAV PCM is little-endian and signed
// for depths above 8 bits.
func (h Header) Format() Format {
	return Format{
		SampleRate:    int(h.SampleRate),
		BitsPerSample: int(h.BitsPerSample),
		Channels:      int(h.Channels),
		Signed:        h.BitsPerSample > 8,
		LittleEndian:  true,
	}
}

// ParseHeader decodes the first HeaderLength bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLength {
		return Header{}, ErrShortHeader
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return Header{}, fmt.Errorf("%w: missing RIFF/WAVE magic", ErrInvalidHeader)
	}
	if string(b[12:16]) != "fmt " {
		return Header{}, fmt.Errorf("%w: missing fmt chunk", ErrInvalidHeader)
	}
	if string(b[36:40]) != "data" {
		return Header{}, fmt.Errorf("%w: data chunk not at offset 36", ErrInvalidHeader)
	}
	return Header{
		FormatTag:     binary.LittleEndian.Uint16(b[20:22]),
		Channels:      binary.LittleEndian.Uint16(b[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(b[24:28]),
		ByteRate:      binary.LittleEndian.Uint32(b[28:32]),
		BlockAlign:    binary.LittleEndian.Uint16(b[32:34]),
		BitsPerSample: binary.LittleEndian.Uint16(b[34:36]),
		DataSize:      binary.LittleEndian.Uint32(b[40:44]),
	}, nil
}

// ReadHeader reads and decodes a header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var b [HeaderLength]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, ErrShortHeader
		}
		return Header{}, fmt.Errorf("read wav header: %w", err)
	}
	return ParseHeader(b[:])
}

// Encode returns the 44 byte wire form of h.
func (h Header) Encode() []byte {
	b := make([]byte, HeaderLength)
	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:8], 36+h.DataSize)
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint32(b[16:20], 16)
	binary.LittleEndian.PutUint16(b[20:22], h.FormatTag)
	binary.LittleEndian.PutUint16(b[22:24], h.Channels)
	binary.LittleEndian.PutUint32(b[24:28], h.SampleRate)
	binary.LittleEndian.PutUint32(b[28:32], h.ByteRate)
	binary.LittleEndian.PutUint16(b[32:34], h.BlockAlign)
	binary.LittleEndian.PutUint16(b[34:36], h.BitsPerSample)
	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:44], h.DataSize)
	return b
}
