// SPDX-License-Identifier: MIT
package pcm

import (
	"bytes"
	"errors"
	"testing"
)

func TestHeader_EncodeParse(t *testing.T) {
	t.Parallel()

	h := NewHeader(DefaultFormat, 882000)
	b := h.Encode()
	if len(b) != HeaderLength {
		t.Fatalf("Encode() length = %d, expected %d", len(b), HeaderLength)
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" || string(b[36:40]) != "data" {
		t.Fatalf("Encode() produced bad magic: %q", b[:40])
	}

	got, err := ReadHeader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("ReadHeader error: %v", err)
	}
	if got != h {
		t.Errorf("ReadHeader = %+v, expected %+v", got, h)
	}
	if f := got.Format(); f != DefaultFormat {
		t.Errorf("Format() = %v, expected %v", f, DefaultFormat)
	}
	if h.ByteRate != 88200 || h.BlockAlign != 2 {
		t.Errorf("ByteRate/BlockAlign = %d/%d", h.ByteRate, h.BlockAlign)
	}
}

func TestReadHeader_Errors(t *testing.T) {
	t.Parallel()

	valid := NewHeader(DefaultFormat, 0).Encode()

	notRiff := bytes.Clone(valid)
	copy(notRiff[0:4], "RIFX")

	noData := bytes.Clone(valid)
	copy(noData[36:40], "LIST")

	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"empty", nil, ErrShortHeader},
		{"truncated", valid[:20], ErrShortHeader},
		{"bad magic", notRiff, ErrInvalidHeader},
		{"no data chunk", noData, ErrInvalidHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHeader(bytes.NewReader(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadHeader error = %v, expected %v", err, tt.want)
			}
		})
	}
}
