// SPDX-License-Identifier: MIT
package pcm

import (
	"fmt"
	"testing"
)

func TestByteLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		format   Format
		us       int64
		expected int64
	}{
		{"zero", DefaultFormat, 0, 0},
		{"negative", DefaultFormat, -5, 0},
		{"ten seconds", DefaultFormat, 10_000_000, 441000 * 2},
		{"capture buffer", DefaultFormat, 5_000_000, 440992}, // 441000 -> 440992
		{"level window", DefaultFormat, 100_000, 8816}, // 8820 rounded down to a multiple of 16
		{"ten ms", DefaultFormat, 10_000, 880},         // 882 -> 880
		{"stereo", Format{SampleRate: 48000, BitsPerSample: 16, Channels: 2}, 1_000_000, 192000},
		{"invalid format", Format{}, 1_000_000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ByteLength(tt.format, tt.us); got != tt.expected {
				t.Errorf("ByteLength(%v, %d) = %d, expected %d", tt.format, tt.us, got, tt.expected)
			}
		})
	}
}

func TestByteLength_Monotonic(t *testing.T) {
	t.Parallel()

	prev := int64(0)
	for us := int64(0); us <= 2_000_000; us += 337 {
		got := ByteLength(DefaultFormat, us)
		if got < prev {
			t.Fatalf("ByteLength decreased at %dus: %d < %d", us, got, prev)
		}
		if got%int64(DefaultFormat.Channels*DefaultFormat.BitsPerSample) != 0 {
			t.Fatalf("ByteLength(%d) = %d is not aligned", us, got)
		}
		prev = got
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	if got := Duration(DefaultFormat, 882000); got != 10_000_000 {
		t.Errorf("Duration(882000) = %d, expected 10s", got)
	}
	if got := Duration(DefaultFormat, 0); got != 0 {
		t.Errorf("Duration(0) = %d, expected 0", got)
	}
}

func TestFormat_IsPCMS16LE(t *testing.T) {
	t.Parallel()

	cases := map[Format]bool{
		DefaultFormat: true,
		{SampleRate: 8000, BitsPerSample: 16, Channels: 1, Signed: true, LittleEndian: true}: true,
		{SampleRate: 44100, BitsPerSample: 8, Channels: 1, Signed: false, LittleEndian: true}: false,
		{SampleRate: 44100, BitsPerSample: 16, Channels: 1, Signed: true, LittleEndian: false}: false,
	}
	for f, want := range cases {
		t.Run(fmt.Sprint(f), func(t *testing.T) {
			if got := f.IsPCMS16LE(); got != want {
				t.Errorf("IsPCMS16LE() = %v, expected %v", got, want)
			}
		})
	}
}

func BenchmarkByteLength(b *testing.B) {
	for b.Loop() {
		ByteLength(DefaultFormat, 123_456)
	}
}
