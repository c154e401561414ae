// SPDX-License-Identifier: MIT
package testutil

import (
	"math"
	"testing"

	"audiosim/internal/pcm"
)

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	_ = mt.Send(1)
	_ = mt.Send("two")
	_ = mt.Send(3)

	if got := len(mt.Events()); got != 3 {
		t.Fatalf("Events() length = %d, expected 3", got)
	}
	ints := EventsOf[int](mt)
	if len(ints) != 2 || ints[0] != 1 || ints[1] != 3 {
		t.Errorf("EventsOf[int] = %v", ints)
	}
	if mt.Closed() {
		t.Error("transport reported closed before Close")
	}
	_ = mt.Close()
	if !mt.Closed() {
		t.Error("transport not closed after Close")
	}
}

func TestGenerateSineWave(t *testing.T) {
	wave := GenerateSineWave(100, 44100, 441, 1)
	if wave[0] != 0 {
		t.Errorf("first sample = %d, expected 0", wave[0])
	}
	// Quarter period of 441 Hz at 44.1 kHz is 25 samples.
	if wave[25] < math.MaxInt16-1 {
		t.Errorf("sample 25 = %d, expected near max", wave[25])
	}
}

func TestWAV(t *testing.T) {
	data := PCMBytes([]int16{1, -1})
	b := WAV(pcm.DefaultFormat, data)
	if len(b) != pcm.HeaderLength+4 {
		t.Fatalf("WAV length = %d", len(b))
	}
	h, err := pcm.ParseHeader(b)
	if err != nil {
		t.Fatalf("ParseHeader error: %v", err)
	}
	if h.DataSize != 4 {
		t.Errorf("DataSize = %d, expected 4", h.DataSize)
	}
}

func TestFindPeakBin(t *testing.T) {
	tests := []struct {
		name       string
		mags       []float64
		start, end int
		want       int
	}{
		{"empty", nil, 0, 0, 0},
		{"middle", []float64{0, 1, 5, 2}, 0, 3, 2},
		{"clamped range", []float64{9, 1, 5, 2}, 1, 10, 2},
		{"negative start", []float64{9, 1, 5, 2}, -4, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(tt.mags, tt.start, tt.end); got != tt.want {
				t.Errorf("FindPeakBin = %d, expected %d", got, tt.want)
			}
		})
	}
}
