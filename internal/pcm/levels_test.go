// SPDX-License-Identifier: MIT
package pcm

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"
)

func TestLevels(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint16(buf[0:], uint16(0))
	binary.LittleEndian.PutUint16(buf[2:], uint16(16384))
	s := int16(math.MinInt16)
	binary.LittleEndian.PutUint16(buf[4:], uint16(s))
	binary.LittleEndian.PutUint16(buf[6:], uint16(math.MaxInt16))

	got := Levels(buf, 0, len(buf))
	want := []float32{0, 0.5, -1, float32(32767.0 / 32768.0)}
	if len(got) != len(want) {
		t.Fatalf("Levels length = %d, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Levels[%d] = %v, expected %v", i, got[i], want[i])
		}
	}

	sub := Levels(buf, 2, 4)
	if len(sub) != 2 || sub[0] != 0.5 || sub[1] != -1 {
		t.Errorf("Levels(buf, 2, 4) = %v", sub)
	}
}

func TestLevels_LengthAndRange(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{0, 2, 64, 8816} {
		buf := make([]byte, n)
		rng.Read(buf)
		out := Levels(buf, 0, n)
		if len(out) != n/2 {
			t.Fatalf("Levels(%d bytes) returned %d samples", n, len(out))
		}
		for i, v := range out {
			if v < -1 || v >= 1 {
				t.Fatalf("sample %d = %v outside [-1, 1)", i, v)
			}
		}
	}
}

func TestLevels_Panics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pos, len int
	}{
		{"odd length", 0, 3},
		{"past end", 2, 8},
		{"negative position", -2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("Levels(%d, %d) did not panic", tt.pos, tt.len)
				}
			}()
			Levels(make([]byte, 8), tt.pos, tt.len)
		})
	}
}

func TestLevelsInto_NoAllocs(t *testing.T) {
	src := make([]byte, 4096)
	dst := make([]float32, 2048)
	allocs := testing.AllocsPerRun(100, func() {
		LevelsInto(dst, src)
	})
	if allocs > 0 {
		t.Errorf("LevelsInto allocated %.0f times, expected 0", allocs)
	}
}
