// SPDX-License-Identifier: MIT
package pcm

import (
	"encoding/binary"
	"fmt"
)

// levelScale maps an int16 sample into [-1, 1).
const levelScale = 1.0 / 32768.0

// Levels converts buf[position:position+length] from int16 LE samples into
// normalized amplitudes. The range must be even-sized and inside buf; anything
// else is a caller bug and panics.
func Levels(buf []byte, position, length int) []float32 {
	if length%2 != 0 {
		panic(fmt.Sprintf("pcm: odd level length %d", length))
	}
	if position < 0 || length < 0 || position+length > len(buf) {
		panic(fmt.Sprintf("pcm: level range [%d,%d) outside buffer of %d bytes", position, position+length, len(buf)))
	}
	out := make([]float32, length/2)
	LevelsInto(out, buf[position:position+length])
	return out
}

// LevelsInto decodes len(dst) samples from src without allocating.
// src must hold at least 2*len(dst) bytes.
func LevelsInto(dst []float32, src []byte) {
	if len(dst) == 0 {
		return
	}
	_ = src[2*len(dst)-1]
	for i := range dst {
		s := int16(binary.LittleEndian.Uint16(src[2*i:]))
		dst[i] = float32(float64(s) * levelScale)
	}
}
