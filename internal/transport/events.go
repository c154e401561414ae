// SPDX-License-Identifier: MIT
package transport

// Event type tags carried in the "type" field of every published event.
const (
	TypeState      = "state"
	TypePosition   = "position"
	TypeBuffer     = "buffer"
	TypeFormat     = "format"
	TypeLevels     = "levels"
	TypeSpectrum   = "spectrum"
	TypeSimilarity = "similarity"
)

// StateEvent reports a session mode/state transition.
type StateEvent struct {
	Type  string `json:"type"`
	Mode  string `json:"mode"`
	State string `json:"state"`
}

// PositionEvent reports the capture write position or the playback position
// in bytes of audio data.
type PositionEvent struct {
	Type     string `json:"type"`
	Mode     string `json:"mode"`
	Position int64  `json:"position"`
}

// BufferEvent reports the extent of the session buffer relative to the source.
type BufferEvent struct {
	Type     string `json:"type"`
	Position int64  `json:"position"`
	Length   int64  `json:"length"`
}

// FormatEvent reports the format chosen for a session.
type FormatEvent struct {
	Type          string `json:"type"`
	SampleRate    int    `json:"sample_rate"`
	BitsPerSample int    `json:"bits_per_sample"`
	Channels      int    `json:"channels"`
}

// LevelsEvent carries the current level window. Position is the byte offset
// of the first sample relative to the start of the audio data.
type LevelsEvent struct {
	Type       string    `json:"type"`
	Position   int64     `json:"position"`
	SampleRate int       `json:"sample_rate"`
	Levels     []float32 `json:"levels"`
}

// SpectrumEvent carries one spectrum frame.
type SpectrumEvent struct {
	Type        string    `json:"type"`
	Position    int64     `json:"position"`
	Magnitudes  []float64 `json:"magnitudes"`
	Frequencies []float64 `json:"frequencies"`
}

// SimilarityEvent carries a completed feature sequence and its
// self-similarity matrix in triangular row-major order.
type SimilarityEvent struct {
	Type     string      `json:"type"`
	Source   string      `json:"source"`
	Rows     int         `json:"rows"`
	Cols     int         `json:"cols"`
	Features [][]float64 `json:"features"`
	Values   []float64   `json:"values"`
}
