// SPDX-License-Identifier: MIT
package audio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audiosim/internal/pcm"
	"audiosim/internal/testutil"
)

func TestSaveRecording_RoundTrip(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.engine.SaveRecording(filepath.Join(t.TempDir(), "none.wav")), ErrNoRecording)

	in := h.startRecording(t)
	samples := testutil.GenerateSineWave(22050, 44100, 440, 0.5)
	data := testutil.PCMBytes(samples)
	in.feed(data)
	h.engine.OnDataAvailable(in.BytesReady())
	h.engine.Stop()

	path := filepath.Join(t.TempDir(), "take.wav")
	require.NoError(t, h.engine.SaveRecording(path))

	src, err := OpenWAV(path)()
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, pcm.DefaultFormat, src.Header().Format())
	assert.Equal(t, uint16(pcm.FormatTagPCM), src.Header().FormatTag)
	assert.Equal(t, int64(pcm.HeaderLength+len(data)), src.Size())

	got, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	f, levels, err := ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, pcm.DefaultFormat, f)
	assert.Equal(t, testutil.Levels(samples), levels)
}

func TestWriteWAV_Errors(t *testing.T) {
	dir := t.TempDir()
	err := WriteWAV(filepath.Join(dir, "a.wav"), pcm.Format{SampleRate: 8000, BitsPerSample: 8, Channels: 1}, []byte{1, 2})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	err = WriteWAV(filepath.Join(dir, "missing", "a.wav"), pcm.DefaultFormat, []byte{1, 2})
	assert.Error(t, err)
}

func TestOpenWAV_Errors(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.wav")
	require.NoError(t, os.WriteFile(short, []byte("RIFF"), 0o644))
	_, err := OpenWAV(short)()
	assert.ErrorIs(t, err, pcm.ErrShortHeader)

	junk := filepath.Join(dir, "junk.wav")
	require.NoError(t, os.WriteFile(junk, make([]byte, 100), 0o644))
	_, err = OpenWAV(junk)()
	assert.ErrorIs(t, err, pcm.ErrInvalidHeader)

	_, _, err = ReadWAV(junk)
	assert.ErrorIs(t, err, pcm.ErrInvalidHeader)

	_, err = OpenWAV(filepath.Join(dir, "missing.wav"))()
	assert.Error(t, err)
}

func TestSources_Seek(t *testing.T) {
	data := testutil.PCMBytes(testutil.GenerateSineWave(100, 44100, 440, 0.5))
	path := filepath.Join(t.TempDir(), "s.wav")
	require.NoError(t, os.WriteFile(path, testutil.WAV(pcm.DefaultFormat, data), 0o644))

	file, err := OpenWAV(path)()
	require.NoError(t, err)
	defer file.Close()
	mem := newMemorySource(pcm.DefaultFormat, data)

	for _, src := range []ByteSource{file, mem} {
		require.NoError(t, src.Seek(src.HeaderLength()+10))
		b := make([]byte, 4)
		_, err := io.ReadFull(src, b)
		require.NoError(t, err)
		assert.Equal(t, data[10:14], b)

		assert.Error(t, src.Seek(-1))
		assert.Error(t, src.Seek(src.Size()+1))
		assert.Equal(t, int64(len(data)), src.Size()-src.HeaderLength())
	}
}
