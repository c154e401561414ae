// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audiosim/internal/pcm"
	"audiosim/internal/testutil"
	"audiosim/internal/transport"
)

// writeTestWAV writes one second of a 440 Hz tone and returns its path and
// sample data.
func writeTestWAV(t *testing.T, f pcm.Format) (string, []byte) {
	t.Helper()
	data := testutil.PCMBytes(testutil.GenerateSineWave(f.SampleRate*f.Channels, float64(f.SampleRate), 440, 0.5))
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, os.WriteFile(path, testutil.WAV(f, data), 0o644))
	return path, data
}

func (h *harness) startPlayback(t *testing.T, open SourceOpener) *fakeOutput {
	t.Helper()
	require.NoError(t, h.engine.StartPlayback(open))
	require.NotEmpty(t, h.dev.outputs)
	return h.dev.outputs[len(h.dev.outputs)-1]
}

func TestStartPlayback(t *testing.T) {
	h := newHarness(t)
	path, data := writeTestWAV(t, pcm.DefaultFormat)
	out := h.startPlayback(t, OpenWAV(path))

	assert.Equal(t, StatePlaying, h.engine.State())
	assert.Equal(t, ModePlayback, h.engine.Mode())
	assert.Equal(t, pcm.DefaultFormat, h.engine.Format())
	assert.Equal(t, []transport.StateEvent{{Type: transport.TypeState, Mode: "playback", State: "playing"}}, stateEvents(h.out))

	// The device reads sample data only.
	played, err := io.ReadAll(out.src)
	require.NoError(t, err)
	assert.Equal(t, data, played)
}

func TestPlayback_Rebuffer(t *testing.T) {
	h := newHarness(t)
	path, data := writeTestWAV(t, pcm.DefaultFormat)
	h.startPlayback(t, OpenWAV(path))

	// 50 ms: still inside the first level window.
	h.engine.OnTick(50_000)
	assert.Equal(t, int64(4400), h.engine.PlayPosition())
	buf, _ := h.engine.Buffer()
	assert.Empty(t, buf)
	assert.Empty(t, testutil.EventsOf[transport.LevelsEvent](h.out))

	// 200 ms: play position 17632, window starts at 8816.
	h.engine.OnTick(200_000)
	assert.Equal(t, int64(17632), h.engine.PlayPosition())
	buf, pos := h.engine.Buffer()
	assert.Equal(t, int64(levelBytes), pos)
	assert.Equal(t, data[levelBytes:17632], buf)

	levels := testutil.EventsOf[transport.LevelsEvent](h.out)
	require.Len(t, levels, 1)
	assert.Equal(t, int64(levelBytes), levels[0].Position)
	assert.Equal(t, pcm.Levels(data, levelBytes, levelBytes), levels[0].Levels)

	buffers := testutil.EventsOf[transport.BufferEvent](h.out)
	require.NotEmpty(t, buffers)
	assert.Equal(t, transport.BufferEvent{Type: transport.TypeBuffer, Position: levelBytes, Length: levelBytes}, buffers[len(buffers)-1])
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.Rebuffers))
	assert.Equal(t, StatePlaying, h.engine.State())
}

func TestPlayback_StopsAtEnd(t *testing.T) {
	h := newHarness(t)
	path, data := writeTestWAV(t, pcm.DefaultFormat)
	out := h.startPlayback(t, OpenWAV(path))

	h.engine.OnTick(500_000)
	require.Equal(t, StatePlaying, h.engine.State())

	h.engine.OnTick(1_001_000)
	assert.Equal(t, StateIdle, h.engine.State())
	assert.True(t, out.Stopped())
	assert.Equal(t, int64(len(data)), h.engine.PlayPosition())

	buf, pos := h.engine.Buffer()
	assert.Equal(t, int64(len(data)), pos+int64(len(buf)))
	assert.Equal(t, data[pos:], buf)
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.SessionsStopped.WithLabelValues("playback", "end")))
}

func TestPlayback_SeekFailureKeepsBuffer(t *testing.T) {
	h := newHarness(t)
	path, data := writeTestWAV(t, pcm.DefaultFormat)

	opens := 0
	open := func() (ByteSource, error) {
		src, err := OpenWAV(path)()
		if err != nil {
			return nil, err
		}
		opens++
		if opens == 2 {
			return &seekFailSource{ByteSource: src, failAfter: 1}, nil
		}
		return src, nil
	}
	h.startPlayback(t, open)

	h.engine.OnTick(200_000)
	h.engine.OnTick(300_000)

	assert.Equal(t, StatePlaying, h.engine.State())
	buf, pos := h.engine.Buffer()
	assert.Equal(t, int64(levelBytes), pos)
	assert.Equal(t, data[levelBytes:17632], buf)

	levels := testutil.EventsOf[transport.LevelsEvent](h.out)
	require.Len(t, levels, 2)
	assert.Equal(t, levels[0], levels[1], "stale window is reported again")
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.RebufferFailures))
}

func TestPlayback_UnsupportedFormat(t *testing.T) {
	h := newHarness(t)
	in := h.startRecording(t)
	before := len(h.out.Events())

	path, _ := writeTestWAV(t, pcm.Format{SampleRate: 22050, BitsPerSample: 16, Channels: 1, Signed: true, LittleEndian: true})
	err := h.engine.StartPlayback(OpenWAV(path))

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, StateRecording, h.engine.State())
	assert.False(t, in.Stopped())
	assert.Empty(t, h.dev.outputs)
	assert.Len(t, h.out.Events(), before)
}

func TestPlayback_SupportedFormat(t *testing.T) {
	h := newHarness(t)
	f := pcm.Format{SampleRate: 22050, BitsPerSample: 16, Channels: 1, Signed: true, LittleEndian: true}
	h.dev.supported = func(got pcm.Format) bool { return got == f }

	path, data := writeTestWAV(t, f)
	h.startPlayback(t, OpenWAV(path))
	assert.Equal(t, f, h.engine.Format())

	// 200 ms at 22.05 kHz: play 8816, window 4400.
	h.engine.OnTick(200_000)
	buf, pos := h.engine.Buffer()
	assert.Equal(t, int64(8816-4400), pos)
	assert.Equal(t, data[pos:8816], buf)
}

func TestPlayback_NonPCMFallsBack(t *testing.T) {
	h := newHarness(t)
	path, _ := writeTestWAV(t, pcm.Format{SampleRate: 8000, BitsPerSample: 8, Channels: 1, LittleEndian: true})
	h.startPlayback(t, OpenWAV(path))

	assert.Equal(t, pcm.DefaultFormat, h.engine.Format())
	assert.Equal(t, []pcm.Format{pcm.DefaultFormat}, h.dev.formats)
}

func TestPlayback_OpenErrors(t *testing.T) {
	h := newHarness(t)

	err := h.engine.StartPlayback(OpenWAV(filepath.Join(t.TempDir(), "missing.wav")))
	assert.Error(t, err)

	path, _ := writeTestWAV(t, pcm.DefaultFormat)
	h.dev.openErr = errors.New("no device")
	err = h.engine.StartPlayback(OpenWAV(path))
	assert.ErrorIs(t, err, ErrDeviceOpen)
	assert.Equal(t, StateIdle, h.engine.State())
	assert.Empty(t, h.out.Events())
}

func TestPlayback_RecordedBuffer(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.engine.StartPlaybackBuffer(), ErrNoRecording)

	in := h.startRecording(t)
	data := testutil.PCMBytes(testutil.GenerateSineWave(fullBuffer/2, 44100, 440, 0.5))
	in.feed(data)
	h.engine.OnDataAvailable(in.BytesReady())
	require.Equal(t, StateIdle, h.engine.State())

	require.NoError(t, h.engine.StartPlaybackBuffer())
	assert.Equal(t, StatePlaying, h.engine.State())
	assert.Equal(t, []pcm.Format{pcm.DefaultFormat, pcm.DefaultFormat}, h.dev.formats)

	h.engine.OnTick(200_000)
	buf, pos := h.engine.Buffer()
	assert.Equal(t, int64(levelBytes), pos)
	assert.Equal(t, data[levelBytes:17632], buf)

	h.engine.OnTick(5_001_000)
	assert.Equal(t, StateIdle, h.engine.State())
	assert.Len(t, h.engine.Recorded(), fullBuffer, "playback leaves the recording intact")
}

func TestPlayback_RunDrained(t *testing.T) {
	h := newHarness(t)
	path, _ := writeTestWAV(t, pcm.DefaultFormat)
	out := h.startPlayback(t, OpenWAV(path))

	errc := make(chan error, 1)
	go func() { errc <- h.engine.Run(context.Background()) }()

	out.tick(200_000)
	out.finish(1_000_000)

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the stream drained")
	}
	assert.Equal(t, StateIdle, h.engine.State())
	assert.True(t, out.Stopped())
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.SessionsStopped.WithLabelValues("playback", "drained")))
}

func TestRecordingStopsPlayback(t *testing.T) {
	h := newHarness(t)
	path, _ := writeTestWAV(t, pcm.DefaultFormat)
	out := h.startPlayback(t, OpenWAV(path))

	h.startRecording(t)
	assert.True(t, out.Stopped())
	assert.Equal(t, StateRecording, h.engine.State())
	assert.Zero(t, h.engine.RecordPosition())
}
