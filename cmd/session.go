// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"audiosim/internal/audio"
	applog "audiosim/internal/log"
	"audiosim/internal/mfcc"
	"audiosim/internal/pcm"
	"audiosim/internal/similarity"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPortAudio(audio.ListDevices)
		},
	}
}

func newRecordCmd(opts *options) *cobra.Command {
	var (
		output string
		play   bool
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture a buffer from the input device and save it as WAV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(env *runtimeEnv, eng *audio.Engine) error {
				return runRecord(cmd.Context(), opts, eng, output, play)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Output file name. Default is <output_dir>/recording-DD-MM-YYYY-HHMMSS.wav")
	cmd.Flags().BoolVarP(&play, "play", "p", false,
		"Play the captured buffer back once recording stops")
	return cmd
}

func newPlayCmd(opts *options) *cobra.Command {
	var analyse bool
	cmd := &cobra.Command{
		Use:   "play <file.wav>",
		Short: "Play a WAV file while publishing levels and spectra",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(env *runtimeEnv, eng *audio.Engine) error {
				return runPlay(cmd.Context(), opts, env, eng, args[0], analyse)
			})
		},
	}
	cmd.Flags().BoolVar(&analyse, "similarity", false,
		"Run the MFCC self-similarity job on the file while it plays")
	return cmd
}

// withPortAudio brackets fn with PortAudio initialisation.
func withPortAudio(fn func() error) (err error) {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer func() {
		if terr := audio.Terminate(); terr != nil && err == nil {
			err = terr
		}
	}()
	return fn()
}

// withSession builds the runtime and an engine on the configured devices.
func withSession(opts *options, fn func(*runtimeEnv, *audio.Engine) error) error {
	return withPortAudio(func() error {
		cfg := opts.cfg
		env, err := newRuntime(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := env.Close(); err != nil {
				applog.Warnf("CLI: closing transports: %v", err)
			}
		}()

		dev, err := audio.NewPortAudioDevice(audio.PortAudioConfig{
			InputDeviceID:   cfg.Audio.InputDevice,
			OutputDeviceID:  cfg.Audio.OutputDevice,
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			LowLatency:      cfg.Audio.LowLatency,
		})
		if err != nil {
			return err
		}

		eng := audio.New(dev, audio.Options{
			BufferDuration: cfg.Session.BufferDuration,
			LevelWindow:    cfg.Session.LevelWindow,
			NotifyInterval: cfg.Session.NotifyInterval,
			Transport:      env.sink,
			Metrics:        env.metrics,
		})
		defer eng.Reset()
		return fn(env, eng)
	})
}

// runSession drives the engine until the session ends. Cancellation is a
// normal way to end a session.
func runSession(ctx context.Context, eng *audio.Engine) error {
	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runRecord(ctx context.Context, opts *options, eng *audio.Engine, output string, play bool) error {
	if output == "" {
		output = filepath.Join(opts.cfg.Session.OutputDir,
			"recording-"+time.Now().UTC().Format("02-01-2006-150405")+".wav")
	}
	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	if err := eng.StartRecording(); err != nil {
		return err
	}
	f := eng.Format()
	fmt.Print(summary("Recording",
		row("Format", "%s", f),
		row("Buffer", "%s (%d bytes)", opts.cfg.Session.BufferDuration, eng.BufferLength()),
		row("Stop", "Ctrl+C or when the buffer is full"),
	))

	if err := runSession(ctx, eng); err != nil {
		return err
	}
	captured := len(eng.Recorded())
	if err := eng.SaveRecording(output); err != nil {
		return err
	}
	fmt.Print(summary("Recording saved",
		row("File", "%s", output),
		row("Captured", "%d bytes (%s)", captured, time.Duration(pcm.Duration(f, int64(captured)))*time.Microsecond),
	))

	if !play || ctx.Err() != nil {
		return nil
	}
	if err := eng.StartPlaybackBuffer(); err != nil {
		return err
	}
	return runSession(ctx, eng)
}

type playbackStarter interface {
	StartPlayback(open audio.SourceOpener) error
}

// startPlayback opens path on eng and, only once the stream is running,
// submits the file to runner. A nil runner skips analysis.
func startPlayback(eng playbackStarter, path string, runner *similarity.Runner) error {
	if err := eng.StartPlayback(audio.OpenWAV(path)); err != nil {
		return err
	}
	if runner != nil {
		runner.Submit(filepath.Base(path), func() (io.ReadCloser, error) { return os.Open(path) })
	}
	return nil
}

func runPlay(ctx context.Context, opts *options, env *runtimeEnv, eng *audio.Engine, path string, analyse bool) error {
	var runner *similarity.Runner
	if analyse {
		ex, err := mfcc.New(opts.cfg.MFCC)
		if err != nil {
			return err
		}
		runner = similarity.NewRunner(ex,
			similarity.WithTransport(env.out),
			similarity.WithMetrics(env.metrics),
			similarity.WithBounds(opts.cfg.Similarity.Rows, opts.cfg.Similarity.Cols))
	}

	if err := startPlayback(eng, path, runner); err != nil {
		return err
	}
	f := eng.Format()
	fmt.Print(summary("Playing",
		row("File", "%s", path),
		row("Format", "%s", f),
	))

	if err := runSession(ctx, eng); err != nil {
		return err
	}

	if runner != nil {
		// The job is not cancellable; a failed job has already been logged.
		if err := runner.Wait(); err == nil {
			if res := runner.Latest(); res != nil {
				fmt.Print(similaritySummary(res))
			}
		}
	}
	return nil
}
