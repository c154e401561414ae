// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"audiosim/internal/analysis"
	"audiosim/internal/audio"
	"audiosim/internal/mfcc"
	"audiosim/internal/similarity"
	"audiosim/internal/transport"
)

// waveformWindow is how much of a file the spectrum command looks at.
const waveformWindow = 2 * time.Second

func newSpectrumCmd(opts *options) *cobra.Command {
	var offset int
	cmd := &cobra.Command{
		Use:   "spectrum <file.wav>",
		Short: "Print spectrum frames of the opening window of a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			single := cmd.Flags().Changed("offset")
			return runSpectrum(opts, args[0], offset, single)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0,
		"Analyse one slice starting at this sample instead of stepping through the window")
	return cmd
}

func newSimilarityCmd(opts *options) *cobra.Command {
	var mfccOut, matrixOut string
	cmd := &cobra.Command{
		Use:   "similarity <file.wav>",
		Short: "Extract MFCC features and build the self-similarity matrix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimilarity(opts, args[0], mfccOut, matrixOut)
		},
	}
	cmd.Flags().StringVar(&mfccOut, "mfcc-out", "", "Write the feature sequence as text to this file")
	cmd.Flags().StringVar(&matrixOut, "matrix-out", "", "Write the matrix triangle as text to this file")
	return cmd
}

func runSpectrum(opts *options, path string, offset int, single bool) error {
	env, err := newRuntime(opts.cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	f, levels, err := audio.ReadWAV(path)
	if err != nil {
		return err
	}
	if n := int(waveformWindow.Seconds()) * f.SampleRate * f.Channels; len(levels) > n {
		levels = levels[:n]
	}

	an, err := newAnalyzer(opts.cfg, float64(f.SampleRate))
	if err != nil {
		return err
	}

	var frames []analysis.Frame
	if single {
		fr, err := an.Analyze(levels, offset)
		if err != nil {
			return err
		}
		frames = []analysis.Frame{fr}
	} else {
		frames, err = an.Sequence(levels, opts.cfg.Spectrum.Step)
		if err != nil {
			return err
		}
	}

	rows := [][2]string{
		row("File", "%s", path),
		row("Format", "%s", f),
		row("Bins", "%d x %.1f Hz", an.Bins(), an.Frequency(1)),
	}
	for _, fr := range frames {
		bin := peak(fr.Magnitudes)
		at := time.Duration(fr.Offset) * time.Second / time.Duration(f.SampleRate*f.Channels)
		rows = append(rows, row(fmt.Sprintf("@ %s", at.Round(time.Millisecond)),
			"peak %.1f Hz (%.3f)", fr.Frequencies[bin], fr.Magnitudes[bin]))

		if err := env.out.Send(transport.SpectrumEvent{
			Type:        transport.TypeSpectrum,
			Position:    2 * int64(fr.Offset),
			Magnitudes:  fr.Magnitudes,
			Frequencies: fr.Frequencies,
		}); err != nil {
			return err
		}
		env.metrics.SpectrumFrame()
	}
	fmt.Print(summary("Spectrum", rows...))
	return nil
}

// peak is the index of the largest magnitude, skipping the DC bin when
// there is anything else.
func peak(mags []float64) int {
	best := 0
	if len(mags) > 1 {
		best = 1
	}
	for i := best; i < len(mags); i++ {
		if mags[i] > mags[best] {
			best = i
		}
	}
	return best
}

func runSimilarity(opts *options, path, mfccOut, matrixOut string) error {
	env, err := newRuntime(opts.cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	ex, err := mfcc.New(opts.cfg.MFCC)
	if err != nil {
		return err
	}
	runner := similarity.NewRunner(ex,
		similarity.WithTransport(env.out),
		similarity.WithMetrics(env.metrics),
		similarity.WithBounds(opts.cfg.Similarity.Rows, opts.cfg.Similarity.Cols))

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	res, err := runner.Run(filepath.Base(path), file)
	if err != nil {
		return err
	}

	if mfccOut != "" {
		if err := writeFile(mfccOut, res.Features.WriteText); err != nil {
			return err
		}
	}
	if matrixOut != "" {
		if err := writeFile(matrixOut, res.Matrix.WriteText); err != nil {
			return err
		}
	}
	fmt.Print(similaritySummary(res))
	return nil
}

func similaritySummary(res *similarity.Result) string {
	return summary("Self-similarity",
		row("Source", "%s", res.Source),
		row("Vectors", "%d", len(res.Features)),
		row("Matrix", "%d x %d (%d values)", res.Matrix.Rows(), res.Matrix.Cols(), res.Matrix.Len()),
		row("Elapsed", "%s", res.Elapsed.Round(time.Millisecond)),
	)
}

func writeFile(path string, write func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return write(f)
}
