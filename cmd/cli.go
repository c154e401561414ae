// SPDX-License-Identifier: MIT
//
// Package cmd wires configuration, devices and analysis stages into the
// audiosim command line.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"audiosim/internal/config"
	applog "audiosim/internal/log"
	"audiosim/pkg/build"
)

// options collects the global flags and the configuration they resolve to.
type options struct {
	configPath   string
	verbose      bool
	inputDevice  int
	outputDevice int

	cfg *config.Config
}

// Execute builds the command tree and runs it with args. Session commands
// stop when ctx is cancelled.
func Execute(ctx context.Context, args []string) error {
	buildInfo := build.GetBuildFlags()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Configuration
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Path to a YAML configuration file (default: ./config.yaml or ./audiosim.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output and log every published event")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&opts.inputDevice, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVar(&opts.outputDevice, "output-device", config.DefaultDeviceID,
		"Specify output device ID used for playback.")

	rootCmd.AddCommand(
		newListCmd(),
		newRecordCmd(opts),
		newPlayCmd(opts),
		newSpectrumCmd(opts),
		newSimilarityCmd(opts),
	)

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// load reads the configuration and applies the flags that were set
// explicitly, which win over the file and the environment.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Audio.InputDevice = o.inputDevice
	}
	if flags.Changed("output-device") {
		cfg.Audio.OutputDevice = o.outputDevice
	}
	if o.verbose {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)
	applog.Debugf("CLI: configuration loaded (%s)", describeSource(o.configPath))

	o.cfg = cfg
	return nil
}

func describeSource(path string) string {
	if path == "" {
		return "default locations"
	}
	return fmt.Sprintf("file %s", path)
}
