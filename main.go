// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"audiosim/cmd"
	applog "audiosim/internal/log"
	"audiosim/pkg/build"
)

// main runs one command. Session commands (record, play) end on their own
// when the source is exhausted or the buffer fills, or early on SIGINT or
// SIGTERM, in which case a partial recording is still saved.
func main() {
	// Build information is optional in development builds.
	if err := build.Initialize(); err != nil {
		applog.Debugf("build: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		applog.Errorf("%v", err)
		stop()
		os.Exit(1)
	}
}
