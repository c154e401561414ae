// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"io"
	"net/http"

	"audiosim/internal/analysis"
	"audiosim/internal/config"
	applog "audiosim/internal/log"
	"audiosim/internal/metrics"
	"audiosim/internal/pcm"
	"audiosim/internal/transport"
	"audiosim/internal/transport/udp"
)

// runtimeEnv holds the collaborators shared by every session command: the
// metrics registry, the outbound transports and the live spectrum stage.
type runtimeEnv struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	analyzer *analysis.Analyzer
	spectrum *analysis.SpectrumProcessor

	// out receives session events and spectrum frames; sink is out plus the
	// spectrum processor and is what the engine publishes to.
	out  *transport.Multi
	sink *transport.Multi

	closers []io.Closer
}

func newRuntime(cfg *config.Config) (*runtimeEnv, error) {
	env := &runtimeEnv{cfg: cfg, out: transport.NewMulti()}
	if cfg.Metrics.Enabled {
		env.metrics = metrics.New()
	}

	if cfg.Debug {
		env.out.Add(transport.NewLoggingTransport())
	}
	if cfg.Transport.WebSocketEnabled {
		routes := map[string]http.Handler{}
		if env.metrics != nil {
			routes[cfg.Metrics.Path] = env.metrics.Handler()
		}
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr, routes)
		env.out.Add(ws)
		applog.Infof("Runtime: serving events on ws://%s%s", cfg.Transport.WebSocketAddr, transport.WebSocketPath)
	}

	an, err := newAnalyzer(cfg, float64(pcm.DefaultFormat.SampleRate))
	if err != nil {
		env.Close()
		return nil, err
	}
	env.analyzer = an
	env.spectrum, err = analysis.NewSpectrumProcessor(an, cfg.Spectrum.Offset, env.out, env.metrics)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.sink = transport.NewMulti(env.out, env.spectrum)

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			env.Close()
			return nil, err
		}
		pub, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, env.spectrum)
		if err != nil {
			sender.Close()
			env.Close()
			return nil, err
		}
		pub.Start()
		// Stop the publisher before closing the socket it writes to.
		env.closers = append(env.closers, pub, sender)
	}
	return env, nil
}

// newAnalyzer builds a spectral analyzer from the spectrum section.
func newAnalyzer(cfg *config.Config, sampleRate float64) (*analysis.Analyzer, error) {
	win, err := analysis.ParseWindowFunc(cfg.Spectrum.Window)
	if err != nil {
		return nil, err
	}
	return analysis.NewAnalyzer(cfg.Spectrum.Size, sampleRate,
		analysis.WithWindow(win),
		analysis.WithScale(cfg.Spectrum.Scale))
}

// Close stops the UDP publisher and shuts down every transport.
func (env *runtimeEnv) Close() error {
	var errs []error
	for _, c := range env.closers {
		errs = append(errs, c.Close())
	}
	env.closers = nil
	errs = append(errs, env.out.Close())
	return errors.Join(errs...)
}
