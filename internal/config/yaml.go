// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "audiosim/internal/log"
)

var ErrInvalid = errors.New("invalid configuration")

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{"config.yaml", "audiosim.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment overrides win over the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section and reports the first problem found.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}

	if c.Audio.InputDevice < MinDeviceID || c.Audio.OutputDevice < MinDeviceID {
		return fmt.Errorf("%w: device ids must be >= %d", ErrInvalid, MinDeviceID)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("%w: audio.frames_per_buffer must be in (0, %d]", ErrInvalid, MaxBufferFrames)
	}

	s := c.Session
	if s.BufferDuration <= 0 || s.BufferDuration > MaxBufferLength {
		return fmt.Errorf("%w: session.buffer_duration must be in (0, %s]", ErrInvalid, MaxBufferLength)
	}
	if s.LevelWindow <= 0 || s.LevelWindow > s.BufferDuration {
		return fmt.Errorf("%w: session.level_window must be positive and no longer than the buffer", ErrInvalid)
	}
	if s.NotifyInterval <= 0 {
		return fmt.Errorf("%w: session.notify_interval must be positive", ErrInvalid)
	}

	sp := c.Spectrum
	if sp.Size < 2 || sp.Size%2 != 0 {
		return fmt.Errorf("%w: spectrum.size must be even and at least 2", ErrInvalid)
	}
	if sp.Step <= 0 || sp.Offset < 0 || sp.Scale <= 0 {
		return fmt.Errorf("%w: spectrum.step and spectrum.scale must be positive, spectrum.offset non-negative", ErrInvalid)
	}

	if err := c.MFCC.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if c.Similarity.Rows <= 0 || c.Similarity.Cols <= 0 || c.Similarity.Rows > c.Similarity.Cols {
		return fmt.Errorf("%w: similarity needs 0 < rows <= cols", ErrInvalid)
	}

	t := c.Transport
	if t.WebSocketEnabled && t.WebSocketAddr == "" {
		return fmt.Errorf("%w: transport.websocket_addr must be set when WebSocket is enabled", ErrInvalid)
	}
	if t.UDPEnabled {
		if !strings.Contains(t.UDPTargetAddress, ":") {
			return fmt.Errorf("%w: transport.udp_target_address %q appears invalid (missing port?)", ErrInvalid, t.UDPTargetAddress)
		}
		if t.UDPSendInterval <= 0 {
			return fmt.Errorf("%w: transport.udp_send_interval must be positive when UDP is enabled", ErrInvalid)
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path must start with /", ErrInvalid)
	}
	return nil
}

// applyEnvOverrides reads ENV_* variables. Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Debugf("configuration: overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Debugf("configuration: overriding log_level from env: %s", val)
	}

	// ENV_INPUT_DEVICE / ENV_OUTPUT_DEVICE
	if val, ok := os.LookupEnv("ENV_INPUT_DEVICE"); ok {
		if id, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = id
			applog.Debugf("configuration: overriding audio.input_device from env: %d", id)
		}
	}
	if val, ok := os.LookupEnv("ENV_OUTPUT_DEVICE"); ok {
		if id, err := strconv.Atoi(val); err == nil {
			c.Audio.OutputDevice = id
			applog.Debugf("configuration: overriding audio.output_device from env: %d", id)
		}
	}

	// ENV_OUTPUT_DIR
	if val, ok := os.LookupEnv("ENV_OUTPUT_DIR"); ok {
		c.Session.OutputDir = val
		applog.Debugf("configuration: overriding session.output_dir from env: %s", val)
	}

	// ENV_WS_{...}
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = bVal
			applog.Debugf("configuration: overriding transport.websocket_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok {
		c.Transport.WebSocketAddr = val
		applog.Debugf("configuration: overriding transport.websocket_addr from env: %s", val)
	}

	// ENV_UDP_{...}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			applog.Debugf("configuration: overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Debugf("configuration: overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			applog.Debugf("configuration: overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
