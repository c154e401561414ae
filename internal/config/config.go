// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"audiosim/internal/mfcc"
)

// Core configuration constants that define the boundaries and defaults
// for the session engine and the analysis pipelines.
const (
	// Audio device defaults.
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false       // Standard latency mode

	// Session defaults.
	DefaultBufferDuration = 5 * time.Second        // Capture buffer length
	DefaultLevelWindow    = 100 * time.Millisecond // Level analysis window
	DefaultNotifyInterval = 10 * time.Millisecond  // Device tick interval
	DefaultOutputDir      = "./recordings"

	// Spectrum defaults.
	DefaultSpectrumSize   = 1764 // Samples per transform
	DefaultSpectrumStep   = 2205 // Samples between Sequence frames
	DefaultSpectrumOffset = 0    // Slice offset inside a level window
	DefaultSpectrumWindow = ""   // Rectangular
	DefaultSpectrumScale  = 0.15 // Log compression factor

	// Similarity defaults.
	DefaultSimilarityRows = 350
	DefaultSimilarityCols = 500

	// Transport defaults.
	DefaultWebSocketAddr   = ":8080"
	DefaultUDPTarget       = "127.0.0.1:9090"
	DefaultUDPSendInterval = 33 * time.Millisecond // ~30Hz

	DefaultLogLevel = "info"

	// Hardware and processing limits.
	MinDeviceID     = -1     // -1 represents system default device
	MaxBufferFrames = 8192   // Maximum frames per buffer
	MaxBufferLength = 60 * time.Second
)

// Config represents the main application configuration, loaded from YAML.
type Config struct {
	Debug      bool             `yaml:"debug"`     // Enable debug logging.
	LogLevel   string           `yaml:"log_level"` // "debug", "info", "warn", "error".
	Audio      AudioConfig      `yaml:"audio"`
	Session    SessionConfig    `yaml:"session"`
	Spectrum   SpectrumConfig   `yaml:"spectrum"`
	MFCC       mfcc.Config      `yaml:"mfcc"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Transport  TransportConfig  `yaml:"transport"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// AudioConfig holds the PortAudio device settings.
type AudioConfig struct {
	InputDevice     int  `yaml:"input_device"`      // PortAudio device index for capture (-1 for default).
	OutputDevice    int  `yaml:"output_device"`     // PortAudio device index for playback (-1 for default).
	FramesPerBuffer int  `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	LowLatency      bool `yaml:"low_latency"`       // Request low latency settings from PortAudio.
}

// SessionConfig holds the capture/playback session settings.
type SessionConfig struct {
	BufferDuration time.Duration `yaml:"buffer_duration"` // Capture buffer length.
	LevelWindow    time.Duration `yaml:"level_window"`    // Trailing level window.
	NotifyInterval time.Duration `yaml:"notify_interval"` // Device notification interval.
	OutputDir      string        `yaml:"output_dir"`      // Where recordings are saved.
}

// SpectrumConfig holds the spectral analyzer settings.
type SpectrumConfig struct {
	Size   int     `yaml:"size"`   // Samples per transform, even.
	Step   int     `yaml:"step"`   // Hop for whole-file sequences.
	Offset int     `yaml:"offset"` // Slice offset within a live level window.
	Window string  `yaml:"window"` // Taper name, empty for none.
	Scale  float64 `yaml:"scale"`  // Magnitude compression factor.
}

// SimilarityConfig bounds the self-similarity matrix.
type SimilarityConfig struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// TransportConfig holds settings for publishing events and spectra.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve events over WebSocket.
	WebSocketAddr    string        `yaml:"websocket_addr"`     // Listen address for the WebSocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending spectrum packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
}

// MetricsConfig controls the Prometheus endpoint on the WebSocket server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// NewConfig returns a Config populated with the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
		},
		Session: SessionConfig{
			BufferDuration: DefaultBufferDuration,
			LevelWindow:    DefaultLevelWindow,
			NotifyInterval: DefaultNotifyInterval,
			OutputDir:      DefaultOutputDir,
		},
		Spectrum: SpectrumConfig{
			Size:   DefaultSpectrumSize,
			Step:   DefaultSpectrumStep,
			Offset: DefaultSpectrumOffset,
			Window: DefaultSpectrumWindow,
			Scale:  DefaultSpectrumScale,
		},
		MFCC: mfcc.DefaultConfig(),
		Similarity: SimilarityConfig{
			Rows: DefaultSimilarityRows,
			Cols: DefaultSimilarityCols,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    DefaultWebSocketAddr,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
