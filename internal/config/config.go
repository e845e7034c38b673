// SPDX-License-Identifier: MIT
//
// Package config loads forma's YAML configuration, applies ENV_* overrides and
// validates the result against the hardware and rendering limits below.
package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	applog "forma/internal/log"
	"forma/internal/visual"
	"forma/pkg/bitint"
)

var logger = applog.Named("Config")

// Defaults and limits.
const (
	DefaultDeviceID        = MinDeviceID // System default device.
	DefaultFallbackID      = MinDeviceID
	DefaultChannels        = 1 // Mono
	DefaultSampleRate      = 44100
	DefaultFramesPerBuffer = 2048 // Also the capacity weights are measured against.
	DefaultWindow          = "Hann"
	DefaultGateThreshold   = 0.001 // Fraction of full scale.
	DefaultFrameRate       = 60
	DefaultUDPAddress      = "127.0.0.1:9090"
	DefaultUDPInterval     = 33 * time.Millisecond
	DefaultWSAddress       = "127.0.0.1:8080"
	DefaultRingInterval    = 50 * time.Millisecond

	MinDeviceID     = -1 // -1 represents the system default device.
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
	MaxHistorySize  = 256
	MaxFrameRate    = 240
)

// configCandidates are searched when no path is given.
var configCandidates = []string{"config.yaml", "forma.yaml"}

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Forces debug logging.
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn" or "error".
	Audio     AudioConfig     `yaml:"audio"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
	Visual    VisualConfig    `yaml:"visual"`
}

// AudioConfig holds capture and analysis settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	FallbackDevice  int     `yaml:"fallback_device"`   // Used when the input device is busy (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Analysis window; must be a power of two.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency from PortAudio.
	InputChannels   int     `yaml:"input_channels"`    // Captured channels; analysis uses the first.
	FFTWindow       string  `yaml:"fft_window"`        // "Hann", "Hamming", "Blackman" or "Rectangular".
	GateThreshold   float64 `yaml:"gate_threshold"`    // Noise gate, fraction of full scale; 0 disables.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record the input stream to WAV.
	OutputDir string `yaml:"output_dir"` // Directory for recordings.
	BitDepth  int    `yaml:"bit_depth"`  // 16, 24 or 32.
}

// TransportConfig holds the network outputs.
type TransportConfig struct {
	UDPEnabled         bool          `yaml:"udp_enabled"`
	UDPTargetAddress   string        `yaml:"udp_target_address"`
	UDPSendInterval    time.Duration `yaml:"udp_send_interval"`
	WebSocketEnabled   bool          `yaml:"websocket_enabled"`
	WebSocketAddress   string        `yaml:"websocket_address"`
	RingEnergyInterval time.Duration `yaml:"ring_energy_interval"` // Minimum gap between ring summaries.
}

// VisualConfig holds the scene and trail settings.
type VisualConfig struct {
	Width             float64       `yaml:"width"`
	Height            float64       `yaml:"height"`
	FrameRate         int           `yaml:"frame_rate"`
	AnimationDuration time.Duration `yaml:"animation_duration"`
	HistorySize       int           `yaml:"history_size"`
	RingSpacing       float64       `yaml:"ring_spacing"`
	OctaveOrder       string        `yaml:"octave_order"` // "descending" or "ascending".
	CurveThreshold    float64       `yaml:"curve_threshold"`
	TUI               bool          `yaml:"tui"` // Draw the scene in the terminal.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			FallbackDevice:  DefaultFallbackID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultChannels,
			FFTWindow:       DefaultWindow,
			GateThreshold:   DefaultGateThreshold,
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
			BitDepth:  16,
		},
		Transport: TransportConfig{
			UDPTargetAddress:   DefaultUDPAddress,
			UDPSendInterval:    DefaultUDPInterval,
			WebSocketAddress:   DefaultWSAddress,
			RingEnergyInterval: DefaultRingInterval,
		},
		Visual: VisualConfig{
			Width:             visual.DefaultWidth,
			Height:            visual.DefaultHeight,
			FrameRate:         DefaultFrameRate,
			AnimationDuration: visual.DefaultAnimationDuration,
			HistorySize:       visual.DefaultHistorySize,
			RingSpacing:       visual.DefaultRingSpacing,
			OctaveOrder:       visual.Descending.String(),
			CurveThreshold:    visual.DefaultSharpThreshold,
			TUI:               true,
		},
	}
}

// LoadConfig loads configuration from the YAML file at path. With an empty path
// the default locations are searched, and the built-in defaults are used when none
// exists. ENV_* overrides are applied last, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range configCandidates {
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
		logger.Debugf("Loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every field against its limits and reports all violations.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	a := c.Audio
	check(a.InputDevice >= MinDeviceID, "audio.input_device must be >= %d", MinDeviceID)
	check(a.FallbackDevice >= MinDeviceID, "audio.fallback_device must be >= %d", MinDeviceID)
	check(a.SampleRate >= MinSampleRate && a.SampleRate <= MaxSampleRate,
		"audio.sample_rate %g outside %d..%d", a.SampleRate, MinSampleRate, MaxSampleRate)
	check(bitint.IsPowerOfTwo(a.FramesPerBuffer) && a.FramesPerBuffer >= 2 && a.FramesPerBuffer <= MaxBufferFrames,
		"audio.frames_per_buffer %d must be a power of two between 2 and %d", a.FramesPerBuffer, MaxBufferFrames)
	check(a.InputChannels >= 1, "audio.input_channels must be at least 1")
	check(a.GateThreshold >= 0 && a.GateThreshold < 1, "audio.gate_threshold %g outside [0, 1)", a.GateThreshold)

	r := c.Recording
	if r.Enabled {
		check(r.OutputDir != "", "recording.output_dir must be set when recording is enabled")
		check(r.BitDepth == 16 || r.BitDepth == 24 || r.BitDepth == 32, "recording.bit_depth %d must be 16, 24 or 32", r.BitDepth)
	}

	t := c.Transport
	if t.UDPEnabled {
		_, _, err := net.SplitHostPort(t.UDPTargetAddress)
		check(err == nil, "transport.udp_target_address %q: %v", t.UDPTargetAddress, err)
		check(t.UDPSendInterval > 0, "transport.udp_send_interval must be positive")
	}
	if t.WebSocketEnabled {
		_, _, err := net.SplitHostPort(t.WebSocketAddress)
		check(err == nil, "transport.websocket_address %q: %v", t.WebSocketAddress, err)
	}

	v := c.Visual
	check(v.Width >= 0 && v.Height >= 0 && !math.IsInf(v.Width, 0) && !math.IsInf(v.Height, 0),
		"visual.width and visual.height must be finite and non-negative")
	check(v.FrameRate >= 1 && v.FrameRate <= MaxFrameRate, "visual.frame_rate %d outside 1..%d", v.FrameRate, MaxFrameRate)
	check(v.AnimationDuration >= 0, "visual.animation_duration must not be negative")
	check(v.HistorySize >= 1 && v.HistorySize <= MaxHistorySize, "visual.history_size %d outside 1..%d", v.HistorySize, MaxHistorySize)
	check(v.RingSpacing >= 0, "visual.ring_spacing must not be negative")
	check(v.CurveThreshold > 0 && v.CurveThreshold <= 1, "visual.curve_threshold %g outside (0, 1]", v.CurveThreshold)
	if _, err := visual.ParseOctaveOrder(v.OctaveOrder); err != nil {
		errs = append(errs, fmt.Errorf("visual.octave_order: %w", err))
	}

	return errors.Join(errs...)
}

// Level returns the effective log level. Debug forces LevelDebug.
func (c *Config) Level() applog.LogLevel {
	if c.Debug {
		return applog.LevelDebug
	}
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}

// Animator returns the trail settings. The analysis window is the capacity.
func (c *Config) Animator() visual.AnimatorConfig {
	return visual.AnimatorConfig{
		HistorySize:    c.Visual.HistorySize,
		Duration:       c.Visual.AnimationDuration,
		Capacity:       c.Audio.FramesPerBuffer,
		SharpThreshold: c.Visual.CurveThreshold,
	}
}

// Layout returns the initial scene geometry.
func (c *Config) Layout() visual.Layout {
	l := visual.NewLayout(c.Visual.Width, c.Visual.Height)
	l.RingSpacing = c.Visual.RingSpacing
	l.Order, _ = visual.ParseOctaveOrder(c.Visual.OctaveOrder)
	return l
}

// FrameInterval is the render tick period.
func (c *Config) FrameInterval() time.Duration {
	if c.Visual.FrameRate <= 0 {
		return time.Second / DefaultFrameRate
	}
	return time.Second / time.Duration(c.Visual.FrameRate)
}

// applyEnvOverrides applies ENV_* variables on top of the file values. Values
// that fail to parse are logged and ignored.
func (c *Config) applyEnvOverrides() {
	boolVar := func(name string, dst *bool) {
		if val, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				logger.Warnf("Ignoring %s=%q: %v", name, val, err)
				return
			}
			*dst = b
			logger.Infof("Overriding from %s: %v", name, b)
		}
	}
	stringVar := func(name string, dst *string) {
		if val, ok := os.LookupEnv(name); ok {
			*dst = val
			logger.Infof("Overriding from %s: %s", name, val)
		}
	}
	durationVar := func(name string, dst *time.Duration) {
		if val, ok := os.LookupEnv(name); ok {
			d, err := time.ParseDuration(val)
			if err != nil {
				logger.Warnf("Ignoring %s=%q: %v", name, val, err)
				return
			}
			*dst = d
			logger.Infof("Overriding from %s: %s", name, d)
		}
	}
	intVar := func(name string, dst *int) {
		if val, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				logger.Warnf("Ignoring %s=%q: %v", name, val, err)
				return
			}
			*dst = n
			logger.Infof("Overriding from %s: %d", name, n)
		}
	}

	boolVar("ENV_DEBUG", &c.Debug)
	stringVar("ENV_LOG_LEVEL", &c.LogLevel)
	intVar("ENV_INPUT_DEVICE", &c.Audio.InputDevice)
	intVar("ENV_FALLBACK_DEVICE", &c.Audio.FallbackDevice)
	boolVar("ENV_UDP_ENABLED", &c.Transport.UDPEnabled)
	stringVar("ENV_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	durationVar("ENV_UDP_SEND_INTERVAL", &c.Transport.UDPSendInterval)
	boolVar("ENV_WS_ENABLED", &c.Transport.WebSocketEnabled)
	stringVar("ENV_WS_ADDRESS", &c.Transport.WebSocketAddress)
	boolVar("ENV_TUI", &c.Visual.TUI)
}
