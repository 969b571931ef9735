// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package config loads the vstream configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/gviegas/vstream/driver/soft"
	"github.com/gviegas/vstream/internal/logx"
	"github.com/gviegas/vstream/render"
)

// ErrConfig means that the configuration is invalid.
var ErrConfig = errors.New("config: invalid configuration")

// Config is the configuration of the vstream binary.
type Config struct {
	Render  Render  `toml:"render"`
	Driver  Driver  `toml:"driver"`
	Log     Log     `toml:"log"`
	Metrics Metrics `toml:"metrics"`
}

// Render configures the renderer and the frame loop.
type Render struct {
	Slots        int   `toml:"slots"`
	RegionStride int   `toml:"region_stride"`
	BufferSize   int64 `toml:"buffer_size"`
	Backbuffers  int   `toml:"backbuffers"`
	Width        int   `toml:"width"`
	Height       int   `toml:"height"`
	SkipEvery    int   `toml:"skip_every"`
	// Frames per second.
	TickRate int `toml:"tick_rate"`
}

// Driver configures the GPU driver.
// Workers, LatencyMS, JitterMS and FailEvery only apply
// to the soft driver.
type Driver struct {
	// Case-insensitive substring of the driver name.
	// The empty string selects any driver.
	Name      string `toml:"name"`
	Workers   int    `toml:"workers"`
	LatencyMS int    `toml:"latency_ms"`
	JitterMS  int    `toml:"jitter_ms"`
	FailEvery int    `toml:"fail_every"`
}

// Log configures logging.
type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Metrics configures the metrics endpoint.
type Metrics struct {
	// Listen address of the /metrics server.
	// The empty string disables the server.
	Addr string `toml:"addr"`
}

// Default returns the default configuration.
func Default() Config {
	rc := render.DefaultConfig()
	return Config{
		Render: Render{
			Slots:        rc.Slots,
			RegionStride: rc.RegionStride,
			BufferSize:   rc.BufferSize,
			Width:        rc.Width,
			Height:       rc.Height,
			TickRate:     60,
		},
		Driver: Driver{
			Name:      "soft",
			Workers:   1,
			LatencyMS: 2,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the configuration file at path.
// Settings missing from the file keep their default
// values.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a TOML configuration from r.
// Unknown keys are an error.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("%w: line %d, column %d: %s", ErrConfig, row, col, derr.Error())
		}
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg to w as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks the settings that are not checked
// by the components they configure.
func (c *Config) Validate() error {
	var errs []error
	if c.Render.TickRate < 1 {
		errs = append(errs, fmt.Errorf("%w: tick rate %d < 1", ErrConfig, c.Render.TickRate))
	}
	if c.Driver.Workers < 0 || c.Driver.LatencyMS < 0 || c.Driver.JitterMS < 0 || c.Driver.FailEvery < 0 {
		errs = append(errs, fmt.Errorf("%w: negative driver setting", ErrConfig))
	}
	if _, err := logx.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrConfig, err))
	}
	return errors.Join(errs...)
}

// RenderConfig returns the renderer configuration.
func (c *Config) RenderConfig() render.Config {
	rc := render.DefaultConfig()
	rc.Slots = c.Render.Slots
	rc.RegionStride = c.Render.RegionStride
	rc.BufferSize = c.Render.BufferSize
	rc.Backbuffers = c.Render.Backbuffers
	rc.Width = c.Render.Width
	rc.Height = c.Render.Height
	rc.SkipEvery = c.Render.SkipEvery
	return rc
}

// SoftOptions returns the soft driver options.
func (c *Config) SoftOptions(log *zap.Logger) soft.Options {
	return soft.Options{
		Workers:   c.Driver.Workers,
		Latency:   time.Duration(c.Driver.LatencyMS) * time.Millisecond,
		Jitter:    time.Duration(c.Driver.JitterMS) * time.Millisecond,
		FailEvery: c.Driver.FailEvery,
		Logger:    log,
	}
}

// LogConfig returns the logger configuration.
func (c *Config) LogConfig() logx.Config {
	return logx.Config{Level: c.Log.Level, Development: c.Log.Development}
}

// TickInterval returns the time between frames.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Render.TickRate)
}
