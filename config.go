package qrcarve

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/swannyPeng/3DQR/qrgrid"
)

// Config holds the optimizer settings. Angles are in degrees.
type Config struct {
	// Lights
	LatitudeUpper float64 `json:"latitude_upper"`
	LatitudeLower float64 `json:"latitude_lower"`
	Longitude     float64 `json:"longitude"`
	Zoom          float64 `json:"zoom"`
	// Distance from the dark cell centroid to both lights before zoom is
	// applied. Zero places the lights 20 scene diagonals away.
	Distance  float64 `json:"distance"`
	HalfAngle float64 `json:"half_angle"`

	// QR layout. Pixels is the P×P module matrix: bit 0 marks a module dark
	// under the upper light, bit 1 under the lower light.
	Scale  int     `json:"scale"`
	Border int     `json:"border"`
	Pixels [][]int `json:"pixels"`
	// Cell is the side of a micro-cell of the generated base surface.
	Cell float64 `json:"cell"`

	// Optimizer
	MaxIterations int     `json:"max_iterations"`
	BrightnessGap float64 `json:"brightness_gap"`
	AOSamples     int     `json:"ao_samples"`
	Seed          int64   `json:"seed"`
	Workers       int     `json:"workers"`
	RampIsolated  *bool   `json:"ramp_isolated"`

	// Logger receives progress records. Nil discards them.
	Logger *slog.Logger `json:"-"`
}

// Defaults applied by Resolve.
const (
	DefaultMaxIterations = 64
	DefaultBrightnessGap = 0.2 * 255
	DefaultHalfAngle     = 5.0
	DefaultZoom          = 1.0
	DefaultCell          = 1.0
	DefaultSeed          = 1
)

// LoadConfig reads a JSON config file. Fields not set in the
// file keep their zero values until Resolve is called.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds command line values that override config file settings.
type Flags struct {
	MaxIterations int
	AOSamples     int
	Workers       int
	Seed          int64
}

// Resolve applies flag overrides and fills zero fields with defaults.
func (c *Config) Resolve(flags Flags) {
	if flags.MaxIterations > 0 {
		c.MaxIterations = flags.MaxIterations
	}
	if flags.AOSamples > 0 {
		c.AOSamples = flags.AOSamples
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Seed != 0 {
		c.Seed = flags.Seed
	}

	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.BrightnessGap <= 0 {
		c.BrightnessGap = DefaultBrightnessGap
	}
	if c.AOSamples <= 0 {
		c.AOSamples = 500
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.HalfAngle <= 0 {
		c.HalfAngle = DefaultHalfAngle
	}
	if c.Zoom <= 0 {
		c.Zoom = DefaultZoom
	}
	if c.Cell <= 0 {
		c.Cell = DefaultCell
	}
	if c.RampIsolated == nil {
		ramp := true
		c.RampIsolated = &ramp
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Layout returns the QR layout described by the config.
func (c *Config) Layout() qrgrid.Layout {
	return qrgrid.Layout{P: len(c.Pixels), Border: c.Border, Scale: c.Scale}
}

// Validate checks the config describes a usable run. Call after Resolve.
func (c *Config) Validate() error {
	if err := c.Layout().Validate(); err != nil {
		return inputErr("%v", err)
	}
	if c.LatitudeUpper <= 0 || c.LatitudeUpper > 90 || c.LatitudeLower <= 0 || c.LatitudeLower > 90 {
		return inputErr("latitudes must lie in (0, 90], got upper %g lower %g", c.LatitudeUpper, c.LatitudeLower)
	}
	if c.Distance < 0 {
		return inputErr("negative light distance %g", c.Distance)
	}
	return nil
}
