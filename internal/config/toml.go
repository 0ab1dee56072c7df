// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Report    ReportConfig    `toml:"report"`
	Histogram HistogramConfig `toml:"histogram"`
	Chart     ChartConfig     `toml:"chart"`
	Control   ControlConfig   `toml:"control"`
}

// ReportConfig maps report content settings.
type ReportConfig struct {
	Title    *string `toml:"title"`
	LongTerm *bool   `toml:"long-term"`
}

// HistogramConfig maps histogram settings.
type HistogramConfig struct {
	Bins *int `toml:"bins"`
}

// ChartConfig maps figure sizes.
type ChartConfig struct {
	Width     *int `toml:"width"`
	Height    *int `toml:"height"`
	PNGWidth  *int `toml:"png-width"`
	PNGHeight *int `toml:"png-height"`
}

// ControlConfig maps control chart settings.
type ControlConfig struct {
	Sigma *float64 `toml:"sigma"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if err := cfg.validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func (c FileConfig) validate() error {
	if c.Histogram.Bins != nil && *c.Histogram.Bins <= 0 {
		return fmt.Errorf("histogram.bins must be positive, got %d", *c.Histogram.Bins)
	}
	if c.Control.Sigma != nil && *c.Control.Sigma <= 0 {
		return fmt.Errorf("control.sigma must be positive, got %v", *c.Control.Sigma)
	}
	for name, v := range map[string]*int{
		"chart.width":      c.Chart.Width,
		"chart.height":     c.Chart.Height,
		"chart.png-width":  c.Chart.PNGWidth,
		"chart.png-height": c.Chart.PNGHeight,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, *v)
		}
	}
	return nil
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg FileConfig) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
