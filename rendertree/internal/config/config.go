// Package config handles treescope configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level treescope configuration.
type Config struct {
	Page     PageConfig     `yaml:"page"`
	Debounce DebounceConfig `yaml:"debounce"`
	History  HistoryConfig  `yaml:"history"`
	Preview  PreviewConfig  `yaml:"preview"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// PageConfig defines the application page to attach to.
type PageConfig struct {
	URL            string        `yaml:"url"`
	Remote         string        `yaml:"remote"` // ws:// URL of an external Chrome; empty = launch locally
	Hook           string        `yaml:"hook"`   // devtools hook global exposed by the app
	CaptureTimeout time.Duration `yaml:"capture_timeout"`
}

// DebounceConfig controls snapshot scheduling after render cycles.
type DebounceConfig struct {
	Window time.Duration `yaml:"window"`
}

// HistoryConfig enables the capture log when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// PreviewConfig controls bounds previews.
type PreviewConfig struct {
	Markdown bool `yaml:"markdown"`
	MaxBytes int  `yaml:"max_bytes"`
}

// HTTPConfig enables the debug HTTP surface when Addr is set.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Page.Hook == "" {
		c.Page.Hook = "__TREESCOPE_HOOK__"
	}
	if c.Page.CaptureTimeout <= 0 {
		c.Page.CaptureTimeout = 10 * time.Second
	}
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = 250 * time.Millisecond
	}
	if c.Preview.MaxBytes <= 0 {
		c.Preview.MaxBytes = 4096
	}
}
