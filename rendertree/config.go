package rendertree

import (
	"github.com/hazyhaar/treescope/rendertree/internal/config"
)

// Config is the top-level treescope configuration. Re-exported from internal.
type Config = config.Config

// PageConfig defines the application page to attach to.
type PageConfig = config.PageConfig

// DebounceConfig controls snapshot scheduling after render cycles.
type DebounceConfig = config.DebounceConfig

// HistoryConfig enables the capture log when Path is set.
type HistoryConfig = config.HistoryConfig

// PreviewConfig controls bounds previews.
type PreviewConfig = config.PreviewConfig

// HTTPConfig enables the debug HTTP surface when Addr is set.
type HTTPConfig = config.HTTPConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return config.Default()
}
