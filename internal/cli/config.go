package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Config is the workspace file, kh.yaml, looked up in the working directory.
// Everything in it is optional; command-line flags override it field by
// field.
type Config struct {
	// SearchPath lists directories scanned for .kh files before the script.
	SearchPath []string `yaml:"search_path"`

	// SigCache is where the scanned signature table is persisted between
	// runs. Empty disables the cache.
	SigCache string `yaml:"sig_cache"`

	// Profile enables profiling for run: "cpu" or "mem".
	Profile string `yaml:"profile"`
}

const configFile = "kh.yaml"

// loadConfig reads kh.yaml from dir. A missing file is an empty config, not
// an error.
func loadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// merge applies command-line overrides on top of the file config.
func (c *Config) merge(searchPath []string, sigCache, prof string) {
	if len(searchPath) > 0 {
		c.SearchPath = searchPath
	}
	if sigCache != "" {
		c.SigCache = sigCache
	}
	if prof != "" {
		c.Profile = prof
	}
}
