package buf

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultMaxBufs is the default number of resident frames.
const DefaultMaxBufs = 20

// DefaultPageSize is the fixed frame size every layer above buf assumes.
const DefaultPageSize = 4096

// Config configures a Pool. It is usually loaded from a small YAML file
// alongside the rest of the engine's configuration, following the
// btree.Config/DefaultConfig(dataDir) convention.
type Config struct {
	MaxBufs  int    `yaml:"max_bufs"`
	PageSize int    `yaml:"page_size"`
	Strategy string `yaml:"strategy"` // "lru" or "mru"
}

// DefaultConfig returns 20 frames, 4 KiB pages, LRU replacement.
func DefaultConfig() Config {
	return Config{
		MaxBufs:  DefaultMaxBufs,
		PageSize: DefaultPageSize,
		Strategy: "lru",
	}
}

// LoadConfig reads a Config from a YAML file, filling in any zero-valued
// fields with DefaultConfig. A missing file is not an error: it simply
// yields the defaults, so a Config is always usable even without an
// on-disk override.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return cfg, err
	}

	if override.MaxBufs > 0 {
		cfg.MaxBufs = override.MaxBufs
	}
	if override.PageSize > 0 {
		cfg.PageSize = override.PageSize
	}
	if override.Strategy != "" {
		cfg.Strategy = override.Strategy
	}

	return cfg, nil
}

func (c Config) strategy() Strategy {
	if c.Strategy == "mru" {
		return MRU
	}
	return LRU
}
