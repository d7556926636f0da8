package pf

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/toylabs/toypager/buf"
)

// Config configures a Manager. DataDir mirrors btree.Config.DataDir; the
// buffer pool settings are nested so a single YAML file can configure
// both layers at once.
type Config struct {
	DataDir string     `yaml:"data_dir"`
	Buffer  buf.Config `yaml:"buffer"`
}

// DefaultConfig returns dataDir paired with the buffer pool's defaults.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir: dataDir,
		Buffer:  buf.DefaultConfig(),
	}
}

// LoadConfig reads Config from a YAML file, defaulting the buffer section
// when absent. A missing file is not an error.
func LoadConfig(path, dataDir string) (Config, error) {
	cfg := DefaultConfig(dataDir)
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

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Buffer.MaxBufs <= 0 {
		cfg.Buffer.MaxBufs = buf.DefaultMaxBufs
	}
	if cfg.Buffer.PageSize <= 0 {
		cfg.Buffer.PageSize = buf.DefaultPageSize
	}
	return cfg, nil
}
