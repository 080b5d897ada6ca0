package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/gasparian/haloc-go/annbench"
	"github.com/gasparian/haloc-go/bucket"
	"github.com/gasparian/haloc-go/hasher"
)

// Config holds all needed parameters to hash and compare images
type Config struct {
	Hash   hasher.Params     `yaml:"hash"`
	Bucket bucket.GridConfig `yaml:"bucket"`
	Bench  annbench.Options  `yaml:"bench"`
}

// Default returns config with default values of every part
func Default() Config {
	return Config{
		Hash:   hasher.DefaultParams(),
		Bucket: bucket.DefaultGridConfig(),
		Bench:  annbench.DefaultOptions(),
	}
}

// Load reads YAML (or JSON) config on top of the default values
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	err = cfg.Validate()
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return &cfg, nil
}

// Validate ensures all parts of the Config are valid
func (c *Config) Validate() error {
	return multierr.Combine(
		errors.Wrap(c.Hash.Validate(), "hash"),
		errors.Wrap(c.Bucket.Validate(), "bucket"),
		errors.Wrap(c.Bench.Validate(), "bench"),
	)
}
