package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/blockvault/sealvault/chunker"
)

// FormatVersion is the on-disk repository layout version. Bumped only
// when pub_key, chunks/, names/, or sealvault.yaml's shape changes
// incompatibly.
const FormatVersion = 1

// Config is the small, versioned document persisted at
// <repo>/sealvault.yaml alongside pub_key. It makes the chunking
// parameters a repository was created with durable, so boundary
// determinism (a pure function of input bytes *and* chunker parameters,
// §3) survives process restarts and different machines opening the same
// repository.
type Config struct {
	FormatVersion int           `yaml:"format_version"`
	HashAlgorithm string        `yaml:"hash_algorithm"`
	Chunker       ChunkerConfig `yaml:"chunker"`
}

// ChunkerConfig mirrors chunker.Params in a YAML-friendly shape.
type ChunkerConfig struct {
	Min          int  `yaml:"min"`
	Max          int  `yaml:"max"`
	BoundaryBits uint `yaml:"boundary_bits"`
}

func (c ChunkerConfig) toParams() chunker.Params {
	return chunker.Params{Min: c.Min, Max: c.Max, BoundaryBits: c.BoundaryBits}
}

func fromParams(p chunker.Params) ChunkerConfig {
	return ChunkerConfig{Min: p.Min, Max: p.Max, BoundaryBits: p.BoundaryBits}
}

func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("repository: read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("repository: parse config %s: %w", path, err)
	}
	return cfg, nil
}

func saveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("repository: marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-config-*")
	if err != nil {
		return fmt.Errorf("repository: create temp config file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("repository: write config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("repository: sync config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("repository: close temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("repository: rename config into place: %w", err)
	}
	return nil
}
