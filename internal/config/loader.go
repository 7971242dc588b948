package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader resolves the effective configuration from defaults, an optional YAML
// file and environment variables. Environment wins over the file, the file
// wins over defaults.
type Loader struct {
	path    string
	version string
}

// NewLoader creates a loader for the given config file path. An empty path
// skips the file layer entirely.
func NewLoader(path, version string) *Loader {
	return &Loader{path: path, version: version}
}

// Load resolves and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := defaults(l.version)

	if l.path != "" {
		if err := loadFile(l.path, &cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", l.path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file does not exist: %w", err)
		}
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}
