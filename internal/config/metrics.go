package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anime-shed/sem-inspector-go/internal/analyzer"
)

// LoadMetricsConfig reads a YAML metric configuration layered over
// analyzer.DefaultConfig. An empty path or a missing file yields the defaults.
func LoadMetricsConfig(path string) (analyzer.Config, error) {
	cfg := analyzer.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading metrics config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing metrics config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("metrics config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveMetricsConfig writes cfg as YAML
func SaveMetricsConfig(path string, cfg analyzer.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding metrics config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing metrics config %s: %w", path, err)
	}
	return nil
}
