package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the project config filename looked up when no
// explicit --config path is given.
const DefaultConfigFile = "djaploy.yaml"

// LoadProjectConfig reads, defaults, and validates a project configuration.
// Paths in the config are resolved relative to the config file's directory.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg ProjectConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	cfg.resolvePaths(baseDir)
	cfg.ApplyDefaults()

	// ArtifactDir gets its default in ApplyDefaults, so it resolves after.
	if cfg.ArtifactDir != "" && !filepath.IsAbs(cfg.ArtifactDir) {
		cfg.ArtifactDir = filepath.Join(cfg.ProjectDir, cfg.ArtifactDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePaths makes the directory fields absolute relative to baseDir.
func (c *ProjectConfig) resolvePaths(baseDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	c.ProjectDir = resolve(c.ProjectDir)
	c.GitDir = resolve(c.GitDir)
	c.DjaployDir = resolve(c.DjaployDir)
	if c.ProjectDir == "" {
		c.ProjectDir = baseDir
	}
}
