package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// inventoryFile is the YAML shape of an inventory document.
type inventoryFile struct {
	Hosts []*HostConfig `yaml:"hosts"`
}

// LoadInventory loads the host list for an environment from the inventory
// directory. It looks for <env>.yaml, <env>.yml, then <env>.star. Hosts
// without an explicit env are tagged with the environment they were loaded
// for.
func LoadInventory(dir, env string) ([]*HostConfig, error) {
	if env == "" {
		return nil, fmt.Errorf("environment is required")
	}

	for _, name := range []string{env + ".yaml", env + ".yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return loadYAMLInventory(path, env)
		}
	}

	starPath := filepath.Join(dir, env+".star")
	if _, err := os.Stat(starPath); err == nil {
		return loadStarlarkInventory(starPath, env)
	}

	return nil, fmt.Errorf("no inventory found for environment %q in %s", env, dir)
}

// loadYAMLInventory parses a YAML inventory file. Each host entry is checked
// against the CUE host schema before strict struct decoding, so schema
// violations are reported with the host's position in the file.
func loadYAMLInventory(path, env string) ([]*HostConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory %s: %w", path, err)
	}

	// Generic pass for schema validation.
	var generic struct {
		Hosts []map[string]interface{} `yaml:"hosts"`
	}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to parse inventory %s: %w", path, err)
	}
	schemas := NewSchemaRegistry()
	for i, entry := range generic.Hosts {
		if err := schemas.ValidateHost(entry); err != nil {
			return nil, fmt.Errorf("inventory %s, host %d: %w", path, i+1, err)
		}
	}

	var file inventoryFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse inventory %s: %w", path, err)
	}

	return finishHosts(file.Hosts, env)
}

// finishHosts applies environment tagging, defaults, and validation.
func finishHosts(hosts []*HostConfig, env string) ([]*HostConfig, error) {
	for _, h := range hosts {
		if h.Env == "" {
			h.Env = env
		}
		h.ApplyDefaults()
		if err := h.Validate(); err != nil {
			return nil, err
		}
	}
	return hosts, nil
}
