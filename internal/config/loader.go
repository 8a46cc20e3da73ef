package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML overrides file, expands ${VAR} environment variables
// inside it, and builds validated Settings from it: file values first,
// then environment variables for unset fields, then declared defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var overrides Settings
	if err := yaml.Unmarshal([]byte(expanded), &overrides); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return New(overrides)
}
