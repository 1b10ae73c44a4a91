package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Save writes cfg to path, overwriting any existing file.
func Save(path string, cfg *Config) error {
	path = expandPath(path)
	return writeConfigFile(path, cfg)
}
