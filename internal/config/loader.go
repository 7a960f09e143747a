package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns ~/.config/sizekeep/config.yaml, honoring
// XDG_CONFIG_HOME.
func DefaultConfigPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sizekeep", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "sizekeep", "config.yaml"), nil
}

// Load reads the config from the default path. A missing file yields the
// defaults; a present but invalid file is an error, because silently
// ignoring a typo'd config is worse than refusing to start.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return load(path, true)
}

// LoadFromPath reads the config from an explicit path, which must exist.
func LoadFromPath(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, missingOK bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && missingOK {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveStatePath returns the state file location: the configured override
// when set, otherwise $XDG_DATA_HOME/sizekeep/windows.json.
func (c *Config) ResolveStatePath() (string, error) {
	if c.StatePath != "" {
		return c.StatePath, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "sizekeep", "windows.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "sizekeep", "windows.json"), nil
}
