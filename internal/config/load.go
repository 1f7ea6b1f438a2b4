package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags, and
// validates the result.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkModelFile(cfg.Model.Path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkModelFile fails early on a model path that cannot be opened, before
// a window is created for it.
func checkModelFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("model.path: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("model.path: %s is a directory", path)
	}
	return nil
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "glmodel")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "glmodel")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "glmodel")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "glmodel")
	}
}

// loadFromFile merges a YAML file into cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
