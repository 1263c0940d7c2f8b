package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath returns the XDG-compliant default config path.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "./lemedia.toml"
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "lemedia", "config.toml")
}

// Discover finds the config file using the standard search order:
//  1. LEMEDIA_CONFIG environment variable
//  2. ./config.toml, then ./lemedia.toml (current directory)
//  3. $XDG_CONFIG_HOME/lemedia/config.toml
//  4. /etc/lemedia/config.toml
func Discover() (string, error) {
	if envPath := os.Getenv("LEMEDIA_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("LEMEDIA_CONFIG=%s: %w", envPath, err)
		}
		return envPath, nil
	}

	paths := []string{
		"./config.toml",
		"./lemedia.toml",
		DefaultPath(),
		"/etc/lemedia/config.toml",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("config not found, checked: %s", strings.Join(paths, ", "))
}
