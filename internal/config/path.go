package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath picks the config file location: an explicit path wins,
// then $XDG_CONFIG_HOME/hark/config.yaml, then ~/.config/hark/config.yaml.
func ResolvePath(explicit string) (string, error) {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "hark", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hark", "config.yaml"), nil
}
