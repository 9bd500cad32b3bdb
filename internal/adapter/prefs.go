package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds state remembered between runs.
// Stored in ~/.config/kiosk/prefs.toml.
type Prefs struct {
	LastQuery  string `toml:"last_query"`
	LastScreen string `toml:"last_screen"`
}

// DefaultPrefsPath returns the default preferences file path
func DefaultPrefsPath() string {
	return filepath.Join(defaultConfigPath(), "prefs.toml")
}

// LoadPrefs reads preferences from path, falling back to zero values if
// the file is missing or unreadable.
func LoadPrefs(path string) Prefs {
	var prefs Prefs

	resolved, err := expandHome(path)
	if err != nil {
		return prefs
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return prefs // Missing or unreadable, start fresh
	}

	if err := toml.Unmarshal(data, &prefs); err != nil {
		return Prefs{}
	}

	prefs.LastQuery = strings.TrimSpace(prefs.LastQuery)
	return prefs
}

// SavePrefs writes preferences to path, creating directories as needed
func SavePrefs(path string, p Prefs) error {
	resolved, err := expandHome(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}
