package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gvqlc/qlc/internal/model"
)

// SettingsFileName is the presentation-preferences file.
const SettingsFileName = "qlc.settings.json"

// LoadSettings reads the settings file, creating it with defaults when
// absent. Missing fields fall back to "normal".
func LoadSettings(workspace string) (model.Settings, error) {
	path := filepath.Join(workspace, SettingsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s := model.DefaultSettings()
			return s, SaveSettings(workspace, s)
		}
		return model.Settings{}, fmt.Errorf("read %s: %w", SettingsFileName, err)
	}

	var s model.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Settings{}, fmt.Errorf("parse %s: %w", SettingsFileName, err)
	}
	if s.ViewMode == "" {
		s.ViewMode = "normal"
	}
	if s.ContrastMode == "" {
		s.ContrastMode = "normal"
	}
	return s, nil
}

// SaveSettings writes the settings file with 2-space indentation.
func SaveSettings(workspace string, s model.Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	path := filepath.Join(workspace, SettingsFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", SettingsFileName, err)
	}
	return nil
}
