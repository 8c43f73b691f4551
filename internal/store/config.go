package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gvqlc/qlc/internal/model"
)

// ConfigFileName is the workspace config file.
const ConfigFileName = "qlc.config.json"

// ErrConfigNotFound signals that no config file exists yet; callers decide
// whether to fall back to defaults or tell the user to run `qlc config init`.
var ErrConfigNotFound = errors.New("config file not found")

// ErrConfigExists is returned by CreateConfig when a config file is already
// present and force was not set.
var ErrConfigExists = errors.New("config file already exists")

// LoadConfig reads and decodes the workspace config file.
func LoadConfig(workspace string) (model.Config, error) {
	path := filepath.Join(workspace, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Config{}, ErrConfigNotFound
		}
		return model.Config{}, fmt.Errorf("read %s: %w", ConfigFileName, err)
	}
	var cfg model.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return model.Config{}, fmt.Errorf("parse %s: %w", ConfigFileName, err)
	}
	return cfg, nil
}

// SaveConfig writes the config with 2-space indentation so instructors can
// edit the file by hand.
func SaveConfig(workspace string, cfg model.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(workspace, ConfigFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", ConfigFileName, err)
	}
	return nil
}

// CreateConfig writes the sample config file. An existing file is only
// overwritten when force is set; the CLI surfaces ErrConfigExists as an
// explicit confirmation prompt rather than overwriting silently.
func CreateConfig(workspace string, force bool) (model.Config, error) {
	path := filepath.Join(workspace, ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return model.Config{}, ErrConfigExists
	}
	cfg := model.DefaultConfig()
	if err := SaveConfig(workspace, cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}
