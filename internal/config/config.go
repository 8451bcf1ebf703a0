// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LegacySettingsFile is the JSON settings file written by earlier releases.
// It is merged on top of the YAML configuration when found in the working
// directory.
const LegacySettingsFile = "settings.json"

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	dir, err := GetConfigDir(system)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "eyemouse.yaml"), nil
}

// GetConfigDir returns the directory that holds the configuration file and,
// for the user scope, the log file.
func GetConfigDir(system bool) (string, error) {
	if system {
		switch runtime.GOOS {
		case "windows":
			return filepath.Join(os.Getenv("ProgramData"), "EyeMouse"), nil
		default: // Linux, macOS, etc.
			return "/etc/eyemouse", nil
		}
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(configDir, "eyemouse"), nil
}

// LoadConfig resolves T from defaults, config files, the legacy settings
// file, EYEMOUSE_* environment variables and the command's flags, in
// increasing order of precedence.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, additionalConfigFilePath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("eyemouse")
	v.SetConfigType("yaml")

	// An explicit --config file wins over the search paths.
	if additionalConfigFilePath != nil {
		v.SetConfigFile(*additionalConfigFilePath)
	}

	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	// A missing file is not fatal: the resolved config is still returned
	// together with the ConfigFileNotFoundError so callers can write one.
	readErr := v.ReadInConfig()
	if readErr != nil {
		if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
			return c, readErr
		}
	}

	if err := mergeLegacyConfig(v); err != nil {
		return c, err
	}
	if err := bindAndUnmarshal(cmd, v, &c); err != nil {
		return c, err
	}
	return c, readErr
}

func bindAndUnmarshal[T any](cmd *cobra.Command, v *viper.Viper, c *T) error {
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("eyemouse")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
	}
	return v.Unmarshal(c)
}

// mergeLegacyConfig merges settings.json from the working directory when it
// exists. A malformed legacy file is reported, not ignored, since it
// usually holds the user's tuned thresholds.
func mergeLegacyConfig(v *viper.Viper) error {
	if _, err := os.Stat(LegacySettingsFile); err != nil {
		return nil
	}
	legacy := viper.New()
	legacy.SetConfigFile(LegacySettingsFile)
	legacy.SetConfigType("json")
	if err := legacy.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", LegacySettingsFile, err)
	}
	return v.MergeConfigMap(legacy.AllSettings())
}

// WriteConfigFile writes c to the user (or system) config path.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}
	return WriteConfigFileTo(c, path)
}

// WriteConfigFileTo writes c as YAML to path, creating parent directories.
func WriteConfigFileTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the file may carry a database DSN with credentials.
	return os.WriteFile(path, data, 0600)
}

var updateMu sync.Mutex

// UpdateConfigFile sets the dotted keys in changes inside the YAML file at
// path and leaves every other key as the file has it. Values that only came
// from defaults, flags or the environment are not written. An empty path is
// the user config file; a missing file is created.
func UpdateConfigFile(path string, changes map[string]any) error {
	if path == "" {
		p, err := GetConfigPath(false)
		if err != nil {
			return err
		}
		path = p
	}
	updateMu.Lock()
	defer updateMu.Unlock()

	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("could not parse %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return err
	}
	for key, value := range changes {
		setPath(doc, strings.Split(key, "."), value)
	}
	return WriteConfigFileTo(&doc, path)
}

func setPath(m map[string]any, keys []string, value any) {
	if len(keys) == 1 {
		m[keys[0]] = value
		return
	}
	child, ok := m[keys[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		m[keys[0]] = child
	}
	setPath(child, keys[1:], value)
}
