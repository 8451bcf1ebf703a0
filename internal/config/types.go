// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// package config loads and persists the EyeMouse settings file.
package config

import (
	"errors"
	"fmt"
)

// DefaultUpdateURL is the release feed checked for new versions.
const DefaultUpdateURL = "https://api.github.com/repos/mehmetaltunel/EyeMouse/releases/latest"

// Config is the full application configuration.
type Config struct {
	Camera        CameraConfig      `mapstructure:"camera" yaml:"camera"`
	Tracking      TrackingConfig    `mapstructure:"tracking" yaml:"tracking"`
	Mouse         MouseConfig       `mapstructure:"mouse" yaml:"mouse"`
	Calibration   CalibrationConfig `mapstructure:"calibration" yaml:"calibration"`
	Landmarks     LandmarksConfig   `mapstructure:"landmarks" yaml:"landmarks"`
	Database      DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Update        UpdateConfig      `mapstructure:"update" yaml:"update"`
	Language      string            `mapstructure:"language" yaml:"language"`
	DebugMode     bool              `mapstructure:"debug_mode" yaml:"debug_mode"`
	ShowLandmarks bool              `mapstructure:"show_landmarks" yaml:"show_landmarks"`
}

type CameraConfig struct {
	Index  int `mapstructure:"index" yaml:"index"`
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
	FPS    int `mapstructure:"fps" yaml:"fps"`
}

type TrackingConfig struct {
	EARThreshold         float64 `mapstructure:"ear_threshold" yaml:"ear_threshold"`
	EARConsecutiveFrames int     `mapstructure:"ear_consecutive_frames" yaml:"ear_consecutive_frames"`
	// BlinkCooldown is in seconds.
	BlinkCooldown    float64 `mapstructure:"blink_cooldown" yaml:"blink_cooldown"`
	SmoothingSamples int     `mapstructure:"smoothing_samples" yaml:"smoothing_samples"`
}

type MouseConfig struct {
	Sensitivity       float64 `mapstructure:"sensitivity" yaml:"sensitivity"`
	SmoothingSamples  int     `mapstructure:"smoothing_samples" yaml:"smoothing_samples"`
	DeadZone          float64 `mapstructure:"dead_zone" yaml:"dead_zone"`
	AccelerationCurve float64 `mapstructure:"acceleration_curve" yaml:"acceleration_curve"`
}

type CalibrationConfig struct {
	PointsCount int `mapstructure:"points_count" yaml:"points_count"`
	// PointDuration is the on-target hold time per point, in seconds.
	PointDuration float64 `mapstructure:"point_duration" yaml:"point_duration"`
	MarginPercent float64 `mapstructure:"margin_percent" yaml:"margin_percent"`
	Apply         bool    `mapstructure:"apply" yaml:"apply"`
	File          string  `mapstructure:"file" yaml:"file"`
}

type LandmarksConfig struct {
	Source     string   `mapstructure:"source" yaml:"source"`
	FaceModel  string   `mapstructure:"face_model" yaml:"face_model"`
	MeshModel  string   `mapstructure:"mesh_model" yaml:"mesh_model"`
	Command    []string `mapstructure:"command" yaml:"command"`
	ReplayFile string   `mapstructure:"replay_file" yaml:"replay_file"`
}

type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

type UpdateConfig struct {
	CheckOnStart bool   `mapstructure:"check_on_start" yaml:"check_on_start"`
	APIURL       string `mapstructure:"api_url" yaml:"api_url"`
}

// Defaults returns the viper default map. Keys mirror the mapstructure tags.
func Defaults() map[string]any {
	return map[string]any{
		"camera.index":                    0,
		"camera.width":                    640,
		"camera.height":                   480,
		"camera.fps":                      30,
		"tracking.ear_threshold":          0.21,
		"tracking.ear_consecutive_frames": 2,
		"tracking.blink_cooldown":         0.35,
		"tracking.smoothing_samples":      3,
		"mouse.sensitivity":               2.0,
		"mouse.smoothing_samples":         5,
		"mouse.dead_zone":                 0.015,
		"mouse.acceleration_curve":        1.5,
		"calibration.points_count":        9,
		"calibration.point_duration":      2.0,
		"calibration.margin_percent":      0.1,
		"calibration.apply":               true,
		"calibration.file":                "calibration.json",
		"landmarks.source":                "camera",
		"database.type":                   "sqlite",
		"database.dsn":                    "./eyemouse.db",
		"update.check_on_start":           true,
		"update.api_url":                  DefaultUpdateURL,
		"language":                        "en",
		"debug_mode":                      false,
		"show_landmarks":                  true,
	}
}

// Default returns a Config populated from Defaults without touching any file.
func Default() Config {
	return Config{
		Camera:      CameraConfig{Index: 0, Width: 640, Height: 480, FPS: 30},
		Tracking:    TrackingConfig{EARThreshold: 0.21, EARConsecutiveFrames: 2, BlinkCooldown: 0.35, SmoothingSamples: 3},
		Mouse:       MouseConfig{Sensitivity: 2.0, SmoothingSamples: 5, DeadZone: 0.015, AccelerationCurve: 1.5},
		Calibration: CalibrationConfig{PointsCount: 9, PointDuration: 2.0, MarginPercent: 0.1, Apply: true, File: "calibration.json"},
		Landmarks:   LandmarksConfig{Source: "camera"},
		Database:    DatabaseConfig{Type: "sqlite", Dsn: "./eyemouse.db"},
		Update:      UpdateConfig{CheckOnStart: true, APIURL: DefaultUpdateURL},
		Language:    "en",

		ShowLandmarks: true,
	}
}

// Validate reports every out-of-range setting at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Camera.Index >= 0, "camera.index must be >= 0, got %d", c.Camera.Index)
	check(c.Camera.Width >= 0 && c.Camera.Height >= 0, "camera size must not be negative")
	check(c.Camera.FPS >= 0, "camera.fps must not be negative, got %d", c.Camera.FPS)
	check(c.Tracking.EARThreshold > 0 && c.Tracking.EARThreshold < 1, "tracking.ear_threshold must be in (0,1), got %v", c.Tracking.EARThreshold)
	check(c.Tracking.EARConsecutiveFrames >= 1, "tracking.ear_consecutive_frames must be >= 1, got %d", c.Tracking.EARConsecutiveFrames)
	check(c.Tracking.BlinkCooldown >= 0, "tracking.blink_cooldown must not be negative, got %v", c.Tracking.BlinkCooldown)
	check(c.Tracking.SmoothingSamples >= 1, "tracking.smoothing_samples must be >= 1, got %d", c.Tracking.SmoothingSamples)
	check(c.Mouse.Sensitivity >= 1 && c.Mouse.Sensitivity <= 10, "mouse.sensitivity must be in [1,10], got %v", c.Mouse.Sensitivity)
	check(c.Mouse.SmoothingSamples >= 1, "mouse.smoothing_samples must be >= 1, got %d", c.Mouse.SmoothingSamples)
	check(c.Mouse.DeadZone >= 0, "mouse.dead_zone must not be negative, got %v", c.Mouse.DeadZone)
	check(c.Mouse.AccelerationCurve > 0, "mouse.acceleration_curve must be > 0, got %v", c.Mouse.AccelerationCurve)
	check(c.Calibration.PointsCount >= 1, "calibration.points_count must be >= 1, got %d", c.Calibration.PointsCount)
	check(c.Calibration.PointDuration > 0, "calibration.point_duration must be > 0, got %v", c.Calibration.PointDuration)
	check(c.Calibration.MarginPercent >= 0 && c.Calibration.MarginPercent < 0.5, "calibration.margin_percent must be in [0,0.5), got %v", c.Calibration.MarginPercent)
	switch c.Landmarks.Source {
	case "camera", "process", "replay":
	default:
		errs = append(errs, fmt.Errorf("landmarks.source must be camera, process or replay, got %q", c.Landmarks.Source))
	}
	switch c.Database.Type {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("database.type must be sqlite, postgres or mysql, got %q", c.Database.Type))
	}
	return errors.Join(errs...)
}
