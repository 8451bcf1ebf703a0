// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mehmetaltunel/eyemouse/internal/model"
)

// fileFormat is the on-disk calibration layout.
type fileFormat struct {
	Transform  [3][3]float64            `json:"transform"`
	Points     []model.CalibrationPoint `json:"points"`
	ScreenSize [2]int                   `json:"screen_size"`
}

// Save writes the calibration as indented JSON. It fails with
// ErrNotCalibrated when there is no transform.
func (c *Calibrator) Save(path string) error {
	p, err := c.Profile()
	if err != nil {
		return err
	}
	return SaveProfile(path, p)
}

// SaveProfile writes a calibration profile in the calibration file format.
func SaveProfile(path string, p model.CalibrationProfile) error {
	f := fileFormat{
		Points:     p.Points,
		ScreenSize: [2]int{p.ScreenWidth, p.ScreenHeight},
	}
	if f.Points == nil {
		f.Points = []model.CalibrationPoint{}
	}
	for r := range 3 {
		for col := range 3 {
			f.Transform[r][col] = p.Transform[r*3+col]
		}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode calibration: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create calibration directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write calibration file: %w", err)
	}
	return nil
}

// Load installs the calibration stored at path. The screen size recorded in
// the file is informational; the calibrator keeps its own.
func (c *Calibrator) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read calibration file: %w", err)
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse calibration file %s: %w", path, err)
	}
	var h Homography
	for r := range 3 {
		for col := range 3 {
			h[r*3+col] = f.Transform[r][col]
		}
	}
	if h == (Homography{}) {
		return fmt.Errorf("calibration file %s: %w", path, ErrNotCalibrated)
	}
	c.transform = &h
	c.collected = f.Points
	return nil
}
