// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package engine

import (
	"image"
	"time"

	"github.com/mehmetaltunel/eyemouse/internal/calibration"
	"github.com/mehmetaltunel/eyemouse/internal/model"
	"github.com/mehmetaltunel/eyemouse/internal/tracking"
)

// Status is a snapshot of the pipeline for display.
type Status struct {
	Time   time.Time
	Frames int
	Face   bool

	Gaze         tracking.Gaze
	NoseX, NoseY float64
	Bounds       tracking.Bounds
	Distance     float64
	Band         tracking.Band

	LeftEAR, RightEAR float64

	ControlEnabled bool
	Sensitivity    float64
	ShowLandmarks  bool

	Calibrating      bool
	Calibrated       bool
	Calibration      calibration.Progress
	Quality          calibration.Quality
	CalibrationError string

	LastAction   model.Action
	LastActionAt time.Time
	Clicks       model.ClickCounts

	ScreenWidth, ScreenHeight int
}

// Cursor returns where the gaze lands on screen without a transform.
func (s Status) Cursor() image.Point {
	return image.Pt(int(s.Gaze.X*float64(s.ScreenWidth)), int(s.Gaze.Y*float64(s.ScreenHeight)))
}
