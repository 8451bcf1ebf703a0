// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the records EyeMouse persists: calibration profiles,
// click events and tracking sessions.
package model // import "github.com/mehmetaltunel/eyemouse/internal/model"

import (
	"fmt"
	"time"
)

// CalibrationPoint pairs a screen target with the mean gaze recorded while
// the user looked at it.
type CalibrationPoint struct {
	ScreenX int     `json:"screen_x"`
	ScreenY int     `json:"screen_y"`
	GazeX   float64 `json:"gaze_x"`
	GazeY   float64 `json:"gaze_y"`
}

// CalibrationProfile is a finished calibration.
type CalibrationProfile struct {
	ID           int
	CreatedAt    time.Time
	ScreenWidth  int
	ScreenHeight int
	// Transform is the row-major 3x3 gaze-to-screen homography.
	Transform [9]float64
	Points    []CalibrationPoint
}

// String returns a short description like "1920x1080, 9 points".
func (p CalibrationProfile) String() string {
	return fmt.Sprintf("%dx%d, %d points", p.ScreenWidth, p.ScreenHeight, len(p.Points))
}

// Action is a mouse action triggered by a wink.
type Action string

const (
	ActionLeftClick   Action = "left_click"
	ActionRightClick  Action = "right_click"
	ActionDoubleClick Action = "double_click"
)

// ClickEvent records one wink-triggered action.
type ClickEvent struct {
	ID     int
	Time   time.Time
	Action Action
	X, Y   int
	// Injected is false when control was off and the action was only observed.
	Injected bool
}

// ClickCounts tallies actions by kind.
type ClickCounts struct {
	Left   int
	Right  int
	Double int
}

// Add counts one action. Unknown actions are ignored.
func (c *ClickCounts) Add(a Action) {
	switch a {
	case ActionLeftClick:
		c.Left++
	case ActionRightClick:
		c.Right++
	case ActionDoubleClick:
		c.Double++
	}
}

// Total is the number of counted actions.
func (c ClickCounts) Total() int {
	return c.Left + c.Right + c.Double
}

// Session is one run of the tracking loop.
type Session struct {
	ID         int
	StartedAt  time.Time
	EndedAt    *time.Time // nil while the session is running
	Source     string
	Calibrated bool
	Clicks     ClickCounts
}

// Duration returns how long the session ran, or has run so far at now.
func (s Session) Duration(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}
