// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package engine

import (
	"image"

	"github.com/mehmetaltunel/eyemouse/internal/logging"
	"github.com/mehmetaltunel/eyemouse/internal/tracking"
)

// ToggleControl flips cursor control and returns the new state. It has no
// effect while calibrating.
func (e *Engine) ToggleControl() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cal.Active() {
		return false
	}
	on := !e.ptr.Enabled()
	e.ptr.Enable(on)
	logging.Infof("cursor control %s", onOff(on))
	e.publishLocked()
	return on
}

// SetControl turns cursor control on or off. Turning it on is refused while
// calibrating.
func (e *Engine) SetControl(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if on && e.cal.Active() {
		return
	}
	e.ptr.Enable(on)
	e.publishLocked()
}

// StartCalibration disables control, begins a calibration run and parks the
// cursor on the first target.
func (e *Engine) StartCalibration() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ptr.Enable(false)
	e.detector.Reset()
	e.cal.Start()
	e.status.Calibrating = true
	e.status.CalibrationError = ""

	targets := e.cal.Targets()
	if len(targets) > 0 {
		e.lastTgt = targets[0]
		e.ptr.Park(targets[0].X, targets[0].Y)
	}
	e.status.Calibration.Target = e.lastTgt
	e.status.Calibration.Index = 1
	e.status.Calibration.Total = len(targets)
	e.status.Calibration.Fraction = 0
	e.status.Calibration.Done = false
	logging.Infof("calibration started with %d points", len(targets))
	e.publishLocked()
}

// CancelCalibration abandons a running calibration; a previous transform
// stays in effect.
func (e *Engine) CancelCalibration() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.cal.Active() {
		return
	}
	e.cal.Stop()
	e.status.Calibrating = false
	e.lastTgt = image.Point{}
	logging.Infof("calibration cancelled")
	e.publishLocked()
}

// SetSensitivity applies v (clamped to 1..10) to both the tracker active
// area and the cursor scale. It returns the applied value.
func (e *Engine) SetSensitivity(v float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.SetSensitivity(v)
	v = e.tracker.Sensitivity()

	s := e.ptr.Settings()
	s.Sensitivity = v
	e.ptr.UpdateSettings(s)

	e.status.Sensitivity = v
	e.status.Bounds = e.tracker.Bounds()
	e.publishLocked()
	return v
}

// ToggleLandmarks flips the landmark view flag and returns the new value.
func (e *Engine) ToggleLandmarks() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.ShowLandmarks = !e.status.ShowLandmarks
	e.publishLocked()
	return e.status.ShowLandmarks
}

// Bounds returns the tracker active area.
func (e *Engine) Bounds() tracking.Bounds {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Bounds()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
