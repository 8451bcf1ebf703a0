// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// package pointer moves the OS cursor from normalized gaze positions with an
// acceleration curve, moving-average smoothing and a dead zone, and injects
// clicks.
package pointer // import "github.com/mehmetaltunel/eyemouse/internal/pointer"

import (
	"math"
	"sync"

	"github.com/mehmetaltunel/eyemouse/internal/logging"
)

// Settings tune cursor motion.
type Settings struct {
	Sensitivity       float64
	SmoothingSamples  int
	DeadZone          float64 // normalized screen distance
	AccelerationCurve float64 // 1 is linear
}

// DefaultSettings returns the settings file defaults.
func DefaultSettings() Settings {
	return Settings{Sensitivity: 2.0, SmoothingSamples: 5, DeadZone: 0.015, AccelerationCurve: 1.5}
}

// Controller maps gaze to cursor moves. It is safe for concurrent use.
type Controller struct {
	mu  sync.Mutex
	inj Injector
	s   Settings

	width, height float64
	enabled       bool

	xs, ys       []float64
	lastX, lastY float64
	moved        bool
}

// NewController returns a disabled controller driving inj.
func NewController(inj Injector, s Settings) *Controller {
	w, h := inj.ScreenSize()
	if s.SmoothingSamples < 1 {
		s.SmoothingSamples = 1
	}
	return &Controller{inj: inj, s: s, width: float64(w), height: float64(h)}
}

// ScreenSize returns the injector's screen size.
func (c *Controller) ScreenSize() (int, int) {
	return int(c.width), int(c.height)
}

// Enable turns control on or off. Enabling clears smoothing state.
func (c *Controller) Enable(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = on
	if on {
		c.reset()
	}
}

// Enabled reports whether control is on.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Settings returns the current settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}

// UpdateSettings replaces the settings, keeping the newest smoothing samples.
func (c *Controller) UpdateSettings(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.SmoothingSamples < 1 {
		s.SmoothingSamples = 1
	}
	c.s = s
	c.xs = trim(c.xs, s.SmoothingSamples)
	c.ys = trim(c.ys, s.SmoothingSamples)
}

// MoveToGaze moves the cursor for a normalized gaze. Offsets from the centre
// go through the acceleration curve and sensitivity before mapping to pixels.
func (c *Controller) MoveToGaze(gx, gy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	dx := curve(gx-0.5, c.s.AccelerationCurve) * c.s.Sensitivity
	dy := curve(gy-0.5, c.s.AccelerationCurve) * c.s.Sensitivity
	c.moveLocked((0.5+dx)*c.width, (0.5+dy)*c.height)
}

// MoveToScreen moves the cursor towards a pixel target (a calibrated gaze),
// with the same smoothing and dead zone as MoveToGaze.
func (c *Controller) MoveToScreen(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.moveLocked(x, y)
}

func (c *Controller) moveLocked(tx, ty float64) {
	tx = math.Max(0, math.Min(c.width-1, tx))
	ty = math.Max(0, math.Min(c.height-1, ty))

	c.xs = push(c.xs, tx, c.s.SmoothingSamples)
	c.ys = push(c.ys, ty, c.s.SmoothingSamples)
	sx, sy := mean(c.xs), mean(c.ys)

	if c.moved {
		d := math.Hypot((sx-c.lastX)/c.width, (sy-c.lastY)/c.height)
		if d < c.s.DeadZone {
			return
		}
	}
	if err := c.inj.Move(int(sx), int(sy)); err != nil {
		logging.Debugf("pointer move failed: %v", err)
		return
	}
	c.lastX, c.lastY, c.moved = sx, sy, true
}

// Park puts the cursor at (x, y) even when control is off and clears
// smoothing. Calibration uses it to mark the current target.
func (c *Controller) Park(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	if err := c.inj.Move(x, y); err != nil {
		logging.Debugf("pointer park failed: %v", err)
	}
}

// Click presses b when control is on.
func (c *Controller) Click(b Button) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return false
	}
	if err := c.inj.Click(b); err != nil {
		logging.Debugf("pointer %s click failed: %v", b, err)
		return false
	}
	return true
}

// DoubleClick double-clicks the left button when control is on.
func (c *Controller) DoubleClick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return false
	}
	if err := c.inj.DoubleClick(); err != nil {
		logging.Debugf("pointer double click failed: %v", err)
		return false
	}
	return true
}

// Position returns the current cursor location.
func (c *Controller) Position() (int, int) {
	return c.inj.Location()
}

// Reset clears smoothing state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Controller) reset() {
	c.xs = c.xs[:0]
	c.ys = c.ys[:0]
	c.moved = false
}

// curve raises |v| to the exponent, keeping the sign.
func curve(v, exp float64) float64 {
	if exp == 1 {
		return v
	}
	return math.Copysign(math.Pow(math.Abs(v), exp), v)
}

func push(buf []float64, v float64, n int) []float64 {
	buf = append(buf, v)
	return trim(buf, n)
}

func trim(buf []float64, n int) []float64 {
	if len(buf) > n {
		buf = append(buf[:0], buf[len(buf)-n:]...)
	}
	return buf
}

func mean(buf []float64) float64 {
	var s float64
	for _, v := range buf {
		s += v
	}
	return s / float64(len(buf))
}
