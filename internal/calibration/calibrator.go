// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// package calibration collects gaze samples on a grid of screen targets and
// fits a homography that maps tracked gaze to screen pixels. Samples are only
// accepted while the gaze is on the current target.
package calibration // import "github.com/mehmetaltunel/eyemouse/internal/calibration"

import (
	"errors"
	"image"
	"math"
	"time"

	"github.com/mehmetaltunel/eyemouse/internal/model"
	"github.com/mehmetaltunel/eyemouse/internal/tracking"
)

const (
	// Tolerance is the normalized distance under which gaze counts as on target.
	Tolerance = 0.35
	// nearFactor widens Tolerance for the NearTarget band.
	nearFactor = 1.5
	// MinSamples is the number of on-target samples a point needs.
	MinSamples = 20
	// minPoints is what the homography fit needs.
	minPoints = 4
)

var (
	ErrNotCalibrated = errors.New("calibration: no transform")
	ErrTooFewPoints  = errors.New("calibration: too few points for a homography")
)

// Quality describes the current gaze relative to the active target.
type Quality int

const (
	NoGaze Quality = iota
	OffTarget
	NearTarget
	OnTarget
)

func (q Quality) String() string {
	switch q {
	case OffTarget:
		return "off_target"
	case NearTarget:
		return "near_target"
	case OnTarget:
		return "on_target"
	default:
		return "no_gaze"
	}
}

// Config controls the grid and hold time.
type Config struct {
	Points        int
	HoldDuration  time.Duration
	MarginPercent float64
}

// DefaultConfig returns the settings file defaults.
func DefaultConfig() Config {
	return Config{Points: 9, HoldDuration: 2 * time.Second, MarginPercent: 0.1}
}

// Progress is the result of one Update.
type Progress struct {
	// Done is set once every target is collected or calibration is not running.
	Done bool
	// Target is the pixel position of the current target; zero when Done.
	Target image.Point
	// Fraction of the hold time already spent on the current target.
	Fraction float64
	// Index is the 1-based number of the current target.
	Index int
	Total int
}

// Calibrator runs a calibration. It is not safe for concurrent use.
type Calibrator struct {
	cfg    Config
	width  int
	height int
	clock  func() time.Time

	targets []image.Point

	active    bool
	index     int
	samples   []tracking.Gaze
	onTarget  time.Duration
	last      time.Time
	quality   Quality
	collected []model.CalibrationPoint

	transform *Homography
	err       error
}

// New returns a calibrator for a screen of the given size. A nil clock uses
// time.Now.
func New(width, height int, cfg Config, clock func() time.Time) *Calibrator {
	if clock == nil {
		clock = time.Now
	}
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = DefaultConfig().HoldDuration
	}
	return &Calibrator{
		cfg:     cfg,
		width:   width,
		height:  height,
		clock:   clock,
		targets: Grid(width, height, cfg.Points, cfg.MarginPercent),
	}
}

// Grid lays out calibration targets. Nine points make a 3x3 grid, five
// points the centre plus the four corners, any other count the largest
// square grid that fits. Targets are inset by margin (fraction of each side).
func Grid(width, height, points int, margin float64) []image.Point {
	mx := int(float64(width) * margin)
	my := int(float64(height) * margin)

	var rows, cols int
	switch points {
	case 9:
		rows, cols = 3, 3
	case 5:
		return []image.Point{
			{X: width / 2, Y: height / 2},
			{X: mx, Y: my},
			{X: width - mx, Y: my},
			{X: mx, Y: height - my},
			{X: width - mx, Y: height - my},
		}
	default:
		rows = int(math.Sqrt(float64(max(points, 0))))
		cols = rows
	}

	innerW := width - 2*mx
	innerH := height - 2*my
	out := make([]image.Point, 0, rows*cols)
	for r := range rows {
		for c := range cols {
			x, y := width/2, height/2
			if cols > 1 {
				x = mx + innerW*c/(cols-1)
			}
			if rows > 1 {
				y = my + innerH*r/(rows-1)
			}
			out = append(out, image.Point{X: x, Y: y})
		}
	}
	return out
}

// Start begins a new run and clears any samples from the previous one. An
// existing transform stays in effect until the new run finalizes.
func (c *Calibrator) Start() {
	c.active = true
	c.index = 0
	c.samples = c.samples[:0]
	c.collected = nil
	c.onTarget = 0
	c.last = c.clock()
	c.quality = NoGaze
	c.err = nil
}

// Stop abandons the current run.
func (c *Calibrator) Stop() { c.active = false }

// Active reports whether a run is in progress.
func (c *Calibrator) Active() bool { return c.active }

// Quality returns the gaze quality from the last Update.
func (c *Calibrator) Quality() Quality { return c.quality }

// Targets returns the grid in collection order.
func (c *Calibrator) Targets() []image.Point { return c.targets }

// ScreenSize returns the screen the calibrator maps onto.
func (c *Calibrator) ScreenSize() (int, int) { return c.width, c.height }

// Calibrated reports whether a transform is available.
func (c *Calibrator) Calibrated() bool { return c.transform != nil }

// Err returns why the last run did not produce a transform, if it failed.
func (c *Calibrator) Err() error { return c.err }

// Points returns the collected calibration points.
func (c *Calibrator) Points() []model.CalibrationPoint { return c.collected }

// Update feeds one gaze sample; nil means no face, which pauses the hold
// timer without losing progress.
func (c *Calibrator) Update(gaze *tracking.Gaze) Progress {
	if !c.active {
		return Progress{Done: true, Fraction: 1, Total: len(c.targets)}
	}
	if c.index >= len(c.targets) {
		c.finalize()
		return Progress{Done: true, Fraction: 1, Index: len(c.targets), Total: len(c.targets)}
	}

	target := c.targets[c.index]
	now := c.clock()
	dt := now.Sub(c.last)
	c.last = now

	if gaze == nil {
		c.quality = NoGaze
	} else {
		d := c.distance(*gaze, target)
		switch {
		case d < Tolerance:
			c.quality = OnTarget
			c.onTarget += dt
			c.samples = append(c.samples, *gaze)
		case d < Tolerance*nearFactor:
			c.quality = NearTarget
		default:
			c.quality = OffTarget
		}
	}

	fraction := min(1, c.onTarget.Seconds()/c.cfg.HoldDuration.Seconds())
	progress := Progress{Target: target, Fraction: fraction, Index: c.index + 1, Total: len(c.targets)}

	if c.onTarget >= c.cfg.HoldDuration && len(c.samples) >= MinSamples {
		var sx, sy float64
		for _, g := range c.samples {
			sx += g.X
			sy += g.Y
		}
		n := float64(len(c.samples))
		c.collected = append(c.collected, model.CalibrationPoint{
			ScreenX: target.X,
			ScreenY: target.Y,
			GazeX:   sx / n,
			GazeY:   sy / n,
		})
		c.index++
		c.samples = c.samples[:0]
		c.onTarget = 0
		c.quality = NoGaze

		if c.index >= len(c.targets) {
			c.finalize()
			return Progress{Done: true, Fraction: 1, Index: len(c.targets), Total: len(c.targets)}
		}
	}
	return progress
}

func (c *Calibrator) distance(g tracking.Gaze, target image.Point) float64 {
	tx := float64(target.X) / float64(c.width)
	ty := float64(target.Y) / float64(c.height)
	return math.Hypot(g.X-tx, g.Y-ty)
}

func (c *Calibrator) finalize() {
	c.active = false
	if len(c.collected) < minPoints {
		c.err = ErrTooFewPoints
		return
	}
	src := make([][2]float64, len(c.collected))
	dst := make([][2]float64, len(c.collected))
	for i, p := range c.collected {
		src[i] = [2]float64{p.GazeX, p.GazeY}
		dst[i] = [2]float64{float64(p.ScreenX), float64(p.ScreenY)}
	}
	h, err := FitHomography(src, dst, float64(c.width), float64(c.height))
	if err != nil {
		c.err = err
		return
	}
	c.transform = &h
}

// TransformGaze maps a normalized gaze to screen pixels. Without a transform
// the gaze is scaled to the screen; with one it is projected and clamped.
func (c *Calibrator) TransformGaze(g tracking.Gaze) (int, int) {
	if c.transform == nil {
		return int(g.X * float64(c.width)), int(g.Y * float64(c.height))
	}
	x, y, ok := c.transform.Apply(g.X, g.Y)
	if !ok {
		return int(g.X * float64(c.width)), int(g.Y * float64(c.height))
	}
	x = clamp(x, 0, float64(c.width-1))
	y = clamp(y, 0, float64(c.height-1))
	return int(x), int(y)
}

// Profile returns the current calibration as a persistable record.
func (c *Calibrator) Profile() (model.CalibrationProfile, error) {
	if c.transform == nil {
		return model.CalibrationProfile{}, ErrNotCalibrated
	}
	return model.CalibrationProfile{
		ScreenWidth:  c.width,
		ScreenHeight: c.height,
		Transform:    *c.transform,
		Points:       append([]model.CalibrationPoint(nil), c.collected...),
	}, nil
}

// FromProfile installs a stored calibration.
func (c *Calibrator) FromProfile(p model.CalibrationProfile) error {
	h := Homography(p.Transform)
	if h == (Homography{}) {
		return ErrNotCalibrated
	}
	c.transform = &h
	c.collected = append([]model.CalibrationPoint(nil), p.Points...)
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
