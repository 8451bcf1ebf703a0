// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package blink detects deliberate one-eye winks from eye contour points
// using the eye aspect ratio (EAR). Ordinary blinks, where both eyes close
// together, are ignored.
package blink // import "github.com/mehmetaltunel/eyemouse/internal/blink"

import (
	"math"
	"time"

	"github.com/mehmetaltunel/eyemouse/internal/landmark"
)

// OpenEAR is reported when the ratio cannot be computed, so a missing eye
// never reads as closed.
const OpenEAR = 0.5

// Kind identifies which wink was seen.
type Kind int

const (
	None Kind = iota
	Left
	Right
	Both
)

func (k Kind) String() string {
	switch k {
	case Left:
		return "left"
	case Right:
		return "right"
	case Both:
		return "both"
	default:
		return "none"
	}
}

// Event is a detected wink.
type Event struct {
	Kind     Kind
	Time     time.Time
	LeftEAR  float64
	RightEAR float64
}

// Config holds the detection thresholds.
type Config struct {
	Threshold         float64
	ConsecutiveFrames int
	Cooldown          time.Duration
	SmoothingSamples  int
}

// DefaultConfig matches the shipped settings file.
func DefaultConfig() Config {
	return Config{
		Threshold:         0.21,
		ConsecutiveFrames: 2,
		Cooldown:          350 * time.Millisecond,
		SmoothingSamples:  3,
	}
}

// Detector is a per-frame wink state machine. It is not safe for concurrent use.
type Detector struct {
	cfg   Config
	clock func() time.Time

	leftCount, rightCount     int
	bothCount                 int
	leftWasShut, rightWasShut bool
	// blinking marks a two-eye closure that did not start as a wink; it
	// swallows every state until both eyes are open again.
	blinking  bool
	lastEvent time.Time

	leftBuf, rightBuf []float64
	leftEAR, rightEAR float64
}

// New returns a detector. A nil clock uses time.Now.
func New(cfg Config, clock func() time.Time) *Detector {
	if cfg.SmoothingSamples < 1 {
		cfg.SmoothingSamples = 1
	}
	if clock == nil {
		clock = time.Now
	}
	return &Detector{cfg: cfg, clock: clock}
}

// UpdateThresholds changes the closed threshold and cooldown in place.
func (d *Detector) UpdateThresholds(threshold float64, cooldown time.Duration) {
	d.cfg.Threshold = threshold
	d.cfg.Cooldown = cooldown
}

// EAR returns the last smoothed left and right ratios.
func (d *Detector) EAR() (left, right float64) {
	return d.leftEAR, d.rightEAR
}

// Detect feeds one frame of eye points (pixel space, six per eye) and
// returns an event when a wink completes. Frames inside the cooldown after
// an event are dropped without touching the state.
func (d *Detector) Detect(left, right []landmark.Point) (Event, bool) {
	now := d.clock()
	if !d.lastEvent.IsZero() && now.Sub(d.lastEvent) < d.cfg.Cooldown {
		return Event{}, false
	}

	d.leftBuf = pushWindow(d.leftBuf, AspectRatio(left), d.cfg.SmoothingSamples)
	d.rightBuf = pushWindow(d.rightBuf, AspectRatio(right), d.cfg.SmoothingSamples)
	d.leftEAR = mean(d.leftBuf)
	d.rightEAR = mean(d.rightBuf)

	kind := d.step(d.leftEAR < d.cfg.Threshold, d.rightEAR < d.cfg.Threshold)
	if kind == None {
		return Event{}, false
	}
	d.lastEvent = now
	return Event{Kind: kind, Time: now, LeftEAR: d.leftEAR, RightEAR: d.rightEAR}, true
}

// step advances the state machine with the closed state of each eye.
//
// A wink is one eye shut for at least ConsecutiveFrames while the other stays
// open, reported when the eye reopens. A wink that escalates into both eyes
// shut for at least ConsecutiveFrames is reported as Both once both reopen.
// Both eyes closing together, or one eye leading the other by fewer than
// ConsecutiveFrames, is a blink and never produces an event.
func (d *Detector) step(leftShut, rightShut bool) Kind {
	n := d.cfg.ConsecutiveFrames
	if d.blinking {
		if !leftShut && !rightShut {
			d.clearState()
		}
		return None
	}
	switch {
	case leftShut && rightShut:
		winked := (d.leftWasShut && d.leftCount >= n) || (d.rightWasShut && d.rightCount >= n)
		if d.bothCount == 0 && !winked {
			d.clearState()
			d.blinking = true
			return None
		}
		d.bothCount++
		return None

	case leftShut:
		result := None
		if d.rightWasShut && d.bothCount == 0 {
			// switched straight from a right wink to a left one
			if d.rightCount >= n {
				result = Right
			}
			d.rightCount, d.rightWasShut = 0, false
		}
		d.leftCount++
		d.leftWasShut = true
		return result

	case rightShut:
		result := None
		if d.leftWasShut && d.bothCount == 0 {
			if d.leftCount >= n {
				result = Left
			}
			d.leftCount, d.leftWasShut = 0, false
		}
		d.rightCount++
		d.rightWasShut = true
		return result
	}

	// both open
	result := None
	switch {
	case d.bothCount >= n:
		result = Both
	case d.leftWasShut && d.leftCount >= n:
		result = Left
	case d.rightWasShut && d.rightCount >= n:
		result = Right
	}
	d.clearState()
	return result
}

func (d *Detector) clearState() {
	d.leftCount, d.rightCount, d.bothCount = 0, 0, 0
	d.leftWasShut, d.rightWasShut = false, false
	d.blinking = false
}

// Reset clears all state including smoothing and cooldown.
func (d *Detector) Reset() {
	d.clearState()
	d.leftBuf = d.leftBuf[:0]
	d.rightBuf = d.rightBuf[:0]
	d.leftEAR, d.rightEAR = 0, 0
	d.lastEvent = time.Time{}
}

// AspectRatio computes (|p1-p5| + |p2-p4|) / (2|p0-p3|) over six contour
// points in pixels. It returns OpenEAR when there are too few points or the
// eye is narrower than one pixel.
func AspectRatio(pts []landmark.Point) float64 {
	if len(pts) < 6 {
		return OpenEAR
	}
	h := dist(pts[0], pts[3])
	if h < 1 {
		return OpenEAR
	}
	return (dist(pts[1], pts[5]) + dist(pts[2], pts[4])) / (2 * h)
}

func dist(a, b landmark.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func pushWindow(buf []float64, v float64, n int) []float64 {
	buf = append(buf, v)
	if len(buf) > n {
		buf = append(buf[:0], buf[len(buf)-n:]...)
	}
	return buf
}

func mean(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}
	var s float64
	for _, v := range buf {
		s += v
	}
	return s / float64(len(buf))
}
