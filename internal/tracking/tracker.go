// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// package tracking turns face landmarks into a normalized screen position by
// following the nose tip inside an "active area" of the camera frame.
package tracking // import "github.com/mehmetaltunel/eyemouse/internal/tracking"

import (
	"math"

	"github.com/mehmetaltunel/eyemouse/internal/landmark"
)

const (
	historySize  = 8
	smoothFactor = 0.12

	// A 0.15 span between the outer eye corners is roughly 50 cm from the camera.
	referenceEyeSpan = 0.15

	MinSensitivity = 1.0
	MaxSensitivity = 10.0
)

// baseBounds is the active area at sensitivity 1.
var baseBounds = Bounds{MinX: 0.3, MaxX: 0.7, MinY: 0.3, MaxY: 0.7}

// Bounds is the camera-frame rectangle (normalized) that maps onto the
// whole screen.
type Bounds struct {
	MinX, MaxX, MinY, MaxY float64
}

// Gaze is a normalized screen position, (0,0) top left.
type Gaze struct {
	X, Y float64
}

// GazeData is the tracker output for one frame.
type GazeData struct {
	Position Gaze
	// NoseX and NoseY are the averaged raw nose position in the frame.
	NoseX, NoseY float64
	// Distance is 1.0 at the reference distance, larger when further away.
	Distance   float64
	Confidence float64
}

// Band classifies a distance estimate.
type Band int

const (
	BandOK Band = iota
	BandClose
	BandFar
)

func (b Band) String() string {
	switch b {
	case BandClose:
		return "close"
	case BandFar:
		return "far"
	default:
		return "ok"
	}
}

// DistanceBand classifies d for display.
func DistanceBand(d float64) Band {
	switch {
	case d < 0.8:
		return BandClose
	case d > 1.2:
		return BandFar
	default:
		return BandOK
	}
}

// Tracker follows the nose tip. It is not safe for concurrent use.
type Tracker struct {
	bounds      Bounds
	sensitivity float64
	histX       []float64
	histY       []float64
	smoothX     float64
	smoothY     float64
}

// New returns a tracker at sensitivity 1.
func New() *Tracker {
	t := &Tracker{bounds: baseBounds, sensitivity: MinSensitivity}
	t.Reset()
	return t
}

// SetSensitivity shrinks the active area around its centre: at 2 the nose
// only needs to move half as far to cross the screen. v is clamped to
// [MinSensitivity, MaxSensitivity].
func (t *Tracker) SetSensitivity(v float64) {
	t.sensitivity = math.Max(MinSensitivity, math.Min(MaxSensitivity, v))
	w := (baseBounds.MaxX - baseBounds.MinX) / t.sensitivity
	h := (baseBounds.MaxY - baseBounds.MinY) / t.sensitivity
	cx := (baseBounds.MinX + baseBounds.MaxX) / 2
	cy := (baseBounds.MinY + baseBounds.MaxY) / 2
	t.bounds = Bounds{MinX: cx - w/2, MaxX: cx + w/2, MinY: cy - h/2, MaxY: cy + h/2}
}

// Sensitivity returns the clamped sensitivity last applied.
func (t *Tracker) Sensitivity() float64 { return t.sensitivity }

// SetBounds overrides the active area.
func (t *Tracker) SetBounds(b Bounds) { t.bounds = b }

// Bounds returns the active area.
func (t *Tracker) Bounds() Bounds { return t.bounds }

// Reset drops smoothing history and recentres the output.
func (t *Tracker) Reset() {
	t.histX = t.histX[:0]
	t.histY = t.histY[:0]
	t.smoothX, t.smoothY = 0.5, 0.5
}

// Process updates the tracker with a frame. It returns false when the frame
// has no usable face.
func (t *Tracker) Process(f landmark.Frame) (GazeData, bool) {
	if !f.Has(landmark.NoseTip) {
		return GazeData{}, false
	}
	nose := f.Points[landmark.NoseTip]

	t.histX = push(t.histX, nose.X)
	t.histY = push(t.histY, nose.Y)
	avgX, avgY := mean(t.histX), mean(t.histY)

	// The frame is already mirrored, so no horizontal inversion here.
	sx := clamp01(mapRange(avgX, t.bounds.MinX, t.bounds.MaxX))
	sy := clamp01(mapRange(avgY, t.bounds.MinY, t.bounds.MaxY))

	t.smoothX += (sx - t.smoothX) * smoothFactor
	t.smoothY += (sy - t.smoothY) * smoothFactor

	return GazeData{
		Position:   Gaze{X: t.smoothX, Y: t.smoothY},
		NoseX:      avgX,
		NoseY:      avgY,
		Distance:   estimateDistance(f),
		Confidence: 1.0,
	}, true
}

func estimateDistance(f landmark.Frame) float64 {
	if !f.Has(landmark.LeftEyeOuter) || !f.Has(landmark.RightEyeOuter) {
		return 0
	}
	a, b := f.Points[landmark.LeftEyeOuter], f.Points[landmark.RightEyeOuter]
	span := math.Sqrt((a.X-b.X)*(a.X-b.X) + (a.Y-b.Y)*(a.Y-b.Y) + (a.Z-b.Z)*(a.Z-b.Z))
	if span < 0.01 {
		return 0
	}
	return referenceEyeSpan / span
}

func mapRange(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}

func push(buf []float64, v float64) []float64 {
	buf = append(buf, v)
	if len(buf) > historySize {
		buf = append(buf[:0], buf[1:]...)
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

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
