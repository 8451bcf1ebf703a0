// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// package landmark defines the face-mesh frame model and the sources that
// produce it: a native camera + face-mesh pipeline, an external helper
// process, and recorded streams.
package landmark // import "github.com/mehmetaltunel/eyemouse/internal/landmark"

import (
	"context"
	"errors"
	"time"
)

// MeshPoints is the number of points a face-mesh model reports per face.
const MeshPoints = 468

// Well-known mesh indices.
const (
	NoseTip       = 1
	LeftEyeOuter  = 33
	RightEyeOuter = 263
)

// LeftEye and RightEye are the six contour points used for the eye aspect
// ratio, ordered outer corner, two upper lids, inner corner, two lower lids.
var (
	LeftEye  = [6]int{33, 160, 158, 133, 153, 144}
	RightEye = [6]int{362, 385, 387, 263, 373, 380}
)

var (
	// ErrUnsupported is returned by sources that need a native build.
	ErrUnsupported = errors.New("landmark source requires a build with -tags native")
	// ErrNoFace is returned by detectors when no face is visible.
	ErrNoFace = errors.New("no face detected")
	// ErrNoFrameSize marks a face frame without w/h. Points are normalized,
	// so eye geometry cannot be recovered from it.
	ErrNoFrameSize = errors.New("face frame without width and height")
)

// Point is a normalized landmark: X and Y in [0,1] of the frame, Z relative
// depth scaled like X.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Frame is one processed camera frame.
type Frame struct {
	Time   time.Time `json:"t"`
	Width  int       `json:"w"`
	Height int       `json:"h"`
	Face   bool      `json:"face"`
	Points []Point   `json:"points,omitempty"`
}

// Side selects an eye.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Source yields frames until the context is cancelled or the stream ends
// (io.EOF).
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Validate rejects frames whose landmarks cannot be projected to pixels.
func (f Frame) Validate() error {
	if f.Face && (f.Width <= 0 || f.Height <= 0) {
		return ErrNoFrameSize
	}
	return nil
}

// Has reports whether the frame carries the mesh index i.
func (f Frame) Has(i int) bool {
	return f.Face && i >= 0 && i < len(f.Points)
}

// EyePoints returns the six eye contour points of the given side in pixel
// space, or nil when the frame does not carry them.
func EyePoints(f Frame, side Side) []Point {
	idx := LeftEye
	if side == Right {
		idx = RightEye
	}
	for _, i := range idx {
		if !f.Has(i) {
			return nil
		}
	}
	w, h := float64(f.Width), float64(f.Height)
	out := make([]Point, 0, len(idx))
	for _, i := range idx {
		p := f.Points[i]
		out = append(out, Point{X: p.X * w, Y: p.Y * h, Z: p.Z * w})
	}
	return out
}
