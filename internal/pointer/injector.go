// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package pointer

import "errors"

// ErrUnsupported is returned by the fallback injector in builds without
// OS input support.
var ErrUnsupported = errors.New("pointer: input injection not available in this build (rebuild with -tags native)")

// Button is a mouse button.
type Button string

const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)

// Injector drives the OS pointer.
type Injector interface {
	ScreenSize() (width, height int)
	Move(x, y int) error
	Click(b Button) error
	DoubleClick() error
	Location() (x, y int)
}

// Noop is an Injector that only remembers the last position. It stands in
// when no OS backend is compiled in, turning the pipeline into a dry run.
type Noop struct {
	Width, Height int
	x, y          int
}

// NewNoop returns a Noop for a screen of the given size.
func NewNoop(width, height int) *Noop {
	return &Noop{Width: width, Height: height}
}

func (n *Noop) ScreenSize() (int, int) { return n.Width, n.Height }

func (n *Noop) Move(x, y int) error {
	n.x, n.y = x, y
	return nil
}

func (n *Noop) Click(Button) error { return nil }

func (n *Noop) DoubleClick() error { return nil }

func (n *Noop) Location() (int, int) { return n.x, n.y }
