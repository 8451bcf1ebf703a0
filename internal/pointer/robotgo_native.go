// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build native

package pointer

import "github.com/go-vgo/robotgo"

// Robot injects input through robotgo.
type Robot struct{}

// NewSystem returns the OS injector.
func NewSystem() (Injector, error) {
	return Robot{}, nil
}

func (Robot) ScreenSize() (int, int) { return robotgo.GetScreenSize() }

func (Robot) Move(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (Robot) Click(b Button) error {
	robotgo.Click(string(b))
	return nil
}

func (Robot) DoubleClick() error {
	robotgo.Click(string(ButtonLeft), true)
	return nil
}

func (Robot) Location() (int, int) { return robotgo.Location() }
