// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build !native

package pointer

// NewSystem returns ErrUnsupported; build with -tags native for robotgo.
func NewSystem() (Injector, error) {
	return nil, ErrUnsupported
}
