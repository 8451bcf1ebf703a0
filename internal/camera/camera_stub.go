// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build !native

package camera

// List reports ErrUnsupported in builds without OpenCV.
func List(n int) ([]Device, error) {
	return nil, ErrUnsupported
}
