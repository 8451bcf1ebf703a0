// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// package camera enumerates and opens capture devices. The implementation
// is backed by OpenCV and only available in builds tagged "native"; other
// builds report ErrUnsupported.
package camera // import "github.com/mehmetaltunel/eyemouse/internal/camera"

import (
	"errors"
	"fmt"
)

// DefaultProbeCount is how many device indices List checks by default.
const DefaultProbeCount = 5

// ErrUnsupported is returned when the binary was built without camera support.
var ErrUnsupported = errors.New("camera support requires a build with -tags native")

// Device is an available capture device.
type Device struct {
	Index int
	Name  string
}

// Config selects a device and its capture format.
type Config struct {
	Index  int
	Width  int
	Height int
	FPS    int
}

func deviceName(i int) string {
	return fmt.Sprintf("Camera %d", i)
}
