// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build native

package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Capture is an open device producing mirrored BGR frames.
type Capture struct {
	vc  *gocv.VideoCapture
	raw gocv.Mat
}

// Open opens the configured device and applies the requested format. The
// driver may silently pick the nearest supported format.
func Open(cfg Config) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Index, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("camera %d did not open", cfg.Index)
	}
	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
	}
	return &Capture{vc: vc, raw: gocv.NewMat()}, nil
}

// Read grabs a frame into dst, mirrored horizontally so moving the head
// left moves the image left. It returns false when no frame was available.
func (c *Capture) Read(dst *gocv.Mat) bool {
	if ok := c.vc.Read(&c.raw); !ok || c.raw.Empty() {
		return false
	}
	gocv.Flip(c.raw, dst, 1)
	return true
}

// Close releases the device.
func (c *Capture) Close() error {
	_ = c.raw.Close()
	return c.vc.Close()
}

// List probes the first n device indices and returns the ones that open and
// deliver a frame.
func List(n int) ([]Device, error) {
	if n <= 0 {
		n = DefaultProbeCount
	}
	var out []Device
	img := gocv.NewMat()
	defer img.Close()
	for i := 0; i < n; i++ {
		vc, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		if vc.IsOpened() && vc.Read(&img) && !img.Empty() {
			out = append(out, Device{Index: i, Name: deviceName(i)})
		}
		_ = vc.Close()
	}
	return out, nil
}
