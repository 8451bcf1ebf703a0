// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build !native

package landmark

import (
	"context"
)

// MeshSource is unavailable in builds without OpenCV.
type MeshSource struct{}

// OpenMesh reports ErrUnsupported.
func OpenMesh(cfg MeshConfig) (*MeshSource, error) {
	return nil, ErrUnsupported
}

func (s *MeshSource) Next(ctx context.Context) (Frame, error) { return Frame{}, ErrUnsupported }

func (s *MeshSource) Close() error { return nil }
