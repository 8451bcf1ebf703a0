// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build native

package landmark

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/mehmetaltunel/eyemouse/internal/camera"
)

// MeshSource captures camera frames and runs face detection and the
// face-mesh network on them.
type MeshSource struct {
	cfg     MeshConfig
	capture *camera.Capture
	faces   gocv.CascadeClassifier
	net     gocv.Net
	frame   gocv.Mat
	gray    gocv.Mat
	now     func() time.Time
}

// OpenMesh opens the camera and loads both models.
func OpenMesh(cfg MeshConfig) (*MeshSource, error) {
	if cfg.FaceModel == "" || cfg.MeshModel == "" {
		return nil, errors.New("landmarks.face_model and landmarks.mesh_model are required for the camera source")
	}
	faces := gocv.NewCascadeClassifier()
	if !faces.Load(cfg.FaceModel) {
		_ = faces.Close()
		return nil, fmt.Errorf("load face model %s", cfg.FaceModel)
	}
	net := gocv.ReadNetFromONNX(cfg.MeshModel)
	if net.Empty() {
		_ = faces.Close()
		return nil, fmt.Errorf("load mesh model %s", cfg.MeshModel)
	}
	capture, err := camera.Open(cfg.Camera)
	if err != nil {
		_ = faces.Close()
		_ = net.Close()
		return nil, err
	}
	return &MeshSource{
		cfg:     cfg,
		capture: capture,
		faces:   faces,
		net:     net,
		frame:   gocv.NewMat(),
		gray:    gocv.NewMat(),
		now:     time.Now,
	}, nil
}

// Next reads frames until one is available and returns it with landmarks
// when a face is visible.
func (s *MeshSource) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if s.capture.Read(&s.frame) {
			break
		}
		if err := sleepCtx(ctx, 10*time.Millisecond); err != nil {
			return Frame{}, err
		}
	}
	out := Frame{Time: s.now(), Width: s.frame.Cols(), Height: s.frame.Rows()}
	pts, err := s.detect()
	if errors.Is(err, ErrNoFace) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	out.Face = true
	out.Points = pts
	return out, nil
}

func (s *MeshSource) detect() ([]Point, error) {
	gocv.CvtColor(s.frame, &s.gray, gocv.ColorBGRToGray)
	face, ok := largest(s.faces.DetectMultiScale(s.gray))
	if !ok {
		return nil, ErrNoFace
	}
	bounds := image.Rect(0, 0, s.frame.Cols(), s.frame.Rows())
	crop := faceCrop(face, bounds, s.cfg.padding())
	if crop.Empty() {
		return nil, ErrNoFace
	}
	region := s.frame.Region(crop)
	defer region.Close()

	size := s.cfg.inputSize()
	blob := gocv.BlobFromImage(region, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	s.net.SetInput(blob, "")
	out := s.net.Forward("")
	defer out.Close()

	raw, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read mesh output: %w", err)
	}
	pts, ok := meshToFrame(raw, crop, size, s.frame.Cols(), s.frame.Rows())
	if !ok {
		return nil, fmt.Errorf("mesh output has %d values, want %d", len(raw), MeshPoints*3)
	}
	return pts, nil
}

// Close releases the camera, both models and the frame buffers.
func (s *MeshSource) Close() error {
	_ = s.frame.Close()
	_ = s.gray.Close()
	_ = s.faces.Close()
	_ = s.net.Close()
	return s.capture.Close()
}
