// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package landmark

import (
	"image"

	"github.com/mehmetaltunel/eyemouse/internal/camera"
)

// MeshConfig configures the native camera + face-mesh source.
type MeshConfig struct {
	Camera camera.Config
	// FaceModel is a Haar cascade used to locate the face.
	FaceModel string
	// MeshModel is a face-mesh ONNX model taking a 192x192 RGB crop and
	// returning 468 (x, y, z) triples in crop pixels.
	MeshModel string
	// InputSize is the square model input edge, 192 when zero.
	InputSize int
	// Padding enlarges the detected face box before cropping, 0.25 when zero.
	Padding float64
}

func (c MeshConfig) inputSize() int {
	if c.InputSize <= 0 {
		return 192
	}
	return c.InputSize
}

func (c MeshConfig) padding() float64 {
	if c.Padding <= 0 {
		return 0.25
	}
	return c.Padding
}

// faceCrop squares and pads a detected face box and clips it to the frame.
func faceCrop(face image.Rectangle, frame image.Rectangle, pad float64) image.Rectangle {
	side := face.Dx()
	if face.Dy() > side {
		side = face.Dy()
	}
	side = int(float64(side) * (1 + 2*pad))
	c := image.Pt((face.Min.X+face.Max.X)/2, (face.Min.Y+face.Max.Y)/2)
	r := image.Rect(c.X-side/2, c.Y-side/2, c.X-side/2+side, c.Y-side/2+side)
	return r.Intersect(frame)
}

// largest picks the biggest rectangle, which is the face nearest the camera.
func largest(rects []image.Rectangle) (image.Rectangle, bool) {
	var best image.Rectangle
	found := false
	for _, r := range rects {
		if !found || r.Dx()*r.Dy() > best.Dx()*best.Dy() {
			best, found = r, true
		}
	}
	return best, found
}

// meshToFrame converts raw model output (triples in crop pixels of an
// input-sized square) into normalized frame points.
func meshToFrame(raw []float32, crop image.Rectangle, input, width, height int) ([]Point, bool) {
	if len(raw) < MeshPoints*3 || width <= 0 || height <= 0 || crop.Empty() {
		return nil, false
	}
	sx := float64(crop.Dx()) / float64(input)
	sy := float64(crop.Dy()) / float64(input)
	pts := make([]Point, MeshPoints)
	for i := 0; i < MeshPoints; i++ {
		x := float64(crop.Min.X) + float64(raw[3*i])*sx
		y := float64(crop.Min.Y) + float64(raw[3*i+1])*sy
		z := float64(raw[3*i+2]) * sx
		pts[i] = Point{X: x / float64(width), Y: y / float64(height), Z: z / float64(width)}
	}
	return pts, true
}
