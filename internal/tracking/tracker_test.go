// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package tracking

import (
	"math"
	"testing"

	"github.com/mehmetaltunel/eyemouse/internal/landmark"
)

func frameWithNose(x, y float64) landmark.Frame {
	pts := make([]landmark.Point, landmark.MeshPoints)
	pts[landmark.NoseTip] = landmark.Point{X: x, Y: y}
	pts[landmark.LeftEyeOuter] = landmark.Point{X: 0.425, Y: 0.4}
	pts[landmark.RightEyeOuter] = landmark.Point{X: 0.575, Y: 0.4}
	return landmark.Frame{Width: 640, Height: 480, Face: true, Points: pts}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSetSensitivity_ShrinksAroundCentre(t *testing.T) {
	tr := New()
	tr.SetSensitivity(2)
	b := tr.Bounds()
	if !near(b.MinX, 0.4) || !near(b.MaxX, 0.6) || !near(b.MinY, 0.4) || !near(b.MaxY, 0.6) {
		t.Fatalf("unexpected bounds at 2x: %+v", b)
	}

	tr.SetSensitivity(50)
	if tr.Sensitivity() != MaxSensitivity {
		t.Fatalf("expected clamp to %v, got %v", MaxSensitivity, tr.Sensitivity())
	}
	tr.SetSensitivity(0)
	if tr.Sensitivity() != MinSensitivity {
		t.Fatalf("expected clamp to %v, got %v", MinSensitivity, tr.Sensitivity())
	}
	if b := tr.Bounds(); !near(b.MinX, 0.3) || !near(b.MaxX, 0.7) {
		t.Fatalf("expected base bounds at 1x, got %+v", b)
	}
}

func TestProcess_ExponentialSmoothingFromCentre(t *testing.T) {
	tr := New()
	g, ok := tr.Process(frameWithNose(0.7, 0.3))
	if !ok {
		t.Fatalf("expected face")
	}
	// maps to (1,0); first step moves 12% of the way from (0.5,0.5)
	if !near(g.Position.X, 0.56) || !near(g.Position.Y, 0.44) {
		t.Fatalf("unexpected first position: %+v", g.Position)
	}
	for i := 0; i < 200; i++ {
		g, _ = tr.Process(frameWithNose(0.7, 0.3))
	}
	if math.Abs(g.Position.X-1) > 1e-6 || math.Abs(g.Position.Y) > 1e-6 {
		t.Fatalf("expected convergence to (1,0), got %+v", g.Position)
	}
}

func TestProcess_ClampsOutsideActiveArea(t *testing.T) {
	tr := New()
	var g GazeData
	for i := 0; i < 300; i++ {
		g, _ = tr.Process(frameWithNose(0.95, 0.05))
	}
	if g.Position.X > 1 || g.Position.Y < 0 {
		t.Fatalf("position escaped [0,1]: %+v", g.Position)
	}
}

func TestProcess_HistoryAveragesLastEight(t *testing.T) {
	tr := New()
	for i := 0; i < 8; i++ {
		tr.Process(frameWithNose(0.3, 0.5))
	}
	g, _ := tr.Process(frameWithNose(0.7, 0.5))
	if !near(g.NoseX, (7*0.3+0.7)/8) {
		t.Fatalf("expected 8-sample average, got %v", g.NoseX)
	}
}

func TestProcess_DistanceEstimate(t *testing.T) {
	tr := New()
	g, _ := tr.Process(frameWithNose(0.5, 0.5))
	if !near(g.Distance, 1.0) {
		t.Fatalf("expected reference distance 1.0, got %v", g.Distance)
	}
	if DistanceBand(g.Distance) != BandOK {
		t.Fatalf("expected ok band")
	}
	f := frameWithNose(0.5, 0.5)
	f.Points[landmark.RightEyeOuter] = f.Points[landmark.LeftEyeOuter]
	g, _ = tr.Process(f)
	if g.Distance != 0 {
		t.Fatalf("expected 0 for degenerate eye span, got %v", g.Distance)
	}
}

func TestProcess_NoFace(t *testing.T) {
	tr := New()
	if _, ok := tr.Process(landmark.Frame{Width: 640, Height: 480}); ok {
		t.Fatalf("expected no gaze without a face")
	}
}

func TestMapRange_DegenerateBounds(t *testing.T) {
	tr := New()
	tr.SetBounds(Bounds{MinX: 0.5, MaxX: 0.5, MinY: 0.6, MaxY: 0.4})
	var g GazeData
	for i := 0; i < 300; i++ {
		g, _ = tr.Process(frameWithNose(0.9, 0.1))
	}
	if math.Abs(g.Position.X-0.5) > 1e-6 || math.Abs(g.Position.Y-0.5) > 1e-6 {
		t.Fatalf("expected centre for degenerate bounds, got %+v", g.Position)
	}
}

func TestDistanceBand(t *testing.T) {
	cases := map[float64]Band{0.5: BandClose, 0.8: BandOK, 1.2: BandOK, 1.5: BandFar}
	for d, want := range cases {
		if got := DistanceBand(d); got != want {
			t.Fatalf("DistanceBand(%v) = %v, want %v", d, got, want)
		}
	}
}
