// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package pointer

import (
	"errors"
	"image"
	"testing"
)

type fakeInjector struct {
	moves   []image.Point
	clicks  []Button
	doubles int
	fail    error
}

func (f *fakeInjector) ScreenSize() (int, int) { return 1000, 800 }

func (f *fakeInjector) Move(x, y int) error {
	if f.fail != nil {
		return f.fail
	}
	f.moves = append(f.moves, image.Pt(x, y))
	return nil
}

func (f *fakeInjector) Click(b Button) error {
	if f.fail != nil {
		return f.fail
	}
	f.clicks = append(f.clicks, b)
	return nil
}

func (f *fakeInjector) DoubleClick() error {
	if f.fail != nil {
		return f.fail
	}
	f.doubles++
	return nil
}

func (f *fakeInjector) Location() (int, int) {
	if len(f.moves) == 0 {
		return 0, 0
	}
	p := f.moves[len(f.moves)-1]
	return p.X, p.Y
}

func linear() Settings {
	return Settings{Sensitivity: 1, SmoothingSamples: 1, DeadZone: 0, AccelerationCurve: 1}
}

func TestMoveToGaze_DisabledDoesNothing(t *testing.T) {
	inj := &fakeInjector{}
	c := NewController(inj, linear())
	c.MoveToGaze(0.2, 0.2)
	if len(inj.moves) != 0 {
		t.Fatalf("disabled controller moved: %v", inj.moves)
	}
	if c.Click(ButtonLeft) || c.DoubleClick() {
		t.Fatalf("disabled controller reported a click")
	}
	if len(inj.clicks) != 0 || inj.doubles != 0 {
		t.Fatalf("disabled controller clicked")
	}
}

func TestMoveToGaze_Linear(t *testing.T) {
	inj := &fakeInjector{}
	c := NewController(inj, linear())
	c.Enable(true)
	c.MoveToGaze(0.25, 0.75)
	if len(inj.moves) != 1 || inj.moves[0] != image.Pt(250, 600) {
		t.Fatalf("moves = %v, want [(250,600)]", inj.moves)
	}
}

func TestMoveToGaze_CurveAndSensitivity(t *testing.T) {
	inj := &fakeInjector{}
	c := NewController(inj, Settings{Sensitivity: 2, SmoothingSamples: 1, AccelerationCurve: 2})
	c.Enable(true)
	// offset -0.25 -> -0.0625 -> x2 -> -0.125 ; +0.25 -> 0.125
	c.MoveToGaze(0.25, 0.75)
	if got := inj.moves[0]; got != image.Pt(375, 500) {
		t.Fatalf("move = %v, want (375,500)", got)
	}
}

func TestMoveToGaze_Clamps(t *testing.T) {
	inj := &fakeInjector{}
	c := NewController(inj, Settings{Sensitivity: 10, SmoothingSamples: 1, AccelerationCurve: 1})
	c.Enable(true)
	c.MoveToGaze(1, 0)
	if got := inj.moves[0]; got != image.Pt(999, 0) {
		t.Fatalf("move = %v, want (999,0)", got)
	}
}

func TestMoveToGaze_SmoothingAndDeadZone(t *testing.T) {
	inj := &fakeInjector{}
	c := NewController(inj, Settings{Sensitivity: 1, SmoothingSamples: 2, DeadZone: 0.05, AccelerationCurve: 1})
	c.Enable(true)
	c.MoveToGaze(0.5, 0.5)      // (500,400)
	c.MoveToGaze(0.75, 0.5)     // mean 625
	c.MoveToGaze(0.75, 0.5)     // mean 750
	c.MoveToGaze(0.765625, 0.5) // mean 757.8, inside the dead zone
	want := []image.Point{image.Pt(500, 400), image.Pt(625, 400), image.Pt(750, 400)}
	if len(inj.moves) != len(want) {
		t.Fatalf("moves = %v, want %v", inj.moves, want)
	}
	for i := range want {
		if inj.moves[i] != want[i] {
			t.Fatalf("moves = %v, want %v", inj.moves, want)
		}
	}
}

func TestEnable_ResetsSmoothing(t *testing.T) {
	inj := &fakeInjector{}
	c := NewController(inj, Settings{Sensitivity: 1, SmoothingSamples: 5, AccelerationCurve: 1})
	c.Enable(true)
	c.MoveToGaze(0, 0)
	c.Enable(false)
	c.Enable(true)
	c.MoveToGaze(1, 1)
	if got := inj.moves[len(inj.moves)-1]; got != image.Pt(999, 799) {
		t.Fatalf("move after re-enable = %v, want (999,799)", got)
	}
}

func TestMoveToScreen(t *testing.T) {
	inj := &fakeInjector{}
	c := NewController(inj, Settings{Sensitivity: 5, SmoothingSamples: 1, AccelerationCurve: 3})
	c.Enable(true)
	c.MoveToScreen(123, 456)
	c.MoveToScreen(-50, 2000)
	want := []image.Point{image.Pt(123, 456), image.Pt(0, 799)}
	for i := range want {
		if inj.moves[i] != want[i] {
			t.Fatalf("moves = %v, want %v", inj.moves, want)
		}
	}
}

func TestPark_IgnoresEnabled(t *testing.T) {
	inj := &fakeInjector{}
	c := NewController(inj, linear())
	c.Park(10, 20)
	if x, y := c.Position(); x != 10 || y != 20 {
		t.Fatalf("Position = (%d,%d), want (10,20)", x, y)
	}
}

func TestClicks(t *testing.T) {
	inj := &fakeInjector{}
	c := NewController(inj, linear())
	c.Enable(true)
	if !c.Click(ButtonRight) || !c.Click(ButtonLeft) || !c.DoubleClick() {
		t.Fatalf("enabled clicks should succeed")
	}
	if len(inj.clicks) != 2 || inj.clicks[0] != ButtonRight || inj.doubles != 1 {
		t.Fatalf("clicks = %v doubles = %d", inj.clicks, inj.doubles)
	}

	inj.fail = errors.New("boom")
	if c.Click(ButtonLeft) {
		t.Fatalf("failed injection must report false")
	}
	c.MoveToGaze(0.1, 0.1) // failure is swallowed
}

func TestUpdateSettings(t *testing.T) {
	inj := &fakeInjector{}
	c := NewController(inj, DefaultSettings())
	s := linear()
	s.SmoothingSamples = 0
	c.UpdateSettings(s)
	if got := c.Settings(); got.SmoothingSamples != 1 || got.AccelerationCurve != 1 {
		t.Fatalf("Settings() = %+v", got)
	}
}

func TestNoop(t *testing.T) {
	n := NewNoop(640, 480)
	if w, h := n.ScreenSize(); w != 640 || h != 480 {
		t.Fatalf("ScreenSize = %dx%d", w, h)
	}
	if err := n.Move(3, 4); err != nil {
		t.Fatal(err)
	}
	if x, y := n.Location(); x != 3 || y != 4 {
		t.Fatalf("Location = (%d,%d)", x, y)
	}
}
