// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package calibration

import (
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mehmetaltunel/eyemouse/internal/model"
	"github.com/mehmetaltunel/eyemouse/internal/tracking"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestCalibrator(points int) (*Calibrator, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg := DefaultConfig()
	cfg.Points = points
	cfg.HoldDuration = time.Second
	return New(1000, 500, cfg, clk.Now), clk
}

// lookAt feeds frames every 40ms looking at the target until the point
// completes or limit frames pass.
func lookAt(c *Calibrator, clk *fakeClock, g tracking.Gaze, limit int) Progress {
	var p Progress
	start := len(c.Points())
	for range limit {
		clk.now = clk.now.Add(40 * time.Millisecond)
		p = c.Update(&g)
		if p.Done || len(c.Points()) != start {
			return p
		}
	}
	return p
}

func profileFor(h Homography) model.CalibrationProfile {
	return model.CalibrationProfile{
		ScreenWidth:  1000,
		ScreenHeight: 500,
		Transform:    h,
		Points:       []model.CalibrationPoint{{ScreenX: 500, ScreenY: 250, GazeX: 0.5, GazeY: 0.5}},
	}
}

func TestGrid(t *testing.T) {
	nine := Grid(1000, 500, 9, 0.1)
	if len(nine) != 9 {
		t.Fatalf("9-point grid has %d points", len(nine))
	}
	if nine[0] != image.Pt(100, 50) || nine[4] != image.Pt(500, 250) || nine[8] != image.Pt(900, 450) {
		t.Errorf("unexpected 9-point grid: %v", nine)
	}

	five := Grid(1000, 500, 5, 0.1)
	want := []image.Point{image.Pt(500, 250), image.Pt(100, 50), image.Pt(900, 50), image.Pt(100, 450), image.Pt(900, 450)}
	for i := range want {
		if five[i] != want[i] {
			t.Fatalf("5-point grid = %v, want %v", five, want)
		}
	}

	if got := Grid(1000, 500, 16, 0.1); len(got) != 16 {
		t.Errorf("16-point grid has %d points", len(got))
	}
	if got := Grid(1000, 500, 7, 0.1); len(got) != 4 {
		t.Errorf("7 points should fall back to a 2x2 grid, got %d", len(got))
	}
	single := Grid(1000, 500, 1, 0.1)
	if len(single) != 1 || single[0] != image.Pt(500, 250) {
		t.Errorf("single point grid = %v, want centre", single)
	}
}

func TestUpdate_InactiveIsDone(t *testing.T) {
	c, _ := newTestCalibrator(9)
	if p := c.Update(&tracking.Gaze{X: 0.5, Y: 0.5}); !p.Done {
		t.Fatalf("Update on idle calibrator should report done")
	}
}

func TestUpdate_Quality(t *testing.T) {
	c, clk := newTestCalibrator(9)
	c.Start()
	first := c.Targets()[0] // (100,50) -> (0.1,0.1)

	clk.now = clk.now.Add(40 * time.Millisecond)
	p := c.Update(nil)
	if c.Quality() != NoGaze || p.Fraction != 0 {
		t.Fatalf("nil gaze: quality %v fraction %v", c.Quality(), p.Fraction)
	}
	if p.Target != first || p.Index != 1 || p.Total != 9 {
		t.Fatalf("unexpected progress %+v", p)
	}

	c.Update(&tracking.Gaze{X: 0.1, Y: 0.1})
	if c.Quality() != OnTarget {
		t.Errorf("quality = %v, want on_target", c.Quality())
	}
	c.Update(&tracking.Gaze{X: 0.5, Y: 0.4})
	if c.Quality() != NearTarget {
		t.Errorf("quality = %v, want near_target", c.Quality())
	}
	c.Update(&tracking.Gaze{X: 0.9, Y: 0.9})
	if c.Quality() != OffTarget {
		t.Errorf("quality = %v, want off_target", c.Quality())
	}
}

func TestUpdate_NoGazePausesProgress(t *testing.T) {
	c, clk := newTestCalibrator(9)
	c.Start()
	g := tracking.Gaze{X: 0.1, Y: 0.1}
	for range 10 {
		clk.now = clk.now.Add(40 * time.Millisecond)
		c.Update(&g)
	}
	before := c.Update(nil).Fraction
	clk.now = clk.now.Add(5 * time.Second)
	after := c.Update(nil).Fraction
	if before == 0 || after != before {
		t.Fatalf("fraction moved while no gaze: %v -> %v", before, after)
	}
}

func TestUpdate_NeedsMinSamples(t *testing.T) {
	c, clk := newTestCalibrator(9)
	c.Start()
	g := tracking.Gaze{X: 0.1, Y: 0.1}
	// hold time is reached after 3 slow frames but 20 samples are required
	var p Progress
	for range 3 {
		clk.now = clk.now.Add(600 * time.Millisecond)
		p = c.Update(&g)
	}
	if p.Fraction != 1 || p.Index != 1 {
		t.Fatalf("expected full hold on first point, got %+v", p)
	}
	for range MinSamples - 3 {
		clk.now = clk.now.Add(10 * time.Millisecond)
		p = c.Update(&g)
	}
	if len(c.Points()) != 1 {
		t.Fatalf("point should complete once %d samples are in, got %+v", MinSamples, p)
	}
}

func runFull(t *testing.T, c *Calibrator, clk *fakeClock, toGaze func(image.Point) tracking.Gaze) {
	t.Helper()
	c.Start()
	for i, target := range c.Targets() {
		p := lookAt(c, clk, toGaze(target), 200)
		if i == len(c.Targets())-1 {
			if !p.Done {
				t.Fatalf("last point did not finish calibration: %+v", p)
			}
		}
	}
	if c.Active() {
		t.Fatalf("calibrator still active after all points")
	}
}

func TestFullRun_FitsHomography(t *testing.T) {
	c, clk := newTestCalibrator(9)
	// gaze lands slightly compressed around the centre of each target
	toGaze := func(p image.Point) tracking.Gaze {
		return tracking.Gaze{
			X: 0.5 + (float64(p.X)/1000-0.5)*0.8,
			Y: 0.5 + (float64(p.Y)/500-0.5)*0.8,
		}
	}
	runFull(t, c, clk, toGaze)
	if !c.Calibrated() {
		t.Fatalf("expected a transform, err=%v", c.Err())
	}
	if len(c.Points()) != 9 {
		t.Fatalf("collected %d points, want 9", len(c.Points()))
	}
	for _, target := range c.Targets() {
		x, y := c.TransformGaze(toGaze(target))
		if abs(x-target.X) > 2 || abs(y-target.Y) > 2 {
			t.Errorf("target %v mapped to (%d,%d)", target, x, y)
		}
	}
	// far outside the screen is clamped
	x, y := c.TransformGaze(tracking.Gaze{X: 5, Y: -5})
	if x != 999 || y != 0 {
		t.Errorf("clamped point = (%d,%d), want (999,0)", x, y)
	}
}

func TestFullRun_TooFewPoints(t *testing.T) {
	c, clk := newTestCalibrator(1)
	runFull(t, c, clk, func(p image.Point) tracking.Gaze {
		return tracking.Gaze{X: float64(p.X) / 1000, Y: float64(p.Y) / 500}
	})
	if c.Calibrated() {
		t.Fatalf("one point must not produce a transform")
	}
	if !errors.Is(c.Err(), ErrTooFewPoints) {
		t.Errorf("Err() = %v, want ErrTooFewPoints", c.Err())
	}
}

func TestTransformGaze_Uncalibrated(t *testing.T) {
	c, _ := newTestCalibrator(9)
	x, y := c.TransformGaze(tracking.Gaze{X: 0.25, Y: 0.5})
	if x != 250 || y != 250 {
		t.Errorf("TransformGaze = (%d,%d), want (250,250)", x, y)
	}
}

func TestFitHomography_RecoversProjective(t *testing.T) {
	want := Homography{800, 40, 120, -20, 450, 60, 0.1, 0.05, 1}
	var src, dst [][2]float64
	for _, p := range [][2]float64{{0.1, 0.1}, {0.9, 0.1}, {0.1, 0.9}, {0.9, 0.9}, {0.5, 0.5}, {0.3, 0.7}} {
		x, y, _ := want.Apply(p[0], p[1])
		src = append(src, p)
		dst = append(dst, [2]float64{x, y})
	}
	got, err := FitHomography(src, dst, 1000, 500)
	if err != nil {
		t.Fatalf("FitHomography: %v", err)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-6*math.Max(1, math.Abs(want[i])) {
			t.Fatalf("h[%d] = %v, want %v (full %v)", i, got[i], want[i], got)
		}
	}
}

func TestFitHomography_Degenerate(t *testing.T) {
	src := [][2]float64{{0.1, 0.1}, {0.2, 0.2}, {0.3, 0.3}, {0.4, 0.4}}
	dst := [][2]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	if _, err := FitHomography(src, dst, 1, 1); err == nil {
		t.Fatalf("collinear points should not fit")
	}
	if _, err := FitHomography(src[:3], dst[:3], 1, 1); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("three points: err = %v, want ErrTooFewPoints", err)
	}
}

func TestSaveLoad(t *testing.T) {
	c, _ := newTestCalibrator(9)
	path := filepath.Join(t.TempDir(), "sub", "calibration.json")
	if err := c.Save(path); !errors.Is(err, ErrNotCalibrated) {
		t.Fatalf("Save uncalibrated: err = %v, want ErrNotCalibrated", err)
	}

	h := Homography{1000, 0, 0, 0, 500, 0, 0, 0, 1}
	if err := c.FromProfile(profileFor(h)); err != nil {
		t.Fatalf("FromProfile: %v", err)
	}
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, key := range []string{`"transform"`, `"points"`, `"screen_size"`, `"screen_x"`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("calibration file lacks %s:\n%s", key, raw)
		}
	}

	other, _ := newTestCalibrator(9)
	if err := other.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !other.Calibrated() || len(other.Points()) != 1 {
		t.Fatalf("loaded calibrator: calibrated=%v points=%d", other.Calibrated(), len(other.Points()))
	}
	if x, y := other.TransformGaze(tracking.Gaze{X: 0.5, Y: 0.5}); x != 500 || y != 250 {
		t.Errorf("loaded transform maps centre to (%d,%d)", x, y)
	}
}

func TestLoad_Errors(t *testing.T) {
	c, _ := newTestCalibrator(9)
	dir := t.TempDir()
	if err := c.Load(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v", err)
	}
	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte("{not json"), 0o644)
	if err := c.Load(bad); err == nil {
		t.Errorf("malformed file should fail")
	}
	empty := filepath.Join(dir, "empty.json")
	_ = os.WriteFile(empty, []byte(`{"points":[]}`), 0o644)
	if err := c.Load(empty); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("zero transform: err = %v, want ErrNotCalibrated", err)
	}
	if c.Calibrated() {
		t.Errorf("failed loads must not install a transform")
	}
}

func TestProfile(t *testing.T) {
	c, _ := newTestCalibrator(9)
	if _, err := c.Profile(); !errors.Is(err, ErrNotCalibrated) {
		t.Fatalf("Profile uncalibrated: err = %v", err)
	}
	if err := c.FromProfile(profileFor(Identity)); err != nil {
		t.Fatal(err)
	}
	p, err := c.Profile()
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.ScreenWidth != 1000 || p.ScreenHeight != 500 || p.Transform != [9]float64(Identity) {
		t.Errorf("unexpected profile %+v", p)
	}
}

func TestQualityString(t *testing.T) {
	if OnTarget.String() != "on_target" || NoGaze.String() != "no_gaze" {
		t.Errorf("unexpected Quality strings")
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
