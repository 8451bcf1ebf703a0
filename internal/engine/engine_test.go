// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package engine

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mehmetaltunel/eyemouse/internal/calibration"
	"github.com/mehmetaltunel/eyemouse/internal/config"
	"github.com/mehmetaltunel/eyemouse/internal/db"
	"github.com/mehmetaltunel/eyemouse/internal/landmark"
	"github.com/mehmetaltunel/eyemouse/internal/model"
	"github.com/mehmetaltunel/eyemouse/internal/pointer"
)

// fakeSource calls next for each frame; next returns io.EOF to end the run.
type fakeSource struct {
	i      int
	next   func(i int) (landmark.Frame, error)
	closed bool
}

func (s *fakeSource) Next(ctx context.Context) (landmark.Frame, error) {
	if err := ctx.Err(); err != nil {
		return landmark.Frame{}, err
	}
	f, err := s.next(s.i)
	s.i++
	return f, err
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func framesSource(frames ...landmark.Frame) *fakeSource {
	return &fakeSource{next: func(i int) (landmark.Frame, error) {
		if i >= len(frames) {
			return landmark.Frame{}, io.EOF
		}
		return frames[i], nil
	}}
}

type fakeInjector struct {
	moves  []image.Point
	clicks []pointer.Button
	double int
}

func (f *fakeInjector) ScreenSize() (int, int) { return 1000, 800 }

func (f *fakeInjector) Move(x, y int) error {
	f.moves = append(f.moves, image.Pt(x, y))
	return nil
}

func (f *fakeInjector) Click(b pointer.Button) error {
	f.clicks = append(f.clicks, b)
	return nil
}

func (f *fakeInjector) DoubleClick() error {
	f.double++
	return nil
}

func (f *fakeInjector) Location() (int, int) {
	if len(f.moves) == 0 {
		return 0, 0
	}
	p := f.moves[len(f.moves)-1]
	return p.X, p.Y
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// face builds a 1000x1000 frame with the nose at (nx, ny). Eye openness is
// the contour half-height: 0.006 gives EAR 0.3, 0.002 gives EAR 0.1.
func face(nx, ny float64, leftOpen, rightOpen bool) landmark.Frame {
	pts := make([]landmark.Point, landmark.MeshPoints)
	for i := range pts {
		pts[i] = landmark.Point{X: 0.5, Y: 0.5}
	}
	pts[landmark.NoseTip] = landmark.Point{X: nx, Y: ny}
	eye(pts, landmark.LeftEye, 0.35, 0.4, leftOpen)
	eye(pts, landmark.RightEye, 0.65, 0.4, rightOpen)
	return landmark.Frame{Width: 1000, Height: 1000, Face: true, Points: pts}
}

func eye(pts []landmark.Point, idx [6]int, cx, cy float64, open bool) {
	h := 0.002
	if open {
		h = 0.006
	}
	pts[idx[0]] = landmark.Point{X: cx - 0.02, Y: cy}
	pts[idx[1]] = landmark.Point{X: cx - 0.007, Y: cy - h}
	pts[idx[2]] = landmark.Point{X: cx + 0.007, Y: cy - h}
	pts[idx[3]] = landmark.Point{X: cx + 0.02, Y: cy}
	pts[idx[4]] = landmark.Point{X: cx + 0.007, Y: cy + h}
	pts[idx[5]] = landmark.Point{X: cx - 0.007, Y: cy + h}
}

func repeat(f landmark.Frame, n int) []landmark.Frame {
	out := make([]landmark.Frame, n)
	for i := range out {
		out[i] = f
	}
	return out
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Tracking.SmoothingSamples = 1
	cfg.Calibration.File = ""
	cfg.Calibration.Apply = false
	return cfg
}

type harness struct {
	e     *Engine
	inj   *fakeInjector
	clk   *fakeClock
	store *db.BunStore
}

func newHarness(t *testing.T, cfg config.Config, src *fakeSource, withStore bool) *harness {
	t.Helper()
	h := &harness{inj: &fakeInjector{}, clk: &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}}
	inner := src.next
	src.next = func(i int) (landmark.Frame, error) {
		h.clk.now = h.clk.now.Add(40 * time.Millisecond)
		return inner(i)
	}
	opts := Options{Config: cfg, Source: src, Injector: h.inj, Clock: h.clk.Now, SourceName: "test"}
	if withStore {
		s, err := db.NewStoreFromDSN("sqlite", ":memory:")
		if err != nil {
			t.Fatalf("NewStoreFromDSN: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		h.store = s
		opts.Store = s
	}
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.e = e
	return h
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{Config: testConfig(), Injector: &fakeInjector{}}); err == nil {
		t.Errorf("missing source should fail")
	}
	if _, err := New(Options{Config: testConfig(), Source: framesSource()}); err == nil {
		t.Errorf("missing injector should fail")
	}
	if _, err := New(Options{Config: testConfig(), Source: framesSource(), Injector: pointer.NewNoop(0, 0)}); err == nil {
		t.Errorf("zero screen should fail")
	}
}

func TestRun_DisabledControlDoesNotMove(t *testing.T) {
	h := newHarness(t, testConfig(), framesSource(repeat(face(0.5, 0.5, true, true), 10)...), false)
	if err := h.e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.inj.moves) != 0 {
		t.Fatalf("cursor moved with control off: %v", h.inj.moves)
	}
	st := h.e.Snapshot()
	if st.Frames != 10 || !st.Face {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.LeftEAR < 0.29 || st.RightEAR < 0.29 {
		t.Errorf("EAR = %v/%v, want about 0.3", st.LeftEAR, st.RightEAR)
	}
}

func TestRun_MovesCursorWhenEnabled(t *testing.T) {
	h := newHarness(t, testConfig(), framesSource(repeat(face(0.5, 0.5, true, true), 5)...), false)
	h.e.SetControl(true)
	if err := h.e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.inj.moves) == 0 {
		t.Fatalf("expected cursor moves")
	}
	if got := h.inj.moves[0]; got != image.Pt(500, 400) {
		t.Errorf("first move = %v, want screen centre", got)
	}
	if !h.e.Snapshot().ControlEnabled {
		t.Errorf("status should report control on")
	}
}

func TestRun_WinksClickAndAreLogged(t *testing.T) {
	var frames []landmark.Frame
	frames = append(frames, repeat(face(0.5, 0.5, true, true), 2)...)
	frames = append(frames, repeat(face(0.5, 0.5, false, true), 2)...)
	frames = append(frames, repeat(face(0.5, 0.5, true, true), 20)...)
	frames = append(frames, repeat(face(0.5, 0.5, true, false), 2)...)
	frames = append(frames, repeat(face(0.5, 0.5, true, true), 2)...)

	h := newHarness(t, testConfig(), framesSource(frames...), true)
	h.e.SetControl(true)
	if err := h.e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.inj.clicks) != 2 || h.inj.clicks[0] != pointer.ButtonLeft || h.inj.clicks[1] != pointer.ButtonRight {
		t.Fatalf("clicks = %v, want [left right]", h.inj.clicks)
	}

	st := h.e.Snapshot()
	if st.LastAction != model.ActionRightClick || st.Clicks.Total() != 2 {
		t.Errorf("unexpected status %+v", st)
	}

	ctx := context.Background()
	logged, err := h.store.RecentClicks(ctx, 10)
	if err != nil {
		t.Fatalf("RecentClicks: %v", err)
	}
	if len(logged) != 2 || !logged[0].Injected {
		t.Fatalf("logged clicks = %+v", logged)
	}
	sessions, err := h.store.ListSessions(ctx, 1)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("ListSessions = %v, %v", sessions, err)
	}
	if sessions[0].EndedAt == nil || sessions[0].Clicks != (model.ClickCounts{Left: 1, Right: 1}) || sessions[0].Source != "test" {
		t.Errorf("unexpected session %+v", sessions[0])
	}
}

// slowStore blocks LogClick until release is closed.
type slowStore struct {
	db.Store
	entered chan struct{}
	release chan struct{}
}

func (s *slowStore) StartSession(context.Context, model.Session) (int, error) { return 1, nil }

func (s *slowStore) EndSession(context.Context, int, time.Time, model.ClickCounts) error {
	return nil
}

func (s *slowStore) LogClick(ctx context.Context, _ model.ClickEvent) error {
	close(s.entered)
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestRun_SlowStoreDoesNotBlockCommands(t *testing.T) {
	var frames []landmark.Frame
	frames = append(frames, repeat(face(0.5, 0.5, true, true), 2)...)
	frames = append(frames, repeat(face(0.5, 0.5, false, true), 2)...)
	frames = append(frames, repeat(face(0.5, 0.5, true, true), 2)...)

	h := newHarness(t, testConfig(), framesSource(frames...), false)
	store := &slowStore{entered: make(chan struct{}), release: make(chan struct{})}
	h.e.store = store
	h.e.SetControl(true)

	errc := make(chan error, 1)
	go func() { errc <- h.e.Run(context.Background()) }()

	select {
	case <-store.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("click was never logged")
	}

	toggled := make(chan struct{})
	go func() {
		h.e.ToggleControl()
		_ = h.e.Snapshot()
		close(toggled)
	}()
	select {
	case <-toggled:
	case <-time.After(time.Second):
		t.Fatal("commands blocked while the store was writing")
	}

	close(store.release)
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := h.e.Snapshot().Clicks.Left; got != 1 {
		t.Fatalf("left clicks = %d, want 1", got)
	}
}

func TestRun_WinkWithControlOffIsObservedOnly(t *testing.T) {
	var frames []landmark.Frame
	frames = append(frames, face(0.5, 0.5, true, true))
	frames = append(frames, repeat(face(0.5, 0.5, false, true), 2)...)
	frames = append(frames, face(0.5, 0.5, true, true))

	h := newHarness(t, testConfig(), framesSource(frames...), true)
	if err := h.e.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.inj.clicks) != 0 {
		t.Fatalf("clicked with control off: %v", h.inj.clicks)
	}
	logged, _ := h.store.RecentClicks(context.Background(), 10)
	if len(logged) != 1 || logged[0].Injected || logged[0].Action != model.ActionLeftClick {
		t.Fatalf("logged = %+v", logged)
	}
}

func TestRun_NoFaceFrames(t *testing.T) {
	h := newHarness(t, testConfig(), framesSource(landmark.Frame{Width: 640, Height: 480}), false)
	if err := h.e.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if st := h.e.Snapshot(); st.Face || st.Frames != 1 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestRun_SourceErrorAndTap(t *testing.T) {
	boom := errors.New("camera unplugged")
	src := &fakeSource{next: func(int) (landmark.Frame, error) { return landmark.Frame{}, boom }}
	h := newHarness(t, testConfig(), src, false)
	if err := h.e.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Run err = %v, want wrapped source error", err)
	}
	<-h.e.Done()
	if !errors.Is(h.e.Err(), boom) {
		t.Errorf("Err() = %v", h.e.Err())
	}

	tapErr := errors.New("disk full")
	cfg := testConfig()
	var seen int
	src2 := framesSource(repeat(face(0.5, 0.5, true, true), 5)...)
	h2 := &harness{inj: &fakeInjector{}}
	e, err := New(Options{Config: cfg, Source: src2, Injector: h2.inj, Tap: func(landmark.Frame) error {
		seen++
		if seen == 3 {
			return tapErr
		}
		return nil
	}})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Run(context.Background()); !errors.Is(err, tapErr) {
		t.Fatalf("Run err = %v, want tap error", err)
	}
	if e.Snapshot().Frames != 2 {
		t.Errorf("frames processed = %d, want 2", e.Snapshot().Frames)
	}
}

func TestRun_CancelledContextIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{next: func(i int) (landmark.Frame, error) {
		if i == 3 {
			cancel()
			return landmark.Frame{}, context.Canceled
		}
		return face(0.5, 0.5, true, true), nil
	}}
	h := newHarness(t, testConfig(), src, true)
	if err := h.e.Run(ctx); err != nil {
		t.Fatalf("Run after cancel = %v, want nil", err)
	}
	sessions, _ := h.store.ListSessions(context.Background(), 1)
	if len(sessions) != 1 || sessions[0].EndedAt == nil {
		t.Fatalf("session not closed after cancel: %+v", sessions)
	}
}

func TestCalibrationRun(t *testing.T) {
	cfg := testConfig()
	cfg.Calibration.PointDuration = 0.5
	cfg.Calibration.File = filepath.Join(t.TempDir(), "calibration.json")

	var h *harness
	started := false
	src := &fakeSource{}
	src.next = func(i int) (landmark.Frame, error) {
		if i == 0 {
			return face(0.5, 0.5, true, true), nil
		}
		if !started {
			h.e.StartCalibration()
			started = true
		}
		st := h.e.Snapshot()
		if !st.Calibrating || i > 5000 {
			return landmark.Frame{}, io.EOF
		}
		// put the nose where the tracker maps it onto the target
		b := h.e.Bounds()
		gx := float64(st.Calibration.Target.X) / float64(st.ScreenWidth)
		gy := float64(st.Calibration.Target.Y) / float64(st.ScreenHeight)
		return face(b.MinX+gx*(b.MaxX-b.MinX), b.MinY+gy*(b.MaxY-b.MinY), true, true), nil
	}
	h = newHarness(t, cfg, src, true)
	h.e.SetControl(true)

	if err := h.e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	st := h.e.Snapshot()
	if st.Calibrating || !st.Calibrated || st.CalibrationError != "" {
		t.Fatalf("calibration did not complete: %+v", st)
	}
	if st.ControlEnabled {
		t.Errorf("calibration must leave control off")
	}
	if _, err := os.Stat(cfg.Calibration.File); err != nil {
		t.Errorf("calibration file not written: %v", err)
	}
	p, err := h.store.LatestCalibration(context.Background())
	if err != nil {
		t.Fatalf("LatestCalibration: %v", err)
	}
	if len(p.Points) != 9 || p.ScreenWidth != 1000 {
		t.Errorf("unexpected stored profile %s", p)
	}

	// each target was marked by parking the cursor on it
	targets := calibration.Grid(1000, 800, 9, cfg.Calibration.MarginPercent)
	parked := map[image.Point]bool{}
	for _, m := range h.inj.moves {
		parked[m] = true
	}
	for _, tgt := range targets {
		if !parked[tgt] {
			t.Errorf("target %v was never marked", tgt)
		}
	}
}

func TestCommands(t *testing.T) {
	h := newHarness(t, testConfig(), framesSource(), false)
	e := h.e

	if got := e.SetSensitivity(20); got != 10 {
		t.Errorf("SetSensitivity(20) = %v, want 10", got)
	}
	b := e.Bounds()
	if w := b.MaxX - b.MinX; w < 0.039 || w > 0.041 {
		t.Errorf("active area width = %v, want 0.04", w)
	}

	if !e.ToggleControl() || e.ToggleControl() {
		t.Errorf("ToggleControl should flip on then off")
	}
	e.StartCalibration()
	if e.ToggleControl() {
		t.Errorf("control must stay off while calibrating")
	}
	e.SetControl(true)
	if e.Snapshot().ControlEnabled {
		t.Errorf("SetControl(true) must be refused while calibrating")
	}
	if len(h.inj.moves) != 1 || h.inj.moves[0] != image.Pt(100, 80) {
		t.Errorf("first target not marked: %v", h.inj.moves)
	}
	e.CancelCalibration()
	if e.Snapshot().Calibrating {
		t.Errorf("calibration still running after cancel")
	}

	show := e.Snapshot().ShowLandmarks
	if e.ToggleLandmarks() == show {
		t.Errorf("ToggleLandmarks did not flip")
	}
}

func TestUpdatesHoldLatestSnapshot(t *testing.T) {
	h := newHarness(t, testConfig(), framesSource(), false)
	h.e.SetSensitivity(3)
	h.e.SetSensitivity(4)
	h.e.SetSensitivity(5)
	select {
	case st := <-h.e.Updates():
		if st.Sensitivity != 5 {
			t.Fatalf("got sensitivity %v, want the latest (5)", st.Sensitivity)
		}
	default:
		t.Fatalf("no snapshot published")
	}
	select {
	case st := <-h.e.Updates():
		t.Fatalf("stale snapshot left in channel: %+v", st)
	default:
	}
}

func TestLoadCalibration(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	// nothing to load
	cfg := testConfig()
	cfg.Calibration.File = filepath.Join(dir, "missing.json")
	h := newHarness(t, cfg, framesSource(), true)
	if err := h.e.LoadCalibration(ctx); err != nil {
		t.Fatalf("LoadCalibration with nothing stored: %v", err)
	}
	if h.e.Snapshot().Calibrated {
		t.Fatalf("should not be calibrated")
	}

	// from the database
	prof := model.CalibrationProfile{ScreenWidth: 1000, ScreenHeight: 800, Transform: [9]float64{0, 0, 100, 0, 0, 200, 0, 0, 1}}
	if _, err := h.store.SaveCalibration(ctx, prof); err != nil {
		t.Fatal(err)
	}
	if err := h.e.LoadCalibration(ctx); err != nil {
		t.Fatalf("LoadCalibration from store: %v", err)
	}
	if !h.e.Snapshot().Calibrated {
		t.Fatalf("expected calibrated from store")
	}

	// from the file
	file := filepath.Join(dir, "calibration.json")
	c := calibration.New(1000, 800, calibration.DefaultConfig(), nil)
	if err := c.FromProfile(prof); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(file); err != nil {
		t.Fatal(err)
	}
	cfg.Calibration.File = file
	h2 := newHarness(t, cfg, framesSource(), false)
	if err := h2.e.LoadCalibration(ctx); err != nil {
		t.Fatalf("LoadCalibration from file: %v", err)
	}
	if !h2.e.Snapshot().Calibrated {
		t.Fatalf("expected calibrated from file")
	}
}

func TestRun_AppliesCalibration(t *testing.T) {
	cfg := testConfig()
	cfg.Calibration.Apply = true
	h := newHarness(t, cfg, framesSource(repeat(face(0.3, 0.6, true, true), 3)...), true)
	prof := model.CalibrationProfile{ScreenWidth: 1000, ScreenHeight: 800, Transform: [9]float64{0, 0, 100, 0, 0, 200, 0, 0, 1}}
	if _, err := h.store.SaveCalibration(context.Background(), prof); err != nil {
		t.Fatal(err)
	}
	if err := h.e.LoadCalibration(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.e.SetControl(true)
	if err := h.e.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.inj.moves) == 0 || h.inj.moves[0] != image.Pt(100, 200) {
		t.Fatalf("moves = %v, want the calibrated (100,200)", h.inj.moves)
	}
}
