// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// package engine runs the per-frame pipeline: landmarks feed the nose
// tracker and the wink detector, whose output drives calibration or the
// pointer. The latest state is published as a Status snapshot.
package engine // import "github.com/mehmetaltunel/eyemouse/internal/engine"

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"sync"
	"time"

	"github.com/mehmetaltunel/eyemouse/internal/blink"
	"github.com/mehmetaltunel/eyemouse/internal/calibration"
	"github.com/mehmetaltunel/eyemouse/internal/config"
	"github.com/mehmetaltunel/eyemouse/internal/db"
	"github.com/mehmetaltunel/eyemouse/internal/landmark"
	"github.com/mehmetaltunel/eyemouse/internal/logging"
	"github.com/mehmetaltunel/eyemouse/internal/model"
	"github.com/mehmetaltunel/eyemouse/internal/pointer"
	"github.com/mehmetaltunel/eyemouse/internal/tracking"
)

// storeTimeout bounds each store write so a slow database never stalls the
// frame loop for long.
const storeTimeout = 2 * time.Second

// Options wires an Engine.
type Options struct {
	Config   config.Config
	Source   landmark.Source
	Injector pointer.Injector
	// Store is optional.
	Store db.Store
	// SourceName is recorded on the session row.
	SourceName string
	// Tap, when set, sees every frame before processing; an error stops Run.
	Tap func(landmark.Frame) error
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Engine owns the pipeline state. Its command methods are safe to call from
// any goroutine while Run is active.
type Engine struct {
	src   landmark.Source
	store db.Store
	tap   func(landmark.Frame) error
	clock func() time.Time

	calFile    string
	applyCal   bool
	sourceName string

	mu        sync.Mutex
	tracker   *tracking.Tracker
	detector  *blink.Detector
	cal       *calibration.Calibrator
	ptr       *pointer.Controller
	status    Status
	counts    model.ClickCounts
	lastTgt   image.Point
	sessionID int

	updates chan Status
	done    chan struct{}
	runErr  error
}

// New builds an Engine from configuration.
func New(opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, errors.New("engine: no landmark source")
	}
	if opts.Injector == nil {
		return nil, errors.New("engine: no pointer injector")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	cfg := opts.Config

	ptr := pointer.NewController(opts.Injector, pointer.Settings{
		Sensitivity:       cfg.Mouse.Sensitivity,
		SmoothingSamples:  cfg.Mouse.SmoothingSamples,
		DeadZone:          cfg.Mouse.DeadZone,
		AccelerationCurve: cfg.Mouse.AccelerationCurve,
	})
	w, h := ptr.ScreenSize()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("engine: invalid screen size %dx%d", w, h)
	}

	tr := tracking.New()
	tr.SetSensitivity(cfg.Mouse.Sensitivity)

	det := blink.New(blink.Config{
		Threshold:         cfg.Tracking.EARThreshold,
		ConsecutiveFrames: cfg.Tracking.EARConsecutiveFrames,
		Cooldown:          seconds(cfg.Tracking.BlinkCooldown),
		SmoothingSamples:  cfg.Tracking.SmoothingSamples,
	}, clock)

	cal := calibration.New(w, h, calibration.Config{
		Points:        cfg.Calibration.PointsCount,
		HoldDuration:  seconds(cfg.Calibration.PointDuration),
		MarginPercent: cfg.Calibration.MarginPercent,
	}, clock)

	e := &Engine{
		src:        opts.Source,
		store:      opts.Store,
		tap:        opts.Tap,
		clock:      clock,
		calFile:    cfg.Calibration.File,
		applyCal:   cfg.Calibration.Apply,
		sourceName: opts.SourceName,
		tracker:    tr,
		detector:   det,
		cal:        cal,
		ptr:        ptr,
		updates:    make(chan Status, 1),
		done:       make(chan struct{}),
	}
	e.status = Status{
		ScreenWidth:   w,
		ScreenHeight:  h,
		Sensitivity:   tr.Sensitivity(),
		ShowLandmarks: cfg.ShowLandmarks,
		Bounds:        tr.Bounds(),
	}
	return e, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Updates delivers status snapshots. The channel holds only the newest one.
func (e *Engine) Updates() <-chan Status { return e.updates }

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Err returns Run's result once Done is closed.
func (e *Engine) Err() error {
	select {
	case <-e.done:
		return e.runErr
	default:
		return nil
	}
}

// Snapshot returns the current status.
func (e *Engine) Snapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LoadCalibration installs the calibration file when present, otherwise the
// newest stored profile. Having neither is not an error.
func (e *Engine) LoadCalibration(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.calFile != "" {
		err := e.cal.Load(e.calFile)
		if err == nil {
			logging.Infof("loaded calibration from %s", e.calFile)
			e.status.Calibrated = true
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if e.store == nil {
		return nil
	}
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	p, err := e.store.LatestCalibration(sctx)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load stored calibration: %w", err)
	}
	if err := e.cal.FromProfile(p); err != nil {
		return err
	}
	logging.Infof("loaded calibration %d (%s) from the database", p.ID, p)
	e.status.Calibrated = true
	return nil
}

// Run pulls frames until ctx is cancelled or the source ends. A finished
// replay is a clean exit.
func (e *Engine) Run(ctx context.Context) (err error) {
	defer func() {
		e.runErr = err
		close(e.done)
	}()

	e.startSession(ctx)
	defer e.endSession()

	e.publish()
	for {
		f, err := e.src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || landmark.IsEnd(err) {
				return nil
			}
			return fmt.Errorf("landmark source: %w", err)
		}
		if e.tap != nil {
			if err := e.tap(f); err != nil {
				return err
			}
		}
		for _, w := range e.process(f) {
			w(ctx)
		}
	}
}

// persistFunc is disk or database work queued while the lock is held and
// run after it is released.
type persistFunc func(ctx context.Context)

// process advances the pipeline by one frame and returns the writes it
// produced.
func (e *Engine) process(f landmark.Frame) (writes []persistFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	st := &e.status
	st.Time = now
	st.Frames++

	gd, ok := e.tracker.Process(f)
	st.Face = ok
	if !ok {
		if e.cal.Active() {
			writes = e.stepCalibration(nil)
		}
		e.publishLocked()
		return writes
	}
	st.Gaze = gd.Position
	st.NoseX, st.NoseY = gd.NoseX, gd.NoseY
	st.Distance = gd.Distance
	st.Band = tracking.DistanceBand(gd.Distance)

	ev, winked := e.detector.Detect(landmark.EyePoints(f, landmark.Left), landmark.EyePoints(f, landmark.Right))
	st.LeftEAR, st.RightEAR = e.detector.EAR()

	if e.cal.Active() {
		g := gd.Position
		writes = e.stepCalibration(&g)
	} else {
		if e.ptr.Enabled() {
			if e.applyCal && e.cal.Calibrated() {
				x, y := e.cal.TransformGaze(gd.Position)
				e.ptr.MoveToScreen(float64(x), float64(y))
			} else {
				e.ptr.MoveToGaze(gd.Position.X, gd.Position.Y)
			}
		}
		if winked {
			if w := e.handleWink(ev); w != nil {
				writes = append(writes, w)
			}
		}
	}
	e.publishLocked()
	return writes
}

func (e *Engine) stepCalibration(g *tracking.Gaze) []persistFunc {
	p := e.cal.Update(g)
	e.status.Calibration = p
	e.status.Quality = e.cal.Quality()
	if p.Done {
		return e.finishCalibration()
	}
	if p.Target != e.lastTgt {
		e.lastTgt = p.Target
		e.ptr.Park(p.Target.X, p.Target.Y)
	}
	return nil
}

func (e *Engine) finishCalibration() []persistFunc {
	st := &e.status
	st.Calibrating = false
	st.Calibrated = e.cal.Calibrated()
	if err := e.cal.Err(); err != nil {
		st.CalibrationError = err.Error()
		logging.Warnf("calibration failed: %v", err)
		return nil
	}
	st.CalibrationError = ""
	logging.Infof("calibration finished with %d points", len(e.cal.Points()))

	p, err := e.cal.Profile()
	if err != nil {
		return nil
	}
	p.CreatedAt = e.clock()
	path, store := e.calFile, e.store
	return []persistFunc{func(context.Context) {
		if path != "" {
			if err := calibration.SaveProfile(path, p); err != nil {
				logging.Errorf("failed to save calibration: %v", err)
			}
		}
		if store == nil {
			return
		}
		// the run context may be cancelled right after the last point
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if _, err := store.SaveCalibration(ctx, p); err != nil {
			logging.Errorf("failed to store calibration: %v", err)
		}
	}}
}

func actionFor(k blink.Kind) (model.Action, bool) {
	switch k {
	case blink.Left:
		return model.ActionLeftClick, true
	case blink.Right:
		return model.ActionRightClick, true
	case blink.Both:
		return model.ActionDoubleClick, true
	default:
		return "", false
	}
}

func (e *Engine) handleWink(ev blink.Event) persistFunc {
	action, ok := actionFor(ev.Kind)
	if !ok {
		return nil
	}
	var injected bool
	switch action {
	case model.ActionLeftClick:
		injected = e.ptr.Click(pointer.ButtonLeft)
	case model.ActionRightClick:
		injected = e.ptr.Click(pointer.ButtonRight)
	case model.ActionDoubleClick:
		injected = e.ptr.DoubleClick()
	}
	x, y := e.ptr.Position()
	e.counts.Add(action)
	e.status.Clicks = e.counts
	e.status.LastAction = action
	e.status.LastActionAt = ev.Time
	logging.Debugf("%s wink -> %s (injected=%t) at %d,%d", ev.Kind, action, injected, x, y)

	if e.store == nil {
		return nil
	}
	store := e.store
	click := model.ClickEvent{Time: ev.Time, Action: action, X: x, Y: y, Injected: injected}
	return func(ctx context.Context) {
		sctx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		if err := store.LogClick(sctx, click); err != nil {
			logging.Warnf("failed to log click: %v", err)
		}
	}
}

func (e *Engine) startSession(ctx context.Context) {
	if e.store == nil {
		return
	}
	e.mu.Lock()
	calibrated := e.cal.Calibrated()
	e.mu.Unlock()

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	id, err := e.store.StartSession(sctx, model.Session{StartedAt: e.clock(), Source: e.sourceName, Calibrated: calibrated})
	if err != nil {
		logging.Warnf("failed to start session: %v", err)
		return
	}
	e.sessionID = id
}

func (e *Engine) endSession() {
	if e.store == nil || e.sessionID == 0 {
		return
	}
	e.mu.Lock()
	counts := e.counts
	e.mu.Unlock()

	// the run context is usually cancelled by now
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := e.store.EndSession(ctx, e.sessionID, e.clock(), counts); err != nil {
		logging.Warnf("failed to close session %d: %v", e.sessionID, err)
	}
}

func (e *Engine) publish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publishLocked()
}

// publishLocked replaces any unread snapshot with the current one.
func (e *Engine) publishLocked() {
	st := e.status
	st.ControlEnabled = e.ptr.Enabled()
	st.Calibrated = e.cal.Calibrated()
	e.status = st
	select {
	case <-e.updates:
	default:
	}
	select {
	case e.updates <- st:
	default:
	}
}
