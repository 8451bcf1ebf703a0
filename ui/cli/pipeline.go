// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mehmetaltunel/eyemouse/internal/camera"
	"github.com/mehmetaltunel/eyemouse/internal/config"
	"github.com/mehmetaltunel/eyemouse/internal/db"
	"github.com/mehmetaltunel/eyemouse/internal/engine"
	"github.com/mehmetaltunel/eyemouse/internal/landmark"
	"github.com/mehmetaltunel/eyemouse/internal/logging"
	"github.com/mehmetaltunel/eyemouse/internal/pointer"
	"github.com/mehmetaltunel/eyemouse/internal/tui"
	"github.com/mehmetaltunel/eyemouse/internal/update"
	"github.com/spf13/cobra"
)

// Screen size reported by the dry-run injector.
const dryRunWidth, dryRunHeight = 1920, 1080

// newSystemInjector is replaced in tests.
var newSystemInjector = pointer.NewSystem

type pipelineOptions struct {
	// dryRun computes cursor moves and clicks without injecting them.
	dryRun bool
	// control enables cursor control once the engine is built.
	control bool
	paced   bool
	// replay overrides the configured source with a recording.
	replay string
	tap    func(landmark.Frame) error
}

// pipeline owns everything a running engine needs.
type pipeline struct {
	eng   *engine.Engine
	src   landmark.Source
	store *db.BunStore
}

func sourceOptions(cfg config.Config, o pipelineOptions) landmark.Options {
	lo := landmark.Options{
		Kind: cfg.Landmarks.Source,
		Mesh: landmark.MeshConfig{
			Camera: camera.Config{
				Index:  cfg.Camera.Index,
				Width:  cfg.Camera.Width,
				Height: cfg.Camera.Height,
				FPS:    cfg.Camera.FPS,
			},
			FaceModel: cfg.Landmarks.FaceModel,
			MeshModel: cfg.Landmarks.MeshModel,
		},
		Command:    cfg.Landmarks.Command,
		ReplayFile: cfg.Landmarks.ReplayFile,
		Paced:      o.paced,
	}
	if o.replay != "" {
		lo.Kind = landmark.KindReplay
		lo.ReplayFile = o.replay
	}
	return lo
}

func openInjector(dryRun bool) pointer.Injector {
	if !dryRun {
		inj, err := newSystemInjector()
		if err == nil {
			return inj
		}
		logging.Warnf("cursor injection unavailable, running dry: %v", err)
	}
	return pointer.NewNoop(dryRunWidth, dryRunHeight)
}

// openPipeline opens the landmark source, pointer and database and builds
// the engine. A database that cannot be opened only disables history.
func openPipeline(ctx context.Context, cfg config.Config, o pipelineOptions) (*pipeline, error) {
	lo := sourceOptions(cfg, o)
	src, err := landmark.Open(ctx, lo)
	if err != nil {
		return nil, fmt.Errorf("failed to open landmark source: %w", err)
	}
	p := &pipeline{src: src}

	eopts := engine.Options{
		Config:     cfg,
		Source:     src,
		Injector:   openInjector(o.dryRun),
		SourceName: lo.Kind,
		Tap:        o.tap,
	}
	store, err := db.NewStoreFromDSN(cfg.Database.Type, cfg.Database.Dsn)
	if err != nil {
		logging.Warnf("database unavailable, history is not recorded: %v", err)
	} else {
		p.store = store
		eopts.Store = store
	}

	eng, err := engine.New(eopts)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.eng = eng
	if err := eng.LoadCalibration(ctx); err != nil {
		logging.Warnf("could not load calibration: %v", err)
	}
	if o.control {
		eng.SetControl(true)
	}
	return p, nil
}

// Close releases the source and the database.
func (p *pipeline) Close() error {
	var errs []error
	if p.src != nil {
		errs = append(errs, p.src.Close())
	}
	if p.store != nil {
		errs = append(errs, p.store.Close())
	}
	return errors.Join(errs...)
}

// runHeadless runs the engine, logging what happens, until ctx ends, the
// source ends or stop returns true for a snapshot.
func (p *pipeline) runHeadless(ctx context.Context, stop func(engine.Status) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- p.eng.Run(ctx) }()

	var r headlessReporter
	for {
		select {
		case s := <-p.eng.Updates():
			r.observe(s)
			if stop != nil && stop(s) {
				cancel()
				return <-errc
			}
		case err := <-errc:
			r.observe(p.eng.Snapshot())
			return err
		}
	}
}

// runDashboard runs the engine behind the bubbletea dashboard. Logs go to
// a file while the dashboard owns the terminal.
func (p *pipeline) runDashboard(ctx context.Context) error {
	if dir, err := config.GetConfigDir(false); err == nil {
		if closer, err := logging.ToFile(filepath.Join(dir, "eyemouse.log")); err == nil {
			defer func() { _ = closer.Close() }()
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = p.eng.Run(ctx) }()

	uiErr := tui.Run(ctx, p.eng, tui.Options{Config: &appConfig, ConfigPath: configPath})
	cancel()
	<-p.eng.Done()
	if uiErr != nil {
		return uiErr
	}
	return p.eng.Err()
}

// checkForUpdate logs when a newer release exists. Failures are debug noise.
func checkForUpdate(ctx context.Context, cfg config.Config) {
	if !cfg.Update.CheckOnStart || cfg.Update.APIURL == "" {
		return
	}
	current, _, _ := resolveBuildVersion(nil)
	res, err := update.NewChecker(cfg.Update.APIURL).Check(ctx, current)
	if err != nil {
		logging.Debugf("update check failed: %v", err)
		return
	}
	if res.Available {
		logging.Infof("EyeMouse %s is available: %s", res.Latest, res.DownloadURL)
	}
}

func runDashboard(cmd *cobra.Command, o pipelineOptions) error {
	p, err := openPipeline(cmd.Context(), appConfig, o)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()
	go checkForUpdate(cmd.Context(), appConfig)
	return p.runDashboard(cmd.Context())
}

func runHeadlessCmd(cmd *cobra.Command, o pipelineOptions) error {
	p, err := openPipeline(cmd.Context(), appConfig, o)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()
	go checkForUpdate(cmd.Context(), appConfig)
	logging.Infof("running headless (source %s, control %s)", sourceOptions(appConfig, o).Kind, onOff(o.control))
	return p.runHeadless(cmd.Context(), nil)
}

// headlessReporter logs state changes between snapshots.
type headlessReporter struct {
	prev engine.Status
	seen bool
}

func (r *headlessReporter) observe(s engine.Status) {
	prev := r.prev
	first := !r.seen
	r.prev, r.seen = s, true

	if s.Frames > 0 && (first || s.Face != prev.Face) {
		if s.Face {
			logging.Infof("face detected")
		} else {
			logging.Infof("face lost")
		}
	}
	if !first && s.ControlEnabled != prev.ControlEnabled {
		logging.Infof("cursor control %s", onOff(s.ControlEnabled))
	}
	if s.LastAction != "" && s.LastActionAt.After(prev.LastActionAt) {
		logging.Infof("%s (left %d, right %d, double %d)", s.LastAction, s.Clicks.Left, s.Clicks.Right, s.Clicks.Double)
	}
	if s.Calibrating && (!prev.Calibrating || s.Calibration.Index != prev.Calibration.Index) {
		t := s.Calibration.Target
		logging.Infof("calibration point %d/%d: look at (%d, %d)", s.Calibration.Index, s.Calibration.Total, t.X, t.Y)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
