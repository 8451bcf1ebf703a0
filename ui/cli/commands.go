// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mehmetaltunel/eyemouse/internal/engine"
	"github.com/mehmetaltunel/eyemouse/internal/i18n"
	"github.com/mehmetaltunel/eyemouse/internal/landmark"
	"github.com/mehmetaltunel/eyemouse/internal/logging"
	"github.com/spf13/cobra"
)

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("replay", "", "Play a recorded landmark stream instead of the configured source")
	cmd.Flags().Bool("paced", true, "Replay recordings in real time")
	cmd.Flags().Bool("dry-run", false, "Compute cursor moves and clicks without injecting them")
}

func readSourceFlags(cmd *cobra.Command) pipelineOptions {
	replay, _ := cmd.Flags().GetString("replay")
	paced, _ := cmd.Flags().GetBool("paced")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	return pipelineOptions{replay: replay, paced: paced, dryRun: dryRun}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the tracking pipeline",
		Long: `Runs the tracking pipeline. With --headless the dashboard is skipped,
cursor control starts enabled and progress is logged to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := readSourceFlags(cmd)
			headless, _ := cmd.Flags().GetBool("headless")
			noControl, _ := cmd.Flags().GetBool("no-control")
			if headless || !stdoutIsTerminal() {
				o.control = !noControl
				return runHeadlessCmd(cmd, o)
			}
			return runDashboard(cmd, o)
		},
	}
	cmd.Flags().Bool("headless", false, "Run without the dashboard")
	cmd.Flags().Bool("no-control", false, "Track and detect winks without moving the cursor (headless)")
	addSourceFlags(cmd)
	return cmd
}

func newCalibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Run a calibration and save it",
		Long: `Parks the cursor on each calibration target in turn. Look at the cursor
and keep your head still until it moves on. The result is written to the
calibration file and stored in the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPipeline(cmd.Context(), appConfig, readSourceFlags(cmd))
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			p.eng.StartCalibration()
			if err := p.runHeadless(cmd.Context(), func(s engine.Status) bool { return !s.Calibrating }); err != nil {
				return err
			}
			s := p.eng.Snapshot()
			switch {
			case s.CalibrationError != "":
				return errors.New(i18n.T("calibrate.failed", s.CalibrationError))
			case s.Calibrating || !s.Calibrated:
				p.eng.CancelCalibration()
				return errors.New(i18n.T("calibrate.incomplete"))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("calibrate.done", appConfig.Calibration.File))
			return nil
		},
	}
	addSourceFlags(cmd)
	return cmd
}

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <file>",
		Short: "Record the landmark stream to a file for later replay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := landmark.CreateRecording(args[0])
			if err != nil {
				return fmt.Errorf("failed to create recording: %w", err)
			}
			o := readSourceFlags(cmd)
			o.tap = rec.Write

			ctx := cmd.Context()
			if d, _ := cmd.Flags().GetDuration("duration"); d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			p, err := openPipeline(ctx, appConfig, o)
			if err != nil {
				_ = rec.Close()
				return err
			}
			runErr := p.runHeadless(ctx, nil)
			_ = p.Close()
			if err := rec.Close(); err != nil && runErr == nil {
				runErr = fmt.Errorf("failed to finish recording: %w", err)
			}
			if runErr != nil {
				return runErr
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("record.done", rec.Count(), args[0]))
			return nil
		},
	}
	cmd.Flags().Duration("duration", 0, "Stop after this long (0 records until interrupted)")
	addSourceFlags(cmd)
	return cmd
}

func newDBMaintainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db-maintain",
		Short: "Run database maintenance (VACUUM/OPTIMIZE) for the configured DB",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if sec, _ := cmd.Flags().GetInt("timeout"); sec > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(sec)*time.Second)
				defer cancel()
			}
			if err := runDBMaintenance(ctx, appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
				return fmt.Errorf("maintenance failed: %w", err)
			}
			logging.Infof("maintenance of the %s database completed", appConfig.Database.Type)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("db.maintained"))
			return nil
		},
	}
	cmd.Flags().Int("timeout", 0, "Timeout in seconds for maintenance (0 means the default)")
	return cmd
}
