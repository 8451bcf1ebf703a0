// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-yaml"
	"github.com/mehmetaltunel/eyemouse/internal/camera"
	"github.com/mehmetaltunel/eyemouse/internal/config"
	"github.com/mehmetaltunel/eyemouse/internal/db"
	"github.com/mehmetaltunel/eyemouse/internal/i18n"
	"github.com/mehmetaltunel/eyemouse/internal/landmark"
	"github.com/mehmetaltunel/eyemouse/internal/permissions"
	"github.com/mehmetaltunel/eyemouse/internal/update"
	"github.com/spf13/cobra"
)

// Package-level hooks so tests can substitute the hardware probes.
var (
	listCameras      = camera.List
	runDBMaintenance = db.RunDBMaintenance
	newProber        = permissions.New
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
)

func newCamerasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cameras",
		Short: "List capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := listCameras(camera.DefaultProbeCount)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				_, _ = fmt.Fprintln(out, i18n.T("cameras.none"))
				return nil
			}
			for _, d := range devices {
				marker := " "
				if d.Index == appConfig.Camera.Index {
					marker = "*"
				}
				_, _ = fmt.Fprintf(out, "%s %d  %s\n", marker, d.Index, d.Name)
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sessions, clicks and calibrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			store, err := db.NewStoreFromDSN(appConfig.Database.Type, appConfig.Database.Dsn)
			if err != nil {
				return errors.New(i18n.T("config.error_init_db", err))
			}
			defer func() { _ = store.Close() }()
			return printHistory(cmd, store, limit, time.Now())
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "Rows per section")
	return cmd
}

func printHistory(cmd *cobra.Command, store db.Store, limit int, now time.Time) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	counts, err := store.ClickCounts(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, headStyle.Render(i18n.T("history.last_day")))
	_, _ = fmt.Fprintln(out, i18n.T("dashboard.click_counts", counts.Left, counts.Right, counts.Double))
	_, _ = fmt.Fprintln(out)

	sessions, err := store.ListSessions(ctx, limit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, headStyle.Render(i18n.T("history.sessions")))
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(out, i18n.T("history.empty"))
	} else {
		t := newTable(i18n.T("history.col_started"), i18n.T("history.col_duration"), i18n.T("history.col_source"), i18n.T("history.col_clicks"))
		for _, s := range sessions {
			t.Row(s.StartedAt.Local().Format(time.DateTime), s.Duration(now).Round(time.Second).String(), s.Source, strconv.Itoa(s.Clicks.Total()))
		}
		_, _ = fmt.Fprintln(out, t.Render())
	}
	_, _ = fmt.Fprintln(out)

	clicks, err := store.RecentClicks(ctx, limit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, headStyle.Render(i18n.T("history.clicks")))
	if len(clicks) == 0 {
		_, _ = fmt.Fprintln(out, i18n.T("history.empty"))
	} else {
		t := newTable(i18n.T("history.col_time"), i18n.T("history.col_action"), i18n.T("history.col_position"), i18n.T("history.col_injected"))
		for _, c := range clicks {
			t.Row(c.Time.Local().Format(time.DateTime), i18n.T("action."+string(c.Action)), fmt.Sprintf("%d, %d", c.X, c.Y), strconv.FormatBool(c.Injected))
		}
		_, _ = fmt.Fprintln(out, t.Render())
	}
	_, _ = fmt.Fprintln(out)

	cals, err := store.ListCalibrations(ctx, limit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, headStyle.Render(i18n.T("history.calibrations")))
	if len(cals) == 0 {
		_, _ = fmt.Fprintln(out, i18n.T("history.empty"))
		return nil
	}
	t := newTable("#", i18n.T("history.col_time"), i18n.T("history.col_profile"))
	for _, c := range cals {
		t.Row(strconv.Itoa(c.ID), c.CreatedAt.Local().Format(time.DateTime), c.String())
	}
	_, _ = fmt.Fprintln(out, t.Render())
	return nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...)
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check permissions, camera, cursor injection and database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := runDoctor(cmd.OutOrStdout(), appConfig)
			if failed > 0 {
				return errors.New(i18n.T("doctor.failed", failed))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("doctor.all_ok"))
			return nil
		},
	}
}

// runDoctor prints one line per check and returns how many failed.
func runDoctor(out io.Writer, cfg config.Config) int {
	failed := 0
	report := func(ok, warn bool, name, detail string) {
		mark := okStyle.Render("ok  ")
		switch {
		case !ok:
			mark = failStyle.Render("fail")
			failed++
		case warn:
			mark = warnStyle.Render("warn")
		}
		_, _ = fmt.Fprintf(out, "[%s] %-14s %s\n", mark, name, detail)
	}

	for _, r := range newProber().All() {
		detail := r.Message
		if r.Guidance != "" {
			detail += " (" + r.Guidance + ")"
		}
		report(r.OK(), r.Status == permissions.StatusPromptRequired, i18n.T("doctor.permission", r.Name), detail)
	}

	if cfg.Landmarks.Source == landmark.KindCamera {
		devices, err := listCameras(camera.DefaultProbeCount)
		switch {
		case err != nil:
			report(false, false, i18n.T("doctor.camera"), err.Error())
		case len(devices) == 0:
			report(false, false, i18n.T("doctor.camera"), i18n.T("cameras.none"))
		default:
			report(true, false, i18n.T("doctor.camera"), i18n.T("doctor.cameras_found", len(devices)))
		}
		for _, m := range []struct{ key, path string }{
			{"landmarks.face_model", cfg.Landmarks.FaceModel},
			{"landmarks.mesh_model", cfg.Landmarks.MeshModel},
		} {
			if m.path == "" {
				report(false, false, m.key, i18n.T("doctor.model_unset"))
				continue
			}
			if _, err := os.Stat(m.path); err != nil {
				report(false, false, m.key, err.Error())
				continue
			}
			report(true, false, m.key, m.path)
		}
	}

	if inj, err := newSystemInjector(); err != nil {
		report(true, true, i18n.T("doctor.pointer"), i18n.T("doctor.pointer_dry", err))
	} else {
		w, h := inj.ScreenSize()
		report(true, false, i18n.T("doctor.pointer"), fmt.Sprintf("%dx%d", w, h))
	}

	if store, err := db.NewStoreFromDSN(cfg.Database.Type, cfg.Database.Dsn); err != nil {
		report(false, false, i18n.T("doctor.database"), err.Error())
	} else {
		_ = store.Close()
		report(true, false, i18n.T("doctor.database"), cfg.Database.Type)
	}
	return failed
}

func newCheckUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-update",
		Short: "Check for a newer EyeMouse release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, _, _ := resolveBuildVersion(nil)
			res, err := update.NewChecker(appConfig.Update.APIURL).Check(cmd.Context(), current)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Available {
				_, _ = fmt.Fprintln(out, i18n.T("update.current", current, res.Latest))
				return nil
			}
			_, _ = fmt.Fprintln(out, i18n.T("update.available", res.Latest))
			_, _ = fmt.Fprintln(out, res.DownloadURL)
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the effective configuration",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(&appConfig)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	write := &cobra.Command{
		Use:   "write",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			system, _ := cmd.Flags().GetBool("system")
			path := configPath
			if system || path == "" {
				p, err := config.GetConfigPath(system)
				if err != nil {
					return err
				}
				path = p
			}
			if err := config.WriteConfigFileTo(&appConfig, path); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("config.written", path))
			return nil
		},
	}
	write.Flags().Bool("system", false, "Write the system-wide file instead of the user file")
	cmd.AddCommand(show, write)
	return cmd
}
