// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for EyeMouse using Cobra. It
// defines the root command, its persistent flags and the configuration
// bootstrap shared by every subcommand.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/mehmetaltunel/eyemouse/buildvars"
	"github.com/mehmetaltunel/eyemouse/internal/config"
	"github.com/mehmetaltunel/eyemouse/internal/db"
	"github.com/mehmetaltunel/eyemouse/internal/i18n"
	"github.com/mehmetaltunel/eyemouse/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

const modulePath = "github.com/mehmetaltunel/eyemouse"

var version = "dev"   // set by the linker
var gitCommit = "dev" // short commit SHA, set at build time
var buildDate = ""    // RFC3339, set at build time
var cfgFile string
var verbose bool

var appConfig config.Config

// configPath is where the dashboard writes settings back; empty means the
// user config file.
var configPath string

// stdoutIsTerminal decides between the dashboard and headless mode.
var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}
	configPath = ""
	if optionalConfigPath != nil {
		configPath = *optionalConfigPath
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, config.Defaults(), optionalConfigPath)
	// A missing file is expected on first run: persist the defaults so the
	// user has something to edit.
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			logging.Warnf("could not write default config file: %v", writeErr)
		} else {
			logging.Infof("wrote default config to the user config path")
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if verbose || appConfig.DebugMode {
		logging.SetDebug(true)
		db.SetDebug(true)
	}
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	i18n.Init(appConfig.Language)
	return nil
}

// Execute runs the CLI entrypoint. An interrupt or SIGTERM cancels the
// command context so the pipeline shuts down cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// applyDefaultFlags registers the database flags once.
func applyDefaultFlags(cmd *cobra.Command) {
	if cmd.PersistentFlags().Lookup("database.type") == nil {
		cmd.PersistentFlags().String("database.type", "sqlite", "Database type (sqlite, postgres, mysql)")
	}
	if cmd.PersistentFlags().Lookup("database.dsn") == nil {
		cmd.PersistentFlags().String("database.dsn", "./eyemouse.db", "Database connection string (DSN)")
	}
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if cmd.Flags().Changed("config") {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return nil, fmt.Errorf("could not read --config flag: %w", err)
		}
		if path == "" {
			return nil, nil
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
		return &path, nil
	}
	return nil, nil
}

// NewRootCmd creates a fresh root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eyemouse",
		Short: "EyeMouse moves the cursor with your head and clicks with winks.",
		Long: `EyeMouse follows your nose in the webcam image to move the mouse
cursor. A left wink clicks, a right wink right-clicks, and holding both
eyes shut after a wink double-clicks. An optional calibration maps where
you look onto the screen corners.

Running without a subcommand opens the dashboard, or runs headless when
stdout is not a terminal.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupDefaultServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stdoutIsTerminal() {
				return runDashboard(cmd, pipelineOptions{paced: true})
			}
			return runHeadlessCmd(cmd, pipelineOptions{paced: true, control: true})
		},
	}
	cmd.Version = compositeVersion()

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug output (including database queries)")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/eyemouse/eyemouse.yaml)")
	cmd.PersistentFlags().String("language", "en", `Interface language ("en", "tr")`)
	applyDefaultFlags(cmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		// Printing the version needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "version: %s\n", v)
			_, _ = fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				_, _ = fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}

	cmd.AddCommand(
		newRunCmd(),
		newCalibrateCmd(),
		newRecordCmd(),
		newCamerasCmd(),
		newHistoryCmd(),
		newDoctorCmd(),
		newCheckUpdateCmd(),
		newConfigCmd(),
		newDBMaintainCmd(),
		versionCmd,
	)
	return cmd
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out = out + " (" + c + ")"
	}
	if d != "" {
		out = out + " built: " + d
	}
	return out
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If info is nil it reads build info from the
// runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, found := debug.ReadBuildInfo(); found {
			info = local
		}
	}

	if info != nil {
		if resolvedVersion == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// Some build paths only record our module as a dependency.
		if resolvedVersion == "dev" {
			for _, dep := range info.Deps {
				if dep.Path == modulePath && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}
