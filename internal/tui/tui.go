// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// package tui provides the terminal dashboard for EyeMouse.
// This file, tui.go, is the entry point that runs the Bubble Tea program
// against a running engine.
package tui // import "github.com/mehmetaltunel/eyemouse/internal/tui"

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mehmetaltunel/eyemouse/internal/logging"
)

// Run shows the dashboard until the user quits, ctx is cancelled or the
// engine stops. The engine must already be running. An engine failure is
// returned.
func Run(ctx context.Context, eng Engine, opts Options) error {
	p := tea.NewProgram(newDashboard(eng, opts), tea.WithContext(ctx), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		logging.Errorf("TUI run error: %v", err)
		return err
	}
	if m, ok := final.(dashboardModel); ok && m.stopped {
		return m.err
	}
	return nil
}
