// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// Shared lipgloss styles of the dashboard.

package tui

import "github.com/charmbracelet/lipgloss"

// colorPalette defines the core colors used in the TUI.
const (
	colorSubtle    = lipgloss.Color("240") // Muted gray
	colorHighlight = lipgloss.Color("81")  // Teal
	colorSpecial   = lipgloss.Color("208") // Orange
	colorError     = lipgloss.Color("196")
	colorSuccess   = lipgloss.Color("40")
	colorWhite     = lipgloss.Color("231")
)

var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	helpStyle    = lipgloss.NewStyle().Foreground(colorSubtle)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	specialStyle = lipgloss.NewStyle().Foreground(colorSpecial)
	labelStyle   = lipgloss.NewStyle().Foreground(colorSubtle)
	valueStyle   = lipgloss.NewStyle().Foreground(colorWhite)

	mainTitleStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true).
			Padding(0, 1)

	// Badge for the cursor control state.
	badgeOnStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(colorSuccess).
			Padding(0, 1)
	badgeOffStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(lipgloss.Color("237")).
			Padding(0, 1)

	// Frame around the active-area map.
	mapBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle)

	flashStyle = lipgloss.NewStyle().
			Foreground(colorSpecial).
			Bold(true)

	footerStyle = lipgloss.NewStyle().Foreground(colorSubtle).MarginTop(1)
)
