// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// alignFooter places right flush with width columns after left. A single
// space separates them when width is too small.
func alignFooter(left, right string, width int) string {
	spaces := width - lipgloss.Width(left) - lipgloss.Width(right)
	if spaces < 1 {
		spaces = 1
	}
	return left + strings.Repeat(" ", spaces) + right
}

// formatLabelPadding pads label to labelWidth display columns before value.
func formatLabelPadding(label, value string, labelWidth int) string {
	w := lipgloss.Width(label)
	if labelWidth <= 0 || w >= labelWidth {
		return label + " " + value
	}
	return label + strings.Repeat(" ", labelWidth-w) + " " + value
}
