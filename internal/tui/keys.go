// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/mehmetaltunel/eyemouse/internal/i18n"
)

// keyMap holds the dashboard bindings. Help texts are translated, so the map
// is rebuilt after a language change.
type keyMap struct {
	Toggle    key.Binding
	Calibrate key.Binding
	Cancel    key.Binding
	SensUp    key.Binding
	SensDown  key.Binding
	Landmarks key.Binding
	Language  key.Binding
	Copy      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(
			key.WithKeys("m", " "),
			key.WithHelp("m/space", i18n.T("keys.toggle")),
		),
		Calibrate: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", i18n.T("keys.calibrate")),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", i18n.T("keys.cancel")),
		),
		SensUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", i18n.T("keys.sens_up")),
		),
		SensDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", i18n.T("keys.sens_down")),
		),
		Landmarks: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", i18n.T("keys.landmarks")),
		),
		Language: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", i18n.T("keys.language")),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", i18n.T("keys.copy")),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", i18n.T("keys.help")),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", i18n.T("keys.quit")),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Calibrate, k.SensUp, k.SensDown, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Calibrate, k.Cancel},
		{k.SensUp, k.SensDown, k.Landmarks},
		{k.Language, k.Copy, k.Help, k.Quit},
	}
}
