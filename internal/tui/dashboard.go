// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mehmetaltunel/eyemouse/internal/config"
	"github.com/mehmetaltunel/eyemouse/internal/engine"
	"github.com/mehmetaltunel/eyemouse/internal/i18n"
	"github.com/mehmetaltunel/eyemouse/internal/logging"
	"github.com/mehmetaltunel/eyemouse/internal/model"
)

// flashDuration is how long an action or notice stays on screen.
const flashDuration = 1500 * time.Millisecond

const labelWidth = 14

// clipboardWrite is replaced in tests.
var clipboardWrite = clipboard.WriteAll

// Engine is the part of *engine.Engine the dashboard drives.
type Engine interface {
	ToggleControl() bool
	StartCalibration()
	CancelCalibration()
	SetSensitivity(v float64) float64
	ToggleLandmarks() bool
	Snapshot() engine.Status
	Updates() <-chan engine.Status
	Done() <-chan struct{}
	Err() error
}

// Options configures the dashboard.
type Options struct {
	// Config receives sensitivity, landmark and language changes. Nil
	// disables persistence.
	Config *config.Config
	// ConfigPath is where changes are written; empty means the user config
	// file. Only the keys the dashboard changed are written.
	ConfigPath string
}

// settingsWriter orders background saves so an older one never overwrites
// a newer one.
type settingsWriter struct {
	mu      sync.Mutex
	seq     int
	written int
}

type statusMsg engine.Status

type stoppedMsg struct{ err error }

type clearFlashMsg struct{ id int }

type noticeMsg struct {
	text string
	err  bool
}

type configSavedMsg struct{ err error }

// dashboardModel is the single-screen dashboard.
type dashboardModel struct {
	eng    Engine
	opts   Options
	status engine.Status
	keys   keyMap
	help   help.Model
	bar    progress.Model
	width  int

	// changed holds the config keys edited in this session.
	changed map[string]any
	saver   *settingsWriter

	seenAction time.Time
	flash      string
	flashErr   bool
	flashID    int

	stopped bool
	err     error
}

func newDashboard(eng Engine, opts Options) dashboardModel {
	s := eng.Snapshot()
	return dashboardModel{
		eng:        eng,
		opts:       opts,
		status:     s,
		keys:       newKeyMap(),
		help:       help.New(),
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(40), progress.WithoutPercentage()),
		seenAction: s.LastActionAt,
		changed:    map[string]any{},
		saver:      &settingsWriter{},
	}
}

// waitForStatus blocks until the engine publishes a snapshot or stops.
func waitForStatus(e Engine) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-e.Updates():
			return statusMsg(s)
		case <-e.Done():
			return stoppedMsg{err: e.Err()}
		}
	}
}

// Init starts listening for engine updates.
func (m dashboardModel) Init() tea.Cmd {
	return waitForStatus(m.eng)
}

// Update handles keys, engine snapshots and timers.
func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case statusMsg:
		s := engine.Status(msg)
		m.status = s
		cmds := []tea.Cmd{waitForStatus(m.eng)}
		if s.LastAction != "" && s.LastActionAt.After(m.seenAction) {
			m.seenAction = s.LastActionAt
			cmds = append(cmds, m.setFlash(actionLabel(s.LastAction), false))
		}
		return m, tea.Batch(cmds...)

	case stoppedMsg:
		m.stopped = true
		m.err = msg.err
		return m, tea.Quit

	case clearFlashMsg:
		if msg.id == m.flashID {
			m.flash = ""
			m.flashErr = false
		}
		return m, nil

	case noticeMsg:
		return m, m.setFlash(msg.text, msg.err)

	case configSavedMsg:
		if msg.err != nil {
			logging.Warnf("failed to save settings: %v", msg.err)
			return m, m.setFlash(i18n.T("dashboard.save_failed", msg.err), true)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *dashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return *m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		m.eng.ToggleControl()

	case key.Matches(msg, m.keys.Calibrate):
		m.eng.StartCalibration()

	case key.Matches(msg, m.keys.Cancel):
		m.eng.CancelCalibration()

	case key.Matches(msg, m.keys.SensUp), key.Matches(msg, m.keys.SensDown):
		step := 1.0
		if key.Matches(msg, m.keys.SensDown) {
			step = -1
		}
		v := m.eng.SetSensitivity(m.status.Sensitivity + step)
		m.status = m.eng.Snapshot()
		if m.opts.Config != nil {
			m.opts.Config.Mouse.Sensitivity = v
		}
		return *m, m.saveSetting("mouse.sensitivity", v)

	case key.Matches(msg, m.keys.Landmarks):
		on := m.eng.ToggleLandmarks()
		m.status = m.eng.Snapshot()
		if m.opts.Config != nil {
			m.opts.Config.ShowLandmarks = on
		}
		return *m, m.saveSetting("show_landmarks", on)

	case key.Matches(msg, m.keys.Language):
		lang := nextLanguage(i18n.GetLang(), i18n.LocaleCodes())
		i18n.SetLang(lang)
		m.keys = newKeyMap()
		if m.opts.Config != nil {
			m.opts.Config.Language = lang
		}
		return *m, m.saveSetting("language", lang)

	case key.Matches(msg, m.keys.Copy):
		return *m, copyCmd(statusReport(m.status))

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return *m, nil

	default:
		return *m, nil
	}
	m.status = m.eng.Snapshot()
	return *m, nil
}

func (m *dashboardModel) setFlash(text string, isErr bool) tea.Cmd {
	m.flashID++
	m.flash = text
	m.flashErr = isErr
	id := m.flashID
	return tea.Tick(flashDuration, func(time.Time) tea.Msg { return clearFlashMsg{id: id} })
}

// saveSetting records a changed key and writes every key changed so far in
// the background.
func (m *dashboardModel) saveSetting(key string, value any) tea.Cmd {
	if m.opts.Config == nil {
		return nil
	}
	m.changed[key] = value
	changes := maps.Clone(m.changed)
	path := m.opts.ConfigPath
	w := m.saver
	w.mu.Lock()
	w.seq++
	seq := w.seq
	w.mu.Unlock()
	return func() tea.Msg {
		w.mu.Lock()
		defer w.mu.Unlock()
		if seq < w.written {
			return configSavedMsg{}
		}
		w.written = seq
		return configSavedMsg{err: config.UpdateConfigFile(path, changes)}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboardWrite(text); err != nil {
			return noticeMsg{text: i18n.T("dashboard.copy_failed", err), err: true}
		}
		return noticeMsg{text: i18n.T("dashboard.copied")}
	}
}

// nextLanguage returns the code after cur in codes, wrapping around.
func nextLanguage(cur string, codes []string) string {
	if len(codes) == 0 {
		return cur
	}
	for i, c := range codes {
		if c == cur {
			return codes[(i+1)%len(codes)]
		}
	}
	return codes[0]
}

func actionLabel(a model.Action) string {
	return i18n.T("action." + string(a))
}

func onOffText(on bool) string {
	if on {
		return i18n.T("dashboard.on")
	}
	return i18n.T("dashboard.off")
}

// View renders the dashboard.
func (m dashboardModel) View() string {
	s := m.status
	var b strings.Builder

	b.WriteString(mainTitleStyle.Render(i18n.T("dashboard.title")))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(formatLabelPadding(labelStyle.Render(label), value, labelWidth))
		b.WriteString("\n")
	}

	if s.Face {
		row(i18n.T("dashboard.face"), successStyle.Render(i18n.T("dashboard.face_found")))
		cur := s.Cursor()
		row(i18n.T("dashboard.gaze"), valueStyle.Render(fmt.Sprintf("%.2f, %.2f  (%d, %d)", s.Gaze.X, s.Gaze.Y, cur.X, cur.Y)))
		band := i18n.T("dashboard.band." + s.Band.String())
		dist := fmt.Sprintf("%.2f  %s", s.Distance, band)
		if s.Band.String() == "ok" {
			row(i18n.T("dashboard.distance"), valueStyle.Render(dist))
		} else {
			row(i18n.T("dashboard.distance"), specialStyle.Render(dist))
		}
		row(i18n.T("dashboard.ear"), valueStyle.Render(fmt.Sprintf("L %.2f  R %.2f", s.LeftEAR, s.RightEAR)))
	} else {
		row(i18n.T("dashboard.face"), errorStyle.Render(i18n.T("dashboard.face_missing")))
	}

	badge := badgeOffStyle.Render(onOffText(s.ControlEnabled))
	if s.ControlEnabled {
		badge = badgeOnStyle.Render(onOffText(true))
	}
	row(i18n.T("dashboard.control"), badge)
	row(i18n.T("dashboard.sensitivity"), valueStyle.Render(fmt.Sprintf("%.0f / 10", s.Sensitivity)))

	switch {
	case s.Calibrating:
		p := s.Calibration
		row(i18n.T("dashboard.calibration"), specialStyle.Render(i18n.T("dashboard.calibrating", p.Index, p.Total)))
		row("", m.bar.ViewAs(p.Fraction))
		row("", valueStyle.Render(i18n.T("dashboard.target", p.Target.X, p.Target.Y))+"  "+qualityText(s))
	case s.CalibrationError != "":
		row(i18n.T("dashboard.calibration"), errorStyle.Render(s.CalibrationError))
	case s.Calibrated:
		row(i18n.T("dashboard.calibration"), successStyle.Render(i18n.T("dashboard.calibrated")))
	default:
		row(i18n.T("dashboard.calibration"), labelStyle.Render(i18n.T("dashboard.not_calibrated")))
	}

	row(i18n.T("dashboard.clicks"), valueStyle.Render(i18n.T("dashboard.click_counts", s.Clicks.Left, s.Clicks.Right, s.Clicks.Double)))
	if m.flash != "" {
		if m.flashErr {
			row(i18n.T("dashboard.last_action"), errorStyle.Render(m.flash))
		} else {
			row(i18n.T("dashboard.last_action"), flashStyle.Render(m.flash))
		}
	} else {
		row(i18n.T("dashboard.last_action"), labelStyle.Render("-"))
	}

	if s.ShowLandmarks {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(i18n.T("dashboard.active_area")))
		b.WriteString("\n")
		b.WriteString(mapBoxStyle.Render(activeAreaMap(s.Bounds, s.NoseX, s.NoseY, s.Face)))
		b.WriteString("\n")
	}

	if m.stopped && m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(i18n.T("dashboard.stopped", m.err)))
		b.WriteString("\n")
	}

	width := m.width
	if width <= 0 {
		width = 60
	}
	lang := helpStyle.Render(strings.ToUpper(i18n.GetLang()))
	b.WriteString(footerStyle.Render(alignFooter(m.help.View(m.keys), lang, width-4)))

	return docStyle.Render(b.String())
}

func qualityText(s engine.Status) string {
	text := i18n.T("quality." + s.Quality.String())
	switch s.Quality.String() {
	case "on_target":
		return successStyle.Render(text)
	case "near_target":
		return specialStyle.Render(text)
	default:
		return errorStyle.Render(text)
	}
}

// statusReport is the plain-text status copied to the clipboard.
func statusReport(s engine.Status) string {
	var lines []string
	add := func(label, value string) {
		lines = append(lines, formatLabelPadding(label+":", value, labelWidth))
	}
	if s.Face {
		cur := s.Cursor()
		add(i18n.T("dashboard.face"), i18n.T("dashboard.face_found"))
		add(i18n.T("dashboard.gaze"), fmt.Sprintf("%.3f, %.3f (%d, %d)", s.Gaze.X, s.Gaze.Y, cur.X, cur.Y))
		add(i18n.T("dashboard.distance"), fmt.Sprintf("%.2f %s", s.Distance, i18n.T("dashboard.band."+s.Band.String())))
		add(i18n.T("dashboard.ear"), fmt.Sprintf("L %.3f R %.3f", s.LeftEAR, s.RightEAR))
	} else {
		add(i18n.T("dashboard.face"), i18n.T("dashboard.face_missing"))
	}
	add(i18n.T("dashboard.control"), onOffText(s.ControlEnabled))
	add(i18n.T("dashboard.sensitivity"), fmt.Sprintf("%.0f", s.Sensitivity))
	cal := i18n.T("dashboard.not_calibrated")
	switch {
	case s.Calibrating:
		cal = i18n.T("dashboard.calibrating", s.Calibration.Index, s.Calibration.Total)
	case s.Calibrated:
		cal = i18n.T("dashboard.calibrated")
	}
	add(i18n.T("dashboard.calibration"), cal)
	add(i18n.T("dashboard.clicks"), i18n.T("dashboard.click_counts", s.Clicks.Left, s.Clicks.Right, s.Clicks.Double))
	add(i18n.T("dashboard.screen"), fmt.Sprintf("%dx%d", s.ScreenWidth, s.ScreenHeight))
	return strings.Join(lines, "\n") + "\n"
}

var _ tea.Model = dashboardModel{}
