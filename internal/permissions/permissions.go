// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// package permissions reports the camera and accessibility (input injection)
// permission state. The OS cannot be queried portably, so the probes read
// EYEMOUSE_CAMERA and EYEMOUSE_ACCESSIBILITY overrides and fall back to what
// each platform is known to do.
package permissions // import "github.com/mehmetaltunel/eyemouse/internal/permissions"

import (
	"os"
	"runtime"
	"strings"
)

// Status is a coarse permission state.
type Status string

const (
	StatusUnknown        Status = "unknown"
	StatusGranted        Status = "granted"
	StatusDenied         Status = "denied"
	StatusPromptRequired Status = "prompt"
	StatusUnavailable    Status = "unavailable"
)

// ProbeResult is the outcome of one probe.
type ProbeResult struct {
	Name     string
	Status   Status
	Message  string
	Guidance string
}

// LookupEnvFunc resolves environment variables; tests pass their own.
type LookupEnvFunc func(string) (string, bool)

// Prober runs the probes for one platform.
type Prober struct {
	Lookup LookupEnvFunc
	GOOS   string
}

// New returns a Prober for the running OS and process environment.
func New() Prober {
	return Prober{Lookup: os.LookupEnv, GOOS: runtime.GOOS}
}

// Camera probes webcam access.
func (p Prober) Camera() ProbeResult {
	return p.probe("camera", "EYEMOUSE_CAMERA",
		"allow EyeMouse under System Settings > Privacy & Security > Camera")
}

// Accessibility probes permission to move the pointer and click.
func (p Prober) Accessibility() ProbeResult {
	return p.probe("accessibility", "EYEMOUSE_ACCESSIBILITY",
		"allow your terminal under System Settings > Privacy & Security > Accessibility")
}

// All runs every probe.
func (p Prober) All() []ProbeResult {
	return []ProbeResult{p.Camera(), p.Accessibility()}
}

func (p Prober) probe(name, env, darwinGuidance string) ProbeResult {
	lookup := p.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if value, ok := lookup(env); ok {
		r := interpretFlag(name, value)
		if r.Status == StatusDenied {
			r.Guidance = darwinGuidance
		}
		return r
	}
	switch p.GOOS {
	case "darwin":
		return ProbeResult{Name: name, Status: StatusPromptRequired, Message: name + " access will prompt on first use", Guidance: darwinGuidance}
	case "linux", "windows":
		return ProbeResult{Name: name, Status: StatusGranted, Message: name + " access needs no prompt on " + p.GOOS}
	default:
		return ProbeResult{Name: name, Status: StatusUnavailable, Message: name + " unsupported on " + p.GOOS}
	}
}

func interpretFlag(name, value string) ProbeResult {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Name: name, Status: StatusGranted, Message: name + " permission granted via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{Name: name, Status: StatusDenied, Message: name + " permission denied via env override"}
	case "prompt", "ask":
		return ProbeResult{Name: name, Status: StatusPromptRequired, Message: name + " permission will prompt at runtime"}
	case "unavailable", "unsupported":
		return ProbeResult{Name: name, Status: StatusUnavailable, Message: name + " unavailable via env override"}
	default:
		return ProbeResult{Name: name, Status: StatusUnknown, Message: name + " permission state unknown"}
	}
}

// OK reports whether the pipeline can proceed, possibly after a prompt.
func (r ProbeResult) OK() bool {
	return r.Status == StatusGranted || r.Status == StatusPromptRequired
}
