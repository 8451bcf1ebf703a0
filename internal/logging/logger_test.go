// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	clog "github.com/charmbracelet/log"
)

// TestLoggingHelpers_WriteToBuffer verifies the package helper functions write
// formatted messages to the package-level logger `L`.
func TestLoggingHelpers_WriteToBuffer(t *testing.T) {
	var buf bytes.Buffer
	prev := L
	L = clog.New(&buf)
	L.SetLevel(clog.DebugLevel)
	defer func() { L = prev }()

	Debugf("hello %s", "dbg")
	Infof("info %d", 1)
	Warnf("warn")
	Errorf("err %v", "E")

	out := buf.String()
	for _, want := range []string{"hello dbg", "info 1", "warn", "err E"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q; got: %s", want, out)
		}
	}
}

func TestSetDebug_FiltersDebugLines(t *testing.T) {
	var buf bytes.Buffer
	prev := L
	L = clog.New(&buf)
	defer func() { L = prev }()

	SetDebug(false)
	Debugf("hidden")
	SetDebug(true)
	Debugf("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written while debug disabled: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("debug line missing while debug enabled: %s", out)
	}
}

func TestToFile_WritesAndRestores(t *testing.T) {
	prev := L
	L = clog.New(os.Stderr)
	defer func() { L = prev }()

	path := filepath.Join(t.TempDir(), "logs", "eyemouse.log")
	closer, err := ToFile(path)
	if err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	Infof("to file %d", 42)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "to file 42") {
		t.Fatalf("log file missing line: %s", data)
	}
}
