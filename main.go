// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for EyeMouse.
//
// Usage:
//
//	go run . [flags]
//	go run -tags native . [flags]   # with camera and cursor injection
//	./eyemouse [flags]
//
// This launches the EyeMouse CLI. See --help for options.
package main

import (
	"os"

	"github.com/mehmetaltunel/eyemouse/internal/logging"
	"github.com/mehmetaltunel/eyemouse/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}
}
