// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package landmark

import (
	"context"
	"fmt"
)

// Source kinds accepted by Open.
const (
	KindCamera  = "camera"
	KindProcess = "process"
	KindReplay  = "replay"
)

// Options selects and configures a Source.
type Options struct {
	Kind       string
	Mesh       MeshConfig
	Command    []string
	ReplayFile string
	// Paced replays recordings in real time.
	Paced bool
}

// Open builds the configured Source.
func Open(ctx context.Context, opts Options) (Source, error) {
	switch opts.Kind {
	case KindCamera, "":
		return OpenMesh(opts.Mesh)
	case KindProcess:
		return StartProcess(ctx, opts.Command)
	case KindReplay:
		if opts.ReplayFile == "" {
			return nil, fmt.Errorf("landmarks.replay_file is empty")
		}
		return OpenReplay(opts.ReplayFile, opts.Paced)
	default:
		return nil, fmt.Errorf("unknown landmark source %q", opts.Kind)
	}
}
