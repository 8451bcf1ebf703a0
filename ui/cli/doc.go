// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for EyeMouse using Cobra.
// It loads configuration, opens the landmark source, pointer and database,
// and hands them to the engine. Commands stay thin and delegate the work to
// the internal packages.
package cli
