// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"strings"

	"github.com/mehmetaltunel/eyemouse/internal/tracking"
)

const (
	mapWidth  = 33
	mapHeight = 13
)

// cell maps a normalized coordinate onto n cells.
func cell(v float64, n int) int {
	i := int(v*float64(n-1) + 0.5)
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// activeAreaMap draws the camera frame as a character grid with the active
// area outlined and the nose marked '@'. The caller frames it.
func activeAreaMap(b tracking.Bounds, noseX, noseY float64, face bool) string {
	grid := make([][]byte, mapHeight)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(" ", mapWidth))
	}

	x0, x1 := cell(b.MinX, mapWidth), cell(b.MaxX, mapWidth)
	y0, y1 := cell(b.MinY, mapHeight), cell(b.MaxY, mapHeight)
	for x := x0; x <= x1; x++ {
		grid[y0][x] = '-'
		grid[y1][x] = '-'
	}
	for y := y0; y <= y1; y++ {
		grid[y][x0] = '|'
		grid[y][x1] = '|'
	}
	for _, c := range [][2]int{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		grid[c[1]][c[0]] = '+'
	}
	grid[cell(0.5, mapHeight)][cell(0.5, mapWidth)] = '.'

	if face {
		grid[cell(noseY, mapHeight)][cell(noseX, mapWidth)] = '@'
	}

	rows := make([]string, len(grid))
	for i, r := range grid {
		rows[i] = string(r)
	}
	return strings.Join(rows, "\n")
}
