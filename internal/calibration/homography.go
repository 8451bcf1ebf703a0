// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package calibration

import (
	"errors"
	"math"
)

// Homography is a row-major 3x3 projective transform with H[8] = 1.
type Homography [9]float64

// Identity is the transform that leaves points unchanged.
var Identity = Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}

var errSingular = errors.New("calibration: degenerate point set")

// Apply projects (x, y). ok is false when the point maps to infinity.
func (h Homography) Apply(x, y float64) (px, py float64, ok bool) {
	w := h[6]*x + h[7]*y + h[8]
	if math.Abs(w) < 1e-12 {
		return 0, 0, false
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w, true
}

// FitHomography solves the least-squares homography taking src to dst with
// the bottom-right entry fixed to 1. dst is scaled by (sx, sy) while solving
// so pixel-sized targets do not swamp the normalized gaze terms; pass 1, 1 to
// disable that.
func FitHomography(src, dst [][2]float64, sx, sy float64) (Homography, error) {
	if len(src) != len(dst) || len(src) < minPoints {
		return Homography{}, ErrTooFewPoints
	}
	if sx <= 0 {
		sx = 1
	}
	if sy <= 0 {
		sy = 1
	}

	// normal equations AtA h = Atb for the 2N x 8 DLT system
	var ata [8][8]float64
	var atb [8]float64
	accumulate := func(row [8]float64, b float64) {
		for i := range 8 {
			atb[i] += row[i] * b
			for j := range 8 {
				ata[i][j] += row[i] * row[j]
			}
		}
	}
	for i := range src {
		x, y := src[i][0], src[i][1]
		u, v := dst[i][0]/sx, dst[i][1]/sy
		accumulate([8]float64{x, y, 1, 0, 0, 0, -x * u, -y * u}, u)
		accumulate([8]float64{0, 0, 0, x, y, 1, -x * v, -y * v}, v)
	}

	sol, err := solve(ata, atb)
	if err != nil {
		return Homography{}, err
	}

	h := Homography{
		sol[0] * sx, sol[1] * sx, sol[2] * sx,
		sol[3] * sy, sol[4] * sy, sol[5] * sy,
		sol[6], sol[7], 1,
	}
	for _, v := range h {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Homography{}, errSingular
		}
	}
	return h, nil
}

// solve runs Gaussian elimination with partial pivoting.
func solve(a [8][8]float64, b [8]float64) ([8]float64, error) {
	const n = 8
	for col := range n {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return [8]float64{}, errSingular
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for k := col; k < n; k++ {
				a[r][k] -= f * a[col][k]
			}
			b[r] -= f * b[col]
		}
	}

	var x [8]float64
	for r := n - 1; r >= 0; r-- {
		s := b[r]
		for k := r + 1; k < n; k++ {
			s -= a[r][k] * x[k]
		}
		x[r] = s / a[r][r]
	}
	return x, nil
}
