// Package math3d provides the single-precision vector, matrix and quaternion
// types used by the facet rasterizer.
package math3d

import (
	"math"

	"github.com/chewxy/math32"
)

// Epsilon is the tolerance used for degenerate-length and near-zero checks.
const Epsilon float32 = 1e-6

// Pi in single precision.
const Pi float32 = math.Pi

// Radians converts degrees to radians.
func Radians(deg float32) float32 {
	return deg * (Pi / 180)
}

// Degrees converts radians to degrees.
func Degrees(rad float32) float32 {
	return rad * (180 / Pi)
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, x))
}

// Saturate clamps x to [0, 1]. NaN saturates to 0.
func Saturate(x float32) float32 {
	if !(x > 0) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Lerp returns a + (b-a)*t.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
