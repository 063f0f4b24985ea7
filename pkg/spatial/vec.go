package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Up is the rest axis every segment is authored along.
var Up = r3.Vec{Y: 1}

// Lerp blends a toward b by t, clamped to [0, 1].
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	t = clamp(t, 0, 1)
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// Mid returns the midpoint of a and b.
func Mid(a, b r3.Vec) r3.Vec {
	return r3.Scale(0.5, r3.Add(a, b))
}

// Distance returns |b - a|.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(b, a))
}

// Finite reports whether every component of v is finite.
func Finite(v r3.Vec) bool {
	for _, c := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func unit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < Epsilon {
		return v
	}
	return r3.Scale(1/n, v)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
