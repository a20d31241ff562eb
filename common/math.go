package common

import "math"

// Epsilon is the tolerance used when comparing simulation floats.
const Epsilon = 1e-6

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sign returns -1, 0 or 1.
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func ApproxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// FloorDiv returns floor(v/size) as an int.
func FloorDiv(v, size float64) int {
	return int(math.Floor(v / size))
}
