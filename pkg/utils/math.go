package utils

import "math"

// NormalizeL2 scales x in place to unit L2 norm and returns the original
// norm. A zero vector is left unchanged.
func NormalizeL2(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return 0
	}
	for i := range x {
		x[i] = float32(float64(x[i]) / norm)
	}
	return norm
}

// Clamp01 bounds v to [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
