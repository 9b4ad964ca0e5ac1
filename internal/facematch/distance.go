package facematch

import "math"

// EuclideanDistance returns the L2 distance between two equal-length vectors.
// Accumulation is done in float64.
func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// squaredDistanceWithin accumulates the squared L2 distance in the same order
// as EuclideanDistance. It stops and reports false as soon as the partial sum
// exceeds limit.
func squaredDistanceWithin(a, b []float32, limit float64) (float64, bool) {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
		if sum > limit {
			return sum, false
		}
	}
	return sum, true
}
