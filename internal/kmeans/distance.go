package kmeans

import (
	"gonum.org/v1/gonum/floats"
)

// DistanceFunc represents a function for measuring distance between n-dimensional vectors.
type DistanceFunc func([]float64, []float64) float64

var (
	// EuclideanDistance is the straight-line distance, used for planar well coordinates.
	EuclideanDistance DistanceFunc = func(a, b []float64) float64 {
		return floats.Distance(a, b, 2)
	}

	// EuclideanDistanceSquared orders points the same way as EuclideanDistance without the square root.
	EuclideanDistanceSquared DistanceFunc = func(a, b []float64) float64 {
		var (
			s, t float64
		)

		for i := range a {
			t = a[i] - b[i]
			s += t * t
		}

		return s
	}
)
