package core

import (
	ex "gti/data/extensions"
)

// Cumulate is the running sum of values
func Cumulate(values []float64) []float64 {
	res := make([]float64, len(values))
	total := 0.0
	for i, v := range values {
		total += v
		res[i] = total
	}
	return res
}

// Rescale maps values linearly onto 0..100, min to 0 and max to 100.
// A flat series, including a single point, maps to 50 everywhere.
func Rescale(values []float64) []float64 {
	res := make([]float64, len(values))
	if len(values) == 0 {
		return res
	}

	lo, hi := ex.Bounds(values)
	if hi == lo {
		for i := range res {
			res[i] = (ScaleMin + ScaleMax) / 2
		}
		return res
	}

	span := ScaleMax - ScaleMin
	for i, v := range values {
		res[i] = ScaleMin + (v-lo)/(hi-lo)*span
	}
	return res
}
