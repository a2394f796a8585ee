package core

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

type PenaltyResult struct {
	Adjusted []float64
	Penalty  []float64
	Sigma    float64
	// Threshold is -k*sigma, or -Inf when sigma is zero or undefined so nothing can trigger
	Threshold float64
	Triggered int
}

// ThresholdReachable is false when the series had no spread to measure against
func (pr PenaltyResult) ThresholdReachable() bool {
	return !math.IsInf(pr.Threshold, -1)
}

// ApplyPenalty amplifies periods that fall below -k*sigma of the aggregate's own history.
// A triggered period x becomes x*multiplier, i.e. x + x*(multiplier-1), everything else is
// returned untouched.
func ApplyPenalty(aggregate []float64, k, multiplier float64) PenaltyResult {
	res := PenaltyResult{
		Adjusted:  make([]float64, len(aggregate)),
		Penalty:   make([]float64, len(aggregate)),
		Threshold: math.Inf(-1),
	}
	copy(res.Adjusted, aggregate)

	if len(aggregate) >= 2 {
		res.Sigma = stat.StdDev(aggregate, nil)
	}
	if res.Sigma > 0 && !math.IsNaN(res.Sigma) {
		res.Threshold = -k * res.Sigma
	}

	for t, x := range aggregate {
		if x < res.Threshold {
			res.Penalty[t] = x * (multiplier - 1)
			res.Adjusted[t] = x + res.Penalty[t]
			res.Triggered++
		}
	}

	return res
}
