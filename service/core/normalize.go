package core

import (
	"math"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"
)

// Normalize applies the configured smoothing and standardization to each instrument
// independently. Transforms run over the values an instrument actually has, and every
// missing cell comes back as 0.0 so the output table is always fully populated.
func Normalize(returns ReturnTable, settings Settings) ReturnTable {
	res := newReturnTable(returns.Dates)

	for _, symbol := range returns.Symbols {
		col := returns.Returns[symbol]

		positions := make([]int, 0, len(col))
		values := make([]float64, 0, len(col))
		for i, v := range col {
			if v.Valid {
				positions = append(positions, i)
				values = append(values, v.Float64)
			}
		}

		values = normalizeSeries(values, settings)

		out := make([]null.Float, len(col))
		for i := range out {
			out[i] = null.FloatFrom(0)
		}
		for j, i := range positions {
			out[i] = null.FloatFrom(values[j])
		}

		res.Symbols = append(res.Symbols, symbol)
		res.Returns[symbol] = out
	}

	return res
}

func normalizeSeries(values []float64, settings Settings) []float64 {
	smooth := func(v []float64) []float64 {
		if !settings.SmoothingSpan.Valid {
			return v
		}
		return EWMA(v, int(settings.SmoothingSpan.Int64))
	}
	standardize := func(v []float64) []float64 {
		if !settings.Standardize {
			return v
		}
		return Standardize(v)
	}

	if settings.Order == StandardizeThenSmooth {
		return smooth(standardize(values))
	}
	return standardize(smooth(values))
}

// EWMA is an exponentially weighted moving average with alpha = 2/(span+1).
// The first output equals the first input and each later value only looks back.
func EWMA(values []float64, span int) []float64 {
	res := make([]float64, len(values))
	if len(values) == 0 {
		return res
	}
	if span < 1 {
		span = 1
	}

	alpha := 2.0 / (float64(span) + 1.0)
	res[0] = values[0]
	for i := 1; i < len(values); i++ {
		res[i] = alpha*values[i] + (1-alpha)*res[i-1]
	}
	return res
}

// Standardize returns z-scores using the sample standard deviation of the full series.
// Fewer than two points or a zero deviation gives all zeros.
func Standardize(values []float64) []float64 {
	res := make([]float64, len(values))
	if len(values) < 2 {
		return res
	}

	mean, std := stat.MeanStdDev(values, nil)
	if std == 0 || math.IsNaN(std) {
		return res
	}

	for i, v := range values {
		res[i] = (v - mean) / std
	}
	return res
}
