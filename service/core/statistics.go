package core

import (
	"math"
	"time"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the published series. Every field is null when it cannot be defined.
type Stats struct {
	Volatility             null.Float `json:"volatility"`
	SharpeLike             null.Float `json:"sharpeLike"`
	MaxDrawdown            null.Float `json:"maxDrawdown"`
	CorrelationToReference null.Float `json:"correlationToReference"`
}

// Series is a dated return stream, used for the reference instrument
type Series struct {
	Dates  []time.Time
	Values []float64
}

func (s Series) Len() int {
	return len(s.Values)
}

// ComputeStats derives the summary from the scaled index. Volatility and the sharpe like
// ratio use the period over period percent change of the scaled values, changes off a
// zero base are skipped. A nil reference leaves the correlation null.
func ComputeStats(dates []time.Time, scaled []float64, reference *Series) Stats {
	var res Stats

	changes := PercentChanges(dates, scaled)
	if changes.Len() >= 2 {
		mean, std := stat.MeanStdDev(changes.Values, nil)
		res.Volatility = finite(std)
		if std > 0 {
			res.SharpeLike = finite(mean / std)
		}
	}

	res.MaxDrawdown = MaxDrawdown(scaled)

	if reference != nil {
		res.CorrelationToReference = Correlation(changes, *reference)
	}

	return res
}

// PercentChanges returns v[t]/v[t-1] - 1 keyed by the later date
func PercentChanges(dates []time.Time, values []float64) Series {
	res := Series{Dates: []time.Time{}, Values: []float64{}}
	for i := 1; i < len(values) && i < len(dates); i++ {
		if values[i-1] == 0 {
			continue
		}
		res.Dates = append(res.Dates, dates[i])
		res.Values = append(res.Values, values[i]/values[i-1]-1)
	}
	return res
}

// MaxDrawdown is the lowest (v - runningMax)/runningMax. While the running max is not
// positive there is nothing to draw down from, so those points count as zero.
func MaxDrawdown(values []float64) null.Float {
	if len(values) == 0 {
		return null.Float{}
	}

	worst := 0.0
	peak := values[0]
	for _, v := range values {
		peak = math.Max(peak, v)
		if peak <= 0 {
			continue
		}
		worst = math.Min(worst, (v-peak)/peak)
	}
	return null.FloatFrom(worst)
}

// Correlation is the pearson correlation over the dates both series share.
// Null with fewer than two shared points or when either side has no variance.
func Correlation(a, b Series) null.Float {
	lookup := make(map[time.Time]float64, b.Len())
	for i, d := range b.Dates {
		lookup[d] = b.Values[i]
	}

	var xs, ys []float64
	for i, d := range a.Dates {
		if v, ok := lookup[d]; ok {
			xs = append(xs, a.Values[i])
			ys = append(ys, v)
		}
	}

	if len(xs) < 2 {
		return null.Float{}
	}
	return finite(stat.Correlation(xs, ys, nil))
}

func finite(v float64) null.Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}
