package core

import (
	"slices"

	ex "gti/data/extensions"
	m "gti/data/models"
)

// ActiveSet is the part of the weight table that actually has returns in this run
type ActiveSet struct {
	Symbols     []string
	Entries     []m.WeightEntry
	TotalWeight float64
}

// Contains reports whether symbol made it into the active set
func (as ActiveSet) Contains(symbol string) bool {
	return slices.Contains(as.Symbols, symbol)
}

// Aggregate sums the signed, weighted returns per timestamp. Weights are divided by the
// total weight of the active set only, so instruments missing from the data never dilute
// the others. Missing cells contribute zero, and so does everything when the total is zero.
func Aggregate(returns ReturnTable, weights m.WeightTable) ([]float64, ActiveSet) {
	entries := ex.FilterMultiple(weights, func(w m.WeightEntry) bool {
		_, ok := returns.Returns[w.Symbol]
		return ok
	})
	if entries == nil {
		entries = []m.WeightEntry{}
	}

	active := ActiveSet{
		Symbols:     ex.Map(entries, func(w m.WeightEntry) string { return w.Symbol }),
		Entries:     entries,
		TotalWeight: ex.Sum(ex.Map(entries, func(w m.WeightEntry) float64 { return w.Weight })),
	}

	res := make([]float64, returns.Len())
	if active.TotalWeight == 0 {
		return res, active
	}

	factors := ex.Map(entries, func(w m.WeightEntry) float64 { return w.Weight / active.TotalWeight * w.Sign() })
	row := make([]float64, len(entries))
	for t := range res {
		for i, w := range entries {
			row[i] = returns.Returns[w.Symbol][t].ValueOrZero()
		}
		// lengths always match, both come from entries
		res[t], _ = ex.DotProduct(factors, row)
	}

	return res, active
}
