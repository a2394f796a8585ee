package core

import (
	"time"

	"github.com/guregu/null/v6"

	ex "gti/data/extensions"
	m "gti/data/models"
)

// exclusion reasons reported in diagnostics
const (
	ReasonNotInPriceTable          = "not_in_price_table"
	ReasonNoValidPrices            = "no_valid_prices"
	ReasonInsufficientObservations = "insufficient_observations"
	ReasonNoOverlappingReturns     = "no_overlapping_returns"
)

type Exclusion struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// ReturnTable holds one return column per instrument, aligned to Dates.
// An invalid cell means the instrument had no return at that timestamp.
type ReturnTable struct {
	Dates   []time.Time
	Symbols []string
	Returns map[string][]null.Float
}

func newReturnTable(dates []time.Time) ReturnTable {
	return ReturnTable{
		Dates:   dates,
		Symbols: []string{},
		Returns: make(map[string][]null.Float),
	}
}

func (rt ReturnTable) Len() int {
	return len(rt.Dates)
}

func (rt ReturnTable) Column(symbol string) ([]null.Float, bool) {
	col, ok := rt.Returns[symbol]
	return col, ok
}

// ComputeReturns turns every price column into simple returns, r = p[t]/p[t-1] - 1.
// The first row never has a return and is dropped. Instruments that cannot produce a
// return are left out and reported, never treated as an error.
func ComputeReturns(table m.PriceTable, alignment Alignment) (ReturnTable, []Exclusion) {
	var excluded []Exclusion
	if table.Len() < 2 {
		for _, symbol := range table.Symbols {
			excluded = append(excluded, Exclusion{symbol, reasonForShortColumn(table.Prices[symbol])})
		}
		return newReturnTable(nil), excluded
	}

	columns := make(map[string][]null.Float, len(table.Symbols))
	active := make([]string, 0, len(table.Symbols))
	for _, symbol := range table.Symbols {
		prices := table.Prices[symbol]
		if validCount(prices) < 2 {
			excluded = append(excluded, Exclusion{symbol, reasonForShortColumn(prices)})
			continue
		}

		if alignment == AlignmentForwardFill {
			prices = ForwardFill(prices)
		}

		returns := SimpleReturns(prices)
		if validCount(returns) == 0 {
			excluded = append(excluded, Exclusion{symbol, ReasonNoOverlappingReturns})
			continue
		}

		active = append(active, symbol)
		columns[symbol] = returns
	}

	keep := make([]int, 0, table.Len()-1)
	for i := 1; i < table.Len(); i++ {
		present := 0
		for _, symbol := range active {
			if columns[symbol][i-1].Valid {
				present++
			}
		}

		switch {
		case present == 0:
		case alignment == AlignmentForwardFill:
			keep = append(keep, i)
		case present == len(active):
			keep = append(keep, i)
		}
	}

	dates := make([]time.Time, len(keep))
	for j, i := range keep {
		dates[j] = table.Dates[i]
	}

	res := newReturnTable(dates)
	for _, symbol := range active {
		col := make([]null.Float, len(keep))
		for j, i := range keep {
			col[j] = columns[symbol][i-1]
		}
		res.Symbols = append(res.Symbols, symbol)
		res.Returns[symbol] = col
	}

	return res, excluded
}

// SimpleReturns computes returns between consecutive cells, the result is one shorter
// than prices. A pair with a missing, non finite or zero base price yields an invalid return.
func SimpleReturns(prices []null.Float) []null.Float {
	if len(prices) < 2 {
		return []null.Float{}
	}

	res := make([]null.Float, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if !usable(prev) || !usable(cur) || prev.Float64 == 0 {
			continue
		}
		res[i-1] = null.FloatFrom(cur.Float64/prev.Float64 - 1)
	}
	return res
}

// ForwardFill carries the last usable price forward, leading gaps stay missing
func ForwardFill(prices []null.Float) []null.Float {
	res := make([]null.Float, len(prices))
	var last null.Float
	for i, p := range prices {
		if usable(p) {
			last = p
		}
		res[i] = last
	}
	return res
}

// usable is a present, finite cell
func usable(v null.Float) bool {
	return v.Valid && ex.IsFinite(v.Float64)
}

func validCount(values []null.Float) (n int) {
	for _, v := range values {
		if usable(v) {
			n++
		}
	}
	return
}

func reasonForShortColumn(prices []null.Float) string {
	if validCount(prices) == 0 {
		return ReasonNoValidPrices
	}
	return ReasonInsufficientObservations
}
