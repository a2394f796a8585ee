package models

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/guregu/null/v6"
)

var ErrMalformedPriceTable = errors.New("malformed price table")

// PriceObservation is a single close for a symbol, the shape rows come back from postgres in
type PriceObservation struct {
	Symbol    string     `db:"symbol"`
	Timestamp time.Time  `db:"timestamp"`
	Close     null.Float `db:"close"`
}

// PriceTable is a date indexed table of prices, one column per symbol.
// Every column has exactly len(Dates) cells, an invalid cell is a missing observation.
type PriceTable struct {
	Dates   []time.Time
	Symbols []string
	Prices  map[string][]null.Float
}

func NewPriceTable(dates []time.Time) PriceTable {
	return PriceTable{
		Dates:   dates,
		Symbols: []string{},
		Prices:  make(map[string][]null.Float),
	}
}

// AddColumn appends a symbol column, values must line up with Dates
func (pt *PriceTable) AddColumn(symbol string, values []null.Float) error {
	if len(values) != len(pt.Dates) {
		return fmt.Errorf("%w: column %s has %d cells for %d dates", ErrMalformedPriceTable, symbol, len(values), len(pt.Dates))
	}
	if _, ok := pt.Prices[symbol]; ok {
		return fmt.Errorf("%w: duplicate column %s", ErrMalformedPriceTable, symbol)
	}

	pt.Symbols = append(pt.Symbols, symbol)
	pt.Prices[symbol] = values
	return nil
}

// Column returns the cells for symbol, false when the symbol is not in the table
func (pt PriceTable) Column(symbol string) ([]null.Float, bool) {
	col, ok := pt.Prices[symbol]
	return col, ok
}

func (pt PriceTable) Len() int {
	return len(pt.Dates)
}

// Validate checks the table shape: ascending unique dates and aligned columns
func (pt PriceTable) Validate() error {
	for i := 1; i < len(pt.Dates); i++ {
		if !pt.Dates[i].After(pt.Dates[i-1]) {
			return fmt.Errorf("%w: dates must be strictly increasing, %s follows %s", ErrMalformedPriceTable,
				pt.Dates[i].Format(time.DateOnly), pt.Dates[i-1].Format(time.DateOnly))
		}
	}

	if len(pt.Symbols) != len(pt.Prices) {
		return fmt.Errorf("%w: %d symbols listed for %d columns", ErrMalformedPriceTable, len(pt.Symbols), len(pt.Prices))
	}

	for _, symbol := range pt.Symbols {
		col, ok := pt.Prices[symbol]
		if !ok {
			return fmt.Errorf("%w: symbol %s has no column", ErrMalformedPriceTable, symbol)
		}
		if len(col) != len(pt.Dates) {
			return fmt.Errorf("%w: column %s has %d cells for %d dates", ErrMalformedPriceTable, symbol, len(col), len(pt.Dates))
		}
	}

	return nil
}

// Between returns the rows whose date falls in [start, end], a zero bound is open
func (pt PriceTable) Between(start, end time.Time) PriceTable {
	from := 0
	to := len(pt.Dates)
	for from < to && !start.IsZero() && pt.Dates[from].Before(start) {
		from++
	}
	for to > from && !end.IsZero() && pt.Dates[to-1].After(end) {
		to--
	}

	res := NewPriceTable(slices.Clone(pt.Dates[from:to]))
	for _, symbol := range pt.Symbols {
		res.Symbols = append(res.Symbols, symbol)
		res.Prices[symbol] = slices.Clone(pt.Prices[symbol][from:to])
	}
	return res
}

// FiniteOnly returns a copy where NaN and infinite cells become missing observations,
// along with how many cells were masked
func (pt PriceTable) FiniteOnly() (PriceTable, int) {
	masked := 0
	res := NewPriceTable(slices.Clone(pt.Dates))
	for _, symbol := range pt.Symbols {
		col := slices.Clone(pt.Prices[symbol])
		for i, p := range col {
			if p.Valid && (math.IsNaN(p.Float64) || math.IsInf(p.Float64, 0)) {
				col[i] = null.Float{}
				masked++
			}
		}
		res.Symbols = append(res.Symbols, symbol)
		res.Prices[symbol] = col
	}
	return res, masked
}

// PivotObservations builds a price table from long format rows.
// Dates are the union of every row's timestamp, later duplicates overwrite earlier ones.
func PivotObservations(observations []*PriceObservation) PriceTable {
	seen := make(map[time.Time]bool)
	dates := make([]time.Time, 0)
	symbols := make([]string, 0)
	known := make(map[string]bool)

	for _, o := range observations {
		ts := o.Timestamp.UTC()
		if !seen[ts] {
			seen[ts] = true
			dates = append(dates, ts)
		}
		if !known[o.Symbol] {
			known[o.Symbol] = true
			symbols = append(symbols, o.Symbol)
		}
	}

	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	position := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		position[d] = i
	}

	res := NewPriceTable(dates)
	for _, symbol := range symbols {
		res.Symbols = append(res.Symbols, symbol)
		res.Prices[symbol] = make([]null.Float, len(dates))
	}

	for _, o := range observations {
		res.Prices[o.Symbol][position[o.Timestamp.UTC()]] = o.Close
	}

	return res
}
