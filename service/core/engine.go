package core

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	m "gti/data/models"
)

type IndexPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Raw        float64   `json:"raw"`
	Adjusted   float64   `json:"adjusted"`
	Cumulative float64   `json:"cumulative"`
	Scaled     float64   `json:"scaled"`
	Penalized  bool      `json:"penalized"`
}

type Diagnostics struct {
	Excluded         []Exclusion `json:"excluded"`
	ActiveSymbols    []string    `json:"activeSymbols"`
	TotalWeight      float64     `json:"totalWeight"`
	PenaltyThreshold null.Float  `json:"penaltyThreshold"`
	PenalizedPeriods int         `json:"penalizedPeriods"`
	MaskedCells      int         `json:"maskedCells"`
}

// ReferencePoint is the reference instrument rebased so its first valid price is 100
type ReferencePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type IndexResult struct {
	Points      []IndexPoint     `json:"points"`
	Diagnostics Diagnostics      `json:"diagnostics"`
	Stats       Stats            `json:"stats"`
	Latest      null.Float       `json:"latest"`
	Band        Band             `json:"band,omitempty"`
	Reference   []ReferencePoint `json:"reference,omitempty"`
}

// Scaled returns the published 0..100 values in timestamp order
func (r *IndexResult) Scaled() []float64 {
	res := make([]float64, len(r.Points))
	for i, p := range r.Points {
		res[i] = p.Scaled
	}
	return res
}

// Raw returns the aggregate before penalty, cumulation and scaling
func (r *IndexResult) Raw() []float64 {
	res := make([]float64, len(r.Points))
	for i, p := range r.Points {
		res[i] = p.Raw
	}
	return res
}

// ComputeIndex runs the whole pipeline for one weight table and configuration. It only
// fails on schema problems: bad settings, an empty or invalid weight table, or a malformed
// price table. Sparse data is reported through the result's diagnostics instead.
func ComputeIndex(prices m.PriceTable, weights m.WeightTable, settings Settings) (*IndexResult, error) {
	settings = settings.WithDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("error validating weight table: %w", err)
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}

	// a NaN or infinite close is bad data, not a schema problem
	prices, masked := prices.FiniteOnly()

	prices = Resample(prices, settings.Frequency)
	basket, missing := selectColumns(prices, weights.Symbols())

	returns, excluded := ComputeReturns(basket, settings.Alignment)
	normalized := Normalize(returns, settings)
	aggregate, active := Aggregate(normalized, weights)

	res := &IndexResult{
		Diagnostics: Diagnostics{
			Excluded:      append(missing, excluded...),
			ActiveSymbols: active.Symbols,
			TotalWeight:   active.TotalWeight,
			MaskedCells:   masked,
		},
	}
	if res.Diagnostics.Excluded == nil {
		res.Diagnostics.Excluded = []Exclusion{}
	}

	adjusted := aggregate
	penalized := make([]bool, len(aggregate))
	if settings.Penalty {
		k, multiplier := settings.PenaltyParams()
		pr := ApplyPenalty(aggregate, k, multiplier)
		adjusted = pr.Adjusted
		for t, p := range pr.Penalty {
			penalized[t] = p != 0
		}
		if pr.ThresholdReachable() {
			res.Diagnostics.PenaltyThreshold = null.FloatFrom(pr.Threshold)
		}
		res.Diagnostics.PenalizedPeriods = pr.Triggered
	}

	cumulative := Cumulate(adjusted)
	scaled := Rescale(cumulative)

	res.Points = make([]IndexPoint, len(scaled))
	for t := range scaled {
		res.Points[t] = IndexPoint{
			Timestamp:  returns.Dates[t],
			Raw:        aggregate[t],
			Adjusted:   adjusted[t],
			Cumulative: cumulative[t],
			Scaled:     scaled[t],
			Penalized:  penalized[t],
		}
	}

	var reference *Series
	if settings.ReferenceSymbol != "" {
		if col, ok := prices.Column(settings.ReferenceSymbol); ok {
			ref := referenceReturns(prices.Dates, col, settings.Alignment)
			reference = &ref
			res.Reference = Rebase(prices.Dates, col)
		}
	}

	res.Stats = ComputeStats(returns.Dates, scaled, reference)

	if len(scaled) > 0 {
		latest := scaled[len(scaled)-1]
		res.Latest = null.FloatFrom(latest)
		res.Band = BandFor(latest)
	}

	return res, nil
}

// selectColumns narrows the table to the requested symbols, reporting the ones it lacks
func selectColumns(table m.PriceTable, symbols []string) (m.PriceTable, []Exclusion) {
	var missing []Exclusion
	res := m.NewPriceTable(table.Dates)
	for _, symbol := range symbols {
		col, ok := table.Column(symbol)
		if !ok {
			missing = append(missing, Exclusion{symbol, ReasonNotInPriceTable})
			continue
		}
		res.Symbols = append(res.Symbols, symbol)
		res.Prices[symbol] = col
	}
	return res, missing
}

func referenceReturns(dates []time.Time, prices []null.Float, alignment Alignment) Series {
	if alignment == AlignmentForwardFill {
		prices = ForwardFill(prices)
	}

	res := Series{Dates: []time.Time{}, Values: []float64{}}
	for i, r := range SimpleReturns(prices) {
		if r.Valid {
			res.Dates = append(res.Dates, dates[i+1])
			res.Values = append(res.Values, r.Float64)
		}
	}
	return res
}

// Rebase scales a price column so its first valid observation is 100, missing cells are skipped
func Rebase(dates []time.Time, prices []null.Float) []ReferencePoint {
	res := []ReferencePoint{}
	base := 0.0
	for i, p := range prices {
		if !p.Valid {
			continue
		}
		if base == 0 {
			if p.Float64 == 0 {
				continue
			}
			base = p.Float64
		}
		res = append(res, ReferencePoint{Timestamp: dates[i], Value: p.Float64 / base * 100})
	}
	return res
}
