package core

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ex "gti/data/extensions"
	m "gti/data/models"
)

const tolerance = 1e-9

type column struct {
	symbol string
	values []float64 // NaN is a missing cell
}

func day(d int) time.Time {
	return time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func buildTable(t *testing.T, columns ...column) m.PriceTable {
	t.Helper()
	n := 0
	if len(columns) > 0 {
		n = len(columns[0].values)
	}

	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = day(i)
	}

	pt := m.NewPriceTable(dates)
	for _, c := range columns {
		cells := make([]null.Float, len(c.values))
		for i, v := range c.values {
			if !math.IsNaN(v) {
				cells[i] = null.FloatFrom(v)
			}
		}
		require.NoError(t, pt.AddColumn(c.symbol, cells))
	}
	return pt
}

func referenceCase(t *testing.T) (m.PriceTable, m.WeightTable) {
	t.Helper()
	prices := buildTable(t,
		column{"A", []float64{100, 110, 99}},
		column{"B", []float64{50, 52, 52}},
	)
	weights := m.WeightTable{
		{Symbol: "A", Weight: 1, Positive: true},
		{Symbol: "B", Weight: 1, Positive: false},
	}
	return prices, weights
}

func TestComputeIndex_ReferenceCase(t *testing.T) {
	prices, weights := referenceCase(t)

	res, err := ComputeIndex(prices, weights, DefaultSettings())
	require.NoError(t, err)
	require.Len(t, res.Points, 2)

	assert.Equal(t, []time.Time{day(1), day(2)}, []time.Time{res.Points[0].Timestamp, res.Points[1].Timestamp})
	ex.AssertSeriesInDelta(t, "raw", []float64{0.03, -0.05}, res.Raw(), tolerance)
	ex.AssertSeriesInDelta(t, "cumulative", []float64{0.03, -0.02},
		[]float64{res.Points[0].Cumulative, res.Points[1].Cumulative}, tolerance)
	ex.AssertSeriesInDelta(t, "scaled", []float64{100, 0}, res.Scaled(), tolerance)

	assert.InDelta(t, 2.0, res.Diagnostics.TotalWeight, tolerance)
	assert.Equal(t, []string{"A", "B"}, res.Diagnostics.ActiveSymbols)
	assert.Empty(t, res.Diagnostics.Excluded)
	assert.False(t, res.Diagnostics.PenaltyThreshold.Valid, "penalty is off")

	require.True(t, res.Latest.Valid)
	assert.InDelta(t, 0.0, res.Latest.Float64, tolerance)
	assert.Equal(t, BandRed, res.Band)
}

func TestComputeIndex_SignReversalNegatesRaw(t *testing.T) {
	prices, weights := referenceCase(t)

	res, err := ComputeIndex(prices, weights, DefaultSettings())
	require.NoError(t, err)
	flipped, err := ComputeIndex(prices, weights.Flipped(), DefaultSettings())
	require.NoError(t, err)

	raw := res.Raw()
	for i := range raw {
		raw[i] = -raw[i]
	}
	ex.AssertSeriesInDelta(t, "raw", raw, flipped.Raw(), tolerance)
}

func TestComputeIndex_WeightScalingInvariance(t *testing.T) {
	prices := buildTable(t,
		column{"A", []float64{100, 101, 99, 104, 103, 108}},
		column{"B", []float64{20, 19.5, 19.8, 21, 20.2, 20.9}},
		column{"C", []float64{7, 7.1, 7.3, 7.0, 6.8, 6.9}},
	)
	weights := m.WeightTable{
		{Symbol: "A", Weight: 3, Positive: true},
		{Symbol: "B", Weight: 1.5, Positive: false},
		{Symbol: "C", Weight: 0.25, Positive: true},
	}

	settings := DefaultSettings()
	settings.SmoothingSpan = null.IntFrom(3)
	settings.Standardize = true
	settings.Penalty = true

	base, err := ComputeIndex(prices, weights, settings)
	require.NoError(t, err)

	for _, factor := range []float64{0.01, 7, 1000} {
		scaled, err := ComputeIndex(prices, weights.Scaled(factor), settings)
		require.NoError(t, err)
		ex.AssertSeriesInDelta(t, "scaled", base.Scaled(), scaled.Scaled(), 1e-7)
	}
}

// the denominator only counts instruments present in the data, so a phantom changes nothing
func TestComputeIndex_PhantomInstrumentIsExcluded(t *testing.T) {
	prices, weights := referenceCase(t)

	withPhantomColumn := buildTable(t,
		column{"A", []float64{100, 110, 99}},
		column{"B", []float64{50, 52, 52}},
		column{"P", []float64{math.NaN(), math.NaN(), math.NaN()}},
	)
	phantomWeights := append(m.WeightTable{}, weights...)
	phantomWeights = append(phantomWeights,
		m.WeightEntry{Symbol: "P", Weight: 5, Positive: true},
		m.WeightEntry{Symbol: "NOT_LOADED", Weight: 2, Positive: true},
	)

	base, err := ComputeIndex(prices, weights, DefaultSettings())
	require.NoError(t, err)
	res, err := ComputeIndex(withPhantomColumn, phantomWeights, DefaultSettings())
	require.NoError(t, err)

	assert.Equal(t, base.Raw(), res.Raw())
	assert.Equal(t, base.Scaled(), res.Scaled())
	assert.Equal(t, base.Diagnostics.TotalWeight, res.Diagnostics.TotalWeight)
	assert.ElementsMatch(t, []Exclusion{
		{Symbol: "P", Reason: ReasonNoValidPrices},
		{Symbol: "NOT_LOADED", Reason: ReasonNotInPriceTable},
	}, res.Diagnostics.Excluded)
}

func TestComputeIndex_MonotonicPositiveBasketIsNonNegative(t *testing.T) {
	prices := buildTable(t,
		column{"A", []float64{1, 2, 2, 3, 5, 8}},
		column{"B", []float64{10, 10, 11, 12, 12, 13}},
	)
	weights := m.WeightTable{
		{Symbol: "A", Weight: 1, Positive: true},
		{Symbol: "B", Weight: 4, Positive: true},
	}

	res, err := ComputeIndex(prices, weights, DefaultSettings())
	require.NoError(t, err)
	for i, v := range res.Raw() {
		assert.GreaterOrEqual(t, v, 0.0, "raw aggregate at %d", i)
	}
}

func TestComputeIndex_OutputWithinBounds(t *testing.T) {
	prices := buildTable(t,
		column{"A", []float64{100, 90, 95, 80, 120, 60, 70, 71}},
		column{"B", []float64{5, 6, 5, 7, 4, 9, 8, 8}},
	)
	weights := m.WeightTable{
		{Symbol: "A", Weight: 1, Positive: false},
		{Symbol: "B", Weight: 2, Positive: true},
	}

	settings := DefaultSettings()
	settings.Penalty = true
	settings.PenaltyK = null.FloatFrom(0.5)

	res, err := ComputeIndex(prices, weights, settings)
	require.NoError(t, err)
	for _, v := range res.Scaled() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestComputeIndex_NonFinitePriceIsMissing(t *testing.T) {
	weights := m.WeightTable{
		{Symbol: "A", Weight: 1, Positive: true},
		{Symbol: "B", Weight: 1, Positive: false},
	}
	for _, settings := range []Settings{DefaultSettings(), {Alignment: AlignmentForwardFill, Penalty: true}} {
		gap := buildTable(t,
			column{"A", []float64{100, 110, 99, 104, 101}},
			column{"B", []float64{50, 52, math.NaN(), 51, 53}},
		)
		expected, err := ComputeIndex(gap, weights, settings)
		require.NoError(t, err)
		require.NotEmpty(t, expected.Points)

		for _, bad := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
			dirty := buildTable(t,
				column{"A", []float64{100, 110, 99, 104, 101}},
				column{"B", []float64{50, 52, 0, 51, 53}},
			)
			dirty.Prices["B"][2] = null.FloatFrom(bad)
			require.NoError(t, dirty.Validate())

			res, err := ComputeIndex(dirty, weights, settings)
			require.NoError(t, err)
			assert.Equal(t, 1, res.Diagnostics.MaskedCells)
			ex.AssertSeriesInDelta(t, "scaled", expected.Scaled(), res.Scaled(), tolerance)
			for _, v := range res.Scaled() {
				assert.True(t, v >= 0 && v <= 100, "scaled value %v outside 0..100", v)
			}
			assert.True(t, ex.IsFinite(res.Latest.Float64))
			assert.True(t, dirty.Prices["B"][2].Valid, "the caller's table is left untouched")
		}
	}
}

func TestComputeIndex_SinglePeriodIsFlat(t *testing.T) {
	prices := buildTable(t, column{"A", []float64{100, 110}})
	weights := m.WeightTable{{Symbol: "A", Weight: 1, Positive: true}}

	settings := DefaultSettings()
	settings.Penalty = true

	res, err := ComputeIndex(prices, weights, settings)
	require.NoError(t, err)
	assert.Equal(t, []float64{50}, res.Scaled())
	assert.False(t, res.Diagnostics.PenaltyThreshold.Valid, "sigma of one point is zero")
	assert.Equal(t, BandOrange, res.Band)
	assert.False(t, res.Stats.Volatility.Valid)
}

func TestComputeIndex_EmptyActiveSet(t *testing.T) {
	prices := buildTable(t, column{"A", []float64{math.NaN(), 100, math.NaN()}})
	weights := m.WeightTable{{Symbol: "A", Weight: 1, Positive: true}}

	res, err := ComputeIndex(prices, weights, DefaultSettings())
	require.NoError(t, err)
	assert.Empty(t, res.Points)
	assert.False(t, res.Latest.Valid)
	assert.Equal(t, []Exclusion{{Symbol: "A", Reason: ReasonInsufficientObservations}}, res.Diagnostics.Excluded)
}

func TestComputeIndex_SchemaErrors(t *testing.T) {
	prices, weights := referenceCase(t)

	_, err := ComputeIndex(prices, m.WeightTable{}, DefaultSettings())
	assert.True(t, errors.Is(err, ErrEmptyWeightTable))

	bad := DefaultSettings()
	bad.SmoothingSpan = null.IntFrom(0)
	_, err = ComputeIndex(prices, weights, bad)
	assert.True(t, errors.Is(err, ErrInvalidSettings))

	unordered := m.NewPriceTable([]time.Time{day(1), day(0)})
	_, err = ComputeIndex(unordered, weights, DefaultSettings())
	assert.True(t, errors.Is(err, ErrMalformedPriceTable))
}

func TestComputeIndex_ForwardFillKeepsUnion(t *testing.T) {
	nan := math.NaN()
	prices := buildTable(t,
		column{"A", []float64{100, 110, nan, 121, 125}},
		column{"B", []float64{50, nan, 55, 55, 60}},
	)
	weights := m.WeightTable{
		{Symbol: "A", Weight: 1, Positive: true},
		{Symbol: "B", Weight: 1, Positive: true},
	}

	drop, err := ComputeIndex(prices, weights, DefaultSettings())
	require.NoError(t, err)
	assert.Len(t, drop.Points, 1, "only the last row has both returns")
	assert.Equal(t, day(4), drop.Points[0].Timestamp)

	settings := DefaultSettings()
	settings.Alignment = AlignmentForwardFill
	filled, err := ComputeIndex(prices, weights, settings)
	require.NoError(t, err)
	require.Len(t, filled.Points, 4)
	// day 1: A +10%, B filled flat
	assert.InDelta(t, 0.05, filled.Points[0].Raw, tolerance)
	// day 2: A filled flat, B +10%
	assert.InDelta(t, 0.05, filled.Points[1].Raw, tolerance)
}

func TestComputeIndex_Reference(t *testing.T) {
	prices := buildTable(t,
		column{"A", []float64{100, 110, 99, 105, 102}},
		column{"^VIX", []float64{20, 18, 25, 22, 24}},
	)
	weights := m.WeightTable{{Symbol: "A", Weight: 1, Positive: true}}

	settings := DefaultSettings()
	settings.ReferenceSymbol = "^VIX"

	res, err := ComputeIndex(prices, weights, settings)
	require.NoError(t, err)
	require.Len(t, res.Reference, 5)
	assert.InDelta(t, 100.0, res.Reference[0].Value, tolerance)
	assert.InDelta(t, 120.0, res.Reference[4].Value, tolerance)
	assert.True(t, res.Stats.CorrelationToReference.Valid)

	settings.ReferenceSymbol = "MISSING"
	res, err = ComputeIndex(prices, weights, settings)
	require.NoError(t, err)
	assert.False(t, res.Stats.CorrelationToReference.Valid)
	assert.Empty(t, res.Reference)
}
