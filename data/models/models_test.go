package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestPriceTable_Validate(t *testing.T) {
	pt := NewPriceTable([]time.Time{day(1), day(2)})
	require.NoError(t, pt.AddColumn("A", []null.Float{null.FloatFrom(1), null.FloatFrom(2)}))
	assert.NoError(t, pt.Validate())

	err := pt.AddColumn("B", []null.Float{null.FloatFrom(1)})
	assert.True(t, errors.Is(err, ErrMalformedPriceTable))

	err = pt.AddColumn("A", []null.Float{{}, {}})
	assert.True(t, errors.Is(err, ErrMalformedPriceTable))

	unordered := NewPriceTable([]time.Time{day(2), day(2)})
	assert.True(t, errors.Is(unordered.Validate(), ErrMalformedPriceTable))
}

func TestPriceTable_Between(t *testing.T) {
	pt := NewPriceTable([]time.Time{day(1), day(2), day(3), day(4)})
	require.NoError(t, pt.AddColumn("A", []null.Float{null.FloatFrom(1), null.FloatFrom(2), null.FloatFrom(3), null.FloatFrom(4)}))

	sub := pt.Between(day(2), day(3))
	assert.Equal(t, []time.Time{day(2), day(3)}, sub.Dates)
	col, ok := sub.Column("A")
	require.True(t, ok)
	assert.Equal(t, 2.0, col[0].Float64)

	open := pt.Between(time.Time{}, time.Time{})
	assert.Equal(t, 4, open.Len())
}

func TestPriceTable_FiniteOnly(t *testing.T) {
	pt := NewPriceTable([]time.Time{day(1), day(2), day(3)})
	require.NoError(t, pt.AddColumn("A", []null.Float{null.FloatFrom(1), null.FloatFrom(math.NaN()), {}}))
	require.NoError(t, pt.AddColumn("B", []null.Float{null.FloatFrom(math.Inf(-1)), null.FloatFrom(2), null.FloatFrom(3)}))

	clean, masked := pt.FiniteOnly()
	assert.Equal(t, 2, masked)
	assert.NoError(t, clean.Validate())
	assert.Equal(t, []null.Float{null.FloatFrom(1), {}, {}}, clean.Prices["A"])
	assert.Equal(t, []null.Float{{}, null.FloatFrom(2), null.FloatFrom(3)}, clean.Prices["B"])
	assert.True(t, pt.Prices["A"][1].Valid, "source table is not modified")
}

func TestPivotObservations(t *testing.T) {
	rows := []*PriceObservation{
		{Symbol: "B", Timestamp: day(2), Close: null.FloatFrom(52)},
		{Symbol: "A", Timestamp: day(1), Close: null.FloatFrom(100)},
		{Symbol: "A", Timestamp: day(2), Close: null.FloatFrom(110)},
	}

	pt := PivotObservations(rows)
	require.NoError(t, pt.Validate())
	assert.Equal(t, []time.Time{day(1), day(2)}, pt.Dates)
	assert.Equal(t, []string{"B", "A"}, pt.Symbols)

	b, _ := pt.Column("B")
	assert.False(t, b[0].Valid)
	assert.Equal(t, 52.0, b[1].Float64)
}

func TestWeightTable_Validate(t *testing.T) {
	tests := []struct {
		name    string
		table   WeightTable
		wantErr error
	}{
		{"empty", WeightTable{}, ErrEmptyWeightTable},
		{"blank symbol", WeightTable{{Symbol: " ", Weight: 1}}, ErrInvalidWeightRow},
		{"negative weight", WeightTable{{Symbol: "A", Weight: -1}}, ErrInvalidWeightRow},
		{"duplicate", WeightTable{{Symbol: "A", Weight: 1}, {Symbol: "A", Weight: 2}}, ErrDuplicateInstrument},
		{"valid", WeightTable{{Symbol: "A", Weight: 1, Positive: true}, {Symbol: "B", Weight: 0}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWeightEntry_SignAndLabel(t *testing.T) {
	w := WeightEntry{Symbol: "^VIX", Weight: 1, Positive: false}
	assert.Equal(t, -1.0, w.Sign())
	assert.Equal(t, "^VIX", w.Label())

	w.FullName = null.StringFrom("CBOE Volatility Index")
	assert.Equal(t, "CBOE Volatility Index", w.Label())

	flipped := WeightTable{w}.Flipped()
	assert.Equal(t, 1.0, flipped[0].Sign())
	assert.Equal(t, 3.0, WeightTable{w}.Scaled(3)[0].Weight)
}
