package files

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gti/data/models"
)

func TestReadWeights_Valid(t *testing.T) {
	input := `symbol,weight,positive,full_name
^GSPC,1,1,S&P 500
GC=F,0.5,0,Gold Futures
^VIX,2,false,
`
	table, err := ReadWeights(strings.NewReader(input), "weights.csv")
	require.NoError(t, err)
	require.Len(t, table, 3)

	assert.Equal(t, "^GSPC", table[0].Symbol)
	assert.True(t, table[0].Positive)
	assert.Equal(t, "S&P 500", table[0].Label())
	assert.Equal(t, 0.5, table[1].Weight)
	assert.False(t, table[1].Positive)
	assert.False(t, table[2].Positive)
	assert.False(t, table[2].FullName.Valid)
}

func TestReadWeights_ColumnOrderFromHeader(t *testing.T) {
	input := "positive,symbol,weight\n1,A,3\n"
	table, err := ReadWeights(strings.NewReader(input), "weights.csv")
	require.NoError(t, err)
	assert.Equal(t, m.WeightTable{{Symbol: "A", Weight: 3, Positive: true}}, table)
}

func TestReadWeights_MissingColumn(t *testing.T) {
	_, err := ReadWeights(strings.NewReader("symbol,weight\nA,1\n"), "weights.csv")

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Problems, 1)
	assert.Equal(t, ColumnPositive, ve.Problems[0].Column)
}

func TestReadWeights_MalformedRowsAllReported(t *testing.T) {
	input := `symbol,weight,positive
A,abc,1
,1,1
B,1,maybe
C,-2,1
`
	_, err := ReadWeights(strings.NewReader(input), "weights.csv")

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Problems, 4)
	assert.Equal(t, 2, ve.Problems[0].Line)
	assert.Equal(t, "weight", ve.Problems[0].Column)
	assert.Contains(t, err.Error(), "weights.csv rejected")
}

func TestReadWeights_DuplicateAndEmpty(t *testing.T) {
	_, err := ReadWeights(strings.NewReader("symbol,weight,positive\nA,1,1\nA,2,0\n"), "weights.csv")
	assert.ErrorIs(t, err, m.ErrDuplicateInstrument)

	_, err = ReadWeights(strings.NewReader("symbol,weight,positive\n"), "weights.csv")
	assert.ErrorIs(t, err, m.ErrEmptyWeightTable)

	_, err = ReadWeights(strings.NewReader(""), "weights.csv")
	assert.ErrorIs(t, err, m.ErrEmptyWeightTable)
}

func TestWriteWeights_RoundTrip(t *testing.T) {
	input := "symbol,weight,positive,full_name\nA,1.5,1,Alpha\nB,2,0,\n"
	table, err := ReadWeights(strings.NewReader(input), "in")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteWeights(&buf, table))
	assert.Equal(t, input, buf.String())
}

func TestReadPrices(t *testing.T) {
	input := `date,A,B,C
2025-01-01,100,50,
2025-01-02,110,52,NA
2025-01-03,99,52,nan
`
	table, err := ReadPrices(strings.NewReader(input), "prices.csv")
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"A", "B", "C"}, table.Symbols)
	assert.Equal(t, time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC), table.Dates[2])

	a, _ := table.Column("A")
	assert.Equal(t, 99.0, a[2].Float64)

	c, _ := table.Column("C")
	for _, v := range c {
		assert.False(t, v.Valid)
	}
}

func TestReadPrices_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no date column", "day,A\n2025-01-01,1\n"},
		{"bad date", "date,A\n01/02/2025,1\n"},
		{"bad price", "date,A\n2025-01-01,abc\n"},
		{"empty symbol", "date,\n2025-01-01,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPrices(strings.NewReader(tt.input), "prices.csv")
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestReadPrices_UnorderedDates(t *testing.T) {
	_, err := ReadPrices(strings.NewReader("date,A\n2025-01-02,1\n2025-01-01,2\n"), "prices.csv")
	assert.ErrorIs(t, err, m.ErrMalformedPriceTable)
}
