package models

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/guregu/null/v6"
)

var (
	ErrEmptyWeightTable    = errors.New("weight table has no entries")
	ErrInvalidWeightRow    = errors.New("invalid weight table entry")
	ErrDuplicateInstrument = errors.New("duplicate instrument in weight table")
)

// WeightEntry is one configured instrument of the basket.
// Positive false flips the contribution, a risk off instrument adds tension when it falls.
type WeightEntry struct {
	Symbol   string      `json:"symbol" validate:"required"`
	Weight   float64     `json:"weight" validate:"gte=0"`
	Positive bool        `json:"positive"`
	FullName null.String `json:"fullName"`
}

// Sign is +1 for positive entries and -1 otherwise
func (w WeightEntry) Sign() float64 {
	if w.Positive {
		return 1
	}
	return -1
}

// Label is the display name, falling back to the symbol
func (w WeightEntry) Label() string {
	if w.FullName.Valid && strings.TrimSpace(w.FullName.String) != "" {
		return w.FullName.String
	}
	return w.Symbol
}

type WeightTable []WeightEntry

// Validate rejects tables the engine must never see
func (wt WeightTable) Validate() error {
	if len(wt) == 0 {
		return ErrEmptyWeightTable
	}

	seen := make(map[string]bool, len(wt))
	for i, w := range wt {
		if strings.TrimSpace(w.Symbol) == "" {
			return fmt.Errorf("%w: row %d has no symbol", ErrInvalidWeightRow, i)
		}
		if math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) || w.Weight < 0 {
			return fmt.Errorf("%w: %s has weight %v, weights must be finite and non negative", ErrInvalidWeightRow, w.Symbol, w.Weight)
		}
		if seen[w.Symbol] {
			return fmt.Errorf("%w: %s", ErrDuplicateInstrument, w.Symbol)
		}
		seen[w.Symbol] = true
	}

	return nil
}

func (wt WeightTable) Symbols() []string {
	res := make([]string, len(wt))
	for i, w := range wt {
		res[i] = w.Symbol
	}
	return res
}

// Scaled multiplies every weight by factor
func (wt WeightTable) Scaled(factor float64) WeightTable {
	res := make(WeightTable, len(wt))
	for i, w := range wt {
		w.Weight *= factor
		res[i] = w
	}
	return res
}

// Flipped inverts every sign
func (wt WeightTable) Flipped() WeightTable {
	res := make(WeightTable, len(wt))
	for i, w := range wt {
		w.Positive = !w.Positive
		res[i] = w
	}
	return res
}
