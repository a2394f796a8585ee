package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/guregu/null/v6"

	m "gti/data/models"
	sm "gti/service/models"
)

var (
	ErrInvalidSettings     = errors.New("invalid index settings")
	ErrEmptyWeightTable    = m.ErrEmptyWeightTable
	ErrMalformedPriceTable = m.ErrMalformedPriceTable
)

const (
	DefaultPenaltyK          = 2.0
	DefaultPenaltyMultiplier = 1.5
	ScaleMin                 = 0.0
	ScaleMax                 = 100.0
)

// Alignment decides how returns line up when instruments have gaps
type Alignment string

const (
	// AlignmentDrop keeps only timestamps where every active instrument has a return. Nothing is filled.
	AlignmentDrop Alignment = sm.AlignmentDrop
	// AlignmentForwardFill carries the last price forward and keeps the union of timestamps
	AlignmentForwardFill Alignment = sm.AlignmentForwardFill
)

func (a Alignment) Valid() bool {
	return a == AlignmentDrop || a == AlignmentForwardFill
}

type NormalizationOrder string

const (
	SmoothThenStandardize NormalizationOrder = sm.OrderSmoothThenStandardize
	StandardizeThenSmooth NormalizationOrder = sm.OrderStandardizeThenSmooth
)

func (o NormalizationOrder) Valid() bool {
	return o == SmoothThenStandardize || o == StandardizeThenSmooth
}

// Frequency is the bar size prices are resampled to before returns are taken
type Frequency string

const (
	FrequencyDaily   Frequency = sm.FrequencyDaily
	FrequencyWeekly  Frequency = sm.FrequencyWeekly
	FrequencyMonthly Frequency = sm.FrequencyMonthly
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// Settings is every toggle the pipeline branches on. The output scale is fixed at 0..100.
type Settings struct {
	SmoothingSpan     null.Int           `json:"smoothingSpan"`
	Standardize       bool               `json:"standardize"`
	Order             NormalizationOrder `json:"order"`
	Penalty           bool               `json:"penalty"`
	PenaltyK          null.Float         `json:"penaltyK"`
	PenaltyMultiplier null.Float         `json:"penaltyMultiplier"`
	Alignment         Alignment          `json:"alignment"`
	Frequency         Frequency          `json:"frequency"`
	ReferenceSymbol   string             `json:"referenceSymbol"`
}

func DefaultSettings() Settings {
	return Settings{
		Order:     SmoothThenStandardize,
		Alignment: AlignmentDrop,
		Frequency: FrequencyDaily,
	}
}

// WithDefaults fills empty enum values, leaving everything else as given
func (s Settings) WithDefaults() Settings {
	if s.Order == "" {
		s.Order = SmoothThenStandardize
	}
	if s.Alignment == "" {
		s.Alignment = AlignmentDrop
	}
	if s.Frequency == "" {
		s.Frequency = FrequencyDaily
	}
	s.ReferenceSymbol = strings.TrimSpace(s.ReferenceSymbol)
	return s
}

func (s Settings) Validate() error {
	var problems []string

	if s.SmoothingSpan.Valid && s.SmoothingSpan.Int64 < 1 {
		problems = append(problems, fmt.Sprintf("smoothing span must be at least 1, got %d", s.SmoothingSpan.Int64))
	}
	if s.PenaltyK.Valid && !(s.PenaltyK.Float64 > 0) {
		problems = append(problems, fmt.Sprintf("penalty k must be positive, got %v", s.PenaltyK.Float64))
	}
	if s.PenaltyMultiplier.Valid && !(s.PenaltyMultiplier.Float64 > 0) {
		problems = append(problems, fmt.Sprintf("penalty multiplier must be positive, got %v", s.PenaltyMultiplier.Float64))
	}
	if !s.Order.Valid() {
		problems = append(problems, fmt.Sprintf("unknown normalization order %q", s.Order))
	}
	if !s.Alignment.Valid() {
		problems = append(problems, fmt.Sprintf("unknown alignment %q", s.Alignment))
	}
	if !s.Frequency.Valid() {
		problems = append(problems, fmt.Sprintf("unknown frequency %q", s.Frequency))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

// PenaltyParams returns k and the multiplier, falling back to 2 and 1.5
func (s Settings) PenaltyParams() (k, multiplier float64) {
	k, multiplier = DefaultPenaltyK, DefaultPenaltyMultiplier
	if s.PenaltyK.Valid {
		k = s.PenaltyK.Float64
	}
	if s.PenaltyMultiplier.Valid {
		multiplier = s.PenaltyMultiplier.Float64
	}
	return
}
