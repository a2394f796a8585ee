package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/guregu/null/v6"

	dm "gti/data/models"
)

var validate = validator.New()

type WeightPayload struct {
	Symbol   string  `json:"symbol" validate:"required"`
	Weight   float64 `json:"weight" validate:"gte=0"`
	Positive bool    `json:"positive"`
	FullName string  `json:"fullName"`
}

// IndexSettingsPayload overrides the service defaults, empty fields keep the default
type IndexSettingsPayload struct {
	SmoothingSpan     null.Int   `json:"smoothingSpan"`
	Standardize       *bool      `json:"standardize"`
	Order             string     `json:"order" validate:"omitempty,oneof=smooth_then_standardize standardize_then_smooth"`
	Penalty           *bool      `json:"penalty"`
	PenaltyK          null.Float `json:"penaltyK"`
	PenaltyMultiplier null.Float `json:"penaltyMultiplier"`
	Alignment         string     `json:"alignment" validate:"omitempty,oneof=drop forward_fill"`
	Frequency         string     `json:"frequency" validate:"omitempty,oneof=daily weekly monthly"`
	ReferenceSymbol   string     `json:"referenceSymbol"`
}

// IndexRequest asks for one index computation, no weights means the service defaults
type IndexRequest struct {
	Weights  []WeightPayload       `json:"weights" validate:"omitempty,dive"`
	Start    string                `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End      string                `json:"end" validate:"omitempty,datetime=2006-01-02"`
	Settings *IndexSettingsPayload `json:"settings"`
}

func (r IndexRequest) Validate() error {
	return validate.Struct(r)
}

type ScenarioPayload struct {
	Name     string                `json:"name" validate:"required"`
	Weights  []WeightPayload       `json:"weights" validate:"omitempty,dive"`
	Settings *IndexSettingsPayload `json:"settings"`
}

type ScenariosRequest struct {
	Start     string            `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End       string            `json:"end" validate:"omitempty,datetime=2006-01-02"`
	Scenarios []ScenarioPayload `json:"scenarios" validate:"required,min=1,dive"`
}

func (r ScenariosRequest) Validate() error {
	return validate.Struct(r)
}

type PerformanceRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,dive,required"`
	AsOf    string   `json:"asOf" validate:"omitempty,datetime=2006-01-02"`
}

func (r PerformanceRequest) Validate() error {
	return validate.Struct(r)
}

type IndexPointPayload struct {
	Timestamp  string  `json:"timestamp"`
	Raw        float64 `json:"raw"`
	Adjusted   float64 `json:"adjusted"`
	Cumulative float64 `json:"cumulative"`
	Scaled     float64 `json:"scaled"`
	Penalized  bool    `json:"penalized"`
}

type ExclusionPayload struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

type IndexDiagnostics struct {
	Excluded         []ExclusionPayload `json:"excluded"`
	ActiveSymbols    []string           `json:"activeSymbols"`
	TotalWeight      float64            `json:"totalWeight"`
	PenaltyThreshold null.Float         `json:"penaltyThreshold"`
	PenalizedPeriods int                `json:"penalizedPeriods"`
	MaskedCells      int                `json:"maskedCells"`
}

type IndexStats struct {
	Volatility             null.Float `json:"volatility"`
	SharpeLike             null.Float `json:"sharpeLike"`
	MaxDrawdown            null.Float `json:"maxDrawdown"`
	CorrelationToReference null.Float `json:"correlationToReference"`
}

type ReferencePointPayload struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// IndexResponse is what the index endpoint returns. LatestDisplay is the latest value
// rounded for display, empty when the run produced no points.
type IndexResponse struct {
	RunKey        string                  `json:"runKey"`
	Cached        bool                    `json:"cached"`
	Latest        null.Float              `json:"latest"`
	LatestDisplay string                  `json:"latestDisplay"`
	Band          string                  `json:"band"`
	Points        []IndexPointPayload     `json:"points"`
	Diagnostics   IndexDiagnostics        `json:"diagnostics"`
	Stats         IndexStats              `json:"stats"`
	Reference     []ReferencePointPayload `json:"reference"`
}

type ScenarioResultPayload struct {
	Name   string         `json:"name"`
	Result *IndexResponse `json:"result"`
	Error  string         `json:"error,omitempty"`
}

type ScenariosResponse struct {
	Results []ScenarioResultPayload `json:"results"`
}

type MarketPerformancePayload struct {
	Symbol     string     `json:"symbol"`
	FullName   string     `json:"fullName,omitempty"`
	Status     string     `json:"status"`
	Daily      null.Float `json:"daily"`
	Weekly     null.Float `json:"weekly"`
	Monthly    null.Float `json:"monthly"`
	Yearly     null.Float `json:"yearly"`
	ColorClass string     `json:"colorClass"`
}

type PerformanceResponse struct {
	AsOf    string                     `json:"asOf"`
	Markets []MarketPerformancePayload `json:"markets"`
}

// IndexRunPayload is the recorded history of one index request
type IndexRunPayload struct {
	RunKey       string          `json:"runKey"`
	Start        string          `json:"start"`
	End          string          `json:"end"`
	Symbols      []string        `json:"symbols"`
	Settings     json.RawMessage `json:"settings"`
	CreatedAt    time.Time       `json:"createdAt"`
	CompletedAt  null.Time       `json:"completedAt"`
	LatestValue  null.Float      `json:"latestValue"`
	ErrorMessage null.String     `json:"errorMessage"`
}

// MapWeightPayloads converts request weights to the data model, a blank full name stays null
func MapWeightPayloads(payloads []WeightPayload) dm.WeightTable {
	res := make(dm.WeightTable, len(payloads))
	for i, p := range payloads {
		res[i] = dm.WeightEntry{
			Symbol:   strings.TrimSpace(p.Symbol),
			Weight:   p.Weight,
			Positive: p.Positive,
		}
		if name := strings.TrimSpace(p.FullName); name != "" {
			res[i].FullName = null.StringFrom(name)
		}
	}
	return res
}
