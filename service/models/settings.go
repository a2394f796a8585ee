package models

// names shared by the engine configuration, the settings file and the api
const (
	AlignmentDrop        = "drop"
	AlignmentForwardFill = "forward_fill"

	OrderSmoothThenStandardize = "smooth_then_standardize"
	OrderStandardizeThenSmooth = "standardize_then_smooth"

	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

const (
	BandGreenFrom  = 70.0
	BandOrangeFrom = 40.0
)

// SettingsResources are the choices a front end can offer for an index request
type SettingsResources struct {
	Alignments  map[string]string  `json:"alignments"`
	Orders      map[string]string  `json:"orders"`
	Frequencies map[string]string  `json:"frequencies"`
	Bands       map[string]float64 `json:"bands"`
	Defaults    SettingsDefaults   `json:"defaults"`
}

type SettingsDefaults struct {
	Alignment         string  `json:"alignment"`
	Order             string  `json:"order"`
	Frequency         string  `json:"frequency"`
	PenaltyK          float64 `json:"penaltyK"`
	PenaltyMultiplier float64 `json:"penaltyMultiplier"`
	ScaleMin          float64 `json:"scaleMin"`
	ScaleMax          float64 `json:"scaleMax"`
}

// GetSettingsResources builds the resources from the shared names so the api and engine can't drift
func GetSettingsResources(defaults SettingsDefaults) SettingsResources {
	alignments := map[string]string{
		"intersection": AlignmentDrop,
		"forwardFill":  AlignmentForwardFill,
	}

	orders := map[string]string{
		"smoothThenStandardize": OrderSmoothThenStandardize,
		"standardizeThenSmooth": OrderStandardizeThenSmooth,
	}

	frequencies := map[string]string{
		"daily":   FrequencyDaily,
		"weekly":  FrequencyWeekly,
		"monthly": FrequencyMonthly,
	}

	bands := map[string]float64{
		"green":  BandGreenFrom,
		"orange": BandOrangeFrom,
		"red":    defaults.ScaleMin,
	}

	return SettingsResources{
		Alignments:  alignments,
		Orders:      orders,
		Frequencies: frequencies,
		Bands:       bands,
		Defaults:    defaults,
	}
}
