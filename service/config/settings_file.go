package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/guregu/null/v6"
	"gopkg.in/yaml.v3"

	c "gti/service/core"
)

// settingsFile is the on disk shape of the engine settings, unknown keys are rejected
type settingsFile struct {
	SmoothingSpan     *int64   `yaml:"smoothing_span"`
	Standardize       bool     `yaml:"standardize"`
	Order             string   `yaml:"order"`
	Penalty           bool     `yaml:"penalty"`
	PenaltyK          *float64 `yaml:"penalty_k"`
	PenaltyMultiplier *float64 `yaml:"penalty_multiplier"`
	Alignment         string   `yaml:"alignment"`
	Frequency         string   `yaml:"frequency"`
	ReferenceSymbol   string   `yaml:"reference_symbol"`
}

func LoadSettingsFile(path string) (c.Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return c.Settings{}, fmt.Errorf("error opening settings file: %w", err)
	}
	defer f.Close()

	return ReadSettings(f)
}

// ReadSettings decodes yaml settings. An empty document gives the defaults.
func ReadSettings(r io.Reader) (c.Settings, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file settingsFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return c.Settings{}, fmt.Errorf("%w: %v", c.ErrInvalidSettings, err)
	}

	settings := c.Settings{
		SmoothingSpan:     null.IntFromPtr(file.SmoothingSpan),
		Standardize:       file.Standardize,
		Order:             c.NormalizationOrder(file.Order),
		Penalty:           file.Penalty,
		PenaltyK:          null.FloatFromPtr(file.PenaltyK),
		PenaltyMultiplier: null.FloatFromPtr(file.PenaltyMultiplier),
		Alignment:         c.Alignment(file.Alignment),
		Frequency:         c.Frequency(file.Frequency),
		ReferenceSymbol:   file.ReferenceSymbol,
	}.WithDefaults()

	if err := settings.Validate(); err != nil {
		return c.Settings{}, err
	}
	return settings, nil
}
