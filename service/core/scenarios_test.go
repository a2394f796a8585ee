package core

import (
	"context"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNumberOfWorkers(t *testing.T) {
	assert.Equal(t, 2, GetNumberOfWorkers(2, 8))
	assert.Equal(t, 8, GetNumberOfWorkers(20, 8))
	assert.Equal(t, DefaultScenarioWorkers, GetNumberOfWorkers(20, 0))
}

func TestRunScenarios_KeepsOrderAndIsolatesErrors(t *testing.T) {
	prices, weights := referenceCase(t)

	broken := DefaultSettings()
	broken.SmoothingSpan = null.IntFrom(-1)

	scenarios := []Scenario{
		{Name: "base", Weights: weights, Settings: DefaultSettings()},
		{Name: "broken", Weights: weights, Settings: broken},
		{Name: "flipped", Weights: weights.Flipped(), Settings: DefaultSettings()},
	}

	res, err := RunScenarios(context.Background(), prices, scenarios, 2)
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.Equal(t, "base", res[0].Name)
	assert.Equal(t, "broken", res[1].Name)
	assert.Equal(t, "flipped", res[2].Name)

	require.NotNil(t, res[0].Result)
	assert.Equal(t, []float64{100, 0}, roundAll(res[0].Result.Scaled()))
	assert.Nil(t, res[1].Result)
	assert.Contains(t, res[1].Error, "smoothing span")
	require.NotNil(t, res[2].Result)
	assert.Equal(t, []float64{0, 100}, roundAll(res[2].Result.Scaled()))
}

func TestRunScenarios_Cancelled(t *testing.T) {
	prices, weights := referenceCase(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunScenarios(ctx, prices, []Scenario{{Name: "x", Weights: weights, Settings: DefaultSettings()}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunScenarios_Empty(t *testing.T) {
	prices, _ := referenceCase(t)
	res, err := RunScenarios(context.Background(), prices, nil, 4)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func roundAll(values []float64) []float64 {
	res := make([]float64, len(values))
	for i, v := range values {
		res[i] = float64(int64(v*1e6+0.5)) / 1e6
	}
	return res
}
