package core

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	ex "gti/data/extensions"
	m "gti/data/models"
)

const DefaultScenarioWorkers = 4

// Scenario is one named configuration to run against a shared price table
type Scenario struct {
	Name     string        `json:"name"`
	Weights  m.WeightTable `json:"weights"`
	Settings Settings      `json:"settings"`
}

// ScenarioResult keeps the input position of its scenario. Error is set instead of Result
// when that scenario's own inputs were rejected.
type ScenarioResult struct {
	Name   string       `json:"name"`
	Result *IndexResult `json:"result"`
	Error  string       `json:"error,omitempty"`
}

// GetNumberOfWorkers never starts more workers than there are scenarios
func GetNumberOfWorkers(nScenarios, workers int) int {
	if workers < 1 {
		workers = DefaultScenarioWorkers
	}
	return ex.Min(nScenarios, workers)
}

// RunScenarios computes every scenario in parallel. Each one gets its own copy of the price
// table, so nothing is shared between workers. A rejected scenario does not stop the others,
// a cancelled context does.
func RunScenarios(ctx context.Context, prices m.PriceTable, scenarios []Scenario, workers int) ([]ScenarioResult, error) {
	res := make([]ScenarioResult, len(scenarios))
	if len(scenarios) == 0 {
		return res, nil
	}

	jobs := make(chan int, len(scenarios))
	for i := range scenarios {
		jobs <- i
	}
	close(jobs)

	g, ctx := errgroup.WithContext(ctx)
	for range GetNumberOfWorkers(len(scenarios), workers) {
		g.Go(func() error {
			for i := range jobs {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				s := scenarios[i]
				res[i].Name = s.Name

				result, err := ComputeIndex(prices.Between(time.Time{}, time.Time{}), s.Weights, s.Settings)
				if err != nil {
					res[i].Error = err.Error()
					continue
				}
				res[i].Result = result
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
