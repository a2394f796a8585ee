package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	ex "gti/data/extensions"
	dm "gti/data/models"
	sm "gti/service/models"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrRunNotFound    = errors.New("index run not found")
)

// IsClientError reports whether err was caused by the caller's input rather than the service
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSettings) ||
		errors.Is(err, ErrEmptyWeightTable) ||
		errors.Is(err, ErrMalformedPriceTable) ||
		errors.Is(err, dm.ErrInvalidWeightRow) ||
		errors.Is(err, dm.ErrDuplicateInstrument)
}

// RunIndex serves one index request: resolve inputs, check the cache, load prices, record
// the run, compute and publish. Failures after the run is recorded mark it as failed.
func (sc *ServiceContext) RunIndex(req sm.IndexRequest) (res *sm.IndexResponse, err error) {
	start := time.Now()
	defer func() { sc.Metrics.observe("index", start, err) }()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	weightPayloads, weights := sc.resolveWeights(req.Weights)
	settings := sc.resolveSettings(req.Settings)
	from, to, err := parseRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	key, err := CacheKey(weightPayloads, settings, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	if sc.Cache != nil {
		cached, ok := sc.Cache.Get(sc.Context, key)
		sc.Metrics.cacheLookup(ok)
		if ok {
			sc.Logger.Info().Str("run_id", cached.RunKey).Dur("elapsed", time.Since(start)).Msg("served index from cache")
			cached.Cached = true
			return cached, nil
		}
	}

	runKey := uuid.New()
	logger := sc.Logger.With().Str("run_id", runKey.String()).Logger()
	logger.Info().Int("instruments", len(weights)).Msg("received index request")

	if err := settings.Validate(); err != nil {
		logger.Warn().Err(err).Msg("rejected index settings")
		return nil, err
	}
	if err := weights.Validate(); err != nil {
		logger.Warn().Err(err).Msg("rejected weight table")
		return nil, fmt.Errorf("error validating weight table: %w", err)
	}

	logger.Debug().Dur("elapsed", time.Since(start)).Msg("loading prices")
	prices, err := sc.Store.GetPriceTable(sc.Context, requiredSymbols(weights, settings), from, to)
	if err != nil {
		logger.Error().Err(err).Msg("error loading prices")
		return nil, err
	}

	runId, err := sc.insertIndexRun(runKey, weights, settings, prices, from, to)
	if err != nil {
		logger.Error().Err(err).Msg("error inserting index run history")
		return nil, err
	}

	logger.Debug().Dur("elapsed", time.Since(start)).Int("rows", prices.Len()).Msg("computing index")
	result, err := ComputeIndex(prices, weights, settings)
	if err != nil {
		logger.Error().Err(err).Msg("error computing index")
		return nil, sc.markIndexRunAsFailure(runId, err)
	}

	if err := sc.Store.UpdateIndexRunAsSuccess(sc.Context, runId, result.Latest); err != nil {
		logger.Error().Err(err).Msg("error updating index run as success")
		return nil, err // failing it would most likely fail the same way
	}

	sc.Metrics.published(result)
	for _, e := range result.Diagnostics.Excluded {
		logger.Warn().Str("symbol", e.Symbol).Str("reason", e.Reason).Msg("instrument excluded")
	}

	res = BuildIndexResponse(runKey.String(), result)
	if sc.Cache != nil {
		sc.Cache.Set(sc.Context, key, res)
	}

	logger.Info().Dur("elapsed", time.Since(start)).Int("points", len(result.Points)).Msg("index completed")
	return res, nil
}

// RunScenarioComparison loads prices once for every scenario and computes them in parallel
func (sc *ServiceContext) RunScenarioComparison(req sm.ScenariosRequest) (res *sm.ScenariosResponse, err error) {
	start := time.Now()
	defer func() { sc.Metrics.observe("scenarios", start, err) }()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	from, to, err := parseRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	scenarios := make([]Scenario, len(req.Scenarios))
	symbols := []string{}
	for i, p := range req.Scenarios {
		_, weights := sc.resolveWeights(p.Weights)
		settings := sc.resolveSettings(p.Settings)
		scenarios[i] = Scenario{Name: p.Name, Weights: weights, Settings: settings}

		for _, s := range requiredSymbols(weights, settings) {
			if !slices.Contains(symbols, s) {
				symbols = append(symbols, s)
			}
		}
	}

	sc.Logger.Info().Int("scenarios", len(scenarios)).Int("instruments", len(symbols)).Msg("received scenario comparison")
	prices, err := sc.Store.GetPriceTable(sc.Context, symbols, from, to)
	if err != nil {
		sc.Logger.Error().Err(err).Msg("error loading prices for scenarios")
		return nil, err
	}

	results, err := RunScenarios(sc.Context, prices, scenarios, sc.ScenarioWorkers)
	if err != nil {
		sc.Logger.Error().Err(err).Msg("scenario comparison stopped")
		return nil, err
	}

	res = &sm.ScenariosResponse{Results: make([]sm.ScenarioResultPayload, len(results))}
	for i, r := range results {
		res.Results[i] = sm.ScenarioResultPayload{Name: r.Name, Error: r.Error}
		if r.Result != nil {
			res.Results[i].Result = BuildIndexResponse(uuid.NewString(), r.Result)
		}
	}

	sc.Logger.Info().Dur("elapsed", time.Since(start)).Msg("scenario comparison completed")
	return res, nil
}

// GetPerformance builds the market snapshot for the requested symbols, as of today by default
func (sc *ServiceContext) GetPerformance(req sm.PerformanceRequest) (res *sm.PerformanceResponse, err error) {
	start := time.Now()
	defer func() { sc.Metrics.observe("performance", start, err) }()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if req.AsOf != "" {
		if asOf, err = ex.ParseShort(req.AsOf); err != nil {
			return nil, fmt.Errorf("%w: as of date: %v", ErrInvalidRequest, err)
		}
	}

	// a year of history plus slack so the yearly change has a starting bar
	prices, err := sc.Store.GetPriceTable(sc.Context, req.Symbols, asOf.AddDate(0, 0, -400), asOf)
	if err != nil {
		return nil, err
	}
	for _, s := range req.Symbols {
		if _, ok := prices.Column(s); !ok {
			_ = prices.AddColumn(s, make([]null.Float, prices.Len()))
		}
	}

	names := map[string]string{}
	if metadata, err := sc.Store.GetInstrumentMetadata(sc.Context, req.Symbols); err != nil {
		sc.Logger.Warn().Err(err).Msg("continuing without instrument names")
	} else {
		for _, md := range metadata {
			names[md.Symbol] = md.FullName.ValueOrZero()
		}
	}

	res = &sm.PerformanceResponse{AsOf: ex.FmtShort(asOf), Markets: []sm.MarketPerformancePayload{}}
	for _, p := range BuildPerformance(prices, asOf) {
		res.Markets = append(res.Markets, sm.MarketPerformancePayload{
			Symbol:     p.Symbol,
			FullName:   names[p.Symbol],
			Status:     p.Status,
			Daily:      p.Daily,
			Weekly:     p.Weekly,
			Monthly:    p.Monthly,
			Yearly:     p.Yearly,
			ColorClass: string(p.ColorClass),
		})
	}
	return res, nil
}

// GetIndexRun returns the recorded history of a run by the key handed out with its result
func (sc *ServiceContext) GetIndexRun(runKey string) (*sm.IndexRunPayload, error) {
	key, err := uuid.Parse(runKey)
	if err != nil {
		return nil, fmt.Errorf("%w: run key: %v", ErrInvalidRequest, err)
	}

	run, err := sc.Store.GetIndexRunByKey(sc.Context, key)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runKey)
	}

	return &sm.IndexRunPayload{
		RunKey:       run.RunKey.String(),
		Start:        ex.FmtShort(run.StartDate),
		End:          ex.FmtShort(run.EndDate),
		Symbols:      run.Symbols,
		Settings:     json.RawMessage(run.Settings),
		CreatedAt:    run.CreatedAt,
		CompletedAt:  run.CompletedAt,
		LatestValue:  run.LatestValue,
		ErrorMessage: run.ErrorMessage,
	}, nil
}

func (sc *ServiceContext) markIndexRunAsFailure(runId int32, cause error) error {
	if err := sc.Store.UpdateIndexRunAsFailure(sc.Context, runId, cause.Error()); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (sc *ServiceContext) insertIndexRun(runKey uuid.UUID, weights dm.WeightTable, settings Settings, prices dm.PriceTable, from, to time.Time) (int32, error) {
	encoded, err := json.Marshal(settings)
	if err != nil {
		return 0, fmt.Errorf("error encoding settings for run history: %w", err)
	}

	if from.IsZero() && prices.Len() > 0 {
		from = prices.Dates[0]
	}
	if to.IsZero() && prices.Len() > 0 {
		to = prices.Dates[prices.Len()-1]
	}

	return sc.Store.InsertIndexRun(sc.Context, &dm.IndexRunHistory{
		RunKey:    runKey,
		StartDate: from,
		EndDate:   to,
		Symbols:   weights.Symbols(),
		Settings:  string(encoded),
	})
}

// resolveWeights falls back to the default table, returning the payload form for cache keys too
func (sc *ServiceContext) resolveWeights(payloads []sm.WeightPayload) ([]sm.WeightPayload, dm.WeightTable) {
	if len(payloads) > 0 {
		return payloads, sm.MapWeightPayloads(payloads)
	}

	payloads = make([]sm.WeightPayload, len(sc.DefaultWeights))
	for i, w := range sc.DefaultWeights {
		payloads[i] = sm.WeightPayload{Symbol: w.Symbol, Weight: w.Weight, Positive: w.Positive, FullName: w.FullName.ValueOrZero()}
	}
	return payloads, sc.DefaultWeights
}

// resolveSettings overlays the request on the service defaults
func (sc *ServiceContext) resolveSettings(p *sm.IndexSettingsPayload) Settings {
	s := sc.DefaultSettings.WithDefaults()
	if p == nil {
		return s
	}

	if p.SmoothingSpan.Valid {
		s.SmoothingSpan = p.SmoothingSpan
	}
	if p.Standardize != nil {
		s.Standardize = *p.Standardize
	}
	if p.Order != "" {
		s.Order = NormalizationOrder(p.Order)
	}
	if p.Penalty != nil {
		s.Penalty = *p.Penalty
	}
	if p.PenaltyK.Valid {
		s.PenaltyK = p.PenaltyK
	}
	if p.PenaltyMultiplier.Valid {
		s.PenaltyMultiplier = p.PenaltyMultiplier
	}
	if p.Alignment != "" {
		s.Alignment = Alignment(p.Alignment)
	}
	if p.Frequency != "" {
		s.Frequency = Frequency(p.Frequency)
	}
	if p.ReferenceSymbol != "" {
		s.ReferenceSymbol = p.ReferenceSymbol
	}
	return s.WithDefaults()
}

func requiredSymbols(weights dm.WeightTable, settings Settings) []string {
	symbols := weights.Symbols()
	if settings.ReferenceSymbol != "" && !slices.Contains(symbols, settings.ReferenceSymbol) {
		symbols = append(symbols, settings.ReferenceSymbol)
	}
	return symbols
}

func parseRange(start, end string) (from, to time.Time, err error) {
	if start != "" {
		if from, err = ex.ParseShort(start); err != nil {
			return from, to, fmt.Errorf("%w: start date: %v", ErrInvalidRequest, err)
		}
	}
	if end != "" {
		if to, err = ex.ParseShort(end); err != nil {
			return from, to, fmt.Errorf("%w: end date: %v", ErrInvalidRequest, err)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidRequest, end, start)
	}
	return from, to, nil
}

// BuildIndexResponse maps an engine result onto the api shape
func BuildIndexResponse(runKey string, result *IndexResult) *sm.IndexResponse {
	res := &sm.IndexResponse{
		RunKey: runKey,
		Latest: result.Latest,
		Band:   string(result.Band),
		Points: make([]sm.IndexPointPayload, len(result.Points)),
		Diagnostics: sm.IndexDiagnostics{
			Excluded:         make([]sm.ExclusionPayload, len(result.Diagnostics.Excluded)),
			ActiveSymbols:    result.Diagnostics.ActiveSymbols,
			TotalWeight:      result.Diagnostics.TotalWeight,
			PenaltyThreshold: result.Diagnostics.PenaltyThreshold,
			PenalizedPeriods: result.Diagnostics.PenalizedPeriods,
			MaskedCells:      result.Diagnostics.MaskedCells,
		},
		Stats: sm.IndexStats{
			Volatility:             result.Stats.Volatility,
			SharpeLike:             result.Stats.SharpeLike,
			MaxDrawdown:            result.Stats.MaxDrawdown,
			CorrelationToReference: result.Stats.CorrelationToReference,
		},
		Reference: make([]sm.ReferencePointPayload, len(result.Reference)),
	}

	if result.Latest.Valid {
		res.LatestDisplay = decimal.NewFromFloat(result.Latest.Float64).StringFixed(2)
	}

	for i, p := range result.Points {
		res.Points[i] = sm.IndexPointPayload{
			Timestamp:  ex.FmtShort(p.Timestamp),
			Raw:        p.Raw,
			Adjusted:   p.Adjusted,
			Cumulative: p.Cumulative,
			Scaled:     p.Scaled,
			Penalized:  p.Penalized,
		}
	}
	for i, e := range result.Diagnostics.Excluded {
		res.Diagnostics.Excluded[i] = sm.ExclusionPayload{Symbol: e.Symbol, Reason: e.Reason}
	}
	for i, r := range result.Reference {
		res.Reference[i] = sm.ReferencePointPayload{Timestamp: ex.FmtShort(r.Timestamp), Value: r.Value}
	}

	return res
}
