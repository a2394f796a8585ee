package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"

	m "gti/data/models"
)

// Store is the persistence the controller needs, satisfied by repos.Postgres
type Store interface {
	GetPriceTable(ctx context.Context, symbols []string, start, end time.Time) (m.PriceTable, error)
	GetInstrumentMetadata(ctx context.Context, symbols []string) ([]*m.InstrumentMetadata, error)
	InsertIndexRun(ctx context.Context, run *m.IndexRunHistory) (int32, error)
	GetIndexRunByKey(ctx context.Context, runKey uuid.UUID) (*m.IndexRunHistory, error)
	UpdateIndexRunAsSuccess(ctx context.Context, runId int32, latest null.Float) error
	UpdateIndexRunAsFailure(ctx context.Context, runId int32, errorMessage string) error
	Ping(ctx context.Context) error
}

type ServiceContext struct {
	Context         context.Context
	Store           Store
	Cache           *ResultCache // nil disables caching
	Metrics         *Metrics
	Logger          zerolog.Logger
	DefaultWeights  m.WeightTable
	DefaultSettings Settings
	ScenarioWorkers int
}
