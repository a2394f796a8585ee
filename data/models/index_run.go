package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
)

// IndexRunHistory records one computation requested through the service
type IndexRunHistory struct {
	Id           int32       `db:"id"`
	RunKey       uuid.UUID   `db:"run_key"`
	StartDate    time.Time   `db:"start_date"`
	EndDate      time.Time   `db:"end_date"`
	Symbols      []string    `db:"symbols"`
	Settings     string      `db:"settings"` // json
	CreatedAt    time.Time   `db:"created_at"`
	CompletedAt  null.Time   `db:"completed_at"`
	LatestValue  null.Float  `db:"latest_value"`
	ErrorMessage null.String `db:"error_message"`
}

// InstrumentMetadata is the stored description of a priced symbol
type InstrumentMetadata struct {
	Id       int32       `db:"id"`
	Symbol   string      `db:"symbol"`
	FullName null.String `db:"full_name"`
}
