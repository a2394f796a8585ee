package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	m "gti/data/models"
	q "gti/data/queries"
)

// GetPriceTable loads closes for the requested symbols and pivots them into a wide table.
// A zero start or end leaves that side of the range open.
func (pg *Postgres) GetPriceTable(ctx context.Context, symbols []string, start, end time.Time) (m.PriceTable, error) {
	if len(symbols) == 0 {
		return m.PriceTable{}, fmt.Errorf("at least one symbol is required to load prices")
	}

	if start.IsZero() {
		start = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if end.IsZero() {
		end = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
	}

	args := pgx.NamedArgs{
		"symbols":    symbols,
		"start_date": start,
		"end_date":   end,
	}

	rows, err := Query[m.PriceObservation](ctx, pg, q.Get(q.QueryHelper.Select.PriceObservations), args)
	if err != nil {
		return m.PriceTable{}, fmt.Errorf("unable to query prices for %v: %w", symbols, err)
	}

	table := m.PivotObservations(rows)
	if err := table.Validate(); err != nil {
		return m.PriceTable{}, err
	}
	return table, nil
}

// InsertPriceObservations writes closes for a single instrument, skipping missing cells.
// Stored rows at the same timestamps are replaced, so importing an overlapping range twice
// leaves one close per timestamp. Without a tx the delete and copy get their own transaction.
func (pg *Postgres) InsertPriceObservations(ctx context.Context, sourceId int32, observations []*m.PriceObservation, tx pgx.Tx) (int64, error) {
	columns := []string{"source_id", "timestamp", "close"}
	timestamps, entries := latestCloses(sourceId, observations)

	if len(entries) == 0 {
		return 0, nil
	}

	if tx == nil {
		own, err := pg.GetTransaction(ctx)
		if err != nil {
			return 0, fmt.Errorf("error beginning transaction: %w", err)
		}
		defer own.Rollback(ctx)

		ct, err := pg.InsertPriceObservations(ctx, sourceId, observations, own)
		if err != nil {
			return 0, err
		}
		if err := own.Commit(ctx); err != nil {
			return 0, fmt.Errorf("error committing price observations for source %d: %w", sourceId, err)
		}
		return ct, nil
	}

	args := pgx.NamedArgs{
		"source_id":  sourceId,
		"timestamps": timestamps,
	}
	if _, err := tx.Exec(ctx, q.Get(q.QueryHelper.Delete.PriceObservations), args); err != nil {
		return 0, fmt.Errorf("error replacing price observations for source %d: %w", sourceId, err)
	}

	ct, err := pg.BulkInsert(ctx, "price_observation", columns, entries, tx)
	if err != nil {
		return 0, fmt.Errorf("error inserting price observations for source %d: %w", sourceId, err)
	}
	return ct, nil
}

// latestCloses turns observations into copy rows with one row per timestamp. A later
// observation for a timestamp replaces an earlier one, as it does when the table is pivoted.
func latestCloses(sourceId int32, observations []*m.PriceObservation) ([]time.Time, [][]any) {
	index := make(map[time.Time]int, len(observations))
	timestamps := make([]time.Time, 0, len(observations))
	entries := make([][]any, 0, len(observations))
	for _, o := range observations {
		if !o.Close.Valid {
			continue
		}
		ts := o.Timestamp.UTC()
		entry := []any{sourceId, ts, o.Close.Float64}
		if i, ok := index[ts]; ok {
			entries[i] = entry
			continue
		}
		index[ts] = len(entries)
		timestamps = append(timestamps, ts)
		entries = append(entries, entry)
	}
	return timestamps, entries
}

// ImportPriceTable stores every column of a table in a single transaction,
// upserting the instrument metadata first so each column has a source id
func (pg *Postgres) ImportPriceTable(ctx context.Context, table m.PriceTable, names map[string]string) (int64, error) {
	if err := table.Validate(); err != nil {
		return 0, err
	}

	tx, err := pg.GetTransaction(ctx)
	if err != nil {
		return 0, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	for _, symbol := range table.Symbols {
		meta := m.InstrumentMetadata{Symbol: symbol}
		if name, ok := names[symbol]; ok && name != "" {
			meta.FullName.SetValid(name)
		}

		if err := pg.UpsertInstrumentMetadata(ctx, &meta, tx); err != nil {
			return 0, err
		}

		col, _ := table.Column(symbol)
		observations := make([]*m.PriceObservation, len(col))
		for i, v := range col {
			observations[i] = &m.PriceObservation{Symbol: symbol, Timestamp: table.Dates[i], Close: v}
		}

		ct, err := pg.InsertPriceObservations(ctx, meta.Id, observations, tx)
		if err != nil {
			return 0, err
		}
		total += ct
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("error committing price import: %w", err)
	}
	return total, nil
}
