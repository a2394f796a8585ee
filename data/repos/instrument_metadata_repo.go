package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	m "gti/data/models"
	q "gti/data/queries"
)

func (pg *Postgres) GetInstrumentMetadata(ctx context.Context, symbols []string) ([]*m.InstrumentMetadata, error) {
	args := pgx.NamedArgs{
		"symbols": symbols,
	}

	res, err := Query[m.InstrumentMetadata](ctx, pg, q.Get(q.QueryHelper.Select.InstrumentMetadataBySymbols), args)
	if err != nil {
		return nil, fmt.Errorf("unable to query instrument metadata (%v): %w", symbols, err)
	}
	return res, nil
}

// UpsertInstrumentMetadata inserts or refreshes a symbol and sets metadata.Id
func (pg *Postgres) UpsertInstrumentMetadata(ctx context.Context, metadata *m.InstrumentMetadata, tx pgx.Tx) error {
	query := q.Get(q.QueryHelper.Insert.InstrumentMetadata)
	args := pgx.NamedArgs{
		"symbol":    metadata.Symbol,
		"full_name": metadata.FullName,
	}

	var err error
	if tx == nil {
		err = pg.db.QueryRow(ctx, query, args).Scan(&metadata.Id)
	} else {
		err = tx.QueryRow(ctx, query, args).Scan(&metadata.Id)
	}

	if err != nil {
		return fmt.Errorf("error upserting instrument metadata for %s: %w", metadata.Symbol, err)
	}
	return nil
}
