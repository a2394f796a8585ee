package repos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"github.com/jackc/pgx/v5"
	m "gti/data/models"
	q "gti/data/queries"
)

func (pg *Postgres) InsertIndexRun(ctx context.Context, run *m.IndexRunHistory) (int32, error) {
	sql := q.Get(q.QueryHelper.Insert.IndexRun)
	args := pgx.NamedArgs{
		"run_key":    run.RunKey,
		"start_date": run.StartDate,
		"end_date":   run.EndDate,
		"symbols":    run.Symbols,
		"settings":   run.Settings,
	}

	if err := pg.db.QueryRow(ctx, sql, args).Scan(&run.Id); err != nil {
		return 0, fmt.Errorf("error inserting index run history: %w", err)
	}

	return run.Id, nil
}

func (pg *Postgres) GetIndexRunByKey(ctx context.Context, runKey uuid.UUID) (*m.IndexRunHistory, error) {
	res, err := QuerySingle[m.IndexRunHistory](ctx, pg, q.Get(q.QueryHelper.Select.IndexRunByKey), pgx.NamedArgs{"run_key": runKey})
	if errors.Is(err, ErrNoResults) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get index run %s: %w", runKey, err)
	}
	return res, nil
}

func (pg *Postgres) UpdateIndexRunAsFailure(ctx context.Context, runId int32, errorMessage string) error {
	cleanErrorMessage := strings.TrimSpace(errorMessage)
	if cleanErrorMessage == "" {
		return fmt.Errorf("error message is required if index run is failing, occurred in %d", runId)
	}

	return pg.updateIndexRun(ctx, pgx.NamedArgs{
		"id":            runId,
		"latest_value":  nil,
		"error_message": cleanErrorMessage,
	})
}

// UpdateIndexRunAsSuccess stamps completion, latest is invalid when the run produced no points
func (pg *Postgres) UpdateIndexRunAsSuccess(ctx context.Context, runId int32, latest null.Float) error {
	return pg.updateIndexRun(ctx, pgx.NamedArgs{
		"id":            runId,
		"latest_value":  latest,
		"error_message": nil,
	})
}

func (pg *Postgres) updateIndexRun(ctx context.Context, args pgx.NamedArgs) error {
	sql := q.Get(q.QueryHelper.Update.IndexRun)
	tag, err := pg.db.Exec(ctx, sql, args)
	if err != nil {
		return fmt.Errorf("error updating index run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("index run %v not found", args["id"])
	}
	return nil
}
