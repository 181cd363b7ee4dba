package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

const uniqueViolation = "23505"

func (t *Tx) FindIdempotencyKey(ctx context.Context, key, module string) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT resource_id FROM idempotency_keys WHERE key=$1 AND module=$2`, key, module).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (t *Tx) InsertIdempotencyKey(ctx context.Context, key, module string, resourceID int64) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO idempotency_keys (key, module, resource_id) VALUES ($1, $2, $3)`, key, module, resourceID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", shared.ErrIdempotencyConflict, key)
	}
	return err
}

func (t *Tx) DeleteIdempotencyKeys(ctx context.Context, module string, resourceID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM idempotency_keys WHERE module=$1 AND resource_id=$2`, module, resourceID)
	return err
}
