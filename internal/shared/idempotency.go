package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIdempotencyConflict indicates the key is already bound to a resource.
var ErrIdempotencyConflict = fmt.Errorf("%w: idempotent request already processed", ErrState)

// ErrInvalidIdempotencyKey indicates the key is not a UUID.
var ErrInvalidIdempotencyKey = fmt.Errorf("%w: idempotency key must be a uuid", ErrValidation)

// ParseIdempotencyKey normalises a client key. Empty keys are allowed and mean
// "not idempotent".
func ParseIdempotencyKey(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", ErrInvalidIdempotencyKey
	}
	return id.String(), nil
}

// IdempotencyStore maintains the idempotency_keys table. Keys themselves are
// written inside the transaction that creates the resource they name.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	return err
}
