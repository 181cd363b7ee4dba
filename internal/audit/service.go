// Package audit reads the trail written by shared.AuditLogger.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Repository loads audit rows matching normalised filters, newest first.
type Repository interface {
	Timeline(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error)
}

// Service serves entity audit trails.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns the audit trail of one order, pallet or credit.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	filters.Entity = strings.ToLower(strings.TrimSpace(filters.Entity))
	filters.EntityID = strings.TrimSpace(filters.EntityID)
	filters.Action = strings.TrimSpace(filters.Action)
	switch filters.Entity {
	case EntityOrder, EntityPallet, EntityCredit:
	default:
		return nil, fmt.Errorf("%w: unknown audit entity %q", shared.ErrValidation, filters.Entity)
	}
	if filters.EntityID == "" {
		return nil, fmt.Errorf("%w: entity id required", shared.ErrValidation)
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.To.Before(filters.From) {
		return nil, fmt.Errorf("%w: range end before start", shared.ErrValidation)
	}
	if filters.Limit <= 0 {
		filters.Limit = defaultLimit
	}
	if filters.Limit > maxLimit {
		filters.Limit = maxLimit
	}
	return s.repo.Timeline(ctx, filters)
}

// PostgresRepository reads audit_logs.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Timeline implements Repository.
func (r *PostgresRepository) Timeline(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, occurred_at, actor_id, actor_role, action, entity, entity_id, meta
FROM audit_logs
WHERE entity = $1 AND entity_id = $2
  AND ($3::TEXT IS NULL OR action = $3)
  AND ($4::TIMESTAMPTZ IS NULL OR occurred_at >= $4)
  AND ($5::TIMESTAMPTZ IS NULL OR occurred_at < $5)
ORDER BY occurred_at DESC, id DESC
LIMIT $6`, filters.Entity, filters.EntityID, optionalText(filters.Action), toPgTime(filters.From), toPgTime(filters.To), filters.Limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query timeline: %w", err)
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.ID, &row.At, &row.Actor.ID, &row.Actor.Role, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, fmt.Errorf("audit: scan timeline: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}
