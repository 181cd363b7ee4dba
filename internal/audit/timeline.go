package audit

import (
	"time"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// Entities recorded in audit_logs.
const (
	EntityOrder  = "order"
	EntityPallet = "pallet"
	EntityCredit = "credit"
)

// TimelineFilters selects the audit trail of one entity.
type TimelineFilters struct {
	Entity   string
	EntityID string
	Action   string
	From     time.Time
	To       time.Time
	Limit    int
}

// TimelineRow is one audit record.
type TimelineRow struct {
	ID       int64          `json:"id"`
	At       time.Time      `json:"at"`
	Actor    shared.Actor   `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}
