// Package audithttp exposes entity audit trails over HTTP.
package audithttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dos-laredos/dos-laredos/internal/audit"
	"github.com/dos-laredos/dos-laredos/internal/platform/httpx"
	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler serves audit trail requests.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service TimelineService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if _, err := httpx.Actor(r); err != nil {
		httpx.RespondError(w, err)
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Warn("audit timeline failed", slog.String("entity", filters.Entity), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if rows == nil {
		rows = []audit.TimelineRow{}
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	filters := audit.TimelineFilters{
		Entity:   chi.URLParam(r, "entity"),
		EntityID: chi.URLParam(r, "entityID"),
		Action:   q.Get("action"),
	}
	var err error
	if filters.From, err = parseTime(q.Get("from")); err != nil {
		return filters, err
	}
	if filters.To, err = parseTime(q.Get("to")); err != nil {
		return filters, err
	}
	if raw := q.Get("limit"); raw != "" {
		if filters.Limit, err = strconv.Atoi(raw); err != nil {
			return filters, fmt.Errorf("%w: invalid limit", shared.ErrValidation)
		}
	}
	return filters, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid time %q", shared.ErrValidation, raw)
	}
	return t, nil
}
