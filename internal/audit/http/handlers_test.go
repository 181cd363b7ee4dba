package audithttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dos-laredos/dos-laredos/internal/audit"
	"github.com/dos-laredos/dos-laredos/internal/shared"
)

type stubService struct {
	last audit.TimelineFilters
}

func (s *stubService) Timeline(_ context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.last = filters
	return []audit.TimelineRow{{ID: 4, Action: "order.cancel", Entity: filters.Entity, EntityID: filters.EntityID}}, nil
}

func serve(h *Handler, path string, withActor bool) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.MountRoutes(r)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if withActor {
		req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: 1, Role: "supervisor"}))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestTimelineParsesQuery(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(nil, svc)

	rr := serve(h, "/audit/order/12?action=order.cancel&from=2025-05-01&to=2025-06-01T00:00:00Z&limit=5", true)
	require.Equal(t, http.StatusOK, rr.Code)

	var rows []audit.TimelineRow
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&rows))
	require.Len(t, rows, 1)
	require.Equal(t, "order", svc.last.Entity)
	require.Equal(t, "12", svc.last.EntityID)
	require.Equal(t, "order.cancel", svc.last.Action)
	require.Equal(t, 5, svc.last.Limit)
	require.True(t, svc.last.From.Equal(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)))
}

func TestTimelineRejectsBadRequests(t *testing.T) {
	h := NewHandler(nil, &stubService{})

	require.Equal(t, http.StatusUnauthorized, serve(h, "/audit/order/12", false).Code)
	require.Equal(t, http.StatusBadRequest, serve(h, "/audit/order/12?from=yesterday", true).Code)
	require.Equal(t, http.StatusBadRequest, serve(h, "/audit/order/12?limit=many", true).Code)
}

func TestTimelineThroughService(t *testing.T) {
	h := NewHandler(nil, audit.NewService(nil))
	rr := serve(h, "/audit/order/12", true)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
