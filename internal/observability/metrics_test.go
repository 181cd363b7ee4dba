package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func routed(method, pattern string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, pattern)
	req := httptest.NewRequest(method, "/x", nil)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestMetricsMiddlewareRecordsCall(t *testing.T) {
	metrics := NewMetrics()
	var inFlight string
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlight = scrape(t, metrics)
		w.WriteHeader(http.StatusConflict)
	}))

	req := routed(http.MethodPost, "/orders/{orderID}/allocate")
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: 9, Role: "seller"}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, inFlight, "laredos_api_requests_in_flight 1")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, routed(http.MethodGet, "/pallets/{palletID}"))

	body := scrape(t, metrics)
	require.Contains(t, body, `laredos_api_requests_total{actor="attributed",class="4xx",method="POST",route="/orders/{orderID}/allocate"} 1`)
	require.Contains(t, body, `laredos_api_requests_total{actor="anonymous",class="4xx",method="GET",route="/pallets/{palletID}"} 1`)
	require.Contains(t, body, `laredos_api_request_duration_seconds_bucket{method="POST",route="/orders/{orderID}/allocate",le="30"} 1`)
	require.Contains(t, body, "laredos_api_requests_in_flight 0")
	require.Contains(t, body, "go_goroutines")
}

func TestStatusClass(t *testing.T) {
	require.Equal(t, "2xx", statusClass(http.StatusAccepted))
	require.Equal(t, "5xx", statusClass(http.StatusServiceUnavailable))
	require.Equal(t, "unknown", statusClass(0))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	require.NotNil(t, m.Middleware(next))
}

func TestFulfillmentCounters(t *testing.T) {
	metrics := NewMetrics()
	f := NewFulfillment(metrics.Registerer())

	f.ObserveLedgerEvent("OUTBOUND")
	f.ObservePalletStatus("ACTIVE", "RESERVED")
	f.ObserveAllocation("auto", "partial", 2, 7)
	f.ObserveOrderTransition("CREATED", "IN_REVIEW")
	f.ObserveInstallment("PAID")

	body := scrape(t, metrics)
	for _, want := range []string{
		`laredos_ledger_events_total{kind="OUTBOUND"} 1`,
		`laredos_pallet_status_changes_total{from="ACTIVE",to="RESERVED"} 1`,
		`laredos_allocation_runs_total{mode="auto",outcome="partial"} 1`,
		`laredos_allocations_created_total{mode="auto"} 2`,
		`laredos_allocation_shortfall_units_total 7`,
		`laredos_order_transitions_total{from="CREATED",to="IN_REVIEW"} 1`,
		`laredos_credit_installments_total{status="PAID"} 1`,
	} {
		require.True(t, strings.Contains(body, want), "missing %s", want)
	}
}

func TestNilFulfillmentIsNoop(t *testing.T) {
	var f *Fulfillment
	f.ObserveLedgerEvent("RECEIPT")
	f.ObserveAllocation("manual", "complete", 1, 0)
}
