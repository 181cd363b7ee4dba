package inventory_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/shared"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func newRouter(f *fixture) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("X-Test-Anonymous") == "" {
				req = req.WithContext(shared.ContextWithActor(req.Context(), clerk))
			}
			next.ServeHTTP(w, req)
		})
	})
	inventory.NewHandler(discardLogger(), f.service).MountRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerReceiveAndDetail(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f)

	rr := do(t, h, http.MethodPost, "/pallets", `{"product_id":1,"warehouse_id":1,"lot_code":"L-9","location":"B-2","received_at":"2025-04-02T00:00:00Z","unit_cost":"8.50","quantity":40}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var pallet inventory.Pallet
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&pallet))
	require.Equal(t, inventory.StatusActive, pallet.Status)

	rr = do(t, h, http.MethodGet, "/pallets/"+itoa(pallet.ID)+"/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var detail inventory.PalletDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&detail))
	require.EqualValues(t, 40, detail.OnHand)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f)

	rr := do(t, h, http.MethodPost, "/pallets", `{"product_id":1,"warehouse_id":1,"quantity":0}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = do(t, h, http.MethodGet, "/pallets/404/", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/pallets/abc/", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerRequiresActorForWrites(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f)
	pallet := f.receive(t, 10)

	req := httptest.NewRequest(http.MethodPost, "/pallets/"+itoa(pallet.ID)+"/block", strings.NewReader(`{"reason":"water damage"}`))
	req.Header.Set("X-Test-Anonymous", "1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerBlockThenReserveKindRejected(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f)
	pallet := f.receive(t, 10)
	path := "/pallets/" + itoa(pallet.ID)

	rr := do(t, h, http.MethodPost, path+"/block", `{"reason":"water damage"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var change inventory.StatusChange
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&change))
	require.Equal(t, inventory.StatusBlocked, change.To)

	rr = do(t, h, http.MethodPost, path+"/events", `{"kind":"ASSIGNMENT","quantity":2}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, path+"/shrinkage", `{"quantity":3,"reason":"broken"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodDelete, path+"/", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
}
