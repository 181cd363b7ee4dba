package payments_test

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

	"github.com/dos-laredos/dos-laredos/internal/payments"
	"github.com/dos-laredos/dos-laredos/internal/shared"
	"github.com/dos-laredos/dos-laredos/internal/store/memory"
)

func TestHandlerInstallments(t *testing.T) {
	store := memory.New()
	_, credits := seedCreditOrder(t, store, "500", []payments.Line{{Method: payments.MethodCredit, Amount: d("500")}})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithActor(req.Context(), cashier)))
		})
	})
	payments.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), newService(store)).MountRoutes(r)
	path := "/credits/" + strconv.FormatInt(credits[0], 10)

	post := func(body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path+"/installments", strings.NewReader(body)))
		return rr
	}

	rr := post(`{"method":"CASH","amount":"200"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = post(`{"method":"CREDIT","amount":"10"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = post(`{"method":"CARD","amount":"301"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var detail payments.CreditDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&detail))
	require.True(t, detail.Credit.Remaining.Equal(d("300")))
	require.Equal(t, payments.CreditPartial, detail.Credit.Status)
	require.Len(t, detail.Installments, 1)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/credits/999", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
