package payments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/dos-laredos/dos-laredos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for credits.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs payments handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers credit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/credits/{creditID}", h.handleCredit)
	r.Post("/credits/{creditID}/installments", h.handleInstallment)
}

type installmentRequest struct {
	Method Method          `json:"method" validate:"required,oneof=CASH TRANSFER CARD"`
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) handleCredit(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "creditID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	detail, err := h.service.Credit(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) handleInstallment(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "creditID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req installmentRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	detail, err := h.service.PostInstallment(r.Context(), id, req.Method, req.Amount, actor)
	if err != nil {
		h.logger.Warn("post installment failed", slog.Int64("credit_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, detail)
}
