package orders

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dos-laredos/dos-laredos/internal/platform/httpx"
	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// Handler wires HTTP endpoints for orders.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs orders handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders", h.handleCreate)
	r.Route("/orders/{orderID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Delete("/", h.handleHardDelete)
		r.Post("/allocate", h.handleAutoAllocate)
		r.Post("/allocations", h.handleAddAllocation)
		r.Post("/allocations/{allocationID}/confirm", h.handleConfirm)
		r.Post("/allocations/{allocationID}/release", h.handleRelease)
		r.Post("/problem", h.handleProblem)
		r.Post("/resolve", h.handleResolve)
		r.Post("/close", h.handleClose)
		r.Post("/cancel", h.handleCancel)
	})
}

type noteRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type addAllocationRequest struct {
	LineID   int64 `json:"line_id" validate:"required,gt=0"`
	PalletID int64 `json:"pallet_id" validate:"required,gt=0"`
	Quantity int64 `json:"quantity" validate:"gt=0"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input CreateInput
	if err := httpx.Bind(r, h.validator, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.Actor = actor
	input.IdempotencyKey = r.Header.Get("Idempotency-Key")
	detail, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.fail(w, "create order", err)
		return
	}
	status := http.StatusCreated
	if detail.Replayed {
		status = http.StatusOK
	}
	httpx.JSON(w, status, detail)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "orderID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) handleAutoAllocate(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	result, err := h.service.AutoAllocate(r.Context(), id, actor)
	if err != nil {
		h.fail(w, "auto allocate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleAddAllocation(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	var req addAllocationRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	alloc, err := h.service.AddAllocation(r.Context(), id, req.LineID, req.PalletID, req.Quantity, actor)
	if err != nil {
		h.fail(w, "add allocation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, alloc)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	allocID, err := httpx.IDParam(r, "allocationID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	alloc, err := h.service.ConfirmAllocation(r.Context(), id, allocID, actor)
	if err != nil {
		h.fail(w, "confirm allocation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, alloc)
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	allocID, err := httpx.IDParam(r, "allocationID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req reasonRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.ReleaseAllocation(r.Context(), id, allocID, req.Reason, actor)
	if err != nil {
		h.fail(w, "release allocation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleProblem(w http.ResponseWriter, r *http.Request) {
	h.noted(w, r, "report problem", h.service.ReportProblem)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	h.noted(w, r, "resolve review", h.service.Resolve)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	h.noted(w, r, "close order", h.service.Close)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Cancel(r.Context(), id, req.Reason, actor)
	if err != nil {
		h.fail(w, "cancel order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleHardDelete(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	result, err := h.service.HardDelete(r.Context(), id, confirm, actor)
	if err != nil {
		h.fail(w, "delete order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type notedOp func(ctx context.Context, orderID int64, note string, actor shared.Actor) (Order, error)

func (h *Handler) noted(w http.ResponseWriter, r *http.Request, op string, fn notedOp) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := fn(r.Context(), id, req.Note, actor)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (int64, shared.Actor, bool) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return 0, shared.Actor{}, false
	}
	id, err := httpx.IDParam(r, "orderID")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, shared.Actor{}, false
	}
	return id, actor, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
