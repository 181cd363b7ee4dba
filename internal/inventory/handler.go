package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dos-laredos/dos-laredos/internal/platform/httpx"
	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// Handler wires HTTP endpoints for pallets.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers pallet routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/pallets", h.handleReceive)
	r.Post("/pallets/reconcile", h.handleReconcile)
	r.Route("/pallets/{palletID}", func(r chi.Router) {
		r.Get("/", h.handleDetail)
		r.Delete("/", h.handleHardDelete)
		r.Post("/events", h.handlePost)
		r.Post("/adjustments", h.handleAdjust)
		r.Post("/shrinkage", h.handleShrinkage)
		r.Post("/block", h.handleBlock)
		r.Post("/unblock", h.handleUnblock)
		r.Post("/relocate", h.handleRelocate)
	})
}

type adjustRequest struct {
	Delta  int64  `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,max=500"`
}

type shrinkageRequest struct {
	Quantity int64  `json:"quantity" validate:"gt=0"`
	Reason   string `json:"reason" validate:"max=500"`
}

type blockRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type relocateRequest struct {
	WarehouseID int64  `json:"warehouse_id" validate:"required,gt=0"`
	Location    string `json:"location" validate:"max=64"`
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input ReceiveInput
	if err := httpx.Bind(r, h.validator, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.Actor = actor
	pallet, err := h.service.Receive(r.Context(), input)
	if err != nil {
		h.fail(w, "receive pallet", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pallet)
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "palletID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	detail, err := h.service.Detail(r.Context(), id)
	if err != nil {
		h.fail(w, "pallet detail", err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	var input PostInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.PalletID = id
	input.Actor = actor
	evt, err := h.service.Post(r.Context(), input)
	if err != nil {
		h.fail(w, "post ledger event", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, evt)
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	var req adjustRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	evt, err := h.service.Adjust(r.Context(), id, req.Delta, req.Reason, actor)
	if err != nil {
		h.fail(w, "adjust pallet", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, evt)
}

func (h *Handler) handleShrinkage(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	var req shrinkageRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	evt, err := h.service.RecordShrinkage(r.Context(), id, req.Quantity, req.Reason, actor)
	if err != nil {
		h.fail(w, "record shrinkage", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, evt)
}

func (h *Handler) handleBlock(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	var req blockRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	change, err := h.service.Block(r.Context(), id, req.Reason, actor)
	if err != nil {
		h.fail(w, "block pallet", err)
		return
	}
	httpx.JSON(w, http.StatusOK, change)
}

func (h *Handler) handleUnblock(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	change, err := h.service.Unblock(r.Context(), id, actor)
	if err != nil {
		h.fail(w, "unblock pallet", err)
		return
	}
	httpx.JSON(w, http.StatusOK, change)
}

func (h *Handler) handleRelocate(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	var req relocateRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	pallet, err := h.service.Relocate(r.Context(), id, req.WarehouseID, req.Location, actor)
	if err != nil {
		h.fail(w, "relocate pallet", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pallet)
}

func (h *Handler) handleHardDelete(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.HardDelete(r.Context(), id, actor); err != nil {
		h.fail(w, "delete pallet", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if _, err := httpx.Actor(r); err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.Reconcile(r.Context())
	if err != nil {
		h.fail(w, "reconcile pallets", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (int64, shared.Actor, bool) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return 0, shared.Actor{}, false
	}
	id, err := httpx.IDParam(r, "palletID")
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
