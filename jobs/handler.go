package jobs

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/dos-laredos/dos-laredos/internal/platform/httpx"
)

// QueueInspector reports queue statistics.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Triggerer enqueues tasks on demand.
type Triggerer interface {
	Trigger(ctx context.Context, name, reason string) (*asynq.TaskInfo, error)
}

// Handler exposes queue health and manual task triggers over HTTP.
type Handler struct {
	queues QueueInspector
	client Triggerer
	logger *slog.Logger
}

// NewHandler constructs the jobs HTTP handler. Either collaborator may be nil.
func NewHandler(queues QueueInspector, client Triggerer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{queues: queues, client: client, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/{task}/trigger", h.trigger)
}

type queueHealth struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	out := queueHealth{Queue: QueueDefault}
	if h.queues == nil {
		httpx.JSON(w, http.StatusOK, out)
		return
	}
	info, err := h.queues.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable), "queue unavailable")
		return
	}
	if info != nil {
		out.Pending, out.Active = info.Pending, info.Active
		out.Scheduled, out.Retry = info.Scheduled, info.Retry
	}
	httpx.JSON(w, http.StatusOK, out)
}

type triggerResponse struct {
	ID    string `json:"id"`
	Queue string `json:"queue"`
	Type  string `json:"type"`
}

func (h *Handler) trigger(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.client == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable), "job client not configured")
		return
	}
	name := chi.URLParam(r, "task")
	info, err := h.client.Trigger(r.Context(), name, "requested by "+actor.String())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("job triggered", slog.String("task", name), slog.String("id", info.ID), slog.String("actor", actor.String()))
	httpx.JSON(w, http.StatusAccepted, triggerResponse{ID: info.ID, Queue: info.Queue, Type: name})
}
