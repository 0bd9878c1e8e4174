package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/civicflow/notifier/pkg/dispatch"
	"github.com/civicflow/notifier/pkg/engine"
	"github.com/civicflow/notifier/pkg/logger"
	"github.com/civicflow/notifier/pkg/template"
)

type adHocRequest struct {
	UserID     string            `json:"user_id"`
	TemplateID string            `json:"template_id"`
	Context    map[string]string `json:"context,omitempty"`
}

// sendAdHoc enqueues a one-off notification outside the rule pipeline.
// Preference filtering still applies, so a 409 means the user's settings
// declined the send.
func (h *handlers) sendAdHoc(w http.ResponseWriter, r *http.Request) {
	var req adHocRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.UserID == "" || req.TemplateID == "" {
		h.respondError(w, http.StatusBadRequest, errors.New("user_id and template_id are required"))
		return
	}

	id, err := h.deps.Engine.SendAdHoc(r.Context(), req.UserID, req.TemplateID, req.Context)
	switch {
	case err == nil:
		h.respond(w, http.StatusCreated, map[string]string{"id": id.String()})
	case errors.Is(err, template.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err)
	case errors.Is(err, engine.ErrRecipientSkipped):
		h.respondError(w, http.StatusConflict, err)
	case errors.Is(err, engine.ErrNoAddress):
		h.respondError(w, http.StatusUnprocessableEntity, err)
	default:
		h.log.Error("ad-hoc send failed",
			logger.UserID(req.UserID), logger.TemplateID(req.TemplateID), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
	}
}

func (h *handlers) getNotification(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, errors.New("invalid notification id"))
		return
	}

	n, err := h.deps.Dispatch.GetNotification(r.Context(), id)
	switch {
	case err == nil:
		h.respond(w, http.StatusOK, n)
	case errors.Is(err, dispatch.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err)
	default:
		h.log.Error("notification lookup failed", logger.NotificationID(id), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
	}
}

func (h *handlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	status := dispatch.Status(r.URL.Query().Get("status"))
	switch status {
	case dispatch.StatusPending, dispatch.StatusProcessing, dispatch.StatusSent, dispatch.StatusFailed:
	default:
		h.respondError(w, http.StatusBadRequest, errors.New("status must be one of pending, processing, sent, failed"))
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	notifs, err := h.deps.Dispatch.ListByStatus(r.Context(), status, limit)
	if err != nil {
		h.log.Error("notification listing failed", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if notifs == nil {
		notifs = []dispatch.QueuedNotification{}
	}
	h.respond(w, http.StatusOK, notifs)
}

// listAttempts returns the delivery ledger for one notification, oldest
// attempt first.
func (h *handlers) listAttempts(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, errors.New("invalid notification id"))
		return
	}

	attempts, err := h.deps.Dispatch.ListAttempts(r.Context(), id)
	if err != nil {
		h.log.Error("attempt listing failed", logger.NotificationID(id), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if attempts == nil {
		attempts = []dispatch.DeliveryAttempt{}
	}
	h.respond(w, http.StatusOK, attempts)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
