package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/civicflow/notifier/pkg/analytics"
	"github.com/civicflow/notifier/pkg/logger"
)

// listAnalytics returns per-day stats for a template. Defaults to the last
// seven days when no range is given; from and to are YYYY-MM-DD in UTC.
func (h *handlers) listAnalytics(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")

	to := analytics.Day(time.Now())
	from := to.AddDate(0, 0, -6)

	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse(time.DateOnly, raw); err != nil {
			h.respondError(w, http.StatusBadRequest, errors.New("from must be YYYY-MM-DD"))
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse(time.DateOnly, raw); err != nil {
			h.respondError(w, http.StatusBadRequest, errors.New("to must be YYYY-MM-DD"))
			return
		}
	}
	if to.Before(from) {
		h.respondError(w, http.StatusBadRequest, errors.New("to must not precede from"))
		return
	}

	rows, err := h.deps.Analytics.List(r.Context(), templateID, from, to)
	if err != nil {
		h.log.Error("analytics listing failed", logger.TemplateID(templateID), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if rows == nil {
		rows = []analytics.DailyStats{}
	}
	h.respond(w, http.StatusOK, rows)
}

type engagementRequest struct {
	NotificationID string    `json:"notification_id"`
	TemplateID     string    `json:"template_id"`
	Kind           string    `json:"kind"`
	At             time.Time `json:"at,omitempty"`
}

// recordEngagement ingests an open or click tracking event, typically posted
// by a provider webhook. Duplicate deliveries are harmless; counts are
// distinct per notification.
func (h *handlers) recordEngagement(w http.ResponseWriter, r *http.Request) {
	var req engagementRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}

	notifID, err := uuid.Parse(req.NotificationID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, errors.New("invalid notification_id"))
		return
	}
	kind := analytics.EngagementKind(req.Kind)
	if kind != analytics.EngagementOpen && kind != analytics.EngagementClick {
		h.respondError(w, http.StatusBadRequest, errors.New("kind must be open or click"))
		return
	}
	if req.TemplateID == "" {
		h.respondError(w, http.StatusBadRequest, errors.New("template_id is required"))
		return
	}

	e := analytics.Engagement{
		NotificationID: notifID,
		TemplateID:     req.TemplateID,
		Kind:           kind,
		At:             req.At,
	}
	if err := h.deps.Engagements.Record(r.Context(), e); err != nil {
		h.log.Error("engagement recording failed",
			logger.NotificationID(notifID), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}
