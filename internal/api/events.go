package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/civicflow/notifier/pkg/engine"
	"github.com/civicflow/notifier/pkg/event"
	"github.com/civicflow/notifier/pkg/logger"
)

// ingestEvent accepts a domain event and hands it to the engine. A 202 means
// the event was queued for rule evaluation, not that anything was sent.
func (h *handlers) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var ev event.Event
	if err := decode(r, &ev); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	err := h.deps.Engine.FireEvent(r.Context(), ev)
	switch {
	case err == nil:
		h.respond(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	case errors.Is(err, engine.ErrBackpressure):
		h.respondError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, engine.ErrNotStarted):
		h.respondError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, event.ErrUnknownEventType), errors.Is(err, event.ErrMissingEntityID):
		h.respondError(w, http.StatusUnprocessableEntity, err)
	default:
		h.log.Error("event ingestion failed", logger.EventType(string(ev.Type)), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
	}
}
