package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/civicflow/notifier/pkg/logger"
	"github.com/civicflow/notifier/pkg/preference"
)

// getPreferences returns the user's stored record, or the permissive default
// when the user never customized anything.
func (h *handlers) getPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	p, err := h.deps.Preferences.Get(r.Context(), userID)
	switch {
	case err == nil:
		h.respond(w, http.StatusOK, p)
	case errors.Is(err, preference.ErrNotFound):
		def := preference.Default(userID)
		h.respond(w, http.StatusOK, &def)
	default:
		h.log.Error("preference lookup failed", logger.UserID(userID), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
	}
}

func (h *handlers) putPreferences(w http.ResponseWriter, r *http.Request) {
	var p preference.Preference
	if err := decode(r, &p); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}
	p.UserID = chi.URLParam(r, "userID")

	if err := h.deps.Preferences.Upsert(r.Context(), p); err != nil {
		h.log.Error("preference upsert failed", logger.UserID(p.UserID), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusOK, p)
}
