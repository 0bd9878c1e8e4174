package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/civicflow/notifier/pkg/inbox"
	"github.com/civicflow/notifier/pkg/logger"
)

func (h *handlers) listInbox(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	opts := inbox.ListOptions{
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
		OnlyUnread: r.URL.Query().Get("unread") == "true",
	}
	if opts.Limit < 1 || opts.Limit > 500 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	msgs, err := h.deps.Inbox.List(r.Context(), userID, opts)
	if err != nil {
		h.log.Error("inbox listing failed", logger.UserID(userID), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if msgs == nil {
		msgs = []inbox.Message{}
	}
	h.respond(w, http.StatusOK, msgs)
}

func (h *handlers) countUnread(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	count, err := h.deps.Inbox.CountUnread(r.Context(), userID)
	if err != nil {
		h.log.Error("unread count failed", logger.UserID(userID), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int{"unread": count})
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

func (h *handlers) markRead(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req markReadRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.IDs) == 0 {
		h.respondError(w, http.StatusBadRequest, errors.New("ids are required"))
		return
	}

	err := h.deps.Inbox.MarkRead(r.Context(), userID, req.IDs...)
	switch {
	case err == nil:
		h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, inbox.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err)
	default:
		h.log.Error("mark read failed", logger.UserID(userID), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
	}
}
