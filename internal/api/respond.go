package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/civicflow/notifier/pkg/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to encode response", logger.Error(err))
	}
}

func (h *handlers) respondError(w http.ResponseWriter, status int, err error) {
	h.respond(w, status, errorResponse{Error: err.Error()})
}

// decode unmarshals the request body into v, rejecting unknown fields so
// typoed payloads fail loudly instead of silently dropping settings.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errInvalidBody, err)
	}
	return nil
}

var errInvalidBody = errors.New("invalid request body")
