package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/civicflow/notifier/pkg/logger"
	"github.com/civicflow/notifier/pkg/rule"
)

func (h *handlers) createRule(w http.ResponseWriter, r *http.Request) {
	var rl rule.Rule
	if err := decode(r, &rl); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}

	err := h.deps.Rules.Create(r.Context(), rl)
	switch {
	case err == nil:
		h.respond(w, http.StatusCreated, rl)
	case errors.Is(err, rule.ErrAlreadyExists):
		h.respondError(w, http.StatusConflict, err)
	case isRuleValidationError(err):
		h.respondError(w, http.StatusUnprocessableEntity, err)
	default:
		h.log.Error("rule creation failed", logger.RuleID(rl.ID), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
	}
}

func (h *handlers) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.deps.Rules.List(r.Context())
	if err != nil {
		h.log.Error("rule listing failed", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if rules == nil {
		rules = []rule.Rule{}
	}
	h.respond(w, http.StatusOK, rules)
}

func (h *handlers) getRule(w http.ResponseWriter, r *http.Request) {
	rl, err := h.deps.Rules.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		h.respond(w, http.StatusOK, rl)
	case errors.Is(err, rule.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err)
	default:
		h.respondError(w, http.StatusInternalServerError, err)
	}
}

func (h *handlers) updateRule(w http.ResponseWriter, r *http.Request) {
	var rl rule.Rule
	if err := decode(r, &rl); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}
	rl.ID = chi.URLParam(r, "id")

	err := h.deps.Rules.Update(r.Context(), rl)
	switch {
	case err == nil:
		h.respond(w, http.StatusOK, rl)
	case errors.Is(err, rule.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err)
	case isRuleValidationError(err):
		h.respondError(w, http.StatusUnprocessableEntity, err)
	default:
		h.log.Error("rule update failed", logger.RuleID(rl.ID), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
	}
}

// deactivateRule turns the rule off and cancels its pending notifications in
// one operation. Notifications already claimed by a worker run to completion.
func (h *handlers) deactivateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.deps.Engine.DeactivateRule(r.Context(), id)
	switch {
	case err == nil:
		h.respond(w, http.StatusOK, map[string]string{"status": "deactivated"})
	case errors.Is(err, rule.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err)
	default:
		h.log.Error("rule deactivation failed", logger.RuleID(id), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
	}
}

func isRuleValidationError(err error) bool {
	return errors.Is(err, rule.ErrNameRequired) ||
		errors.Is(err, rule.ErrInvalidTrigger) ||
		errors.Is(err, rule.ErrTemplateRequired) ||
		errors.Is(err, rule.ErrInvalidPolicy) ||
		errors.Is(err, rule.ErrEmptyCustomList) ||
		errors.Is(err, rule.ErrNegativeDelay) ||
		errors.Is(err, rule.ErrNegativeFrequency) ||
		errors.Is(err, rule.ErrConditionFieldRequired) ||
		errors.Is(err, rule.ErrInvalidOperator) ||
		errors.Is(err, rule.ErrConditionValuesRequired)
}
