package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/civicflow/notifier/pkg/logger"
	"github.com/civicflow/notifier/pkg/template"
)

func (h *handlers) createTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl template.Template
	if err := decode(r, &tmpl); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}

	err := h.deps.Templates.Create(r.Context(), tmpl)
	switch {
	case err == nil:
		h.respond(w, http.StatusCreated, tmpl)
	case errors.Is(err, template.ErrAlreadyExists):
		h.respondError(w, http.StatusConflict, err)
	case isTemplateValidationError(err):
		h.respondError(w, http.StatusUnprocessableEntity, err)
	default:
		h.log.Error("template creation failed", logger.TemplateID(tmpl.ID), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
	}
}

func (h *handlers) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.deps.Templates.List(r.Context())
	if err != nil {
		h.log.Error("template listing failed", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if templates == nil {
		templates = []template.Template{}
	}
	h.respond(w, http.StatusOK, templates)
}

func (h *handlers) getTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.deps.Templates.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		h.respond(w, http.StatusOK, tmpl)
	case errors.Is(err, template.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err)
	default:
		h.respondError(w, http.StatusInternalServerError, err)
	}
}

// updateTemplate replaces a template's authored source. Notifications already
// queued keep the text rendered at enqueue time.
func (h *handlers) updateTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl template.Template
	if err := decode(r, &tmpl); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}
	tmpl.ID = chi.URLParam(r, "id")

	err := h.deps.Templates.Update(r.Context(), tmpl)
	switch {
	case err == nil:
		h.respond(w, http.StatusOK, tmpl)
	case errors.Is(err, template.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err)
	case isTemplateValidationError(err):
		h.respondError(w, http.StatusUnprocessableEntity, err)
	default:
		h.log.Error("template update failed", logger.TemplateID(tmpl.ID), logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, err)
	}
}

func isTemplateValidationError(err error) bool {
	var undeclared *template.UndeclaredVariableError
	return errors.Is(err, template.ErrInvalidChannel) ||
		errors.Is(err, template.ErrInvalidType) ||
		errors.Is(err, template.ErrBodyRequired) ||
		errors.Is(err, template.ErrHTMLNotSupported) ||
		errors.As(err, &undeclared)
}
