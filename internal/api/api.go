// Package api exposes the notifier over HTTP: event ingestion, ad-hoc sends,
// rule and template management, user preferences, the in-app inbox, delivery
// inspection, and analytics.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/civicflow/notifier/pkg/analytics"
	"github.com/civicflow/notifier/pkg/dispatch"
	"github.com/civicflow/notifier/pkg/engine"
	"github.com/civicflow/notifier/pkg/inbox"
	"github.com/civicflow/notifier/pkg/preference"
	"github.com/civicflow/notifier/pkg/rule"
	"github.com/civicflow/notifier/pkg/template"
)

// Deps are the collaborators the HTTP surface is built over. Engine, Rules,
// Templates, and Dispatch are required; the rest disable their routes when
// nil.
type Deps struct {
	Engine      *engine.Engine
	Rules       rule.Store
	Templates   template.Store
	Preferences preference.Store
	Dispatch    dispatch.QueryRepository
	Inbox       inbox.Storage
	Analytics   analytics.Store
	Engagements analytics.EngagementRecorder

	Logger *slog.Logger
}

// handlers carries the resolved deps behind every route.
type handlers struct {
	deps Deps
	log  *slog.Logger
}

// NewRouter builds the chi router for the notifier API.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	h := &handlers{deps: deps, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", h.ingestEvent)

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/", h.sendAdHoc)
			r.Get("/", h.listNotifications)
			r.Get("/{id}", h.getNotification)
			r.Get("/{id}/attempts", h.listAttempts)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Post("/", h.createRule)
			r.Get("/", h.listRules)
			r.Get("/{id}", h.getRule)
			r.Put("/{id}", h.updateRule)
			r.Post("/{id}/deactivate", h.deactivateRule)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", h.createTemplate)
			r.Get("/", h.listTemplates)
			r.Get("/{id}", h.getTemplate)
			r.Put("/{id}", h.updateTemplate)
		})

		if deps.Preferences != nil {
			r.Route("/users/{userID}/preferences", func(r chi.Router) {
				r.Get("/", h.getPreferences)
				r.Put("/", h.putPreferences)
			})
		}

		if deps.Inbox != nil {
			r.Route("/users/{userID}/inbox", func(r chi.Router) {
				r.Get("/", h.listInbox)
				r.Get("/unread-count", h.countUnread)
				r.Post("/read", h.markRead)
			})
		}

		if deps.Analytics != nil {
			r.Get("/analytics/{templateID}", h.listAnalytics)
		}
		if deps.Engagements != nil {
			r.Post("/engagements", h.recordEngagement)
		}
	})

	return r
}
