package http //nolint:revive // directory-based package name, imported with alias

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 30 * time.Second

func NewRouter(h *Handler, webhookSecret string, enforceSignature bool) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/api/health", h.HandleHealth)

	r.Route("/api/students", func(r chi.Router) {
		r.Get("/", h.HandleListStudents)
		r.Post("/", h.HandleRegisterStudent)
		r.Get("/validate", h.HandleValidateStudent)
		r.Get("/{studentID}", h.HandleGetStudent)
	})

	r.Route("/api/webhooks/payments", func(r chi.Router) {
		verified := r.With(VerifySignature(webhookSecret, enforceSignature))
		verified.Post("/", h.HandlePaymentWebhook)
		verified.Post("/callback", h.HandlePaymentWebhook)
		r.Get("/status/{transactionID}", h.HandlePaymentStatus)
	})

	return r
}
