// Package server wires the HTTP router and runs the listener.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"yfi-bank/backend/internal/handler"
)

// NewRouter builds the service's route table. healthCheck may be nil; then
// /healthz always reports ok.
func NewRouter(signup *handler.SignupHandler, allowedOrigins []string, healthCheck func(r *http.Request) error) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", handler.SessionHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if healthCheck != nil {
			if err := healthCheck(req); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/signup", func(r chi.Router) {
		r.Post("/session", signup.StartSession)
		r.Get("/session", signup.GetSession)
		r.Post("/fields", signup.SetFields)
		r.Post("/advance", signup.Advance)
		r.Post("/back", signup.Back)
		r.Post("/start-verification", signup.StartVerification)
		r.Post("/check-verification", signup.CheckVerification)
		r.Post("/complete", signup.Complete)
	})

	return r
}
