package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"notehub/internal/auth"
	"notehub/internal/middleware"
	"notehub/internal/storage"
)

type Handler struct {
	Auth  *AuthHandler
	Notes *NoteHandler
}

func New(store storage.Store, tokens *auth.TokenService, log *slog.Logger) *Handler {
	validate := validator.New()
	return &Handler{
		Auth:  &AuthHandler{store: store, tokens: tokens, log: log, validate: validate},
		Notes: &NoteHandler{store: store, log: log, validate: validate},
	}
}

// Routes builds the full route table. Everything below the Authenticate
// group sees a resolved identity in the request context.
func (h *Handler) Routes(authn *middleware.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Post("/register", h.Auth.Register)
	r.Post("/login", h.Auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(authn.Authenticate)

		r.Get("/users/me", h.Auth.Me)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))
			r.Get("/users", h.Auth.ListUsers)
		})

		r.Post("/notes", h.Notes.Create)
		r.Get("/notes", h.Notes.List)
		r.Get("/notes/{id}", h.Notes.Get)
		r.Put("/notes/{id}", h.Notes.Update)
		r.Delete("/notes/{id}", h.Notes.Delete)
	})

	return r
}
