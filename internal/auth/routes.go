package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts the credential endpoints. throttle guards the two
// password-guessable routes.
func (h *Handler) SetupRoutes(throttle func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(throttle).Post("/login", h.LoginHandler)
	r.With(throttle).Post("/signup", h.SignupHandler)
	r.Post("/logout", h.LogoutHandler)
	r.Get("/me", h.MeHandler)
	r.Get("/session", h.SessionHandler)
	return r
}
