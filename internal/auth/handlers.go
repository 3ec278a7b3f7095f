package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/NikoDola/hendo-backend/internal/session"
	"github.com/NikoDola/hendo-backend/internal/utils"
)

type Handler struct {
	svc      *Service
	sessions *session.Manager
}

func NewHandler(svc *Service, sessions *session.Manager) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

type credentialsRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	user, err := h.svc.Login(r.Context(), req.Email, req.Password, utils.ClientIP(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	http.SetCookie(w, h.sessions.IssueIdentityCookie(user.Identity()))
	writeUser(w, http.StatusOK, user)
}

func (h *Handler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	user, err := h.svc.Signup(r.Context(), req.Email, req.FirstName, req.LastName, req.Password, utils.ClientIP(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	http.SetCookie(w, h.sessions.IssueIdentityCookie(user.Identity()))
	writeUser(w, http.StatusOK, user)
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	h.sessions.Revoke(r)
	for _, c := range h.sessions.ClearCookies() {
		http.SetCookie(w, c)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// MeHandler is the session check for the identity-cookie path. 401 with a
// generic body on any verification failure; never a crash.
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.sessions.Verify(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
	})
}

// SessionHandler reports the verified-session identity.
func (h *Handler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.sessions.Verify(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
	})
}

func writeUser(w http.ResponseWriter, status int, u User) {
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"user":    userResponse{ID: u.UserID, Email: u.Email, Name: u.Name, Role: u.Role},
	})
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmailRequired),
		errors.Is(err, ErrPasswordRequired),
		errors.Is(err, ErrNameRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case errors.Is(err, ErrEmailAlreadyRegistered):
		writeError(w, http.StatusConflict, ErrEmailAlreadyRegistered.Error())
	default:
		log.Printf("[auth] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[auth] encode response: %v", err)
	}
}
