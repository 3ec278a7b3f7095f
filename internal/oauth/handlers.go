package oauth

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NikoDola/hendo-backend/internal/auth"
	"github.com/NikoDola/hendo-backend/internal/identity"
	"github.com/NikoDola/hendo-backend/internal/session"
	"github.com/NikoDola/hendo-backend/internal/utils"
)

// stateCookie pins the anti-forgery state to the browser that started the
// flow. Ten minutes is plenty for one round trip to the provider.
const (
	stateCookie       = "oauth_state"
	stateCookieMaxAge = 600
)

type Handler struct {
	client   *Client
	svc      *auth.Service
	sessions *session.Manager
	secure   bool
}

func NewHandler(client *Client, svc *auth.Service, sessions *session.Manager, secure bool) *Handler {
	return &Handler{client: client, svc: svc, sessions: sessions, secure: secure}
}

func (h *Handler) SetupRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/authorize", h.AuthorizeHandler)
	r.Post("/token", h.TokenHandler)
	return r
}

// AuthorizeHandler issues a fresh state value and redirects the user agent
// to the provider's authorization endpoint.
func (h *Handler) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	state, err := newState()
	if err != nil {
		log.Printf("[oauth] generate state: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	redirectURI := r.URL.Query().Get("redirect_uri")
	http.Redirect(w, r, h.client.AuthCodeURL(redirectURI, state), http.StatusFound)
}

type tokenRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
	State       string `json:"state"`
}

// TokenHandler completes the flow: validates state, exchanges the code,
// resolves the provider identity, upserts the account and — strictly last,
// after everything has succeeded — establishes the verified session.
func (h *Handler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}
	if !h.validState(r, req.State) {
		writeError(w, http.StatusBadRequest, "invalid state")
		return
	}
	// State is single-use.
	http.SetCookie(w, &http.Cookie{
		Name: stateCookie, Value: "", Path: "/", MaxAge: -1,
		HttpOnly: true, Secure: h.secure, SameSite: http.SameSiteLaxMode,
	})

	ctx := r.Context()
	tokens, err := h.client.Exchange(ctx, req.Code, req.RedirectURI)
	if err != nil {
		log.Printf("[oauth] exchange: %v", err)
		writeError(w, http.StatusInternalServerError, "token exchange failed")
		return
	}

	info, err := h.client.FetchUserInfo(ctx, tokens.AccessToken)
	if err != nil {
		log.Printf("[oauth] userinfo: %v", err)
		writeError(w, http.StatusInternalServerError, "token exchange failed")
		return
	}

	user, err := h.svc.ProviderLogin(ctx, identity.Claims{
		Subject: info.Subject,
		Email:   info.Email,
		Name:    info.Name,
	}, utils.ClientIP(r))
	if err != nil {
		log.Printf("[oauth] provider login: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// A disconnected client must not end up with a live session.
	if ctx.Err() != nil {
		return
	}
	cookie, err := h.sessions.Establish(ctx, user.Identity())
	if err != nil {
		log.Printf("[oauth] establish session: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, cookie)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tokens); err != nil {
		log.Printf("[oauth] encode response: %v", err)
	}
}

func (h *Handler) validState(r *http.Request, got string) bool {
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || got == "" {
		return false
	}
	return hmac.Equal([]byte(c.Value), []byte(got))
}

func newState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		log.Printf("[oauth] encode response: %v", err)
	}
}
