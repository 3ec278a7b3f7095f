package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/NikoDola/hendo-backend/internal/identity"
)

const (
	// IdentityCookie carries the account email for the password-auth path.
	// Trusted only as far as the cookie transport's integrity.
	IdentityCookie = "user_email"
	// TokenCookie carries the signed session token for the OAuth path.
	TokenCookie = "session_token"

	Lifetime = 7 * 24 * time.Hour
)

// ErrUnauthenticated covers every verification failure: absent cookie, bad
// signature, expired or revoked session, unknown user. Callers treat it
// uniformly as "not logged in".
var ErrUnauthenticated = errors.New("unauthenticated")

// Record is a revocable server-side session entry. The token itself is
// stateless; the record only exists so verification can check revocation.
type Record struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	Revoked   bool
}

type Store interface {
	CreateSession(ctx context.Context, rec Record) error
	FindSession(ctx context.Context, id string) (Record, error)
	RevokeSession(ctx context.Context, id string) error
}

// UserLookup resolves an identity-cookie email to a stored account.
type UserLookup interface {
	LookupByEmail(ctx context.Context, email string) (identity.User, error)
}

type tokenClaims struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager issues and verifies both session kinds and hands back a normalized
// identity.User either way, so downstream code never branches on kind.
type Manager struct {
	secret   []byte
	store    Store
	users    UserLookup
	resolver *identity.Resolver
	secure   bool
}

func NewManager(secret []byte, store Store, users UserLookup, resolver *identity.Resolver, secure bool) *Manager {
	return &Manager{
		secret:   secret,
		store:    store,
		users:    users,
		resolver: resolver,
		secure:   secure,
	}
}

// IssueIdentityCookie mints the lightweight cookie for password logins. The
// value is the account email, never anything derived from the password.
func (m *Manager) IssueIdentityCookie(u identity.User) *http.Cookie {
	return m.cookie(IdentityCookie, u.Email, int(Lifetime.Seconds()))
}

// Establish creates a revocable session record and mints the signed token
// cookie bound to it. This is the final step of any authentication flow; it
// must only run after every verification has succeeded.
func (m *Manager) Establish(ctx context.Context, u identity.User) (*http.Cookie, error) {
	now := time.Now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: now.Add(Lifetime),
	}
	if err := m.store.CreateSession(ctx, rec); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	claims := tokenClaims{
		Email:     u.Email,
		Name:      u.Name,
		SessionID: rec.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(rec.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return m.cookie(TokenCookie, signed, int(Lifetime.Seconds())), nil
}

// Verify dispatches on whichever session cookie is present. The signed token
// wins when both exist; the identity cookie is the fallback. The role on the
// returned user is always recomputed through the resolver so allow-list
// changes apply on the next request.
func (m *Manager) Verify(r *http.Request) (identity.User, error) {
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return m.verifyToken(r.Context(), c.Value)
	}
	if c, err := r.Cookie(IdentityCookie); err == nil && c.Value != "" {
		u, err := m.users.LookupByEmail(r.Context(), identity.Normalize(c.Value))
		if err != nil {
			return identity.User{}, ErrUnauthenticated
		}
		u.Role = m.resolver.Role(u.Email)
		return u, nil
	}
	return identity.User{}, ErrUnauthenticated
}

func (m *Manager) verifyToken(ctx context.Context, raw string) (identity.User, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return identity.User{}, ErrUnauthenticated
	}

	// Revocation check on every verification.
	rec, err := m.store.FindSession(ctx, claims.SessionID)
	if err != nil || rec.Revoked || rec.UserID != claims.Subject ||
		time.Now().After(rec.ExpiresAt) {
		return identity.User{}, ErrUnauthenticated
	}

	return m.resolver.Project(identity.Claims{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}), nil
}

// Revoke invalidates the session record behind the request's token cookie,
// if any. Best effort; logout proceeds either way.
func (m *Manager) Revoke(r *http.Request) {
	c, err := r.Cookie(TokenCookie)
	if err != nil || c.Value == "" {
		return
	}
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(c.Value, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.SessionID == "" {
		return
	}
	_ = m.store.RevokeSession(r.Context(), claims.SessionID)
}

// ClearCookies returns expired replacements for both session cookies.
func (m *Manager) ClearCookies() []*http.Cookie {
	return []*http.Cookie{
		m.cookie(IdentityCookie, "", -1),
		m.cookie(TokenCookie, "", -1),
	}
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
