package identity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the normalized identity a verified session resolves to, regardless
// of which credential path produced the session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Claims are the subject attributes extracted from a verified session or
// provider token.
type Claims struct {
	Subject string
	Email   string
	Name    string
}

// Normalize canonicalizes an email for lookup and comparison. Two addresses
// that normalize equal are the same account. A Caser is stateful and not
// safe for concurrent use, so each call gets its own.
func Normalize(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// Resolver maps emails to roles using an allow-list injected at construction.
// It is the only code allowed to make that mapping, so the role computed at
// account creation and the one recomputed at session verification can never
// disagree.
type Resolver struct {
	admins map[string]struct{}
}

func NewResolver(adminEmails []string) *Resolver {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if n := Normalize(e); n != "" {
			admins[n] = struct{}{}
		}
	}
	return &Resolver{admins: admins}
}

func (r *Resolver) Role(email string) string {
	if _, ok := r.admins[Normalize(email)]; ok {
		return RoleAdmin
	}
	return RoleUser
}

// Project builds a User from verified claims. Name falls back to the local
// part of the email when the provider sent no display name.
func (r *Resolver) Project(c Claims) User {
	email := Normalize(c.Email)
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = email
		if i := strings.IndexByte(email, '@'); i > 0 {
			name = email[:i]
		}
	}
	return User{
		ID:    c.Subject,
		Email: email,
		Name:  name,
		Role:  r.Role(email),
	}
}
