package auth

import "errors"

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrNameRequired     = errors.New("name is required")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. The two must stay indistinguishable to the client so login
	// responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrEmailAlreadyRegistered = errors.New("email already registered")

	ErrUserNotFound = errors.New("user not found")
)
