package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/NikoDola/hendo-backend/internal/identity"
)

// HashCost keeps verification around tens of milliseconds on commodity
// hardware.
const HashCost = 12

// dummyHash is compared against when login hits an unknown email, so a miss
// costs the same as a wrong password and timing cannot enumerate accounts.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches hash. A mismatch is a false
// return, not an error; the only error case is a malformed stored hash.
func CheckPassword(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("malformed password hash: %w", err)
	}
}

// Service is the password authenticator plus the provider-login upsert.
type Service struct {
	users    UserStore
	resolver *identity.Resolver
}

func NewService(users UserStore, resolver *identity.Resolver) *Service {
	return &Service{users: users, resolver: resolver}
}

// Login authenticates a password account. Unknown email and wrong password
// both come back as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password, ip string) (User, error) {
	email = identity.Normalize(email)
	if email == "" {
		return User{}, ErrEmailRequired
	}
	if password == "" {
		return User{}, ErrPasswordRequired
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		_, _ = CheckPassword(password, dummyHash)
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if u.PasswordHash == "" {
		// Provider-linked account with no local password.
		return User{}, ErrInvalidCredentials
	}

	ok, err := CheckPassword(password, u.PasswordHash)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrInvalidCredentials
	}

	if err := s.users.TouchLogin(ctx, u.UserID, ip); err != nil {
		return User{}, err
	}
	return u, nil
}

// Signup creates a password account. An existing provider-linked account with
// no local password is upgraded in place, keeping its id; an existing
// password account fails with ErrEmailAlreadyRegistered. Fields are validated
// before any hashing or store write.
func (s *Service) Signup(ctx context.Context, email, firstName, lastName, password, ip string) (User, error) {
	email = identity.Normalize(email)
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	name := strings.TrimSpace(firstName + " " + lastName)

	switch {
	case email == "":
		return User{}, ErrEmailRequired
	case password == "":
		return User{}, ErrPasswordRequired
	case name == "":
		return User{}, ErrNameRequired
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.PasswordHash != "":
		return User{}, ErrEmailAlreadyRegistered
	case err == nil:
		hash, err := HashPassword(password)
		if err != nil {
			return User{}, err
		}
		if err := s.users.SetPasswordHash(ctx, existing.UserID, hash); err != nil {
			return User{}, err
		}
		if err := s.users.TouchLogin(ctx, existing.UserID, ip); err != nil {
			return User{}, err
		}
		existing.PasswordHash = hash
		return existing, nil
	case !errors.Is(err, ErrUserNotFound):
		return User{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	u := &User{
		UserID:       uuid.NewString(),
		Email:        email,
		Name:         name,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		Role:         s.resolver.Role(email),
		CreatedAt:    now,
		LastLoginAt:  now,
		LastIP:       ip,
		LoginIPs:     pq.StringArray{ip},
	}
	if err := s.users.Create(ctx, u); err != nil {
		return User{}, err
	}
	return *u, nil
}

// ProviderLogin upserts the account behind a verified provider identity.
// Authenticating with an email that does not exist yet creates the record;
// this is deliberate low-friction onboarding, not an error path.
func (s *Service) ProviderLogin(ctx context.Context, claims identity.Claims, ip string) (User, error) {
	if identity.Normalize(claims.Email) == "" {
		return User{}, ErrEmailRequired
	}
	proj := s.resolver.Project(claims)

	id := claims.Subject
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	u := &User{
		UserID:      id,
		Email:       proj.Email,
		Name:        proj.Name,
		Role:        proj.Role,
		CreatedAt:   now,
		LastLoginAt: now,
		LastIP:      ip,
		LoginIPs:    pq.StringArray{ip},
	}
	return s.users.UpsertByEmail(ctx, u)
}
