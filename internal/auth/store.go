package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NikoDola/hendo-backend/internal/identity"
	"github.com/NikoDola/hendo-backend/internal/session"
)

// UserStore is the credential-store boundary. The document/SQL store behind
// it is an external collaborator; the service layer only sees this interface.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u *User) error
	// UpsertByEmail atomically creates-or-refreshes the record keyed by
	// normalized email and returns the canonical row, so two concurrent
	// provider logins for a new address still end with exactly one record.
	UpsertByEmail(ctx context.Context, u *User) (User, error)
	TouchLogin(ctx context.Context, userID, ip string) error
	SetPasswordHash(ctx context.Context, userID, hash string) error
}

// Store is the gorm-backed implementation of UserStore plus the session
// store/lookup interfaces the session manager needs.
type Store struct {
	db *gorm.DB
}

var (
	_ UserStore          = (*Store)(nil)
	_ session.Store      = (*Store)(nil)
	_ session.UserLookup = (*Store)(nil)
)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, "email = ?", identity.Normalize(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (s *Store) Create(ctx context.Context, u *User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Concurrent signup lost the insert race.
		return ErrEmailAlreadyRegistered
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) UpsertByEmail(ctx context.Context, u *User) (User, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":          u.Name,
			"last_login_at": u.LastLoginAt,
			"last_ip":       u.LastIP,
			"login_ips": gorm.Expr(
				`array_append(coalesce("users"."login_ips", '{}'), ?)`, u.LastIP),
		}),
	}).Create(u).Error
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	// Reload so the loser of a concurrent upsert sees the winner's id.
	return s.FindByEmail(ctx, u.Email)
}

func (s *Store) TouchLogin(ctx context.Context, userID, ip string) error {
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": time.Now().UTC(),
			"last_ip":       ip,
			"login_ips":     gorm.Expr(`array_append(coalesce(login_ips, '{}'), ?)`, ip),
		}).Error
	if err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return nil
}

func (s *Store) SetPasswordHash(ctx context.Context, userID, hash string) error {
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("user_id = ?", userID).
		Update("password_hash", hash).Error
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return nil
}

func (s *Store) LookupByEmail(ctx context.Context, email string) (identity.User, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		return identity.User{}, err
	}
	return u.Identity(), nil
}

func (s *Store) CreateSession(ctx context.Context, rec session.Record) error {
	return s.db.WithContext(ctx).Create(&Session{
		SessionID: rec.ID,
		UserID:    rec.UserID,
		ExpiresAt: rec.ExpiresAt,
	}).Error
}

func (s *Store) FindSession(ctx context.Context, id string) (session.Record, error) {
	var sess Session
	if err := s.db.WithContext(ctx).First(&sess, "session_id = ?", id).Error; err != nil {
		return session.Record{}, err
	}
	return session.Record{
		ID:        sess.SessionID,
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt,
		Revoked:   sess.RevokedAt != nil,
	}, nil
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", id).
		Update("revoked_at", &now).Error
}
