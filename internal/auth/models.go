package auth

import (
	"time"

	"github.com/lib/pq"

	"github.com/NikoDola/hendo-backend/internal/identity"
)

type User struct {
	UserID    string `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	// Empty for provider-linked accounts that never set a local password.
	PasswordHash string    `json:"-"`
	Role         string    `gorm:"default:'user'" json:"role"`
	CreatedAt    time.Time `json:"-"`
	LastLoginAt  time.Time `json:"-"`
	// Audit trail only. Never consulted for access decisions.
	LastIP   string         `json:"-"`
	LoginIPs pq.StringArray `gorm:"type:text[]" json:"-"`
}

type Session struct {
	SessionID string     `gorm:"primaryKey" json:"-"`
	UserID    string     `gorm:"not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"-"`
	RevokedAt *time.Time `json:"-"`
}

func (User) TableName() string    { return "app_auth.users" }
func (Session) TableName() string { return "app_auth.sessions" }

// Identity projects the stored record to the normalized shape the rest of
// the service works with.
func (u User) Identity() identity.User {
	return identity.User{
		ID:    u.UserID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}
