package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. Every account must keep at least one usable
// authentication path: a password hash or a federated id, never neither.
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username          string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email             string     `bun:"email" json:"email,omitempty"`
	FederatedID       string     `bun:"federated_id,unique,nullzero" json:"federated_id,omitempty"`
	FullName          string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	PasswordHash      string     `bun:"password_hash" json:"password_hash,omitempty"`
	Active            bool       `bun:"is_active" json:"is_active"`
	Role              UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	PersonalID        string     `bun:"personal_id" json:"personal_id,omitempty"`
	YearsOfExperience int        `bun:"years_of_experience,nullzero" json:"years_of_experience,omitempty"`
	JoinedAt          *time.Time `bun:"joined_at,nullzero" json:"joined_at,omitempty"`
	LoginAttempts     int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt    *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt        *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsAdmin checks the account's global role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanAuthenticate reports whether the account has at least one usable
// authentication path.
func (u *User) CanAuthenticate() bool {
	if u == nil {
		return false
	}
	return u.PasswordHash != "" || u.FederatedID != ""
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleStandardUser
	}

	if record.FullName == "" {
		record.FullName = record.Username
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
