package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// UserTracker is the slice of the directory the provider needs
type UserTracker interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSucccessfulLogin(ctx context.Context, user *User) error
}

// UserProvider verifies local credentials against the account directory
type UserProvider struct {
	store  UserTracker
	logger Logger
}

// MaxLoginAttempts is the maximum number of attempts a user gets
// in a cool-down period
var MaxLoginAttempts = 5

// CoolDownPeriod is the window in which failed attempts accumulate
var CoolDownPeriod = 24 * time.Hour

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity will find the user, compare the password, and return
// the identity. A federation-only account (no password hash) can never
// log in locally; it gets the same mismatch error as a wrong password.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, err
	}

	attempts := user.LoginAttempts
	if user.LoginAttemptAt != nil && time.Since(*user.LoginAttemptAt) > CoolDownPeriod {
		attempts = 0
	}

	if attempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if user.PasswordHash == "" {
		return nil, ErrMismatchedHashAndPassword
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := u.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}
		return nil, ErrMismatchedHashAndPassword
	}

	if err := u.store.TrackSucccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	return NewIdentityFromUser(user), nil
}

func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

func ensureAuthenticatableUser(user *User) error {
	if user == nil {
		return ErrIdentityNotFound
	}

	if !user.Active {
		return ErrAccountInactive
	}

	return nil
}
