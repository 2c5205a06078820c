package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Guard is the sole authorization surface for resource endpoints.
// CurrentUser answers "who is calling"; RequireActive, RequireAdmin, and
// CheckSelfOrAdmin answer "may they". Endpoints must not reimplement any
// of these checks.
type Guard struct {
	verifier TokenValidator
	resolver *IdentityResolver
	logger   Logger
}

// NewGuard wires token verification (federated secret first, primary
// second) and identity resolution against the given directory.
func NewGuard(cfg Config, store Users) *Guard {
	logger := defLogger{}
	return &Guard{
		verifier: NewVerifier(cfg, logger),
		resolver: NewIdentityResolver(store),
		logger:   logger,
	}
}

func (g *Guard) WithLogger(l Logger) *Guard {
	if l != nil {
		g.logger = l
		g.resolver = g.resolver.WithLogger(l)
	}
	return g
}

// WithVerifier overrides the token validator, e.g. to accept tokens from
// an additional issuer during a migration.
func (g *Guard) WithVerifier(v TokenValidator) *Guard {
	if v != nil {
		g.verifier = v
	}
	return g
}

// CurrentUser verifies the raw bearer token and resolves it to an
// account. Verification and resolution failures both surface as
// authentication errors; the caller learns nothing else.
func (g *Guard) CurrentUser(ctx context.Context, rawToken string) (*User, error) {
	claims, err := g.verifier.Validate(rawToken)
	if err != nil {
		g.logger.Debug("guard token verification failed", "error", err)
		var richErr *errors.Error
		if errors.As(err, &richErr) && richErr.Category == errors.CategoryAuth {
			return nil, richErr
		}
		return nil, errors.Wrap(err, errors.CategoryAuth, "could not validate credentials")
	}

	user, err := g.resolver.Resolve(ctx, claims)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// RequireActive fails when the account has been deactivated, regardless
// of role.
func (g *Guard) RequireActive(user *User) (*User, error) {
	if user == nil {
		return nil, ErrIdentityUnresolved
	}
	if !user.Active {
		return nil, ErrAccountInactive
	}
	return user, nil
}

// RequireAdmin fails unless the account carries the admin role.
func (g *Guard) RequireAdmin(user *User) (*User, error) {
	if user == nil {
		return nil, ErrIdentityUnresolved
	}
	if !user.IsAdmin() {
		return nil, ErrAdminRequired
	}
	return user, nil
}

// CheckSelfOrAdmin is the single ownership rule for per-user resources:
// the target user themselves, or any admin.
func (g *Guard) CheckSelfOrAdmin(targetID uuid.UUID, user *User) error {
	if user == nil {
		return ErrIdentityUnresolved
	}
	if targetID == user.ID || user.IsAdmin() {
		return nil
	}

	// Clone detaches from the sentinel; keep it reachable for errors.Is.
	denied := ErrAccessDenied.Clone().WithMetadata(map[string]any{
		"target_id": targetID.String(),
	})
	denied.Source = ErrAccessDenied
	return denied
}

// EnsureNotSelf is the hook behind the "cannot deactivate yourself"
// policy; the status command calls it before flipping the active flag.
func (g *Guard) EnsureNotSelf(targetID uuid.UUID, user *User) error {
	if user != nil && targetID == user.ID {
		return ErrSelfDeactivation
	}
	return nil
}
