package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// IdentityResolver maps a verified claim set to a local account,
// provisioning one on the first login of an unseen federated subject.
type IdentityResolver struct {
	store  Users
	logger Logger
}

// NewIdentityResolver will create a new IdentityResolver
func NewIdentityResolver(store Users) *IdentityResolver {
	return &IdentityResolver{
		store:  store,
		logger: defLogger{},
	}
}

func (r *IdentityResolver) WithLogger(l Logger) *IdentityResolver {
	if l != nil {
		r.logger = l
	}
	return r
}

// Resolve finds the account for claims. Lookup order: federated id,
// then username (legacy tokens put the local username in the subject),
// then auto-provisioning. Every failure on this path collapses to
// ErrIdentityUnresolved: a provisioning error must never be confused
// with "user doesn't exist, continue anonymously".
func (r *IdentityResolver) Resolve(ctx context.Context, claims AuthClaims) (*User, error) {
	if claims == nil {
		return nil, ErrIdentityUnresolved
	}

	sub := claims.Subject()
	if sub == "" {
		return nil, ErrIdentityUnresolved
	}

	user, err := r.store.FindByFederatedID(ctx, sub)
	if err == nil {
		return user, nil
	}
	if !repository.IsRecordNotFound(err) {
		r.logger.Error("identity resolver federated lookup failed", "error", err)
		return nil, ErrIdentityUnresolved
	}

	user, err = r.store.FindByUsername(ctx, sub)
	if err == nil {
		return user, nil
	}
	if !repository.IsRecordNotFound(err) {
		r.logger.Error("identity resolver username lookup failed", "error", err)
		return nil, ErrIdentityUnresolved
	}

	return r.provision(ctx, claims)
}

// provision creates the local account for a first-time federated login.
// Two concurrent first logins for the same subject race on the insert;
// the unique constraint on federated_id lets exactly one win, and the
// loser retries the lookup instead of the insert.
func (r *IdentityResolver) provision(ctx context.Context, claims AuthClaims) (*User, error) {
	sub := claims.Subject()

	username, err := r.uniqueUsername(ctx, claims)
	if err != nil {
		r.logger.Error("identity resolver could not derive username", "error", err)
		return nil, ErrIdentityUnresolved
	}

	fullName := claims.Name()
	if fullName == "" {
		fullName = username
	}

	record := &User{
		Username:    username,
		Email:       claims.Email(),
		FullName:    fullName,
		Active:      true,
		Role:        RoleStandardUser,
		FederatedID: sub,
	}

	created, err := r.store.Insert(ctx, record)
	if err == nil {
		r.logger.Info("provisioned account for federated subject", "username", created.Username)
		return created, nil
	}

	if IsUniqueViolation(err) {
		if existing, lerr := r.store.FindByFederatedID(ctx, sub); lerr == nil {
			return existing, nil
		}
		// Collision on the username, not the subject: retry once with a
		// fresh suffix before giving up.
		if retried, rerr := r.retryWithFreshUsername(ctx, record, claims); rerr == nil {
			return retried, nil
		}
	}

	r.logger.Error("identity resolver provisioning failed", "error", err)
	return nil, ErrIdentityUnresolved
}

func (r *IdentityResolver) retryWithFreshUsername(ctx context.Context, record *User, claims AuthClaims) (*User, error) {
	username, err := r.uniqueUsername(ctx, claims)
	if err != nil {
		return nil, err
	}

	record.Username = username
	return r.store.Insert(ctx, record)
}

// uniqueUsername derives a candidate username from the claim set and
// appends an incrementing numeric suffix until no account holds it.
func (r *IdentityResolver) uniqueUsername(ctx context.Context, claims AuthClaims) (string, error) {
	base := deriveUsername(claims)

	candidate := base
	if candidate == "" {
		base = "user"
		candidate = fallbackUsername(claims.Subject())
	}

	for suffix := 1; ; suffix++ {
		_, err := r.store.FindByUsername(ctx, candidate)
		if repository.IsRecordNotFound(err) {
			return candidate, nil
		}
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "username availability check failed")
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
	}
}

// deriveUsername prefers the email local-part, then the lower-cased
// display name with spaces collapsed to underscores.
func deriveUsername(claims AuthClaims) string {
	if email := claims.Email(); strings.Contains(email, "@") {
		return strings.SplitN(email, "@", 2)[0]
	}

	if name := claims.Name(); name != "" {
		return strings.ReplaceAll(strings.ToLower(name), " ", "_")
	}

	return ""
}

func fallbackUsername(subject string) string {
	tail := subject
	if len(tail) > 8 {
		tail = tail[:8]
	}
	return "user_" + tail
}
