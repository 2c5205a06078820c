package auth

import (
	"context"
	"reflect"
	"time"
)

// Auther authenticates local credentials and mints bearer tokens.
type Auther struct {
	provider IdentityProvider
	cfg      Config
	tokens   TokenService
	logger   Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator backed by the primary
// signing secret from opts.
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	return &Auther{
		provider: provider,
		cfg:      opts,
		tokens:   NewTokenServiceFromConfig(opts, defLogger{}),
		logger:   defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		s.tokens = NewTokenServiceFromConfig(s.cfg, logger)
	}
	return s
}

// WithTokenService overrides the token service, e.g. for tests.
func (s *Auther) WithTokenService(tokens TokenService) *Auther {
	if tokens != nil {
		s.tokens = tokens
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the identifier/password pair and returns a signed token
// for the identity.
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return "", ErrIdentityNotFound
	}

	return s.tokens.IssueFor(identity)
}

// Impersonate mints a short-lived token for the given identifier without
// a password check. Callers must gate this behind RequireAdmin.
func (s *Auther) Impersonate(ctx context.Context, identifier string) (string, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, identifier)
	if err != nil {
		s.logger.Error("Impersonate find identity error", "error", err)
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Impersonate identity is nil")
		return "", ErrIdentityNotFound
	}

	return s.tokens.IssueFor(identity, 15*time.Minute)
}
