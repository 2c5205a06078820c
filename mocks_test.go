package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/taskdeck/go-auth"
)

// testConfig implements auth.Config with mutable secrets so tests can
// exercise rotation. Safe for concurrent reads/writes.
type testConfig struct {
	mu            sync.RWMutex
	signingKey    string
	federatedKey  string
	tokenDuration time.Duration
	issuer        string
	audience      []string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:    "test-primary-secret",
		tokenDuration: 30 * time.Minute,
		issuer:        "taskdeck-test",
	}
}

func (c *testConfig) setSigningKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signingKey = key
}

func (c *testConfig) setFederatedKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.federatedKey = key
}

func (c *testConfig) GetSigningKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.signingKey
}

func (c *testConfig) GetFederatedSigningKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.federatedKey
}

func (c *testConfig) GetTokenExpiration() time.Duration { return c.tokenDuration }
func (c *testConfig) GetIssuer() string                 { return c.issuer }
func (c *testConfig) GetAudience() []string             { return c.audience }
func (c *testConfig) GetContextKey() string             { return "user" }
func (c *testConfig) GetAuthScheme() string             { return "Bearer" }

// MockUsers implements auth.Users for testing
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	args := m.Called(ctx, identifier)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) FindByFederatedID(ctx context.Context, subject string) (*auth.User, error) {
	args := m.Called(ctx, subject)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) List(ctx context.Context, limit, offset int) ([]*auth.User, error) {
	args := m.Called(ctx, limit, offset)
	users, _ := args.Get(0).([]*auth.User)
	return users, args.Error(1)
}

func (m *MockUsers) Insert(ctx context.Context, record *auth.User) (*auth.User, error) {
	args := m.Called(ctx, record)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) InsertTx(ctx context.Context, tx bun.IDB, record *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, record)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) Update(ctx context.Context, record *auth.User, columns ...string) (*auth.User, error) {
	args := m.Called(ctx, record, columns)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) SetActive(ctx context.Context, id uuid.UUID, active bool) (*auth.User, error) {
	args := m.Called(ctx, id, active)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSucccessfulLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockRepositoryManager implements auth.RepositoryManager for testing.
// RunInTx executes the callback with a zero-value transaction; the mock
// Users implementations ignore it.
type MockRepositoryManager struct {
	users auth.Users
}

func (m *MockRepositoryManager) Validate() error { return nil }
func (m *MockRepositoryManager) MustValidate()   {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() auth.Users { return m.users }

func newUUID(t interface{ Fatalf(string, ...any) }) uuid.UUID {
	id, err := uuid.NewRandom()
	if err != nil {
		t.Fatalf("uuid: %v", err)
	}
	return id
}

func mustUUID(t interface{ Fatalf(string, ...any) }, s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("uuid %q: %v", s, err)
	}
	return id
}

// signedWithKey issues a token for subject under an arbitrary secret,
// for exercising rejection of tokens the service should not trust.
func signedWithKey(t *testing.T, key, subject string) string {
	t.Helper()

	svc := auth.NewTokenService(func() []byte { return []byte(key) }, time.Minute, "taskdeck-test", nil, nil)
	raw, err := svc.Issue(&auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) { m.Called(format, args) }
func (m *MockLogger) Info(format string, args ...any)  { m.Called(format, args) }
func (m *MockLogger) Warn(format string, args ...any)  { m.Called(format, args) }
func (m *MockLogger) Error(format string, args ...any) { m.Called(format, args) }
