package auth_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/taskdeck/go-auth"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// One connection so every query sees the same private memory database.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = db.NewCreateTable().
		Model((*auth.User)(nil)).
		Exec(context.Background())
	require.NoError(t, err)

	return db
}

func seedAccount(t *testing.T, store auth.Users, record *auth.User) *auth.User {
	t.Helper()

	created, err := store.Insert(context.Background(), record)
	require.NoError(t, err)
	return created
}

func TestUsersRepository_InsertAndLookups(t *testing.T) {
	ctx := context.Background()
	store := auth.NewUsersRepository(setupTestDB(t))

	created := seedAccount(t, store, &auth.User{
		Username:    "jane",
		Email:       "jane@x.com",
		FullName:    "Jane Van Dorn",
		Active:      true,
		Role:        auth.RoleStandardUser,
		FederatedID: "abc-123",
	})
	require.NotEqual(t, created.ID.String(), "00000000-0000-0000-0000-000000000000")

	byID, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane", byID.Username)

	byUsername, err := store.FindByUsername(ctx, "jane")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUsername.ID)

	byEmail, err := store.FindByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byFederatedID, err := store.FindByFederatedID(ctx, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byFederatedID.ID)

	_, err = store.FindByUsername(ctx, "nobody")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsersRepository_InsertDefaults(t *testing.T) {
	store := auth.NewUsersRepository(setupTestDB(t))

	created := seedAccount(t, store, &auth.User{Username: "jane", Active: true})

	assert.Equal(t, auth.RoleStandardUser, created.Role)
	assert.Equal(t, "jane", created.FullName)
}

func TestUsersRepository_GetByIdentifier(t *testing.T) {
	ctx := context.Background()
	store := auth.NewUsersRepository(setupTestDB(t))

	created := seedAccount(t, store, &auth.User{
		Username: "jane",
		Email:    "jane@x.com",
		FullName: "Jane Van Dorn",
		Active:   true,
	})

	for _, identifier := range []string{created.ID.String(), "jane@x.com", "jane"} {
		record, err := store.GetByIdentifier(ctx, identifier)
		require.NoError(t, err, "identifier %q", identifier)
		assert.Equal(t, created.ID, record.ID)
	}

	_, err := store.GetByIdentifier(ctx, "nobody@x.com")
	assert.True(t, repository.IsRecordNotFound(err))

	_, err = store.GetByIdentifier(ctx, "  ")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsersRepository_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	store := auth.NewUsersRepository(setupTestDB(t))

	seedAccount(t, store, &auth.User{
		Username:    "jane",
		FullName:    "Jane",
		Active:      true,
		FederatedID: "abc-123",
	})

	_, err := store.Insert(ctx, &auth.User{Username: "jane", FullName: "Other Jane"})
	require.Error(t, err)
	assert.True(t, auth.IsUniqueViolation(err))

	_, err = store.Insert(ctx, &auth.User{
		Username:    "jane2",
		FullName:    "Jane Two",
		FederatedID: "abc-123",
	})
	require.Error(t, err)
	assert.True(t, auth.IsUniqueViolation(err))

	// Accounts without a federated id don't collide with each other.
	seedAccount(t, store, &auth.User{Username: "local1", FullName: "Local One"})
	seedAccount(t, store, &auth.User{Username: "local2", FullName: "Local Two"})
}

func TestUsersRepository_Update(t *testing.T) {
	ctx := context.Background()
	store := auth.NewUsersRepository(setupTestDB(t))

	created := seedAccount(t, store, &auth.User{
		Username: "jane",
		Email:    "jane@x.com",
		FullName: "Jane",
		Active:   true,
	})

	created.Email = "jane@taskdeck.dev"
	updated, err := store.Update(ctx, created, "email")
	require.NoError(t, err)
	assert.Equal(t, "jane@taskdeck.dev", updated.Email)
	assert.Equal(t, "Jane", updated.FullName)
	assert.NotNil(t, updated.UpdatedAt)

	_, err = store.Update(ctx, &auth.User{})
	require.Error(t, err)
}

func TestUsersRepository_SetActive(t *testing.T) {
	ctx := context.Background()
	store := auth.NewUsersRepository(setupTestDB(t))

	created := seedAccount(t, store, &auth.User{
		Username: "jane",
		FullName: "Jane",
		Active:   true,
	})

	deactivated, err := store.SetActive(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	reactivated, err := store.SetActive(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, reactivated.Active)
}

func TestUsersRepository_LoginTracking(t *testing.T) {
	ctx := context.Background()
	store := auth.NewUsersRepository(setupTestDB(t))

	created := seedAccount(t, store, &auth.User{
		Username: "jane",
		FullName: "Jane",
		Active:   true,
	})

	require.NoError(t, store.TrackAttemptedLogin(ctx, created))
	require.NoError(t, store.TrackAttemptedLogin(ctx, created))

	record, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, record.LoginAttempts)
	assert.NotNil(t, record.LoginAttemptAt)

	require.NoError(t, store.TrackSucccessfulLogin(ctx, created))

	record, err = store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Zero(t, record.LoginAttempts)
	assert.Nil(t, record.LoginAttemptAt)
	assert.NotNil(t, record.LoggedInAt)
}

func TestUsersRepository_List(t *testing.T) {
	ctx := context.Background()
	store := auth.NewUsersRepository(setupTestDB(t))

	for _, username := range []string{"carol", "alice", "bob"} {
		seedAccount(t, store, &auth.User{Username: username, FullName: username, Active: true})
	}

	records, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "alice", records[0].Username)
	assert.Equal(t, "bob", records[1].Username)
	assert.Equal(t, "carol", records[2].Username)

	page, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "carol", page[0].Username)
}

// staleReadStore simulates the losing side of a provisioning race: its
// first federated lookup reports not-found even though another writer
// has already inserted the account, so the subsequent insert hits the
// real unique constraint.
type staleReadStore struct {
	auth.Users
	staleReads int
}

func (s *staleReadStore) FindByFederatedID(ctx context.Context, subject string) (*auth.User, error) {
	if s.staleReads > 0 {
		s.staleReads--
		return nil, repository.NewRecordNotFound()
	}
	return s.Users.FindByFederatedID(ctx, subject)
}

func TestIdentityResolver_ProvisioningRaceAgainstRealConstraint(t *testing.T) {
	ctx := context.Background()
	store := auth.NewUsersRepository(setupTestDB(t))

	winner := seedAccount(t, store, &auth.User{
		Username:    "jane",
		FullName:    "Jane",
		Active:      true,
		FederatedID: "abc-123",
	})

	resolver := auth.NewIdentityResolver(&staleReadStore{Users: store, staleReads: 1})
	resolved, err := resolver.Resolve(ctx, claimsWith("abc-123", "jane@x.com", ""))

	require.NoError(t, err)
	assert.Equal(t, winner.ID, resolved.ID)

	// Exactly one account exists for the subject.
	records, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
