package auth

import (
	"context"
	"database/sql"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the account directory: every lookup and mutation the auth
// core performs goes through this contract. Implementations must enforce
// unique usernames and unique non-null federated ids at the storage
// layer; concurrent auto-provisioning relies on it (see IdentityResolver).
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByFederatedID(ctx context.Context, subject string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, error)

	Insert(ctx context.Context, record *User) (*User, error)
	InsertTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Update(ctx context.Context, record *User, columns ...string) (*User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*User, error)

	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSucccessfulLogin(ctx context.Context, user *User) error
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns the Bun-backed account directory.
func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.selectOne(ctx, "id", id)
}

func (a *users) FindByUsername(ctx context.Context, username string) (*User, error) {
	return a.selectOne(ctx, "username", username)
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.selectOne(ctx, "email", email)
}

func (a *users) FindByFederatedID(ctx context.Context, subject string) (*User, error) {
	return a.selectOne(ctx, "federated_id", subject)
}

// GetByIdentifier resolves an id, email, or username to an account, in
// that order. Login forms accept any of the three.
func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil, repository.NewRecordNotFound()
	}

	columns := make([]string, 0, 3)
	if isUUID(trimmed) {
		columns = append(columns, "id")
	}
	if isEmail(trimmed) {
		columns = append(columns, "email")
	}
	columns = append(columns, "username")

	for _, column := range columns {
		record, err := a.selectOne(ctx, column, trimmed)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}
		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) List(ctx context.Context, limit, offset int) ([]*User, error) {
	if limit <= 0 {
		limit = 100
	}

	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Order("username ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}

	return records, nil
}

func (a *users) Insert(ctx context.Context, record *User) (*User, error) {
	return a.InsertTx(ctx, a.db, record)
}

func (a *users) InsertTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

// Update persists the named columns of record; with no columns every
// non-zero field is written. Timestamps are maintained here.
func (a *users) Update(ctx context.Context, record *User, columns ...string) (*User, error) {
	if record == nil || record.ID == uuid.Nil {
		return nil, errors.New("update requires a record with an id", errors.CategoryBadInput)
	}

	now := time.Now()
	record.UpdatedAt = &now

	q := a.db.NewUpdate().Model(record).WherePK()
	if len(columns) > 0 {
		q = q.Column(append(columns, "updated_at")...)
	} else {
		q = q.OmitZero()
	}

	if _, err := q.Exec(ctx); err != nil {
		return nil, err
	}

	return a.GetByID(ctx, record.ID)
}

func (a *users) SetActive(ctx context.Context, id uuid.UUID, active bool) (*User, error) {
	record := &User{ID: id, Active: active}
	return a.Update(ctx, record, "is_active")
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	now := time.Now()
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("login_attempts = login_attempts + 1").
		Set("login_attempt_at = ?", now).
		Where("id = ?", user.ID).
		Exec(ctx)

	return err
}

func (a *users) TrackSucccessfulLogin(ctx context.Context, user *User) error {
	loggedInAt := time.Now()
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("loggedin_at = ?", loggedInAt).
		Set("login_attempt_at = NULL").
		Set("login_attempts = 0").
		Where("id = ?", user.ID).
		Exec(ctx)

	return err
}

func (a *users) selectOne(ctx context.Context, column string, value any) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					column: value,
				})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "user lookup failed")
	}

	return record, nil
}

// IsUniqueViolation detects unique-constraint failures across the
// drivers we deploy on (sqlite and postgres). Driver error types are not
// importable here without coupling to one database, so this matches the
// stable parts of their messages.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
