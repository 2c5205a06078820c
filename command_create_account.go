package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// CreateAccountMessage is the admin-initiated account creation payload.
// Unlike auto-provisioning, duplicates here are the caller's mistake and
// surface as conflicts.
type CreateAccountMessage struct {
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	FullName          string     `json:"full_name"`
	Password          string     `json:"password"`
	Role              string     `json:"role"`
	FederatedID       string     `json:"federated_id"`
	PersonalID        string     `json:"personal_id"`
	YearsOfExperience int        `json:"years_of_experience"`
	JoinedAt          *time.Time `json:"joined_at"`
}

func (m CreateAccountMessage) Type() string { return "account.create" }

func (m CreateAccountMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Username, validation.Required, validation.Length(1, 50)),
		validation.Field(&m.Email, validation.Length(6, 100), is.Email),
		validation.Field(&m.FullName, validation.Required, validation.Length(1, 100)),
		validation.Field(&m.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&m.Role, validation.In(RoleStandardUser, RoleAdmin)),
	)
}

type CreateAccountHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewCreateAccountHandler(repo RepositoryManager) *CreateAccountHandler {
	return &CreateAccountHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *CreateAccountHandler) WithLogger(l Logger) *CreateAccountHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *CreateAccountHandler) Execute(ctx context.Context, event CreateAccountMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateAccountHandler) execute(ctx context.Context, event CreateAccountMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid account payload")
	}

	users := h.repo.Users()

	if _, err := users.FindByUsername(ctx, event.Username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !repository.IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "username availability check failed")
	}

	if event.Email != "" {
		if _, err := users.FindByEmail(ctx, event.Email); err == nil {
			return nil, ErrDuplicateEmail
		} else if !repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "email availability check failed")
		}
	}

	// Pre-linking a federated subject must not steal an existing account.
	if event.FederatedID != "" {
		if _, err := users.FindByFederatedID(ctx, event.FederatedID); err == nil {
			return nil, ErrDuplicateFederatedID
		} else if !repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "federated id availability check failed")
		}
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Username:          event.Username,
		Email:             event.Email,
		FullName:          event.FullName,
		PasswordHash:      hash,
		Active:            true,
		Role:              event.Role,
		FederatedID:       event.FederatedID,
		PersonalID:        event.PersonalID,
		YearsOfExperience: event.YearsOfExperience,
		JoinedAt:          event.JoinedAt,
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		user, txErr = users.InsertTx(ctx, tx, user)
		return txErr
	})

	if err != nil {
		// The pre-checks race against other writers; a constraint hit
		// here still reads as a conflict to the admin.
		if IsUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account creation transaction failed")
	}

	return user, nil
}
