package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// SetAccountStatusMessage activates or deactivates an account.
// Deactivation is the soft-delete mechanism: accounts are never hard
// deleted by this core.
type SetAccountStatusMessage struct {
	ActorID  uuid.UUID `json:"actor_id"`
	TargetID uuid.UUID `json:"target_id"`
	Active   bool      `json:"active"`
}

func (m SetAccountStatusMessage) Type() string { return "account.set_status" }

type SetAccountStatusHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewSetAccountStatusHandler(repo RepositoryManager) *SetAccountStatusHandler {
	return &SetAccountStatusHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *SetAccountStatusHandler) WithLogger(l Logger) *SetAccountStatusHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

// Execute flips the active flag. An admin may not deactivate their own
// account; the equality check happens here, before any storage call.
func (h *SetAccountStatusHandler) Execute(ctx context.Context, event SetAccountStatusMessage) (*User, error) {
	if !event.Active && event.ActorID == event.TargetID {
		return nil, ErrSelfDeactivation
	}

	users := h.repo.Users()

	if _, err := users.GetByID(ctx, event.TargetID); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account lookup failed")
	}

	user, err := users.SetActive(ctx, event.TargetID, event.Active)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account status update failed")
	}

	h.logger.Info("account status updated", "user_id", event.TargetID.String(), "active", event.Active)
	return user, nil
}
