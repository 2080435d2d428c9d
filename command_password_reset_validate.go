package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type ValidatePasswordResetMessage struct {
	Token      string `json:"token" example:"9f8e7d6c5b4a39281716051423324150697887a6" doc:"Reset password one time token"`
	OnResponse func(resp *ValidatePasswordResetResponse)
}

func (p ValidatePasswordResetMessage) Type() string { return "account.password_reset_validate" }

type ValidatePasswordResetResponse struct {
	Account *Account
	Found   bool
	Expired bool
	Valid   bool
}

// ValidatePasswordResetHandler is the read only probe behind the reset form:
// it reports token state without consuming it.
type ValidatePasswordResetHandler struct {
	repo   RepositoryManager
	logger Logger
}

// NewValidatePasswordResetHandler creates a handler with sane defaults.
func NewValidatePasswordResetHandler(repo RepositoryManager) *ValidatePasswordResetHandler {
	return &ValidatePasswordResetHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ValidatePasswordResetHandler) WithLogger(logger Logger) *ValidatePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ValidatePasswordResetHandler) Execute(ctx context.Context, event ValidatePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset validation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ValidatePasswordResetHandler) execute(ctx context.Context, event ValidatePasswordResetMessage) error {
	resp := &ValidatePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		return ErrInvalidOrExpiredToken
	}

	account, err := h.repo.Accounts().GetByResetToken(ctx, event.Token)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return ErrInvalidOrExpiredToken
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve reset token")
	}

	resp.Account = account
	resp.Found = true
	resp.Expired = !account.HasPendingReset(time.Now())
	resp.Valid = !resp.Expired

	if resp.Expired {
		if event.OnResponse != nil {
			event.OnResponse(resp)
		}
		return ErrInvalidOrExpiredToken
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
