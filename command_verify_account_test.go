package accounts_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVerifyAccountHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("valid code verifies the account", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		accs := &MockAccounts{}

		verified := &accounts.Account{
			Username: "pepe",
			Email:    "pepe.rone@example.com",
			Verified: true,
		}

		repo.On("Accounts").Return(accs)
		repo.On("RunInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		accs.On("ConsumeVerificationCodeTx", mock.Anything, mock.Anything, "one-time-code").
			Return(verified, nil).Once()

		handler := accounts.NewVerifyAccountHandler(repo).WithLogger(testLogger{})

		var resp *accounts.VerifyAccountResponse
		err := handler.Execute(ctx, accounts.VerifyAccountMessage{
			Code: "one-time-code",
			OnResponse: func(r *accounts.VerifyAccountResponse) {
				resp = r
			},
		})

		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.True(t, resp.Success)
		assert.True(t, resp.Account.Verified)

		repo.AssertExpectations(t)
		accs.AssertExpectations(t)
	})

	t.Run("empty code is rejected without touching the store", func(t *testing.T) {
		repo := &MockRepositoryManager{}

		handler := accounts.NewVerifyAccountHandler(repo).WithLogger(testLogger{})

		err := handler.Execute(ctx, accounts.VerifyAccountMessage{Code: ""})
		require.ErrorIs(t, err, accounts.ErrInvalidOrUnknownToken)
		repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown or already consumed code is rejected", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		accs := &MockAccounts{}

		repo.On("Accounts").Return(accs)
		repo.On("RunInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		accs.On("ConsumeVerificationCodeTx", mock.Anything, mock.Anything, "spent-code").
			Return(nil, repository.NewRecordNotFound()).Once()

		handler := accounts.NewVerifyAccountHandler(repo).WithLogger(testLogger{})

		err := handler.Execute(ctx, accounts.VerifyAccountMessage{Code: "spent-code"})
		require.ErrorIs(t, err, accounts.ErrInvalidOrUnknownToken)
	})
}
