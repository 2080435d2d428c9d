package accounts

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// AccountStore is the slice of the repository the provider needs to look up
// credentials. Kept small so tests can stub it directly.
type AccountStore interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
}

// AccountProvider verifies credentials against stored accounts. It is the
// IdentityProvider behind the authenticator: lookup by username, compare the
// bcrypt hash, hand back an identity projection.
type AccountProvider struct {
	store  AccountStore
	logger Logger
}

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountStore) *AccountProvider {
	return &AccountProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

// VerifyIdentity finds the account by username and compares the password.
// An unknown username and a wrong password are distinct failures here;
// collapsing them into a single response is a policy decision left to the
// transport layer.
func (p *AccountProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	account, err := p.store.GetByUsername(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if account.PasswordHash == "" {
		p.logger.Error("account has no password hash", "account_id", account.ID)
		return nil, ErrWrongPassword
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if IsMalformedHashError(err) {
			// stored hash is corrupt, an integrity problem rather than a bad
			// credential, but we do not reveal that to the caller
			p.logger.Error("stored password hash is malformed", "account_id", account.ID, "error", err)
		}
		return nil, ErrWrongPassword
	}

	return NewIdentityFromAccount(account), nil
}

// FindIdentityByIdentifier resolves an identity without checking credentials.
// The identifier can be an account ID, a username, or an email address.
func (p *AccountProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	if _, err := uuid.Parse(identifier); err == nil {
		account, err := p.store.GetByID(ctx, identifier)
		if err != nil {
			if errors.IsNotFound(err) {
				return nil, ErrAccountNotFound
			}
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account")
		}
		return NewIdentityFromAccount(account), nil
	}

	account, err := p.store.GetByUsername(ctx, identifier)
	if err == nil {
		return NewIdentityFromAccount(account), nil
	}

	if !errors.IsNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account")
	}

	account, err = p.store.GetByEmail(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account")
	}

	return NewIdentityFromAccount(account), nil
}
