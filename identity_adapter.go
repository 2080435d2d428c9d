package accounts

// AccountIdentity adapts an Account into the Identity interface for token
// generation.
type AccountIdentity struct {
	account *Account
}

// NewIdentityFromAccount returns an Identity adapter for the provided account.
func NewIdentityFromAccount(account *Account) Identity {
	if account == nil {
		return nil
	}
	return AccountIdentity{account: account}
}

// ID returns the account's ID as a string.
func (u AccountIdentity) ID() string {
	if u.account == nil {
		return ""
	}
	return u.account.ID.String()
}

// Username returns the account's username.
func (u AccountIdentity) Username() string {
	if u.account == nil {
		return ""
	}
	return u.account.Username
}

// Email returns the account's email address.
func (u AccountIdentity) Email() string {
	if u.account == nil {
		return ""
	}
	return u.account.Email
}

// Verified reports whether the account completed email verification.
func (u AccountIdentity) Verified() bool {
	if u.account == nil {
		return false
	}
	return u.account.Verified
}

// Public returns the client safe projection of the adapted account.
func (u AccountIdentity) Public() *PublicAccount {
	if u.account == nil {
		return nil
	}
	return u.account.PublicInfo()
}
