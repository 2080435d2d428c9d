package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is one row per registered identity. Username and email carry
// store level unique constraints; those constraints, not the sequential
// pre checks in registration, are the authoritative duplicate signal.
//
// Credential lifecycle:
//   - created unverified with VerificationCode set
//   - verification consumes the code and flips Verified, exactly once
//   - a pending reset sets ResetPasswordToken and ResetPasswordExpiresIn
//     together; confirming (or expiry) clears both together
type Account struct {
	bun.BaseModel          `bun:"table:accounts,alias:acc"`
	ID                     uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName              string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName               string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Username               string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email                  string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone                  string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash           string     `bun:"password_hash,notnull" json:"-"`
	Verified               bool       `bun:"is_verified" json:"is_verified,omitempty"`
	VerificationCode       *string    `bun:"verification_code,nullzero" json:"-"`
	ResetPasswordToken     *string    `bun:"reset_password_token,nullzero" json:"-"`
	ResetPasswordExpiresIn *time.Time `bun:"reset_password_expires_in,nullzero" json:"-"`
	CreatedAt              *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt              *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// PublicAccount is the projection safe to hand back to clients: no password
// hash, no verification code, no reset token material.
type PublicAccount struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Verified  bool       `json:"is_verified"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// PublicInfo returns the client safe projection of the account.
func (a *Account) PublicInfo() *PublicAccount {
	if a == nil {
		return nil
	}
	return &PublicAccount{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Username:  a.Username,
		Email:     a.Email,
		Verified:  a.Verified,
		CreatedAt: a.CreatedAt,
	}
}

// HasPendingReset reports whether a reset token is present and unexpired.
func (a *Account) HasPendingReset(now time.Time) bool {
	if a == nil || a.ResetPasswordToken == nil || a.ResetPasswordExpiresIn == nil {
		return false
	}
	return a.ResetPasswordExpiresIn.After(now)
}

// Pending reports whether the account still awaits email verification.
func (a *Account) Pending() bool {
	return a != nil && !a.Verified
}

// Profile is the optional public facing profile attached to an account.
// Avatar holds a URL; upload mechanics live outside this module.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     *uuid.UUID        `bun:"account_id,notnull,unique" json:"account_id,omitempty"`
	Account       *Account          `bun:"rel:has-one,join:account_id=id" json:"account,omitempty"`
	Avatar        string            `bun:"avatar" json:"avatar,omitempty"`
	Social        map[string]string `bun:"social" json:"social,omitempty"`
	CreatedAt     *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
