package accounts

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	// TextCodeUsernameTaken flags a registration with a duplicate username.
	TextCodeUsernameTaken = "USERNAME_TAKEN"
	// TextCodeEmailTaken flags a registration with a duplicate email.
	TextCodeEmailTaken = "EMAIL_TAKEN"
	// TextCodeAccountNotFound flags a lookup for an unknown account.
	TextCodeAccountNotFound = "ACCOUNT_NOT_FOUND"
	// TextCodeEmailNotFound flags a password reset request for an unknown email.
	TextCodeEmailNotFound = "EMAIL_NOT_FOUND"
	// TextCodeWrongPassword flags a failed credential comparison.
	TextCodeWrongPassword = "WRONG_PASSWORD"
	// TextCodeInvalidVerification flags a verification token that is unknown,
	// already consumed, or never issued. Intentionally a single code.
	TextCodeInvalidVerification = "INVALID_VERIFICATION_TOKEN"
	// TextCodeInvalidResetToken flags a reset token that is unknown or expired.
	TextCodeInvalidResetToken = "INVALID_RESET_TOKEN"
	// TextCodeTokenExpired flags an expired session token.
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeTokenMalformed flags a session token that failed to parse or verify.
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
)

// ErrUsernameTaken is returned when a registration reuses an existing username.
var ErrUsernameTaken = errors.New("username is already taken", errors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(errors.CodeConflict)

// ErrEmailTaken is returned when a registration reuses an existing email.
var ErrEmailTaken = errors.New("email is already registered, try resetting your password", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrAccountNotFound is returned when no account matches the given username.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmailNotFound is returned when a password reset targets an unknown email.
// Revealing non existence mirrors the upstream API; a uniform acknowledgement
// would be the hardened alternative.
var ErrEmailNotFound = errors.New("no account registered with that email", errors.CategoryNotFound).
	WithTextCode(TextCodeEmailNotFound).
	WithCode(errors.CodeNotFound)

// ErrWrongPassword is returned when the password does not match the stored hash.
var ErrWrongPassword = errors.New("incorrect password", errors.CategoryAuth).
	WithTextCode(TextCodeWrongPassword).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidOrUnknownToken collapses every invalid verification token cause
// (absent, consumed, never issued) into one outcome so callers cannot tell
// which it was.
var ErrInvalidOrUnknownToken = errors.New("invalid or unknown verification token", errors.CategoryNotFound).
	WithTextCode(TextCodeInvalidVerification).
	WithCode(errors.CodeNotFound)

// ErrInvalidOrExpiredToken is returned when a reset token is unknown, already
// consumed, or past its expiry.
var ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidResetToken).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for session tokens past their expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for session tokens that fail to parse or verify.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the sentinel for a failed bcrypt comparison.
var ErrMismatchedHashAndPassword = errors.New("mismatched password and hash", errors.CategoryAuth).
	WithTextCode(TextCodeWrongPassword).
	WithCode(errors.CodeUnauthorized)

// ErrMalformedPasswordHash reports stored hash material that bcrypt could not
// parse. It is a data integrity condition, distinct from a wrong password, and
// should be logged as such while authentication still fails closed.
var ErrMalformedPasswordHash = errors.New("stored password hash is malformed", errors.CategoryInternal).
	WithTextCode("MALFORMED_PASSWORD_HASH").
	WithCode(errors.CodeInternal)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// ErrUnableToFindSession is the error when the request carries no session
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from the session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data", errors.CategoryInternal).
	WithCode(errors.CodeInternal)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsConflictError reports whether err carries the Conflict category, which is
// how store level unique violations surface once classified.
func IsConflictError(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryConflict
}

// mapUniqueViolation classifies a store insert failure. The unique constraints
// on username and email are the authoritative duplicate signal: the sequential
// pre checks in registration can race, the constraint cannot.
func mapUniqueViolation(err error) *errors.Error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") &&
		!strings.Contains(msg, "duplicate key value") {
		return nil
	}

	if strings.Contains(msg, "username") {
		return ErrUsernameTaken
	}
	if strings.Contains(msg, "email") {
		return ErrEmailTaken
	}

	return errors.Wrap(err, errors.CategoryConflict, "account violates a uniqueness constraint").
		WithCode(errors.CodeConflict)
}
