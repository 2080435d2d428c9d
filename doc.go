// Package accounts manages the credential lifecycle of user accounts:
// registration, email verification, password authentication with signed
// session tokens, and self-service password reset.
//
// Lifecycle:
//   - Registration stores a bcrypt password hash and mints a one time
//     verification code. Consuming the code through its link flips the
//     account to verified and invalidates the code in the same statement.
//   - Authentication compares credentials through an IdentityProvider and
//     issues an HS256 session token whose claims are self-verifying for a
//     bounded window.
//   - Password reset mints a fresh one time token with a short expiry. A
//     repeated request replaces the previous token; finalizing consumes the
//     token and the stored password hash atomically.
//
// Side effects such as email notifications are dispatched best-effort through
// the Mailer interface and never fail the triggering operation.
package accounts
