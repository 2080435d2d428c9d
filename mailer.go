package accounts

import (
	"context"
	"fmt"
)

// Email is the payload handed to the notification dispatcher: an address, a
// subject, and text/html bodies. Transport (SMTP configuration, retries,
// delivery tracking) lives outside this module.
type Email struct {
	To         string
	SenderName string
	Subject    string
	Text       string
	HTML       string
}

// Mailer sends transactional email. Implementations may block; callers in
// this package always dispatch through a goroutine and never let a delivery
// failure surface as an operation failure.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// MailerFunc adapts a function into a Mailer.
type MailerFunc func(ctx context.Context, msg Email) error

// Send satisfies the Mailer interface.
func (f MailerFunc) Send(ctx context.Context, msg Email) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

type logMailer struct {
	logger Logger
}

// NewLogMailer returns a Mailer that only logs the outbound message. It is
// the default dispatcher for development and tests.
func NewLogMailer(logger Logger) Mailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &logMailer{logger: logger}
}

func (m *logMailer) Send(_ context.Context, msg Email) error {
	m.logger.Info("email notification", "to", msg.To, "subject", msg.Subject)
	return nil
}

// VerificationEmail builds the account verification message. The link embeds
// the one time code; consuming the link is what flips the account to verified.
func VerificationEmail(domain, senderName string, account *Account) Email {
	code := ""
	if account.VerificationCode != nil {
		code = *account.VerificationCode
	}

	html := fmt.Sprintf(`
		<h1>Hello, %s</h1>
		<p>Please click the following link to verify your account</p>
		<a href="%s/users/verify-now/%s">Verify Now</a>
	`, account.Username, domain, code)

	return Email{
		To:         account.Email,
		SenderName: senderName,
		Subject:    "Verify Account",
		Text:       "Please verify your account.",
		HTML:       html,
	}
}

// PasswordResetEmail builds the reset request message around the freshly
// minted one time token.
func PasswordResetEmail(domain, senderName string, account *Account, token string) Email {
	html := fmt.Sprintf(`
		<h1>Hello, %s</h1>
		<p>A password reset was requested for your account.</p>
		<p>This link is valid for a short period only.</p>
		<a href="%s/users/reset-password/%s">Reset Password</a>
	`, account.Username, domain, token)

	return Email{
		To:         account.Email,
		SenderName: senderName,
		Subject:    "Reset Password",
		Text:       "Please use the link to reset your password.",
		HTML:       html,
	}
}

// PasswordChangedEmail builds the post reset confirmation notice.
func PasswordChangedEmail(senderName string, account *Account) Email {
	html := fmt.Sprintf(`
		<h1>Hello, %s</h1>
		<p>Your password was changed. If this was not you, request a new reset immediately.</p>
	`, account.Username)

	return Email{
		To:         account.Email,
		SenderName: senderName,
		Subject:    "Password Changed",
		Text:       "Your password was changed.",
		HTML:       html,
	}
}

// dispatchMail fires the notification without blocking the calling operation.
// Delivery failure is logged and swallowed: the operation that triggered the
// mail still reports success.
func dispatchMail(logger Logger, mailer Mailer, msg Email) {
	if mailer == nil {
		return
	}
	if logger == nil {
		logger = defLogger{}
	}

	go func() {
		if err := mailer.Send(context.Background(), msg); err != nil {
			logger.Warn("email dispatch failed", "to", msg.To, "subject", msg.Subject, "error", err)
		}
	}()
}
