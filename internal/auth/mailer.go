package auth

import "context"

// Mailer delivers account emails. Delivery transport is an external concern;
// the backend only decides when to send and with which token.
type Mailer interface {
	// SendVerification mails an email-verification link containing the token.
	SendVerification(ctx context.Context, email, token string) error

	// SendPasswordReset mails a password-reset link containing the token.
	SendPasswordReset(ctx context.Context, email, token string) error
}

// Logger is the subset of the logging interface the LogMailer needs.
type Logger interface {
	Info(msg string, args ...any)
}

// LogMailer is a Mailer that only logs, for development and tests.
// Tokens are not logged.
type LogMailer struct {
	Log Logger
}

// SendVerification logs the verification mail instead of sending it.
func (m *LogMailer) SendVerification(_ context.Context, email, _ string) error {
	if m.Log != nil {
		m.Log.Info("verification mail (log-only)", "email", email)
	}
	return nil
}

// SendPasswordReset logs the reset mail instead of sending it.
func (m *LogMailer) SendPasswordReset(_ context.Context, email, _ string) error {
	if m.Log != nil {
		m.Log.Info("password reset mail (log-only)", "email", email)
	}
	return nil
}
