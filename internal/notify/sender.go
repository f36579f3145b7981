package notify

import (
	"context"
	"log/slog"
)

// CodeSender delivers one-time codes to a user.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, toEmail, firstName, code string) error
	SendPasswordResetCode(ctx context.Context, toEmail, firstName, code string) error
}

// LogSender writes codes to the structured log instead of delivering them.
// Outbound email is not part of this service.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) LogSender {
	if log == nil {
		log = slog.Default()
	}
	return LogSender{log: log}
}

func (s LogSender) SendVerificationCode(ctx context.Context, toEmail, firstName, code string) error {
	s.log.InfoContext(ctx, "verification code issued", "email", toEmail, "name", firstName, "code", code)
	return nil
}

func (s LogSender) SendPasswordResetCode(ctx context.Context, toEmail, firstName, code string) error {
	s.log.InfoContext(ctx, "password reset code issued", "email", toEmail, "name", firstName, "code", code)
	return nil
}
