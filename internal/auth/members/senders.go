package members

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

// LogSender "delivers" verification codes by logging them. Development only,
// the code ends up in plain text in the logs.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) logger(ctx context.Context) *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slogx.FromContext(ctx)
}

func (s LogSender) SendVerificationEmail(ctx context.Context, address, name, token string) error {
	s.logger(ctx).Info("verification email",
		slog.String("to", address),
		slog.String("name", name),
		slog.String("token", token),
	)
	return nil
}

func (s LogSender) SendVerificationSMS(ctx context.Context, number, name, token string) error {
	s.logger(ctx).Info("verification sms",
		slog.String("to", number),
		slog.String("name", name),
		slog.String("token", token),
	)
	return nil
}
