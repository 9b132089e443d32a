// Package notification delivers one-time verification codes to users.
package notification

import (
	"context"

	"github.com/stayloop/booking-api/internal/logging"
)

// Notifier sends a verification code to a destination email address.
// Delivery is best-effort; callers surface failures to the client and the
// user asks for a new code.
type Notifier interface {
	SendVerificationCode(ctx context.Context, toEmail, code string) error
}

// LoggerNotifier writes codes to the log instead of sending them.
// Useful in development when no mail credentials are configured.
type LoggerNotifier struct {
	logger *logging.Logger
}

func NewLoggerNotifier(logger *logging.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

func (n *LoggerNotifier) SendVerificationCode(_ context.Context, toEmail, code string) error {
	n.logger.Info("verification code issued", "to", toEmail, "code", code)
	return nil
}
