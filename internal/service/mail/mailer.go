package mail

import (
	"context"

	"github.com/zhouzirui/projecthub/backend/internal/logger"
)

// Mailer delivers password reset codes. Delivery failures are reported to
// the caller but are never fatal to the reset flow.
type Mailer interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// LogMailer logs instead of sending, for environments without a mail
// provider configured.
type LogMailer struct{}

// NewLogMailer returns a Mailer that only logs.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendResetCode(_ context.Context, email, code string) error {
	logger.Infof("[mail] reset code for %s: %s (mail provider not configured)", email, code)
	return nil
}
