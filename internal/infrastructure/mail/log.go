package mail

import (
	"context"

	"storefront/internal/application/receipt"
	"storefront/internal/observability"
)

// LogMailer writes the message to the log instead of sending it. Used in local
// runs where no SendGrid key is configured.
type LogMailer struct {
	log observability.Logger
}

func NewLogMailer(logger observability.Logger) *LogMailer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogMailer{log: logger.With(observability.F("component", "log_mailer"))}
}

func (m *LogMailer) Send(ctx context.Context, msg receipt.Message) error {
	_ = ctx
	attachment := ""
	if msg.Attachment != nil {
		attachment = msg.Attachment.Filename
	}
	m.log.Info("mail_logged",
		observability.F("to", msg.To),
		observability.F("subject", msg.Subject),
		observability.F("attachment", attachment),
	)
	return nil
}
