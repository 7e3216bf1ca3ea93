// Package mail dispatches transactional email through SendGrid.
package mail

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"storefront/internal/application/receipt"
)

type SendGridMailer struct {
	apiKey   string
	from     string
	fromName string
}

func NewSendGridMailer(apiKey, from, fromName string) *SendGridMailer {
	return &SendGridMailer{apiKey: apiKey, from: from, fromName: fromName}
}

func (m *SendGridMailer) Send(ctx context.Context, msg receipt.Message) error {
	_ = ctx
	if m.apiKey == "" {
		return fmt.Errorf("sendgrid: api key is empty")
	}
	if m.from == "" {
		return fmt.Errorf("sendgrid: from address is empty")
	}
	if msg.To == "" {
		return fmt.Errorf("sendgrid: to address is empty")
	}

	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(m.fromName, m.from),
		msg.Subject,
		sgmail.NewEmail("", msg.To),
		msg.Body,
		fmt.Sprintf("<pre>%s</pre>", msg.Body),
	)

	if att := msg.Attachment; att != nil {
		a := sgmail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(att.Data))
		a.SetType(att.ContentType)
		a.SetFilename(att.Filename)
		a.SetDisposition("attachment")
		message.AddAttachment(a)
	}

	resp, err := sendgrid.NewSendClient(m.apiKey).Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid: send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: send failed: status=%d body=%s", resp.StatusCode, resp.Body)
	}
	return nil
}
