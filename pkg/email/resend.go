package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type resendClient struct {
	client *resend.Client
	from   string
}

// NewResendClient creates a Resend-backed sender.
func NewResendClient(cfg Config) (EmailSender, error) {
	if cfg.ResendAPIKey == "" {
		return nil, fmt.Errorf("%w: ResendAPIKey is required", ErrInvalidConfig)
	}
	if err := validateSender(cfg.SenderEmail); err != nil {
		return nil, err
	}
	return &resendClient{
		client: resend.NewClient(cfg.ResendAPIKey),
		from:   cfg.SenderEmail,
	}, nil
}

func (c *resendClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	req := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{params.SendTo},
		Subject: params.Subject,
		Html:    params.BodyHTML,
	}

	if _, err := c.client.Emails.SendWithContext(ctx, req); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return nil
}
