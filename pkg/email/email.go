// Package email sends notification emails through SMTP, Postmark or Resend.
// A dev provider writes messages to disk instead of sending them.
package email

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrFailedToSendEmail = errors.New("failed to send email")
	ErrInvalidConfig     = errors.New("invalid email config")
	ErrInvalidParams     = errors.New("invalid email params")
)

// Providers accepted by New.
const (
	ProviderDev      = "dev"
	ProviderSMTP     = "smtp"
	ProviderPostmark = "postmark"
	ProviderResend   = "resend"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// EmailSender sends a single email.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams describes one outgoing email.
type SendEmailParams struct {
	SendTo   string `json:"sendTo"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"bodyHtml"`
	Tag      string `json:"tag,omitempty"`
}

// Validate checks that the email can be sent.
func (p SendEmailParams) Validate() error {
	if strings.TrimSpace(p.SendTo) == "" {
		return fmt.Errorf("%w: SendTo is required", ErrInvalidParams)
	}
	if !emailRegex.MatchString(p.SendTo) {
		return fmt.Errorf("%w: SendTo must be a valid email address", ErrInvalidParams)
	}
	if strings.TrimSpace(p.Subject) == "" {
		return fmt.Errorf("%w: Subject is required", ErrInvalidParams)
	}
	if strings.TrimSpace(p.BodyHTML) == "" {
		return fmt.Errorf("%w: BodyHTML is required", ErrInvalidParams)
	}
	return nil
}

// Config holds the settings of every provider. Only the selected provider's fields are checked.
type Config struct {
	Provider     string
	SenderEmail  string
	SupportEmail string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string

	PostmarkServerToken  string
	PostmarkAccountToken string

	ResendAPIKey string

	DevDir string
}

// New builds the sender selected by cfg.Provider.
func New(cfg Config) (EmailSender, error) {
	switch cfg.Provider {
	case ProviderDev, "":
		return NewDevSender(cfg.DevDir), nil
	case ProviderSMTP:
		sender, err := NewSMTPSender(cfg)
		if err != nil {
			return nil, err
		}
		return sender, nil
	case ProviderPostmark:
		return NewPostmarkClient(cfg)
	case ProviderResend:
		return NewResendClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

func validateSender(address string) error {
	if address == "" {
		return fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(address) {
		return fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	return nil
}
