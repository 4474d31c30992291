package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers HTML emails through a plain SMTP relay.
type SMTPSender struct {
	from     string
	address  string
	auth     smtp.Auth
	sendMail sendMailFunc
}

// NewSMTPSender creates an SMTP-backed sender. Authentication is skipped when no user is set.
func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	if cfg.SMTPHost == "" || cfg.SMTPPort == "" {
		return nil, fmt.Errorf("%w: SMTPHost and SMTPPort are required", ErrInvalidConfig)
	}
	if err := validateSender(cfg.SenderEmail); err != nil {
		return nil, err
	}

	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}

	return &SMTPSender{
		from:     cfg.SenderEmail,
		address:  cfg.SMTPHost + ":" + cfg.SMTPPort,
		auth:     auth,
		sendMail: smtp.SendMail,
	}, nil
}

// SendEmail sends params as a single HTML message.
func (s *SMTPSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToSendEmail, err)
	}

	msg := []byte("From: " + s.from + "\r\n" +
		"To: " + params.SendTo + "\r\n" +
		"Subject: " + params.Subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" + params.BodyHTML + "\r\n")

	if err := s.sendMail(s.address, s.auth, s.from, []string{params.SendTo}, msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"to":    params.SendTo,
			"host":  s.address,
			"error": err,
		}).Error("Failed to send email via SMTP")
		return fmt.Errorf("%w: %v", ErrFailedToSendEmail, err)
	}
	return nil
}
