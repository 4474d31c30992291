package services

import (
	"context"
	"strings"

	"github.com/Dias221467/habit_tracker/internal/metrics"
	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/realtime"
	"github.com/Dias221467/habit_tracker/pkg/email"
	"github.com/Dias221467/habit_tracker/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Real-time event names.
const (
	EventNewNotification = "new-notification"
	EventHabitReminder   = "habit-reminder"
)

// Email delivery statuses.
const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailTemplate is the email sent alongside a notification. An empty template sends nothing.
type EmailTemplate struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// IsEmpty reports whether the template lacks a subject or a body.
func (t EmailTemplate) IsEmpty() bool {
	return strings.TrimSpace(t.Subject) == "" || strings.TrimSpace(t.HTML) == ""
}

// PushFailure records a live push that could not be delivered.
type PushFailure struct {
	UserID primitive.ObjectID `json:"userId"`
	Error  string             `json:"error"`
}

// EmailResult is the outcome of one email.
type EmailResult struct {
	UserID primitive.ObjectID `json:"userId"`
	Email  string             `json:"email"`
	Status string             `json:"status"`
	Error  string             `json:"error,omitempty"`
}

// Dispatcher delivers persisted notifications over the live transport and email.
// Delivery is best-effort: failures are logged and reported, never returned as errors.
type Dispatcher struct {
	emitter realtime.Emitter
	mailer  email.EmailSender
}

// NewDispatcher creates a dispatcher. A nil mailer disables email.
func NewDispatcher(emitter realtime.Emitter, mailer email.EmailSender) *Dispatcher {
	return &Dispatcher{emitter: emitter, mailer: mailer}
}

// Push emits payload to the private channel of every user in recipients.
func (d *Dispatcher) Push(event string, payload any, recipients []*models.User) []PushFailure {
	var failures []PushFailure
	for _, u := range recipients {
		err := d.emitter.Emit(u.ID.Hex(), event, payload)
		metrics.PushDeliveries.WithLabelValues(metrics.Outcome(err)).Inc()
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"userID": u.ID.Hex(),
				"event":  event,
				"error":  err,
			}).Warn("Failed to push notification")
			failures = append(failures, PushFailure{UserID: u.ID, Error: err.Error()})
		}
	}
	return failures
}

// SendEmail sends tmpl to every user in recipients, one email each.
func (d *Dispatcher) SendEmail(ctx context.Context, recipients []*models.User, tmpl EmailTemplate, tag string) []EmailResult {
	if d.mailer == nil || tmpl.IsEmpty() || len(recipients) == 0 {
		return nil
	}

	results := make([]EmailResult, 0, len(recipients))
	for _, u := range recipients {
		err := d.mailer.SendEmail(ctx, email.SendEmailParams{
			SendTo:   u.Email,
			Subject:  tmpl.Subject,
			BodyHTML: tmpl.HTML,
			Tag:      tag,
		})
		metrics.EmailDeliveries.WithLabelValues(metrics.Outcome(err)).Inc()

		result := EmailResult{UserID: u.ID, Email: u.Email, Status: EmailStatusSent}
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"userID": u.ID.Hex(),
				"error":  err,
			}).Warn("Failed to send notification email")
			result.Status = EmailStatusFailed
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}
