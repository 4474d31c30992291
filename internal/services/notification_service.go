package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dias221467/habit_tracker/internal/metrics"
	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/preferences"
	"github.com/Dias221467/habit_tracker/internal/repository"
	"github.com/Dias221467/habit_tracker/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultPageSize bounds the notification list of a user.
const DefaultPageSize = 50

const habitReminderTitle = "Habit Reminder"

// BroadcastInput is the content of a send. Email is optional.
type BroadcastInput struct {
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Type      models.NotificationType `json:"type"`
	ActionURL string                  `json:"actionUrl,omitempty"`
	Email     EmailTemplate           `json:"email"`
}

// SendToUserInput targets a single user by id or, when no id is given, by email.
type SendToUserInput struct {
	ReceiverID    string `json:"receiverId"`
	ReceiverEmail string `json:"receiverEmail"`
	BroadcastInput
}

// CategoryInput targets the owners of habits in Category.
type CategoryInput struct {
	Category string `json:"category"`
	BroadcastInput
}

// HabitReminderInput is a reminder the caller sends to themselves.
type HabitReminderInput struct {
	HabitID       string `json:"habitId"`
	HabitName     string `json:"habitName"`
	PreferredTime string `json:"preferredTime"`
	Message       string `json:"message"`
}

// HabitReminderPayload is pushed with the habit-reminder event.
type HabitReminderPayload struct {
	ID            primitive.ObjectID `json:"_id"`
	HabitName     string             `json:"habitName"`
	PreferredTime string             `json:"preferredTime"`
	Message       string             `json:"message"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// SendResult is returned by every send. Delivery failures are reported here and
// never turn the send into an error.
type SendResult struct {
	Notification *models.Notification `json:"notification"`
	InAppCount   int                  `json:"inAppCount"`
	EmailCount   int                  `json:"emailCount"`
	EmailResults []EmailResult        `json:"emailResults,omitempty"`
	PushFailures []PushFailure        `json:"pushFailures,omitempty"`
}

// NotificationService creates notifications, fans them out and manages per-user read state.
type NotificationService struct {
	store      NotificationStore
	selector   *RecipientSelector
	dispatcher *Dispatcher
	settings   SettingsStore
}

func NewNotificationService(store NotificationStore, selector *RecipientSelector, dispatcher *Dispatcher, settings SettingsStore) *NotificationService {
	return &NotificationService{
		store:      store,
		selector:   selector,
		dispatcher: dispatcher,
		settings:   settings,
	}
}

// SendToUser notifies one user. Users may only write to admins and nobody may target themselves.
func (s *NotificationService) SendToUser(ctx context.Context, req Requester, in SendToUserInput) (*SendResult, error) {
	content, err := normalizeContent(in.BroadcastInput, models.TypeUser)
	if err != nil {
		return nil, err
	}

	target := Target{Mode: ModeSingle, ReceiverEmail: in.ReceiverEmail}
	if id := strings.TrimSpace(in.ReceiverID); id != "" {
		target.ReceiverID, err = primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, invalid("invalid receiver", FieldError{Field: "receiverId", Message: "must be a valid id"})
		}
	}
	return s.send(ctx, req, target, content, "")
}

// SendToAllUsers broadcasts to every live user with role user. Admin only.
func (s *NotificationService) SendToAllUsers(ctx context.Context, req Requester, in BroadcastInput) (*SendResult, error) {
	content, err := normalizeContent(in, models.TypeAdminBroadcast)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, req, Target{Mode: ModeAllUsers}, content, "")
}

// SendToAdmins notifies every live admin except the caller.
func (s *NotificationService) SendToAdmins(ctx context.Context, req Requester, in BroadcastInput) (*SendResult, error) {
	content, err := normalizeContent(in, models.TypeSystem)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, req, Target{Mode: ModeAllAdmins}, content, "")
}

// SendToCategory notifies the owners of live habits in a category. Admin only.
func (s *NotificationService) SendToCategory(ctx context.Context, req Requester, in CategoryInput) (*SendResult, error) {
	content, err := normalizeContent(in.BroadcastInput, models.TypeCategoryAlert)
	if err != nil {
		return nil, err
	}
	category := strings.TrimSpace(in.Category)
	return s.send(ctx, req, Target{Mode: ModeCategory, Category: category}, content, category)
}

// SendSystem broadcasts a system notification to every live user. Admin only;
// fails when there is nobody to notify.
func (s *NotificationService) SendSystem(ctx context.Context, req Requester, in BroadcastInput) (*SendResult, error) {
	content, err := normalizeContent(in, models.TypeSystem)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, req, Target{Mode: ModeSystem}, content, "")
}

// SendHabitReminder sends a habit reminder to the caller.
func (s *NotificationService) SendHabitReminder(ctx context.Context, req Requester, in HabitReminderInput) (*SendResult, error) {
	var fields []FieldError
	if strings.TrimSpace(in.HabitName) == "" {
		fields = append(fields, FieldError{Field: "habitName", Message: "is required"})
	}
	if strings.TrimSpace(in.Message) == "" {
		fields = append(fields, FieldError{Field: "message", Message: "is required"})
	}
	if len(fields) > 0 {
		return nil, invalid("missing required fields", fields...)
	}

	var habitID *primitive.ObjectID
	if id := strings.TrimSpace(in.HabitID); id != "" {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, invalid("invalid habit", FieldError{Field: "habitId", Message: "must be a valid id"})
		}
		habitID = &oid
	}

	if err := s.checkAllowed(ctx, models.TypeHabitReminder); err != nil {
		return nil, err
	}

	start := time.Now()
	defer metrics.ObserveSend(string(ModeSelf), start)

	recipients, err := s.selector.Select(ctx, req, Target{Mode: ModeSelf})
	if err != nil {
		return nil, err
	}
	if len(recipients.InApp) == 0 {
		return nil, invalid("in-app notifications are disabled for this user")
	}

	sender := req.ID
	notif := &models.Notification{
		Receivers:      recipients.Receivers,
		Sender:         &sender,
		Type:           models.TypeHabitReminder,
		Title:          habitReminderTitle,
		Message:        strings.TrimSpace(in.Message),
		RelatedHabitID: habitID,
	}
	if err := s.create(ctx, notif); err != nil {
		return nil, err
	}

	preferredTime := in.PreferredTime
	if preferredTime == "" {
		preferredTime = preferences.PreferredTime(recipients.InApp[0])
	}
	failures := s.dispatcher.Push(EventHabitReminder, HabitReminderPayload{
		ID:            notif.ID,
		HabitName:     in.HabitName,
		PreferredTime: preferredTime,
		Message:       notif.Message,
		CreatedAt:     notif.CreatedAt,
	}, recipients.InApp)

	return &SendResult{
		Notification: notif,
		InAppCount:   len(recipients.InApp),
		PushFailures: failures,
	}, nil
}

// List returns the notifications visible to the caller, newest first.
func (s *NotificationService) List(ctx context.Context, req Requester) ([]models.Notification, error) {
	notifications, err := s.store.ListForUser(ctx, req.ID, DefaultPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount counts the caller's visible, unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, req Requester) (int64, error) {
	count, err := s.store.CountUnread(ctx, req.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// Get returns one notification visible to the caller.
func (s *NotificationService) Get(ctx context.Context, req Requester, id primitive.ObjectID) (*models.Notification, error) {
	notif, err := s.store.FindForReceiver(ctx, id, req.ID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && notif.IsDeletedBy(req.ID)) {
		return nil, notFound("notification not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}
	return notif, nil
}

// MarkRead marks a notification as read for the caller. Repeating it is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, req Requester, id primitive.ObjectID) (*models.Notification, error) {
	notif, err := s.store.AddReader(ctx, id, req.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("notification not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return notif, nil
}

// MarkUnread reverts MarkRead for the caller. Repeating it is a no-op.
func (s *NotificationService) MarkUnread(ctx context.Context, req Requester, id primitive.ObjectID) (*models.Notification, error) {
	notif, err := s.store.RemoveReader(ctx, id, req.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("notification not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification as unread: %w", err)
	}
	return notif, nil
}

// MarkAllRead marks every visible notification of the caller as read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, req Requester) (int64, error) {
	modified, err := s.store.AddReaderToAll(ctx, req.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return modified, nil
}

// Delete hides a notification from the caller. Other receivers keep it.
func (s *NotificationService) Delete(ctx context.Context, req Requester, id primitive.ObjectID) error {
	err := s.store.Hide(ctx, id, req.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("notification not found")
	}
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

func (s *NotificationService) send(ctx context.Context, req Requester, target Target, content BroadcastInput, category string) (*SendResult, error) {
	if err := s.checkAllowed(ctx, content.Type); err != nil {
		return nil, err
	}

	start := time.Now()
	defer metrics.ObserveSend(string(target.Mode), start)

	recipients, err := s.selector.Select(ctx, req, target)
	if err != nil {
		return nil, err
	}

	sender := req.ID
	notif := &models.Notification{
		Receivers: recipients.Receivers,
		Sender:    &sender,
		Type:      content.Type,
		Title:     content.Title,
		Message:   content.Message,
		Category:  category,
		ActionURL: content.ActionURL,
	}
	if err := s.create(ctx, notif); err != nil {
		return nil, err
	}

	result := &SendResult{
		Notification: notif,
		InAppCount:   len(recipients.InApp),
		PushFailures: s.dispatcher.Push(EventNewNotification, notif, recipients.InApp),
	}
	if !content.Email.IsEmpty() {
		result.EmailCount = len(recipients.Email)
		result.EmailResults = s.dispatcher.SendEmail(ctx, recipients.Email, content.Email, string(content.Type))
	}

	logger.Log.WithFields(logrus.Fields{
		"notificationID": notif.ID.Hex(),
		"mode":           target.Mode,
		"receivers":      len(notif.Receivers),
		"inApp":          result.InAppCount,
		"pushFailures":   len(result.PushFailures),
		"emails":         len(result.EmailResults),
	}).Info("Notification sent")
	return result, nil
}

func (s *NotificationService) create(ctx context.Context, notif *models.Notification) error {
	if err := s.store.Create(ctx, notif); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(notif.Type)).Inc()
	return nil
}

// checkAllowed rejects types switched off in the global settings.
func (s *NotificationService) checkAllowed(ctx context.Context, t models.NotificationType) error {
	if s.settings == nil || (t != models.TypeHabitReminder && t != models.TypeStreakMilestone) {
		return nil
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load notification settings: %w", err)
	}
	if !settings.Allows(t) {
		return invalid(fmt.Sprintf("%s notifications are disabled", t))
	}
	return nil
}

func normalizeContent(in BroadcastInput, defaultType models.NotificationType) (BroadcastInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if in.Type == "" {
		in.Type = defaultType
	}

	var fields []FieldError
	if in.Title == "" {
		fields = append(fields, FieldError{Field: "title", Message: "is required"})
	}
	if in.Message == "" {
		fields = append(fields, FieldError{Field: "message", Message: "is required"})
	}
	if !in.Type.Valid() {
		fields = append(fields, FieldError{Field: "type", Message: fmt.Sprintf("%q is not a notification type", in.Type)})
	}
	if len(fields) > 0 {
		return in, invalid("missing or invalid fields", fields...)
	}
	return in, nil
}
