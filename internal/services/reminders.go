package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/Dias221467/habit_tracker/internal/metrics"
	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/preferences"
	"github.com/Dias221467/habit_tracker/internal/repository"
	"github.com/Dias221467/habit_tracker/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderStats summarises one scheduled reminder run.
type ReminderStats struct {
	Habits        int
	Notifications int
	Emails        int
}

// ReminderService sends the scheduled habit reminders of a time window.
type ReminderService struct {
	habits     HabitDirectory
	users      UserDirectory
	store      NotificationStore
	dispatcher *Dispatcher
	settings   SettingsStore
}

func NewReminderService(habits HabitDirectory, users UserDirectory, store NotificationStore, dispatcher *Dispatcher, settings SettingsStore) *ReminderService {
	return &ReminderService{
		habits:     habits,
		users:      users,
		store:      store,
		dispatcher: dispatcher,
		settings:   settings,
	}
}

// SendScheduledReminders reminds owners of the active habits of window. Habits without a
// window are reminded in their owner's preferred window.
func (s *ReminderService) SendScheduledReminders(ctx context.Context, window string) (ReminderStats, error) {
	var stats ReminderStats
	if !models.IsValidPreferredTime(window) {
		return stats, invalid("invalid reminder window", FieldError{Field: "window", Message: fmt.Sprintf("%q is not a notification window", window)})
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load notification settings: %w", err)
	}
	if !settings.Allows(models.TypeHabitReminder) {
		logger.Log.WithField("window", window).Info("Habit reminders are disabled, skipping run")
		return stats, nil
	}

	habits, err := s.habits.FindActiveByPreferredTime(ctx, []string{window, models.HabitTimeAllDay})
	if err != nil {
		return stats, fmt.Errorf("failed to load habits: %w", err)
	}
	if len(habits) == 0 {
		return stats, nil
	}

	owners, err := s.loadOwners(ctx, habits)
	if err != nil {
		return stats, err
	}

	due := make(map[primitive.ObjectID][]models.Habit)
	var order []primitive.ObjectID
	for _, h := range habits {
		owner, ok := owners[h.UserID]
		if !ok || !preferences.ShouldSendInApp(owner) {
			continue
		}
		if h.PreferredTime == models.HabitTimeAllDay && preferences.PreferredTime(owner) != window {
			continue
		}
		if _, seen := due[h.UserID]; !seen {
			order = append(order, h.UserID)
		}
		due[h.UserID] = append(due[h.UserID], h)
	}

	var errs []error
	for _, ownerID := range order {
		owner := owners[ownerID]
		for _, h := range due[ownerID] {
			stats.Habits++
			if err := s.remind(ctx, owner, h, window); err != nil {
				logger.Log.WithFields(logrus.Fields{
					"userID":  ownerID.Hex(),
					"habitID": h.ID.Hex(),
					"error":   err,
				}).Error("Failed to create habit reminder")
				errs = append(errs, err)
				continue
			}
			stats.Notifications++
		}

		if preferences.ShouldSendEmail(owner) {
			results := s.dispatcher.SendEmail(ctx, []*models.User{owner}, reminderEmail(window, due[ownerID]), string(models.TypeHabitReminder))
			for _, r := range results {
				if r.Status == EmailStatusSent {
					stats.Emails++
				}
			}
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"window":        window,
		"habits":        stats.Habits,
		"notifications": stats.Notifications,
		"emails":        stats.Emails,
	}).Info("Habit reminder run finished")
	return stats, errors.Join(errs...)
}

func (s *ReminderService) loadOwners(ctx context.Context, habits []models.Habit) (map[primitive.ObjectID]*models.User, error) {
	seen := make(map[primitive.ObjectID]struct{}, len(habits))
	ids := make([]primitive.ObjectID, 0, len(habits))
	for _, h := range habits {
		if _, ok := seen[h.UserID]; ok {
			continue
		}
		seen[h.UserID] = struct{}{}
		ids = append(ids, h.UserID)
	}

	users, err := s.users.FindMany(ctx, repository.UserFilter{IDs: ids, ExcludeDeleted: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load habit owners: %w", err)
	}
	owners := make(map[primitive.ObjectID]*models.User, len(users))
	for _, u := range users {
		owners[u.ID] = u
	}
	return owners, nil
}

func (s *ReminderService) remind(ctx context.Context, owner *models.User, h models.Habit, window string) error {
	habitID := h.ID
	notif := &models.Notification{
		Receivers:      []primitive.ObjectID{owner.ID},
		Type:           models.TypeHabitReminder,
		Title:          habitReminderTitle,
		Message:        fmt.Sprintf("Time for your habit: %s", h.Name),
		RelatedHabitID: &habitID,
	}
	if err := s.store.Create(ctx, notif); err != nil {
		return err
	}
	metrics.NotificationsCreated.WithLabelValues(string(notif.Type)).Inc()

	s.dispatcher.Push(EventHabitReminder, HabitReminderPayload{
		ID:            notif.ID,
		HabitName:     h.Name,
		PreferredTime: window,
		Message:       notif.Message,
		CreatedAt:     notif.CreatedAt,
	}, []*models.User{owner})
	return nil
}

func reminderEmail(window string, habits []models.Habit) EmailTemplate {
	var b strings.Builder
	b.WriteString("<p>Here are your habits for this ")
	b.WriteString(window)
	b.WriteString(":</p><ul>")
	for _, h := range habits {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(h.Name))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")

	return EmailTemplate{
		Subject: fmt.Sprintf("Your %s habit reminders", window),
		HTML:    b.String(),
	}
}
