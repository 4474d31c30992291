package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/preferences"
	"github.com/Dias221467/habit_tracker/internal/repository"
)

var themes = map[string]struct{}{"light": {}, "dark": {}}

// PreferencesPatch changes the caller's own notification preferences. Nil fields are kept.
type PreferencesPatch struct {
	NotificationsEnabled      *bool   `json:"notificationsEnabled"`
	InAppNotifications        *bool   `json:"inAppNotifications"`
	EmailReminders            *bool   `json:"emailReminders"`
	PreferredNotificationTime *string `json:"preferredNotificationTime"`
	Theme                     *string `json:"theme"`
}

// PreferenceService reads and updates the notification preferences of the caller.
type PreferenceService struct {
	users UserDirectory
}

func NewPreferenceService(users UserDirectory) *PreferenceService {
	return &PreferenceService{users: users}
}

// Get returns the caller's preference summary.
func (s *PreferenceService) Get(ctx context.Context, req Requester) (preferences.Settings, error) {
	user, err := s.users.FindByID(ctx, req.ID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && user.IsDeleted) {
		return preferences.Settings{}, notFound("user not found")
	}
	if err != nil {
		return preferences.Settings{}, fmt.Errorf("failed to load user: %w", err)
	}
	return preferences.Summary(user), nil
}

// Update applies patch to the caller and returns the new summary.
func (s *PreferenceService) Update(ctx context.Context, req Requester, patch PreferencesPatch) (preferences.Settings, error) {
	update := repository.PreferencesUpdate{
		NotificationsEnabled: patch.NotificationsEnabled,
		InApp:                patch.InAppNotifications,
		EmailReminders:       patch.EmailReminders,
	}

	var fields []FieldError
	if patch.PreferredNotificationTime != nil {
		t := strings.TrimSpace(*patch.PreferredNotificationTime)
		if !models.IsValidPreferredTime(t) {
			fields = append(fields, FieldError{Field: "preferredNotificationTime", Message: "must be morning, afternoon or evening"})
		}
		update.PreferredNotificationTime = &t
	}
	if patch.Theme != nil {
		theme := strings.TrimSpace(*patch.Theme)
		if _, ok := themes[theme]; !ok {
			fields = append(fields, FieldError{Field: "theme", Message: "must be light or dark"})
		}
		update.Theme = &theme
	}
	if len(fields) > 0 {
		return preferences.Settings{}, invalid("invalid preferences", fields...)
	}
	if update.IsEmpty() {
		return preferences.Settings{}, invalid("no preferences to update")
	}

	user, err := s.users.UpdatePreferences(ctx, req.ID, update)
	if errors.Is(err, repository.ErrNotFound) {
		return preferences.Settings{}, notFound("user not found")
	}
	if err != nil {
		return preferences.Settings{}, fmt.Errorf("failed to update preferences: %w", err)
	}
	return preferences.Summary(user), nil
}
