package services

import (
	"context"
	"fmt"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/repository"
	"github.com/sirupsen/logrus"
)

// SettingsService manages the global notification switches.
type SettingsService struct {
	store SettingsStore
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// Get returns the settings, creating them with defaults on first access.
func (s *SettingsService) Get(ctx context.Context) (*models.NotificationSettings, error) {
	settings, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification settings: %w", err)
	}
	return settings, nil
}

// Update changes the switches present in update. Admin only.
func (s *SettingsService) Update(ctx context.Context, req Requester, update repository.SettingsUpdate) (*models.NotificationSettings, error) {
	if !req.IsAdmin() {
		return nil, forbidden("only admins can change notification settings")
	}

	settings, err := s.store.Update(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update notification settings: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"adminID":               req.ID.Hex(),
		"habitReminderNotify":   settings.HabitReminderNotify,
		"streakMilestoneNotify": settings.StreakMilestoneNotify,
	}).Info("Notification settings updated")
	return settings, nil
}
