package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationSettings are the global, admin-managed switches for automated notification kinds.
// There is a single document per deployment.
type NotificationSettings struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HabitReminderNotify   bool               `bson:"habitReminderNotify" json:"habitReminderNotify"`
	StreakMilestoneNotify bool               `bson:"streakMilestoneNotify" json:"streakMilestoneNotify"`
	WeeklySummaryNotify   bool               `bson:"weeklySummaryNotify" json:"weeklySummaryNotify"`
	MonthlySummaryNotify  bool               `bson:"monthlySummaryNotify" json:"monthlySummaryNotify"`
	CreatedAt             time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DefaultNotificationSettings returns the settings used when none are stored yet.
func DefaultNotificationSettings() NotificationSettings {
	now := time.Now()
	return NotificationSettings{
		HabitReminderNotify:   true,
		StreakMilestoneNotify: true,
		WeeklySummaryNotify:   true,
		MonthlySummaryNotify:  true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// Allows reports whether notifications of type t may be sent under these settings.
// Only the automated kinds are switchable; everything else is always allowed.
func (s *NotificationSettings) Allows(t NotificationType) bool {
	if s == nil {
		return true
	}
	switch t {
	case TypeHabitReminder:
		return s.HabitReminderNotify
	case TypeStreakMilestone:
		return s.StreakMilestoneNotify
	}
	return true
}
