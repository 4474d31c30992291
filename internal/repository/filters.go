package repository

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserFilter narrows a user directory query. Zero fields do not filter.
type UserFilter struct {
	Role           string
	IDs            []primitive.ObjectID
	ExcludeDeleted bool
}

func (f UserFilter) bson() bson.M {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.IDs != nil {
		filter["_id"] = bson.M{"$in": f.IDs}
	}
	if f.ExcludeDeleted {
		filter["isDeleted"] = bson.M{"$ne": true}
	}
	return filter
}

// PreferencesUpdate changes a user's notification preferences. Nil fields are left untouched.
type PreferencesUpdate struct {
	NotificationsEnabled      *bool
	InApp                     *bool
	EmailReminders            *bool
	Theme                     *string
	PreferredNotificationTime *string
}

// IsEmpty reports whether the update changes nothing.
func (u PreferencesUpdate) IsEmpty() bool {
	return u.NotificationsEnabled == nil && u.InApp == nil && u.EmailReminders == nil &&
		u.Theme == nil && u.PreferredNotificationTime == nil
}

func (u PreferencesUpdate) bson() bson.M {
	set := bson.M{}
	if u.NotificationsEnabled != nil {
		set["notificationsEnabled"] = *u.NotificationsEnabled
	}
	if u.InApp != nil {
		set["preferences.notifications"] = *u.InApp
	}
	if u.EmailReminders != nil {
		set["preferences.emailReminders"] = *u.EmailReminders
	}
	if u.Theme != nil {
		set["preferences.theme"] = *u.Theme
	}
	if u.PreferredNotificationTime != nil {
		set["preferredNotificationTime"] = *u.PreferredNotificationTime
	}
	return set
}

// SettingsUpdate changes the global notification settings. Nil fields are left untouched.
type SettingsUpdate struct {
	HabitReminderNotify   *bool `json:"habitReminderNotify"`
	StreakMilestoneNotify *bool `json:"streakMilestoneNotify"`
	WeeklySummaryNotify   *bool `json:"weeklySummaryNotify"`
	MonthlySummaryNotify  *bool `json:"monthlySummaryNotify"`
}

func (u SettingsUpdate) bson() bson.M {
	set := bson.M{}
	if u.HabitReminderNotify != nil {
		set["habitReminderNotify"] = *u.HabitReminderNotify
	}
	if u.StreakMilestoneNotify != nil {
		set["streakMilestoneNotify"] = *u.StreakMilestoneNotify
	}
	if u.WeeklySummaryNotify != nil {
		set["weeklySummaryNotify"] = *u.WeeklySummaryNotify
	}
	if u.MonthlySummaryNotify != nil {
		set["monthlySummaryNotify"] = *u.MonthlySummaryNotify
	}
	return set
}
