package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Preferred notification windows.
const (
	TimeMorning   = "morning"
	TimeAfternoon = "afternoon"
	TimeEvening   = "evening"
)

// UserPreferences holds the per-channel opt-ins of a user.
// A nil flag means the user never set it.
type UserPreferences struct {
	Notifications  *bool  `bson:"notifications,omitempty" json:"notifications,omitempty"`
	EmailReminders *bool  `bson:"emailReminders,omitempty" json:"emailReminders,omitempty"`
	Theme          string `bson:"theme,omitempty" json:"theme,omitempty"`
}

// User represents an account of the habit tracker. The notification engine only reads it.
type User struct {
	ID                        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email                     string             `bson:"email" json:"email"`
	FirstName                 string             `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName                  string             `bson:"lastName,omitempty" json:"lastName,omitempty"`
	Role                      string             `bson:"role" json:"role"`
	IsDeleted                 bool               `bson:"isDeleted" json:"-"`
	NotificationsEnabled      *bool              `bson:"notificationsEnabled,omitempty" json:"notificationsEnabled,omitempty"`
	Preferences               UserPreferences    `bson:"preferences" json:"preferences"`
	PreferredNotificationTime string             `bson:"preferredNotificationTime,omitempty" json:"preferredNotificationTime,omitempty"`
	CreatedAt                 time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt                 time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsValidPreferredTime reports whether t names one of the notification windows.
func IsValidPreferredTime(t string) bool {
	switch t {
	case TimeMorning, TimeAfternoon, TimeEvening:
		return true
	}
	return false
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}
