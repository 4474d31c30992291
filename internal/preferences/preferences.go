// Package preferences decides channel eligibility from a user's stored notification flags.
//
// Every function is total: a nil user is never eligible and nothing here touches storage.
// Send paths must ask this package instead of reading the flags themselves.
package preferences

import (
	"github.com/Dias221467/habit_tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel is a delivery channel a user can opt in to.
type Channel string

const (
	ChannelInApp Channel = "inapp"
	ChannelEmail Channel = "email"
)

// DefaultPreferredTime is used when the user never picked a window.
const DefaultPreferredTime = models.TimeMorning

// IsNotificationsEnabled reports whether the global switch of u is explicitly on.
func IsNotificationsEnabled(u *models.User) bool {
	return u != nil && isTrue(u.NotificationsEnabled)
}

// ShouldSendInApp reports whether u accepts real-time, in-app notifications.
func ShouldSendInApp(u *models.User) bool {
	return IsNotificationsEnabled(u) && isTrue(u.Preferences.Notifications)
}

// ShouldSendEmail reports whether u accepts email reminders.
func ShouldSendEmail(u *models.User) bool {
	return IsNotificationsEnabled(u) && isTrue(u.Preferences.EmailReminders)
}

// ShouldSend dispatches on channel. Unknown channels fall back to in-app.
func ShouldSend(u *models.User, channel Channel) bool {
	if channel == ChannelEmail {
		return ShouldSendEmail(u)
	}
	return ShouldSendInApp(u)
}

// PreferredTime returns the user's notification window or DefaultPreferredTime.
func PreferredTime(u *models.User) string {
	if u == nil || u.PreferredNotificationTime == "" {
		return DefaultPreferredTime
	}
	return u.PreferredNotificationTime
}

// Settings is the read model of a user's notification preferences.
type Settings struct {
	UserID                    primitive.ObjectID `json:"userId"`
	NotificationsEnabled      bool               `json:"notificationsEnabled"`
	PreferredNotificationTime string             `json:"preferredNotificationTime"`
	InAppNotifications        bool               `json:"inAppNotifications"`
	EmailReminders            bool               `json:"emailReminders"`
	Theme                     string             `json:"theme"`
	CanReceiveInApp           bool               `json:"canReceiveInApp"`
	CanReceiveEmail           bool               `json:"canReceiveEmail"`
}

// Summary builds the settings view of u. Per-channel flags that were never set are shown
// as on, while the Can* fields report the effective eligibility.
func Summary(u *models.User) Settings {
	if u == nil {
		return Settings{PreferredNotificationTime: DefaultPreferredTime, Theme: "light"}
	}
	theme := u.Preferences.Theme
	if theme == "" {
		theme = "light"
	}
	return Settings{
		UserID:                    u.ID,
		NotificationsEnabled:      IsNotificationsEnabled(u),
		PreferredNotificationTime: PreferredTime(u),
		InAppNotifications:        orTrue(u.Preferences.Notifications),
		EmailReminders:            orTrue(u.Preferences.EmailReminders),
		Theme:                     theme,
		CanReceiveInApp:           ShouldSendInApp(u),
		CanReceiveEmail:           ShouldSendEmail(u),
	}
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func orTrue(b *bool) bool {
	return b == nil || *b
}
