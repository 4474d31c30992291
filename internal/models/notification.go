package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType classifies a notification.
type NotificationType string

const (
	TypeHabitReminder   NotificationType = "habit_reminder"
	TypeStreakMilestone NotificationType = "streak_milestone"
	TypeAchievement     NotificationType = "achievement"
	TypeSystem          NotificationType = "system"
	TypeUser            NotificationType = "user"
	TypeAdminBroadcast  NotificationType = "admin_broadcast"
	TypeCategoryAlert   NotificationType = "category_alert"
	TypeUserMessage     NotificationType = "user_message"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeHabitReminder, TypeStreakMilestone, TypeAchievement, TypeSystem,
		TypeUser, TypeAdminBroadcast, TypeCategoryAlert, TypeUserMessage:
		return true
	}
	return false
}

// Notification is a single record shared by all of its receivers.
// ReadBy and DeletedBy are per-receiver projections and are always subsets of Receivers.
type Notification struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Receivers      []primitive.ObjectID `bson:"receivers" json:"receivers"`
	Sender         *primitive.ObjectID  `bson:"sender" json:"sender"`
	Type           NotificationType     `bson:"type" json:"type"`
	Title          string               `bson:"title" json:"title"`
	Message        string               `bson:"message" json:"message"`
	ReadBy         []primitive.ObjectID `bson:"readBy" json:"readBy"`
	DeletedBy      []primitive.ObjectID `bson:"deletedBy" json:"deletedBy"`
	Category       string               `bson:"category,omitempty" json:"category,omitempty"`
	RelatedHabitID *primitive.ObjectID  `bson:"relatedHabitId,omitempty" json:"relatedHabitId,omitempty"`
	ActionURL      string               `bson:"actionUrl,omitempty" json:"actionUrl,omitempty"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
}

// HasReceiver reports whether userID is one of the receivers.
func (n *Notification) HasReceiver(userID primitive.ObjectID) bool {
	return containsID(n.Receivers, userID)
}

// IsReadBy reports whether userID acknowledged the notification.
func (n *Notification) IsReadBy(userID primitive.ObjectID) bool {
	return containsID(n.ReadBy, userID)
}

// IsDeletedBy reports whether userID hid the notification.
func (n *Notification) IsDeletedBy(userID primitive.ObjectID) bool {
	return containsID(n.DeletedBy, userID)
}

// VisibleTo reports whether the notification shows up in userID's list.
func (n *Notification) VisibleTo(userID primitive.ObjectID) bool {
	return n.HasReceiver(userID) && !n.IsDeletedBy(userID)
}

// UnreadFor reports whether the notification counts as unread for userID.
func (n *Notification) UnreadFor(userID primitive.ObjectID) bool {
	return n.VisibleTo(userID) && !n.IsReadBy(userID)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
