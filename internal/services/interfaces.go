package services

import (
	"context"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserDirectory is the read side of user accounts plus the preference update.
type UserDirectory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindMany(ctx context.Context, filter repository.UserFilter) ([]*models.User, error)
	UpdatePreferences(ctx context.Context, id primitive.ObjectID, update repository.PreferencesUpdate) (*models.User, error)
}

// HabitDirectory answers the habit queries used for targeting and reminders.
type HabitDirectory interface {
	OwnersByCategory(ctx context.Context, category string) ([]primitive.ObjectID, error)
	FindActiveByPreferredTime(ctx context.Context, times []string) ([]models.Habit, error)
}

// NotificationStore persists shared notification records. Set mutations must be atomic.
type NotificationStore interface {
	Create(ctx context.Context, notif *models.Notification) error
	ListForUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	FindForReceiver(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error)
	AddReader(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error)
	RemoveReader(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error)
	AddReaderToAll(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Hide(ctx context.Context, id, userID primitive.ObjectID) error
}

// SettingsStore holds the global notification settings document.
type SettingsStore interface {
	Get(ctx context.Context) (*models.NotificationSettings, error)
	Update(ctx context.Context, update repository.SettingsUpdate) (*models.NotificationSettings, error)
}

// Requester is the authenticated caller of an operation.
type Requester struct {
	ID   primitive.ObjectID
	Role string
}

// IsAdmin reports whether the caller has the admin role.
func (r Requester) IsAdmin() bool {
	return r.Role == models.RoleAdmin
}
