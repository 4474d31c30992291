package services

import (
	"context"
	"testing"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/repository"
	"github.com/Dias221467/habit_tracker/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSettingsService(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingsService(memory.NewSettings())
	admin := Requester{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	user := Requester{ID: primitive.NewObjectID(), Role: models.RoleUser}

	settings, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, settings.HabitReminderNotify)

	_, err = svc.Update(ctx, user, repository.SettingsUpdate{HabitReminderNotify: models.Bool(false)})
	assert.ErrorIs(t, err, ErrForbidden)

	settings, err = svc.Update(ctx, admin, repository.SettingsUpdate{WeeklySummaryNotify: models.Bool(false)})
	require.NoError(t, err)
	assert.False(t, settings.WeeklySummaryNotify)
	assert.True(t, settings.HabitReminderNotify)
}

func TestPreferenceService(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUsers()
	svc := NewPreferenceService(users)
	u := users.Add(models.User{Email: "p@example.com", Role: models.RoleUser})

	summary, err := svc.Get(ctx, Requester{ID: u.ID, Role: u.Role})
	require.NoError(t, err)
	assert.False(t, summary.NotificationsEnabled)
	assert.Equal(t, models.TimeMorning, summary.PreferredNotificationTime)
	assert.False(t, summary.CanReceiveInApp)

	midnight := "midnight"
	_, err = svc.Update(ctx, Requester{ID: u.ID}, PreferencesPatch{PreferredNotificationTime: &midnight})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(ctx, Requester{ID: u.ID}, PreferencesPatch{})
	assert.ErrorIs(t, err, ErrValidation)

	evening := models.TimeEvening
	summary, err = svc.Update(ctx, Requester{ID: u.ID}, PreferencesPatch{
		NotificationsEnabled:      models.Bool(true),
		InAppNotifications:        models.Bool(true),
		PreferredNotificationTime: &evening,
	})
	require.NoError(t, err)
	assert.True(t, summary.CanReceiveInApp)
	assert.False(t, summary.CanReceiveEmail)
	assert.Equal(t, models.TimeEvening, summary.PreferredNotificationTime)

	_, err = svc.Get(ctx, Requester{ID: primitive.NewObjectID()})
	assert.ErrorIs(t, err, ErrNotFound)
}
