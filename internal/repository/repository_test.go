package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func notificationDoc(id primitive.ObjectID, receivers ...primitive.ObjectID) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "receivers", Value: receivers},
		{Key: "type", Value: string(models.TypeSystem)},
		{Key: "title", Value: "Maintenance"},
		{Key: "message", Value: "Tonight"},
		{Key: "readBy", Value: bson.A{}},
		{Key: "deletedBy", Value: bson.A{}},
		{Key: "createdAt", Value: time.Now()},
	}
}

func TestNotificationRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	userID := primitive.NewObjectID()

	mt.Run("create normalises the record", func(mt *mtest.T) {
		repo := NewNotificationRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		notif := &models.Notification{
			Receivers: []primitive.ObjectID{userID, userID},
			ReadBy:    []primitive.ObjectID{userID},
			Type:      models.TypeSystem,
			Title:     "t",
			Message:   "m",
		}
		require.NoError(mt, repo.Create(ctx, notif))
		assert.False(mt, notif.ID.IsZero())
		assert.Equal(mt, []primitive.ObjectID{userID}, notif.Receivers)
		assert.Empty(mt, notif.ReadBy)
		assert.False(mt, notif.CreatedAt.IsZero())
	})

	mt.Run("list decodes visible notifications", func(mt *mtest.T) {
		repo := NewNotificationRepository(mt.DB)
		first, second := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "habit_tracker.notifications", mtest.FirstBatch,
			notificationDoc(first, userID),
			notificationDoc(second, userID),
		))

		list, err := repo.ListForUser(ctx, userID, 50)
		require.NoError(mt, err)
		require.Len(mt, list, 2)
		assert.Equal(mt, first, list[0].ID)
		assert.Equal(mt, []primitive.ObjectID{userID}, list[1].Receivers)
	})

	mt.Run("list of nothing is empty, not nil", func(mt *mtest.T) {
		repo := NewNotificationRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "habit_tracker.notifications", mtest.FirstBatch))

		list, err := repo.ListForUser(ctx, userID, 50)
		require.NoError(mt, err)
		assert.NotNil(mt, list)
		assert.Empty(mt, list)
	})

	mt.Run("count unread", func(mt *mtest.T) {
		repo := NewNotificationRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "habit_tracker.notifications", mtest.FirstBatch,
			bson.D{{Key: "n", Value: int32(3)}},
		))

		count, err := repo.CountUnread(ctx, userID)
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), count)
	})

	mt.Run("add reader returns the updated record", func(mt *mtest.T) {
		repo := NewNotificationRepository(mt.DB)
		id := primitive.NewObjectID()
		doc := notificationDoc(id, userID)
		doc[5] = bson.E{Key: "readBy", Value: bson.A{userID}}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc}))

		notif, err := repo.AddReader(ctx, id, userID)
		require.NoError(mt, err)
		assert.True(mt, notif.IsReadBy(userID))
	})

	mt.Run("add reader on an invisible record is not found", func(mt *mtest.T) {
		repo := NewNotificationRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.AddReader(ctx, primitive.NewObjectID(), userID)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("add reader to all reports modified count", func(mt *mtest.T) {
		repo := NewNotificationRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(2)},
			bson.E{Key: "nModified", Value: int32(2)},
		))

		modified, err := repo.AddReaderToAll(ctx, userID)
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), modified)
	})

	mt.Run("hide", func(mt *mtest.T) {
		repo := NewNotificationRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}, bson.E{Key: "nModified", Value: int32(0)}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}, bson.E{Key: "nModified", Value: int32(0)}),
		)

		assert.NoError(mt, repo.Hide(ctx, primitive.NewObjectID(), userID))
		assert.ErrorIs(mt, repo.Hide(ctx, primitive.NewObjectID(), userID), ErrNotFound)
	})

	mt.Run("driver errors are wrapped", func(mt *mtest.T) {
		repo := NewNotificationRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad query"}))

		_, err := repo.CountUnread(ctx, userID)
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, ErrNotFound)
		assert.Contains(mt, err.Error(), "failed to count unread notifications")
	})
}

func TestUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("find by id", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "habit_tracker.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "email", Value: "a@example.com"},
			{Key: "role", Value: models.RoleAdmin},
			{Key: "notificationsEnabled", Value: true},
		}))

		user, err := repo.FindByID(ctx, id)
		require.NoError(mt, err)
		assert.Equal(mt, "a@example.com", user.Email)
		assert.True(mt, user.IsAdmin())
		require.NotNil(mt, user.NotificationsEnabled)
		assert.True(mt, *user.NotificationsEnabled)
		assert.Nil(mt, user.Preferences.Notifications)
	})

	mt.Run("find by email not found", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "habit_tracker.users", mtest.FirstBatch))

		_, err := repo.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("find many", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "habit_tracker.users", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "role", Value: models.RoleUser}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "role", Value: models.RoleUser}},
		))

		users, err := repo.FindMany(ctx, UserFilter{Role: models.RoleUser, ExcludeDeleted: true})
		require.NoError(mt, err)
		assert.Len(mt, users, 2)
	})

	mt.Run("update preferences of a missing user", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.UpdatePreferences(ctx, primitive.NewObjectID(), PreferencesUpdate{NotificationsEnabled: models.Bool(true)})
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestHabitRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("owners by category skips non-id values", func(mt *mtest.T) {
		repo := NewHabitRepository(mt.DB)
		owner := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "values", Value: bson.A{owner, "legacy"}}))

		owners, err := repo.OwnersByCategory(ctx, models.CategoryFitness)
		require.NoError(mt, err)
		assert.Equal(mt, []primitive.ObjectID{owner}, owners)
	})

	mt.Run("active habits by window", func(mt *mtest.T) {
		repo := NewHabitRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "habit_tracker.habits", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "userId", Value: primitive.NewObjectID()},
			{Key: "name", Value: "Stretch"},
			{Key: "preferredTime", Value: models.TimeMorning},
			{Key: "active", Value: true},
		}))

		habits, err := repo.FindActiveByPreferredTime(ctx, []string{models.TimeMorning, models.HabitTimeAllDay})
		require.NoError(mt, err)
		require.Len(mt, habits, 1)
		assert.Equal(mt, "Stretch", habits[0].Name)
	})
}

func TestSettingsRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("update returns the stored settings", func(mt *mtest.T) {
		repo := NewSettingsRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "habitReminderNotify", Value: false},
			{Key: "streakMilestoneNotify", Value: true},
			{Key: "weeklySummaryNotify", Value: true},
			{Key: "monthlySummaryNotify", Value: true},
		}}))

		settings, err := repo.Update(ctx, SettingsUpdate{HabitReminderNotify: models.Bool(false)})
		require.NoError(mt, err)
		assert.False(mt, settings.HabitReminderNotify)
		assert.True(mt, settings.StreakMilestoneNotify)
	})
}

func TestFilters(t *testing.T) {
	id := primitive.NewObjectID()
	f := UserFilter{Role: models.RoleAdmin, IDs: []primitive.ObjectID{id}, ExcludeDeleted: true}.bson()
	assert.Equal(t, models.RoleAdmin, f["role"])
	assert.Equal(t, bson.M{"$in": []primitive.ObjectID{id}}, f["_id"])
	assert.Equal(t, bson.M{"$ne": true}, f["isDeleted"])

	assert.True(t, PreferencesUpdate{}.IsEmpty())
	set := PreferencesUpdate{InApp: models.Bool(false), PreferredNotificationTime: strPtr(models.TimeEvening)}.bson()
	assert.Equal(t, false, set["preferences.notifications"])
	assert.Equal(t, models.TimeEvening, set["preferredNotificationTime"])
}

func strPtr(s string) *string { return &s }
