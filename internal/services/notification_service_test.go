package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/repository"
	"github.com/Dias221467/habit_tracker/pkg/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func broadcast(title, message string) BroadcastInput {
	return BroadcastInput{Title: title, Message: message}
}

func TestSendToUser_RejectsSelfTargetBeforeCreating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin)

	_, err := f.notifications.SendToUser(ctx, requester(admin), SendToUserInput{
		ReceiverID:     admin.ID.Hex(),
		BroadcastInput: broadcast("Hi", "me"),
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.notifications.SendToUser(ctx, requester(admin), SendToUserInput{
		ReceiverEmail:  admin.Email,
		BroadcastInput: broadcast("Hi", "me"),
	})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, f.store.All())
	assert.Empty(t, f.emitter.all())
}

func TestSendToUser_RoleRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.addUser(models.RoleUser)
	other := f.addUser(models.RoleUser)
	admin := f.addUser(models.RoleAdmin)
	gone := f.addUser(models.RoleAdmin, deleted())

	_, err := f.notifications.SendToUser(ctx, requester(user), SendToUserInput{ReceiverID: other.ID.Hex(), BroadcastInput: broadcast("t", "m")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.notifications.SendToUser(ctx, requester(user), SendToUserInput{ReceiverID: gone.ID.Hex(), BroadcastInput: broadcast("t", "m")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.notifications.SendToUser(ctx, requester(user), SendToUserInput{ReceiverID: primitive.NewObjectID().Hex(), BroadcastInput: broadcast("t", "m")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.notifications.SendToUser(ctx, requester(user), SendToUserInput{ReceiverID: "nope", BroadcastInput: broadcast("t", "m")})
	assert.ErrorIs(t, err, ErrValidation)

	res, err := f.notifications.SendToUser(ctx, requester(user), SendToUserInput{ReceiverID: admin.ID.Hex(), BroadcastInput: broadcast("Help", "please")})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{admin.ID}, res.Notification.Receivers)
	assert.Equal(t, models.TypeUser, res.Notification.Type)
	require.NotNil(t, res.Notification.Sender)
	assert.Equal(t, user.ID, *res.Notification.Sender)
	assert.Equal(t, 1, f.emitter.count(admin.ID.Hex()))

	res, err = f.notifications.SendToUser(ctx, requester(admin), SendToUserInput{ReceiverEmail: other.Email, BroadcastInput: broadcast("Hello", "there")})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{other.ID}, res.Notification.Receivers)
}

func TestSendToUser_ValidatesContent(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin)
	user := f.addUser(models.RoleUser)

	_, err := f.notifications.SendToUser(context.Background(), requester(admin), SendToUserInput{
		ReceiverID:     user.ID.Hex(),
		BroadcastInput: BroadcastInput{Title: "  ", Message: "", Type: "bogus"},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"title", "message", "type"}, fields)

	_, err = f.notifications.SendToUser(context.Background(), requester(admin), SendToUserInput{BroadcastInput: broadcast("t", "m")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendToAdmins_ExcludesSender(t *testing.T) {
	f := newFixture(t)
	sender := f.addUser(models.RoleAdmin)
	a2 := f.addUser(models.RoleAdmin)
	a3 := f.addUser(models.RoleAdmin, disabled())
	f.addUser(models.RoleAdmin, deleted())
	f.addUser(models.RoleUser)

	res, err := f.notifications.SendToAdmins(context.Background(), requester(sender), broadcast("Report", "abuse"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []primitive.ObjectID{a2.ID, a3.ID}, res.Notification.Receivers)
	assert.NotContains(t, res.Notification.Receivers, sender.ID)
	assert.Equal(t, 1, res.InAppCount)
	assert.Equal(t, 1, f.emitter.count(a2.ID.Hex()))
	assert.Zero(t, f.emitter.count(a3.ID.Hex()))
	assert.Zero(t, f.emitter.count(sender.ID.Hex()))
}

func TestSendToAllUsers_AdminOnlyAndKeepsIneligibleReceivers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin)
	eligible := f.addUser(models.RoleUser)
	muted := f.addUser(models.RoleUser, noInApp())
	off := f.addUser(models.RoleUser, disabled(), withEmail())
	f.addUser(models.RoleUser, deleted())

	_, err := f.notifications.SendToAllUsers(ctx, requester(eligible), broadcast("t", "m"))
	assert.ErrorIs(t, err, ErrForbidden)

	res, err := f.notifications.SendToAllUsers(ctx, requester(admin), broadcast("Update", "v2 is live"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []primitive.ObjectID{eligible.ID, muted.ID, off.ID}, res.Notification.Receivers)
	assert.Equal(t, models.TypeAdminBroadcast, res.Notification.Type)
	assert.Equal(t, 1, res.InAppCount)
	assert.Equal(t, 1, f.emitter.count(eligible.ID.Hex()))
	assert.Zero(t, f.emitter.count(muted.ID.Hex()))
	assert.Zero(t, f.emitter.count(off.ID.Hex()))

	// Ineligible receivers still see the record when they list.
	list, err := f.notifications.List(ctx, requester(muted))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSendToCategory_OwnersOfLiveHabits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin)

	var owners []primitive.ObjectID
	for i := 0; i < 3; i++ {
		u := f.addUser(models.RoleUser)
		owners = append(owners, u.ID)
		f.habits.Add(models.Habit{UserID: u.ID, Category: models.CategoryFitness, Name: "Run"})
	}
	// A second fitness habit must not duplicate its owner.
	f.habits.Add(models.Habit{UserID: owners[0], Category: models.CategoryFitness, Name: "Lift"})

	onlyDeleted := f.addUser(models.RoleUser)
	f.habits.Add(models.Habit{UserID: onlyDeleted.ID, Category: models.CategoryFitness, IsDeleted: true})
	other := f.addUser(models.RoleUser)
	f.habits.Add(models.Habit{UserID: other.ID, Category: models.CategoryLearning})

	res, err := f.notifications.SendToCategory(ctx, requester(admin), CategoryInput{
		Category:       models.CategoryFitness,
		BroadcastInput: broadcast("Challenge", "10k steps"),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, owners, res.Notification.Receivers)
	assert.Equal(t, models.CategoryFitness, res.Notification.Category)
	assert.Equal(t, models.TypeCategoryAlert, res.Notification.Type)

	_, err = f.notifications.SendToCategory(ctx, requester(admin), CategoryInput{Category: "cooking", BroadcastInput: broadcast("t", "m")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.notifications.SendToCategory(ctx, requester(other), CategoryInput{Category: models.CategoryFitness, BroadcastInput: broadcast("t", "m")})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSendSystem_RequiresReceivers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin)

	_, err := f.notifications.SendSystem(ctx, requester(admin), broadcast("Maintenance", "tonight"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.store.All())

	u := f.addUser(models.RoleUser)
	res, err := f.notifications.SendSystem(ctx, requester(admin), broadcast("Maintenance", "tonight"))
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{u.ID}, res.Notification.Receivers)
	assert.Equal(t, models.TypeSystem, res.Notification.Type)

	_, err = f.notifications.SendSystem(ctx, requester(u), broadcast("t", "m"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSend_PartialPushFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin)
	r1 := f.addUser(models.RoleUser)
	r2 := f.addUser(models.RoleUser)
	r3 := f.addUser(models.RoleUser)
	f.emitter.failFor[r2.ID.Hex()] = errors.New("socket closed")

	res, err := f.notifications.SendToAllUsers(context.Background(), requester(admin), broadcast("News", "hello"))
	require.NoError(t, err)

	require.Len(t, f.store.All(), 1)
	assert.Equal(t, 1, f.emitter.count(r1.ID.Hex()))
	assert.Equal(t, 1, f.emitter.count(r3.ID.Hex()))
	require.Len(t, res.PushFailures, 1)
	assert.Equal(t, r2.ID, res.PushFailures[0].UserID)

	for _, ev := range f.emitter.all() {
		assert.Equal(t, EventNewNotification, ev.event)
		notif, ok := ev.payload.(*models.Notification)
		require.True(t, ok)
		assert.Equal(t, res.Notification.ID, notif.ID)
	}
}

func TestSend_EmailsEligibleSubsetAndCollectsResults(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin)
	ok := f.addUser(models.RoleUser, withEmail())
	failing := f.addUser(models.RoleUser, withEmail())
	f.addUser(models.RoleUser)

	f.mailer.On("SendEmail", mock.Anything, mock.MatchedBy(func(p email.SendEmailParams) bool {
		return p.SendTo == failing.Email
	})).Return(errors.New("smtp down"))
	f.mailer.On("SendEmail", mock.Anything, mock.Anything).Return(nil)

	res, err := f.notifications.SendToAllUsers(context.Background(), requester(admin), BroadcastInput{
		Title:   "Weekly",
		Message: "summary",
		Email:   EmailTemplate{Subject: "Your week", HTML: "<p>Great</p>"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.EmailCount)
	require.Len(t, res.EmailResults, 2)
	statuses := map[primitive.ObjectID]string{}
	for _, r := range res.EmailResults {
		statuses[r.UserID] = r.Status
	}
	assert.Equal(t, EmailStatusSent, statuses[ok.ID])
	assert.Equal(t, EmailStatusFailed, statuses[failing.ID])
	f.mailer.AssertNumberOfCalls(t, "SendEmail", 2)
}

func TestSend_NoEmailWithoutTemplate(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin)
	f.addUser(models.RoleUser, withEmail())

	res, err := f.notifications.SendToAllUsers(context.Background(), requester(admin), broadcast("t", "m"))
	require.NoError(t, err)
	assert.Zero(t, res.EmailCount)
	f.mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
}

func TestRoundTripCreateThenList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin)
	user := f.addUser(models.RoleUser)

	_, err := f.notifications.SendToUser(ctx, requester(admin), SendToUserInput{
		ReceiverID:     user.ID.Hex(),
		BroadcastInput: BroadcastInput{Title: "Streak!", Message: "7 days in a row", Type: models.TypeStreakMilestone},
	})
	require.NoError(t, err)

	list, err := f.notifications.List(ctx, requester(user))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Streak!", list[0].Title)
	assert.Equal(t, "7 days in a row", list[0].Message)
	assert.Equal(t, models.TypeStreakMilestone, list[0].Type)
}

func TestReadState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin)
	u1 := f.addUser(models.RoleUser)
	u2 := f.addUser(models.RoleUser)
	outsider := f.addUser(models.RoleAdmin)

	var ids []primitive.ObjectID
	for i := 0; i < 3; i++ {
		res, err := f.notifications.SendToAllUsers(ctx, requester(admin), broadcast("t", "m"))
		require.NoError(t, err)
		ids = append(ids, res.Notification.ID)
	}

	count, err := f.notifications.UnreadCount(ctx, requester(u1))
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	t.Run("mark read is idempotent and per user", func(t *testing.T) {
		_, err := f.notifications.MarkRead(ctx, requester(u1), ids[0])
		require.NoError(t, err)
		n, err := f.notifications.MarkRead(ctx, requester(u1), ids[0])
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{u1.ID}, n.ReadBy)

		count, err := f.notifications.UnreadCount(ctx, requester(u2))
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)
	})

	t.Run("mark unread", func(t *testing.T) {
		n, err := f.notifications.MarkUnread(ctx, requester(u1), ids[0])
		require.NoError(t, err)
		assert.Empty(t, n.ReadBy)
		_, err = f.notifications.MarkUnread(ctx, requester(u1), ids[0])
		require.NoError(t, err)
	})

	t.Run("non receivers get not found", func(t *testing.T) {
		_, err := f.notifications.MarkRead(ctx, requester(outsider), ids[0])
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, f.notifications.Delete(ctx, requester(outsider), ids[0]), ErrNotFound)
	})

	t.Run("mark all read is idempotent", func(t *testing.T) {
		modified, err := f.notifications.MarkAllRead(ctx, requester(u1))
		require.NoError(t, err)
		assert.EqualValues(t, 3, modified)
		count, err := f.notifications.UnreadCount(ctx, requester(u1))
		require.NoError(t, err)
		assert.Zero(t, count)

		modified, err = f.notifications.MarkAllRead(ctx, requester(u1))
		require.NoError(t, err)
		assert.Zero(t, modified)
		count, err = f.notifications.UnreadCount(ctx, requester(u1))
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("delete is terminal per user", func(t *testing.T) {
		require.NoError(t, f.notifications.Delete(ctx, requester(u2), ids[1]))
		require.NoError(t, f.notifications.Delete(ctx, requester(u2), ids[1]))

		list, err := f.notifications.List(ctx, requester(u2))
		require.NoError(t, err)
		for _, n := range list {
			assert.NotEqual(t, ids[1], n.ID)
		}
		count, err := f.notifications.UnreadCount(ctx, requester(u2))
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)

		_, err = f.notifications.MarkRead(ctx, requester(u2), ids[1])
		assert.ErrorIs(t, err, ErrNotFound)

		// The other receiver still sees it.
		list, err = f.notifications.List(ctx, requester(u1))
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("projections stay subsets of receivers", func(t *testing.T) {
		for _, n := range f.store.All() {
			for _, id := range n.ReadBy {
				assert.Contains(t, n.Receivers, id)
			}
			for _, id := range n.DeletedBy {
				assert.Contains(t, n.Receivers, id)
			}
		}
	})
}

func TestSendHabitReminder(t *testing.T) {
	ctx := context.Background()

	t.Run("pushes to the caller only", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(models.RoleUser, prefers(models.TimeEvening))
		habitID := primitive.NewObjectID()

		res, err := f.notifications.SendHabitReminder(ctx, requester(u), HabitReminderInput{
			HabitID:   habitID.Hex(),
			HabitName: "Meditate",
			Message:   "Ten minutes",
		})
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{u.ID}, res.Notification.Receivers)
		assert.Equal(t, models.TypeHabitReminder, res.Notification.Type)
		assert.Equal(t, "Habit Reminder", res.Notification.Title)
		require.NotNil(t, res.Notification.RelatedHabitID)
		assert.Equal(t, habitID, *res.Notification.RelatedHabitID)

		events := f.emitter.all()
		require.Len(t, events, 1)
		assert.Equal(t, EventHabitReminder, events[0].event)
		payload, ok := events[0].payload.(HabitReminderPayload)
		require.True(t, ok)
		assert.Equal(t, "Meditate", payload.HabitName)
		assert.Equal(t, models.TimeEvening, payload.PreferredTime)
	})

	t.Run("rejected when in-app is off", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(models.RoleUser, noInApp())
		_, err := f.notifications.SendHabitReminder(ctx, requester(u), HabitReminderInput{HabitName: "Run", Message: "go"})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Empty(t, f.store.All())
	})

	t.Run("rejected when disabled globally", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(models.RoleUser)
		_, err := f.settings.Update(ctx, repository.SettingsUpdate{HabitReminderNotify: models.Bool(false)})
		require.NoError(t, err)

		_, err = f.notifications.SendHabitReminder(ctx, requester(u), HabitReminderInput{HabitName: "Run", Message: "go"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("requires habit name and message", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(models.RoleUser)
		_, err := f.notifications.SendHabitReminder(ctx, requester(u), HabitReminderInput{})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Fields, 2)
	})
}
