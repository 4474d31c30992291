package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/repository/memory"
	"github.com/Dias221467/habit_tracker/pkg/email"
	"github.com/stretchr/testify/mock"
)

type emitted struct {
	channel string
	event   string
	payload any
}

// recordingEmitter records every emit and fails for the channels in failFor.
type recordingEmitter struct {
	mu      sync.Mutex
	events  []emitted
	failFor map[string]error
}

func (e *recordingEmitter) Emit(channel, event string, payload any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err, ok := e.failFor[channel]; ok {
		return err
	}
	e.events = append(e.events, emitted{channel: channel, event: event, payload: payload})
	return nil
}

func (e *recordingEmitter) count(channel string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev.channel == channel {
			n++
		}
	}
	return n
}

func (e *recordingEmitter) all() []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]emitted(nil), e.events...)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

type fixture struct {
	users    *memory.Users
	habits   *memory.Habits
	store    *memory.Notifications
	settings *memory.Settings
	emitter  *recordingEmitter
	mailer   *mockMailer

	notifications *NotificationService
	reminders     *ReminderService
}

var userSeq atomic.Int64

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    memory.NewUsers(),
		habits:   memory.NewHabits(),
		store:    memory.NewNotifications(),
		settings: memory.NewSettings(),
		emitter:  &recordingEmitter{failFor: map[string]error{}},
		mailer:   &mockMailer{},
	}
	dispatcher := NewDispatcher(f.emitter, f.mailer)
	selector := NewRecipientSelector(f.users, f.habits)
	f.notifications = NewNotificationService(f.store, selector, dispatcher, f.settings)
	f.reminders = NewReminderService(f.habits, f.users, f.store, dispatcher, f.settings)
	return f
}

type userOpt func(*models.User)

func deleted() userOpt { return func(u *models.User) { u.IsDeleted = true } }

func disabled() userOpt { return func(u *models.User) { u.NotificationsEnabled = models.Bool(false) } }

func noInApp() userOpt { return func(u *models.User) { u.Preferences.Notifications = models.Bool(false) } }

func withEmail() userOpt { return func(u *models.User) { u.Preferences.EmailReminders = models.Bool(true) } }

func prefers(window string) userOpt {
	return func(u *models.User) { u.PreferredNotificationTime = window }
}

// addUser stores a user that accepts in-app notifications unless opts say otherwise.
func (f *fixture) addUser(role string, opts ...userOpt) *models.User {
	u := models.User{
		Email:                fmt.Sprintf("user%d@example.com", userSeq.Add(1)),
		Role:                 role,
		NotificationsEnabled: models.Bool(true),
		Preferences:          models.UserPreferences{Notifications: models.Bool(true)},
	}
	for _, opt := range opts {
		opt(&u)
	}
	return f.users.Add(u)
}

func requester(u *models.User) Requester {
	return Requester{ID: u.ID, Role: u.Role}
}
