// Package memory provides in-process implementations of the repositories.
// They are used by tests and by the STORAGE=memory mode, and follow the same
// semantics as the Mongo repositories: set updates are atomic under a mutex and
// every value returned is a copy.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Users is an in-memory user directory.
type Users struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
	order []primitive.ObjectID
}

func NewUsers() *Users {
	return &Users{users: make(map[primitive.ObjectID]models.User)}
}

// Add stores u, assigning an ID when it has none, and returns the stored copy.
func (s *Users) Add(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, exists := s.users[u.ID]; !exists {
		s.order = append(s.order, u.ID)
	}
	s.users[u.ID] = u
	return cloneUser(u)
}

func (s *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if u := s.users[id]; u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Users) FindMany(_ context.Context, filter repository.UserFilter) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids map[primitive.ObjectID]struct{}
	if filter.IDs != nil {
		ids = make(map[primitive.ObjectID]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	var out []*models.User
	for _, id := range s.order {
		u := s.users[id]
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.ExcludeDeleted && u.IsDeleted {
			continue
		}
		if ids != nil {
			if _, ok := ids[u.ID]; !ok {
				continue
			}
		}
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (s *Users) UpdatePreferences(_ context.Context, id primitive.ObjectID, update repository.PreferencesUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.IsDeleted {
		return nil, repository.ErrNotFound
	}
	if update.NotificationsEnabled != nil {
		u.NotificationsEnabled = models.Bool(*update.NotificationsEnabled)
	}
	if update.InApp != nil {
		u.Preferences.Notifications = models.Bool(*update.InApp)
	}
	if update.EmailReminders != nil {
		u.Preferences.EmailReminders = models.Bool(*update.EmailReminders)
	}
	if update.Theme != nil {
		u.Preferences.Theme = *update.Theme
	}
	if update.PreferredNotificationTime != nil {
		u.PreferredNotificationTime = *update.PreferredNotificationTime
	}
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return cloneUser(u), nil
}

// Habits is an in-memory habit directory.
type Habits struct {
	mu     sync.RWMutex
	habits []models.Habit
}

func NewHabits() *Habits {
	return &Habits{}
}

// Add stores h, assigning an ID when it has none, and returns the stored copy.
func (s *Habits) Add(h models.Habit) models.Habit {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID.IsZero() {
		h.ID = primitive.NewObjectID()
	}
	s.habits = append(s.habits, h)
	return h
}

func (s *Habits) OwnersByCategory(_ context.Context, category string) ([]primitive.ObjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[primitive.ObjectID]struct{})
	var owners []primitive.ObjectID
	for _, h := range s.habits {
		if h.Category != category || h.IsDeleted {
			continue
		}
		if _, ok := seen[h.UserID]; ok {
			continue
		}
		seen[h.UserID] = struct{}{}
		owners = append(owners, h.UserID)
	}
	return owners, nil
}

func (s *Habits) FindActiveByPreferredTime(_ context.Context, times []string) ([]models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Habit
	for _, h := range s.habits {
		if !h.Active || h.IsDeleted || !contains(times, h.PreferredTime) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// Notifications is an in-memory notification store.
type Notifications struct {
	mu      sync.Mutex
	records []*models.Notification
	now     func() time.Time
}

func NewNotifications() *Notifications {
	return &Notifications{now: time.Now}
}

func (s *Notifications) Create(_ context.Context, notif *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	repository.PrepareForInsert(notif, s.now())
	s.records = append(s.records, cloneNotification(notif))
	return nil
}

func (s *Notifications) ListForUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Notification{}
	for _, n := range s.records {
		if n.VisibleTo(userID) {
			out = append(out, *cloneNotification(n))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Notifications) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, n := range s.records {
		if n.UnreadFor(userID) {
			count++
		}
	}
	return count, nil
}

func (s *Notifications) FindForReceiver(_ context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.find(id)
	if n == nil || !n.HasReceiver(userID) {
		return nil, repository.ErrNotFound
	}
	return cloneNotification(n), nil
}

func (s *Notifications) AddReader(_ context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.find(id)
	if n == nil || !n.VisibleTo(userID) {
		return nil, repository.ErrNotFound
	}
	if !n.IsReadBy(userID) {
		n.ReadBy = append(n.ReadBy, userID)
	}
	return cloneNotification(n), nil
}

func (s *Notifications) RemoveReader(_ context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.find(id)
	if n == nil || !n.VisibleTo(userID) {
		return nil, repository.ErrNotFound
	}
	n.ReadBy = without(n.ReadBy, userID)
	return cloneNotification(n), nil
}

func (s *Notifications) AddReaderToAll(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var modified int64
	for _, n := range s.records {
		if n.UnreadFor(userID) {
			n.ReadBy = append(n.ReadBy, userID)
			modified++
		}
	}
	return modified, nil
}

func (s *Notifications) Hide(_ context.Context, id, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.find(id)
	if n == nil || !n.HasReceiver(userID) {
		return repository.ErrNotFound
	}
	if !n.IsDeletedBy(userID) {
		n.DeletedBy = append(n.DeletedBy, userID)
	}
	return nil
}

// All returns a copy of every stored record, in insertion order.
func (s *Notifications) All() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Notification, 0, len(s.records))
	for _, n := range s.records {
		out = append(out, *cloneNotification(n))
	}
	return out
}

func (s *Notifications) find(id primitive.ObjectID) *models.Notification {
	for _, n := range s.records {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Settings is an in-memory global settings store.
type Settings struct {
	mu       sync.Mutex
	settings *models.NotificationSettings
}

func NewSettings() *Settings {
	return &Settings{}
}

func (s *Settings) Get(_ context.Context) (*models.NotificationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensure()
	out := *s.settings
	return &out, nil
}

func (s *Settings) Update(_ context.Context, update repository.SettingsUpdate) (*models.NotificationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensure()
	if update.HabitReminderNotify != nil {
		s.settings.HabitReminderNotify = *update.HabitReminderNotify
	}
	if update.StreakMilestoneNotify != nil {
		s.settings.StreakMilestoneNotify = *update.StreakMilestoneNotify
	}
	if update.WeeklySummaryNotify != nil {
		s.settings.WeeklySummaryNotify = *update.WeeklySummaryNotify
	}
	if update.MonthlySummaryNotify != nil {
		s.settings.MonthlySummaryNotify = *update.MonthlySummaryNotify
	}
	s.settings.UpdatedAt = time.Now()
	out := *s.settings
	return &out, nil
}

func (s *Settings) ensure() {
	if s.settings == nil {
		d := models.DefaultNotificationSettings()
		d.ID = primitive.NewObjectID()
		s.settings = &d
	}
}

func cloneUser(u models.User) *models.User {
	if u.NotificationsEnabled != nil {
		u.NotificationsEnabled = models.Bool(*u.NotificationsEnabled)
	}
	if u.Preferences.Notifications != nil {
		u.Preferences.Notifications = models.Bool(*u.Preferences.Notifications)
	}
	if u.Preferences.EmailReminders != nil {
		u.Preferences.EmailReminders = models.Bool(*u.Preferences.EmailReminders)
	}
	return &u
}

func cloneNotification(n *models.Notification) *models.Notification {
	c := *n
	c.Receivers = append([]primitive.ObjectID{}, n.Receivers...)
	c.ReadBy = append([]primitive.ObjectID{}, n.ReadBy...)
	c.DeletedBy = append([]primitive.ObjectID{}, n.DeletedBy...)
	if n.Sender != nil {
		sender := *n.Sender
		c.Sender = &sender
	}
	if n.RelatedHabitID != nil {
		habitID := *n.RelatedHabitID
		c.RelatedHabitID = &habitID
	}
	return &c
}

func without(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
