package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SettingsRepository stores the single global notification settings document.
type SettingsRepository struct {
	collection *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{
		collection: db.Collection("notification_settings"),
	}
}

// Get returns the settings, creating the document with defaults on first access.
func (r *SettingsRepository) Get(ctx context.Context) (*models.NotificationSettings, error) {
	return r.upsert(ctx, bson.M{})
}

// Update applies update and returns the resulting settings.
func (r *SettingsRepository) Update(ctx context.Context, update SettingsUpdate) (*models.NotificationSettings, error) {
	set := update.bson()
	set["updatedAt"] = time.Now()
	return r.upsert(ctx, set)
}

func (r *SettingsRepository) upsert(ctx context.Context, set bson.M) (*models.NotificationSettings, error) {
	defaults := models.DefaultNotificationSettings()
	onInsert := bson.M{
		"habitReminderNotify":   defaults.HabitReminderNotify,
		"streakMilestoneNotify": defaults.StreakMilestoneNotify,
		"weeklySummaryNotify":   defaults.WeeklySummaryNotify,
		"monthlySummaryNotify":  defaults.MonthlySummaryNotify,
		"createdAt":             defaults.CreatedAt,
		"updatedAt":             defaults.UpdatedAt,
	}
	// A path may not appear in both $set and $setOnInsert.
	for k := range set {
		delete(onInsert, k)
	}

	update := bson.M{"$setOnInsert": onInsert}
	if len(set) > 0 {
		update["$set"] = set
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var settings models.NotificationSettings
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{}, update, opts).Decode(&settings); err != nil {
		logger.Log.WithError(err).Error("Failed to load notification settings")
		return nil, fmt.Errorf("failed to load notification settings: %w", err)
	}
	return &settings, nil
}
