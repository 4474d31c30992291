package repository

import (
	"context"
	"fmt"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// HabitRepository is a read-only view of the habits collection used for targeting.
type HabitRepository struct {
	collection *mongo.Collection
}

// NewHabitRepository creates a new instance of HabitRepository
func NewHabitRepository(db *mongo.Database) *HabitRepository {
	return &HabitRepository{
		collection: db.Collection("habits"),
	}
}

// OwnersByCategory returns the distinct owners of non-deleted habits in category.
func (r *HabitRepository) OwnersByCategory(ctx context.Context, category string) ([]primitive.ObjectID, error) {
	values, err := r.collection.Distinct(ctx, "userId", bson.M{
		"category":  category,
		"isDeleted": bson.M{"$ne": true},
	})
	if err != nil {
		logger.Log.WithError(err).WithField("category", category).Error("Failed to fetch habit owners")
		return nil, fmt.Errorf("failed to fetch habit owners: %w", err)
	}

	owners := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		id, ok := v.(primitive.ObjectID)
		if !ok {
			continue
		}
		owners = append(owners, id)
	}

	logger.Log.WithFields(map[string]interface{}{
		"category": category,
		"count":    len(owners),
	}).Debug("Habit owners fetched")
	return owners, nil
}

// FindActiveByPreferredTime returns active, non-deleted habits whose reminder window is one of times.
func (r *HabitRepository) FindActiveByPreferredTime(ctx context.Context, times []string) ([]models.Habit, error) {
	filter := bson.M{
		"preferredTime": bson.M{"$in": times},
		"active":        true,
		"isDeleted":     bson.M{"$ne": true},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch habits by preferred time")
		return nil, fmt.Errorf("failed to fetch habits: %w", err)
	}
	defer cursor.Close(ctx)

	var habits []models.Habit
	if err := cursor.All(ctx, &habits); err != nil {
		logger.Log.WithError(err).Error("Failed to decode habits")
		return nil, fmt.Errorf("failed to decode habits: %w", err)
	}
	return habits, nil
}
