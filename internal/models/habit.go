package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Habit categories.
const (
	CategoryHealth       = "health"
	CategoryFitness      = "fitness"
	CategoryLearning     = "learning"
	CategoryProductivity = "productivity"
	CategoryMindfulness  = "mindfulness"
	CategorySocial       = "social"
	CategoryOther        = "other"
)

// HabitTimeAllDay marks a habit without a specific time window.
const HabitTimeAllDay = "allDay"

var habitCategories = map[string]struct{}{
	CategoryHealth:       {},
	CategoryFitness:      {},
	CategoryLearning:     {},
	CategoryProductivity: {},
	CategoryMindfulness:  {},
	CategorySocial:       {},
	CategoryOther:        {},
}

// Habit is the part of a tracked habit the notification engine needs:
// ownership, category targeting and the reminder window.
type Habit struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Name          string             `bson:"name" json:"name"`
	Category      string             `bson:"category" json:"category"`
	PreferredTime string             `bson:"preferredTime" json:"preferredTime"`
	Active        bool               `bson:"active" json:"active"`
	IsDeleted     bool               `bson:"isDeleted" json:"-"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// IsValidCategory reports whether c is a known habit category.
func IsValidCategory(c string) bool {
	_, ok := habitCategories[c]
	return ok
}
