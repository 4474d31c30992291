package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository persists shared notification records.
// readBy and deletedBy are only ever changed with $addToSet/$pull so concurrent
// requests of the same user converge without read-modify-write.
type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// Create inserts a new notification. Receivers are stored as given, minus duplicates.
func (r *NotificationRepository) Create(ctx context.Context, notif *models.Notification) error {
	PrepareForInsert(notif, time.Now())

	_, err := r.collection.InsertOne(ctx, notif)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert notification")
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListForUser returns the notifications visible to userID, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, visibleTo(userID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

// CountUnread counts visible notifications userID has not read.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	filter := visibleTo(userID)
	filter["readBy"] = bson.M{"$ne": userID}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// FindForReceiver returns the notification if userID is one of its receivers.
func (r *NotificationRepository) FindForReceiver(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	var notif models.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "receivers": userID}).Decode(&notif)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return &notif, nil
}

// AddReader marks the notification as read by userID and returns the updated record.
func (r *NotificationRepository) AddReader(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	return r.updateVisible(ctx, id, userID, bson.M{"$addToSet": bson.M{"readBy": userID}})
}

// RemoveReader marks the notification as unread for userID and returns the updated record.
func (r *NotificationRepository) RemoveReader(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	return r.updateVisible(ctx, id, userID, bson.M{"$pull": bson.M{"readBy": userID}})
}

// AddReaderToAll marks every visible notification of userID as read.
func (r *NotificationRepository) AddReaderToAll(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	filter := visibleTo(userID)
	filter["readBy"] = bson.M{"$ne": userID}

	result, err := r.collection.UpdateMany(ctx, filter, bson.M{"$addToSet": bson.M{"readBy": userID}})
	if err != nil {
		logrus.WithError(err).WithField("userID", userID.Hex()).Error("Failed to mark all notifications as read")
		return 0, fmt.Errorf("failed to mark all as read: %w", err)
	}
	return result.ModifiedCount, nil
}

// Hide removes the notification from userID's view. Other receivers are unaffected
// and hiding twice is a no-op.
func (r *NotificationRepository) Hide(ctx context.Context, id, userID primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "receivers": userID},
		bson.M{"$addToSet": bson.M{"deletedBy": userID}},
	)
	if err != nil {
		logrus.WithError(err).WithField("notificationID", id.Hex()).Error("Failed to hide notification")
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) updateVisible(ctx context.Context, id, userID primitive.ObjectID, update bson.M) (*models.Notification, error) {
	filter := visibleTo(userID)
	filter["_id"] = id

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var notif models.Notification
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&notif)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		logrus.WithError(err).WithField("notificationID", id.Hex()).Error("Failed to update notification")
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}
	return &notif, nil
}

func visibleTo(userID primitive.ObjectID) bson.M {
	return bson.M{
		"receivers": userID,
		"deletedBy": bson.M{"$ne": userID},
	}
}

// PrepareForInsert normalises a new record: assigns an ID, resets the per-user
// projections, removes duplicate receivers and stamps the creation time.
func PrepareForInsert(notif *models.Notification, now time.Time) {
	if notif.ID.IsZero() {
		notif.ID = primitive.NewObjectID()
	}
	notif.Receivers = uniqueIDs(notif.Receivers)
	notif.ReadBy = []primitive.ObjectID{}
	notif.DeletedBy = []primitive.ObjectID{}
	notif.CreatedAt = now
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
