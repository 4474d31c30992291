package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/habit_tracker/internal/config"
	"github.com/Dias221467/habit_tracker/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrFailedToConnect     = errors.New("failed to connect to mongo")
	ErrHealthcheckFailed   = errors.New("mongo healthcheck failed")
	ErrIndexCreationFailed = errors.New("failed to create mongo indexes")
)

// ConnectDB connects to MongoDB, retrying on failure, and returns the configured database.
func ConnectDB(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, error) {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		client, err := mongo.Connect(ctx, options.Client().
			ApplyURI(cfg.URI).
			SetConnectTimeout(cfg.ConnectTimeout).
			SetMaxPoolSize(cfg.MaxPoolSize))
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				logger.Log.WithField("database", cfg.Database).Info("Connected to MongoDB")
				return client.Database(cfg.Database), nil
			}
			_ = client.Disconnect(ctx)
		}
		lastErr = err

		logger.Log.WithError(err).WithField("attempt", i+1).Warn("MongoDB connection attempt failed")
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(ErrFailedToConnect, ctx.Err())
			case <-time.After(cfg.RetryInterval):
			}
		}
	}

	return nil, errors.Join(ErrFailedToConnect, lastErr)
}

// Healthcheck returns a probe that pings the database server.
func Healthcheck(db *mongo.Database) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := db.Client().Ping(ctx, nil); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// EnsureIndexes creates the indexes the notification queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		"notifications": {
			{Keys: bson.D{{Key: "receivers", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "isDeleted", Value: 1}}},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		"habits": {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "isDeleted", Value: 1}}},
			{Keys: bson.D{{Key: "preferredTime", Value: 1}, {Key: "active", Value: 1}}},
		},
	}

	for collection, idx := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, idx); err != nil {
			return errors.Join(ErrIndexCreationFailed, fmt.Errorf("%s: %w", collection, err))
		}
	}
	return nil
}
