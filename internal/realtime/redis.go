package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/habit_tracker/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var ErrRedisNotReady = errors.New("redis is not ready")

// ConnectRedis parses url and pings the server until it answers or attempts run out.
func ConnectRedis(ctx context.Context, url string, attempts int, interval time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(interval):
		}
	}
	return nil, ErrRedisNotReady
}

// relayMessage is what travels over the pub/sub channel between instances.
type relayMessage struct {
	Room  string          `json:"room"`
	Frame json.RawMessage `json:"frame"`
}

func encodeRelay(room, event string, payload any) ([]byte, error) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(relayMessage{Room: room, Frame: frame})
}

func decodeRelay(data []byte) (relayMessage, error) {
	var msg relayMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("failed to decode relay message: %w", err)
	}
	if msg.Room == "" || len(msg.Frame) == 0 {
		return msg, errors.New("relay message without room or frame")
	}
	return msg, nil
}

// RedisEmitter publishes events to a Redis channel instead of writing to sockets.
// Every instance runs a Relay that hands the events to its local Hub, so a user
// connected to any instance receives them.
type RedisEmitter struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

func NewRedisEmitter(client *redis.Client, channel string) *RedisEmitter {
	return &RedisEmitter{client: client, channel: channel, timeout: 5 * time.Second}
}

func (e *RedisEmitter) Emit(room, event string, payload any) error {
	msg, err := encodeRelay(room, event, payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	if err := e.client.Publish(ctx, e.channel, msg).Err(); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", event, room, err)
	}
	return nil
}

// Relay forwards events published on channel to the local hub until ctx is done.
func Relay(ctx context.Context, client *redis.Client, channel string, hub *Hub) error {
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	logger.Log.WithField("channel", channel).Info("Realtime relay subscribed")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-messages:
			if !ok {
				return nil
			}
			relayToHub(hub, []byte(m.Payload))
		}
	}
}

func relayToHub(hub *Hub, data []byte) {
	msg, err := decodeRelay(data)
	if err != nil {
		logger.Log.WithError(err).Warn("Skipping malformed relay message")
		return
	}
	if err := hub.Deliver(msg.Room, msg.Frame); err != nil {
		logger.Log.WithError(err).WithField("room", msg.Room).Warn("Relay delivery failed")
	}
}
