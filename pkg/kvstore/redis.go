package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "asrama:kv:"

type changeMessage struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// Redis stores values as plain Redis strings and announces every write on
// a pub/sub channel so other replicas can react.
type Redis struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
	subs    listeners
}

// NewRedis wraps a connected client.
func NewRedis(client *redis.Client, channel string, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, channel: channel, origin: uuid.NewString(), logger: logger}
}

func (r *Redis) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	raw, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return json.RawMessage(raw), true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value json.RawMessage) error {
	if err := r.client.Set(ctx, keyPrefix+key, []byte(value), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	payload, err := json.Marshal(changeMessage{Key: key, Origin: r.origin})
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		// The value is stored; peers will catch up on their next change.
		r.logger.Warn("publish kv change failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (r *Redis) Subscribe(fn func(key string)) func() {
	return r.subs.add(fn)
}

// Listen consumes the change channel until ctx is cancelled.
func (r *Redis) Listen(ctx context.Context) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handleMessage(msg.Payload)
		}
	}
}

func (r *Redis) handleMessage(payload string) {
	var msg changeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.logger.Warn("ignoring malformed kv change message", zap.Error(err))
		return
	}
	if msg.Origin == r.origin || msg.Key == "" {
		return
	}
	r.subs.notify(msg.Key)
}

func (r *Redis) Close() error {
	return r.client.Close()
}
