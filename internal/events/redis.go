package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/keys"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events on a per-session channel and keeps the
// latest one under the session snapshot key so late subscribers can catch
// up.
type RedisPublisher struct {
	client      redis.UniversalClient
	snapshotTTL time.Duration
}

func NewRedisPublisher(client redis.UniversalClient, snapshotTTL time.Duration) *RedisPublisher {
	return &RedisPublisher{client: client, snapshotTTL: snapshotTTL}
}

// Connect opens a client for addr and checks it with PING.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Kind, err)
	}
	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, keys.EventChannel(e.SessionID), b)
	pipe.Set(ctx, keys.SessionSnapshot(e.SessionID), b, p.snapshotTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s event: %w", e.Kind, err)
	}
	return nil
}

// Latest returns the last event stored for sessionID, or nil when none is
// cached.
func (p *RedisPublisher) Latest(ctx context.Context, sessionID string) (json.RawMessage, error) {
	b, err := p.client.Get(ctx, keys.SessionSnapshot(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read session snapshot: %w", err)
	}
	return b, nil
}
