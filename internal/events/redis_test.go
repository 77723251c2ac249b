package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/keys"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr(), "")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisPublisher_PublishesAndKeepsLatest(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	p := NewRedisPublisher(client, time.Minute)

	sub := client.Subscribe(ctx, keys.EventChannel("s1"))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := p.Publish(ctx, New(KindRoundPrompt, "s1", RoundPrompt{Turn: 1})); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.Publish(ctx, New(KindRoundPrompt, "s1", RoundPrompt{Turn: 2})); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var e struct {
			Kind    Kind `json:"kind"`
			Payload struct {
				Turn int `json:"turn"`
			} `json:"payload"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if e.Kind != KindRoundPrompt || e.Payload.Turn != 1 {
			t.Fatalf("unexpected message %s", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no message on the session channel")
	}

	latest, err := p.Latest(ctx, "s1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	var e struct {
		Payload struct {
			Turn int `json:"turn"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(latest, &e); err != nil || e.Payload.Turn != 2 {
		t.Fatalf("latest should be turn 2, got %s (%v)", latest, err)
	}
	if ttl := mr.TTL(keys.SessionSnapshot("s1")); ttl != time.Minute {
		t.Fatalf("snapshot ttl = %v", ttl)
	}
}

func TestRedisPublisher_LatestMissing(t *testing.T) {
	_, client := newTestRedis(t)
	p := NewRedisPublisher(client, time.Minute)
	latest, err := p.Latest(context.Background(), "nope")
	if err != nil || latest != nil {
		t.Fatalf("expected nothing cached, got %s, %v", latest, err)
	}
}
