package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ReplayGuard implements ports.ReplayGuard using Redis SET NX. Providers
// redeliver webhooks aggressively; only the first sighting of an event key
// drives a state transition.
type ReplayGuard struct {
	client *goredis.Client
	prefix string
}

// NewReplayGuard creates a new Redis-backed replay guard.
func NewReplayGuard(client *goredis.Client) *ReplayGuard {
	return &ReplayGuard{
		client: client,
		prefix: "webhook:",
	}
}

// FirstSeen atomically records the event key. Returns true on first
// sighting, false for a replay.
func (g *ReplayGuard) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := g.client.SetArgs(ctx, g.prefix+key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists, event was already processed
			return false, nil
		}
		return false, fmt.Errorf("redis replay check: %w", err)
	}
	return result == "OK", nil
}
