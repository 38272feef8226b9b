package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is a best-effort cluster lock around the matchmaking sweep. Only one
// node should pair the queue at a time; the TTL covers a crashed holder.
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewLock(client *redis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{client: client, key: key, ttl: ttl}
}

// TryAcquire returns true if this node now holds the lock.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, "1", l.ttl).Result()
}

func (l *Lock) Release(ctx context.Context) error {
	return l.client.Del(ctx, l.key).Err()
}
