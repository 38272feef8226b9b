package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Connect opens the Redis client shared by the bus bridge and the
// matchmaking lock. The client name shows up in CLIENT LIST, which keeps
// nodes tellable apart when several share one Redis.
func Connect(redisURL, clientName string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opt.ClientName = clientName

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return client, nil
}
