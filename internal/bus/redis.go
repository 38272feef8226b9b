package bus

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	groupPrefix   = "bus:group:"
	channelPrefix = "bus:chan:"
)

// RedisBus fans group and channel sends out through Redis pub/sub so they
// reach connections on every node. Membership stays node-local: each node
// subscribes to the full bus keyspace and delivers only to its own members.
type RedisBus struct {
	local *LocalBus
	rdb   *redis.Client
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{
		local: NewLocalBus(),
		rdb:   rdb,
	}
}

func (b *RedisBus) Register(channel string) <-chan []byte { return b.local.Register(channel) }
func (b *RedisBus) Unregister(channel string)             { b.local.Unregister(channel) }
func (b *RedisBus) GroupAdd(group, channel string)        { b.local.GroupAdd(group, channel) }
func (b *RedisBus) GroupDiscard(group, channel string)    { b.local.GroupDiscard(group, channel) }

func (b *RedisBus) GroupSend(ctx context.Context, group string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, groupPrefix+group, data).Err()
}

func (b *RedisBus) Send(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channelPrefix+channel, data).Err()
}

// Run consumes the bus keyspace and delivers to local members. It blocks
// until ctx is cancelled, so call it from its own goroutine.
func (b *RedisBus) Run(ctx context.Context) {
	pubsub := b.rdb.PSubscribe(ctx, "bus:*")
	defer pubsub.Close()

	log.Println("[BUS] Redis subscriber started")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Println("[BUS] Redis subscriber stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				log.Println("[BUS] Redis subscription closed")
				return
			}
			b.dispatch(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (b *RedisBus) dispatch(redisChannel string, payload []byte) {
	switch {
	case strings.HasPrefix(redisChannel, groupPrefix):
		b.local.deliverGroup(strings.TrimPrefix(redisChannel, groupPrefix), payload)
	case strings.HasPrefix(redisChannel, channelPrefix):
		b.local.deliverChannel(strings.TrimPrefix(redisChannel, channelPrefix), payload)
	default:
		log.Printf("[BUS] Ignoring message on unknown channel %s", redisChannel)
	}
}
