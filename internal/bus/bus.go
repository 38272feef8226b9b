package bus

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Bus is the cross-connection delivery layer. Every WebSocket connection
// registers a named channel and joins any number of groups; messages sent to
// a group reach every member channel. A single-node deployment uses LocalBus;
// multi-node deployments wrap it with RedisBus so group sends reach members
// connected to other nodes.
type Bus interface {
	// Register creates a delivery channel. The returned Go channel is owned
	// by the bus and closed on Unregister.
	Register(channel string) <-chan []byte
	Unregister(channel string)

	GroupAdd(group, channel string)
	GroupDiscard(group, channel string)

	GroupSend(ctx context.Context, group string, message interface{}) error
	Send(ctx context.Context, channel string, message interface{}) error
}

const sendBuffer = 256

// LocalBus is the in-process implementation.
type LocalBus struct {
	mu       sync.RWMutex
	channels map[string]chan []byte
	groups   map[string]map[string]struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{
		channels: make(map[string]chan []byte),
		groups:   make(map[string]map[string]struct{}),
	}
}

func (b *LocalBus) Register(channel string) <-chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, exists := b.channels[channel]; exists {
		close(old)
	}
	ch := make(chan []byte, sendBuffer)
	b.channels[channel] = ch
	return ch
}

func (b *LocalBus) Unregister(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, exists := b.channels[channel]; exists {
		close(ch)
		delete(b.channels, channel)
	}
	for group, members := range b.groups {
		delete(members, channel)
		if len(members) == 0 {
			delete(b.groups, group)
		}
	}
}

func (b *LocalBus) GroupAdd(group, channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.groups[group]; !exists {
		b.groups[group] = make(map[string]struct{})
	}
	b.groups[group][channel] = struct{}{}
}

func (b *LocalBus) GroupDiscard(group, channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if members, exists := b.groups[group]; exists {
		delete(members, channel)
		if len(members) == 0 {
			delete(b.groups, group)
		}
	}
}

func (b *LocalBus) GroupSend(ctx context.Context, group string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	b.deliverGroup(group, data)
	return nil
}

func (b *LocalBus) Send(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	b.deliverChannel(channel, data)
	return nil
}

func (b *LocalBus) deliverGroup(group string, data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	members, exists := b.groups[group]
	if !exists {
		return
	}
	for channel := range members {
		if ch, ok := b.channels[channel]; ok {
			select {
			case ch <- data:
			default:
				// Member's buffer is full
				log.Printf("[BUS] Dropping message for channel %s in group %s (buffer full)", channel, group)
			}
		}
	}
}

func (b *LocalBus) deliverChannel(channel string, data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if ch, ok := b.channels[channel]; ok {
		select {
		case ch <- data:
		default:
			log.Printf("[BUS] Dropping message for channel %s (buffer full)", channel)
		}
	}
}
