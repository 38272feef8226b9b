package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pongarena/backend/internal/game"
	"github.com/pongarena/backend/internal/store"
)

// ServeMatchmaking handles /ws/matchmaking. The connection stays open while
// the player waits; match_found arrives through the user's personal group.
func ServeMatchmaking(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, userID, ok := authenticate(c, deps.Cfg.JWTSecret)
		if !ok {
			return
		}

		client := newClient(conn, deps.Bus, userID, "mm", deps.Cfg.WSMessagesPerSecond, deps.Cfg.WSMessageBurst)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		deps.Bus.GroupAdd(game.UserGroup(userID), client.channel)
		log.Printf("[WS] User %d connected to matchmaking", userID)

		go client.writePump()
		go pushQueueStatus(ctx, deps, client, userID)

		runMatchmakingReadLoop(ctx, deps, client, userID)

		// A player who drops off the socket should not linger in the queue.
		if err := store.LeaveQueue(deps.DB, userID); err != nil {
			log.Printf("[WS] Failed to dequeue user %d on disconnect: %v", userID, err)
		}
		deps.Bus.GroupDiscard(game.UserGroup(userID), client.channel)
		client.cleanup()
		log.Printf("[WS] User %d disconnected from matchmaking", userID)
	}
}

// pushQueueStatus periodically reminds a waiting player of their position.
func pushQueueStatus(ctx context.Context, deps *Deps, client *Client, userID int) {
	ticker := time.NewTicker(time.Duration(deps.Cfg.QueueStatusPollSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			position, err := store.QueuePosition(deps.DB, userID)
			if err != nil {
				continue // not queued right now
			}
			client.Send(ctx, map[string]interface{}{
				"type":     "queue_status",
				"status":   "waiting",
				"position": position,
			})
		}
	}
}

func runMatchmakingReadLoop(ctx context.Context, deps *Deps, client *Client, userID int) {
	client.configureRead()

	for {
		raw, err := client.readMessage()
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			client.sendError(ctx, "invalid message")
			continue
		}

		switch msg.Type {
		case "join_queue":
			difficulty := msg.Difficulty
			if difficulty == "" {
				if profile, err := store.GetProfile(deps.DB, userID); err == nil {
					difficulty = profile.Difficulty
				} else {
					difficulty = "medium"
				}
			}
			entry, err := store.JoinQueue(deps.DB, userID, difficulty)
			if err != nil {
				log.Printf("[WS] join_queue failed for user %d: %v", userID, err)
				client.sendError(ctx, "could not join the queue")
				continue
			}
			position, err := store.QueuePosition(deps.DB, userID)
			if err != nil {
				position = 0
			}
			client.Send(ctx, map[string]interface{}{
				"type":       "queue_status",
				"status":     entry.Status,
				"difficulty": entry.DifficultyPreference,
				"position":   position,
			})

		case "leave_queue":
			if err := store.LeaveQueue(deps.DB, userID); err != nil {
				log.Printf("[WS] leave_queue failed for user %d: %v", userID, err)
				client.sendError(ctx, "could not leave the queue")
				continue
			}
			client.Send(ctx, map[string]interface{}{
				"type":   "queue_status",
				"status": "left",
			})

		case "request_status":
			position, err := store.QueuePosition(deps.DB, userID)
			if errors.Is(err, store.ErrNotFound) {
				client.Send(ctx, map[string]interface{}{
					"type":   "queue_status",
					"status": "not_queued",
				})
				continue
			}
			if err != nil {
				client.sendError(ctx, "could not fetch queue status")
				continue
			}
			client.Send(ctx, map[string]interface{}{
				"type":     "queue_status",
				"status":   "waiting",
				"position": position,
			})

		case "ping":
			client.Send(ctx, map[string]interface{}{"type": "pong"})

		default:
			client.sendError(ctx, "unknown message type")
		}
	}
}
