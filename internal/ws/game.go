package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"

	"github.com/pongarena/backend/internal/auth"
	"github.com/pongarena/backend/internal/bus"
	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/game"
	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/internal/notify"
	"github.com/pongarena/backend/internal/store"
)

// Deps carries everything the WebSocket endpoints need.
type Deps struct {
	DB       *sqlx.DB
	Bus      bus.Bus
	Cfg      *config.Config
	Engine   *game.Engine
	Registry *game.Registry
	Invites  InviteService
	Notifier *notify.Notifier
}

// waitUpdateEvery is how often the lone player hears about the wait.
const waitUpdateEvery = 2

// authenticate upgrades the connection and validates the query token. On
// failure the socket is closed with 4001 and ok is false.
func authenticate(c *gin.Context, secret string) (conn *websocket.Conn, userID int, ok bool) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return nil, 0, false
	}

	userID, err = auth.ParseToken(secret, c.Query("token"))
	if err != nil {
		msg := websocket.FormatCloseMessage(CloseUnauthorized, "authentication required")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return nil, 0, false
	}
	return conn, userID, true
}

// ServeGame handles /ws/game/:game_id.
func ServeGame(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, userID, ok := authenticate(c, deps.Cfg.JWTSecret)
		if !ok {
			return
		}

		gameID := c.Param("game_id")
		g, err := store.GetGame(deps.DB, gameID)
		if err != nil {
			closeRaw(conn, CloseGameNotFound, "game not found")
			return
		}

		var playerNum int
		switch userID {
		case g.Player1ID:
			playerNum = 1
		case g.Player2ID:
			playerNum = 2
		default:
			closeRaw(conn, CloseNotParticipant, "not a participant")
			return
		}

		if g.Status == models.GameCompleted || g.Status == models.GameCancelled {
			closeRaw(conn, CloseGameNotFound, "game already finished")
			return
		}

		client := newClient(conn, deps.Bus, userID, "game", deps.Cfg.WSMessagesPerSecond, deps.Cfg.WSMessageBurst)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		group := game.GroupName(gameID)
		deps.Bus.GroupAdd(group, client.channel)
		deps.Bus.GroupAdd(game.UserGroup(userID), client.channel)

		room, _ := deps.Registry.GetOrCreate(g)
		bothConnected := room.SetConnected(playerNum, true)
		log.Printf("[WS] User %d connected to game %s as player %d", userID, gameID, playerNum)

		go client.writePump()

		client.Send(ctx, map[string]interface{}{
			"type":          "connection_established",
			"player_number": playerNum,
			"game_id":       gameID,
		})
		client.Send(ctx, room.Snapshot())

		deps.Bus.GroupSend(ctx, group, map[string]interface{}{
			"type":      "player_status",
			"player":    playerNum,
			"connected": true,
		})

		if bothConnected {
			onBothConnected(ctx, deps, room, gameID)
		} else {
			go waitForOpponent(ctx, deps, client, room, gameID)
		}

		runGameReadLoop(ctx, deps, client, room, playerNum, gameID)

		cancel()
		settleDisconnect(deps, room, playerNum, gameID)

		deps.Bus.GroupDiscard(group, client.channel)
		deps.Bus.GroupDiscard(game.UserGroup(userID), client.channel)
		client.cleanup()
		log.Printf("[WS] User %d disconnected from game %s", userID, gameID)
	}
}

// settleDisconnect runs after a game read loop returns: clears the player's
// presence, tells the group, and settles any room that no loop can reclaim.
// A mid-play departure forfeits to the remaining player; a room left with
// nobody connected and no loop running (the opponent never arrived, or the
// loop already exited on a terminal status) is cancelled and deleted here,
// otherwise the registry entry and its waiting game row would outlive every
// connection.
func settleDisconnect(deps *Deps, room *game.Room, playerNum int, gameID string) {
	room.Lock()
	if slot, ok := room.Players[playerNum]; ok {
		slot.Connected = false
	}
	status := room.GameStatus
	loopRunning := room.LoopRunning
	stillConnected := false
	for _, slot := range room.Players {
		if slot.Connected {
			stillConnected = true
		}
	}
	room.Unlock()

	bg := context.Background()
	group := game.GroupName(gameID)
	deps.Bus.GroupSend(bg, group, map[string]interface{}{
		"type":      "player_status",
		"player":    playerNum,
		"connected": false,
	})

	switch {
	case status == game.StatusPlaying || status == game.StatusPaused:
		log.Printf("[WS] Player %d left game %s mid-play, forfeiting", playerNum, gameID)
		deps.Bus.GroupSend(bg, group, map[string]interface{}{
			"type":   "force_disconnect",
			"reason": "opponent disconnected",
		})
		winnerNum := 1
		if playerNum == 1 {
			winnerNum = 2
		}
		if err := deps.Engine.FinalizeForfeit(bg, room, winnerNum, "opponent disconnect"); err != nil {
			log.Printf("[WS] Forfeit persistence failed for game %s: %v", gameID, err)
		}
		deps.Bus.GroupSend(bg, group, CloseFrame(CloseForceOrTimeout, "opponent disconnected"))
		deps.Registry.Delete(gameID)

	case !stillConnected && !loopRunning:
		log.Printf("[WS] Game %s abandoned with no loop to reclaim it, settling", gameID)
		if err := deps.Engine.FinalizeForfeit(bg, room, 0, "room abandoned"); err != nil {
			log.Printf("[WS] Failed to settle abandoned game %s: %v", gameID, err)
		}
		deps.Registry.Delete(gameID)
	}
}

// onBothConnected moves a fresh room into the menu and starts the loop.
func onBothConnected(ctx context.Context, deps *Deps, room *game.Room, gameID string) {
	if room.Status() == game.StatusWaiting {
		room.SetStatus(game.StatusMenu)
		deps.Bus.GroupSend(ctx, game.GroupName(gameID), map[string]interface{}{
			"type":   "game_status_changed",
			"status": game.StatusMenu,
		})
		if err := store.MarkGameStarted(deps.DB, gameID); err != nil {
			log.Printf("[WS] Failed to mark game %s started: %v", gameID, err)
		}
	}
	deps.Engine.EnsureLoop(room)
}

// waitForOpponent keeps a lone player informed and cancels the game if
// nobody shows up.
func waitForOpponent(ctx context.Context, deps *Deps, client *Client, room *game.Room, gameID string) {
	waitSeconds := deps.Cfg.WaitForOpponentSeconds
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for elapsed := 1; ; elapsed++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if room.BothConnected() {
			onBothConnected(ctx, deps, room, gameID)
			return
		}

		if elapsed%waitUpdateEvery == 0 {
			client.Send(ctx, map[string]interface{}{
				"type":              "waiting_for_opponent",
				"seconds_elapsed":   elapsed,
				"seconds_remaining": waitSeconds - elapsed,
			})
		}

		if elapsed >= waitSeconds {
			log.Printf("[WS] Game %s: opponent never arrived, cancelling", gameID)
			client.Send(ctx, map[string]interface{}{
				"type":    "timeout",
				"message": "opponent did not connect in time",
			})
			if err := deps.Engine.FinalizeForfeit(ctx, room, 0, "opponent never connected"); err != nil {
				log.Printf("[WS] Failed to cancel game %s: %v", gameID, err)
			}
			client.Send(ctx, CloseFrame(CloseForceOrTimeout, "wait timeout"))
			deps.Registry.Delete(gameID)
			return
		}
	}
}

func runGameReadLoop(ctx context.Context, deps *Deps, client *Client, room *game.Room, playerNum int, gameID string) {
	client.configureRead()
	group := game.GroupName(gameID)

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
		case "paddle_move":
			if msg.Position == nil {
				client.sendError(ctx, "position required")
				continue
			}
			if !room.MovePaddle(playerNum, *msg.Position) {
				client.sendError(ctx, "paddle move out of range")
			}

		case "start_game":
			if room.Status() != game.StatusMenu {
				client.sendError(ctx, "game can only start from the menu")
				continue
			}
			startMatch(ctx, deps, room, gameID)
			deps.Bus.GroupSend(ctx, group, map[string]interface{}{
				"type":   "game_status_changed",
				"status": game.StatusPlaying,
			})
			deps.Engine.EnsureLoop(room)

		case "next_match":
			if room.Status() != game.StatusMatchOver {
				client.sendError(ctx, "no finished match to advance from")
				continue
			}
			room.Lock()
			room.ResetForNewMatch()
			room.Unlock()
			startMatch(ctx, deps, room, gameID)
			deps.Bus.GroupSend(ctx, group, map[string]interface{}{
				"type":   "game_status_changed",
				"status": game.StatusPlaying,
			})
			deps.Bus.GroupSend(ctx, group, room.Snapshot())
			deps.Engine.EnsureLoop(room)

		case "ping":
			client.Send(ctx, map[string]interface{}{"type": "pong"})

		default:
			client.sendError(ctx, "unknown message type")
		}
	}
}

// startMatch records the subgame row and flips the room into play.
func startMatch(ctx context.Context, deps *Deps, room *game.Room, gameID string) {
	room.Lock()
	matchNumber := room.CurrentMatch
	room.Unlock()
	if _, err := store.StartMatch(deps.DB, gameID, matchNumber); err != nil {
		log.Printf("[WS] Failed to persist match %d of game %s: %v", matchNumber, gameID, err)
	}
	room.SetStatus(game.StatusPlaying)
}

// closeRaw rejects a connection that never got a client wrapper.
func closeRaw(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
}
