package game

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pongarena/backend/internal/bus"
	"github.com/pongarena/backend/internal/store"
)

// ResultStore is the persistence surface the engine touches when a match or
// game reaches a terminal state.
type ResultStore interface {
	CompleteMatch(gameID string, matchNumber, score1, score2 int, winner string) error
	FinalizeGame(gameID string, winnerID, wins1, wins2 int) error
}

type dbResults struct {
	db *sqlx.DB
}

// NewResultStore adapts the SQL store for the engine.
func NewResultStore(db *sqlx.DB) ResultStore { return dbResults{db: db} }

func (r dbResults) CompleteMatch(gameID string, matchNumber, score1, score2 int, winner string) error {
	return store.CompleteMatch(r.db, gameID, matchNumber, score1, score2, winner)
}

func (r dbResults) FinalizeGame(gameID string, winnerID, wins1, wins2 int) error {
	return store.FinalizeGame(r.db, gameID, winnerID, wins1, wins2)
}

// Engine drives room loops and owns terminal persistence. One engine per
// process serves every room.
type Engine struct {
	results         ResultStore
	bus             bus.Bus
	registry        *Registry
	inactiveTimeout time.Duration
	gameOverLinger  time.Duration
}

func NewEngine(results ResultStore, b bus.Bus, registry *Registry, inactiveTimeout, gameOverLinger time.Duration) *Engine {
	return &Engine{
		results:         results,
		bus:             b,
		registry:        registry,
		inactiveTimeout: inactiveTimeout,
		gameOverLinger:  gameOverLinger,
	}
}

func (e *Engine) Registry() *Registry { return e.registry }

// GroupName is the bus group carrying all traffic for one game.
func GroupName(gameID string) string { return "game_" + gameID }

// EnsureLoop spawns the room loop if it is not already running.
func (e *Engine) EnsureLoop(room *Room) {
	room.Lock()
	if room.LoopRunning {
		room.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	room.LoopRunning = true
	room.cancel = cancel
	room.Unlock()

	go e.run(ctx, room)
}

// advanceAccumulator folds one frame's elapsed time into the accumulator and
// returns how many physics ticks to run. When the cap is hit the remainder
// is clamped to one tick's worth: a stalled process catches up at most
// MaxUpdatesPerFrame ticks per frame instead of spiraling.
func advanceAccumulator(accumulator, frameTime float64) (steps int, remainder float64) {
	if frameTime > MaxFrameTime {
		frameTime = MaxFrameTime
	}
	accumulator += frameTime
	for accumulator >= PhysicsDT && steps < MaxUpdatesPerFrame {
		accumulator -= PhysicsDT
		steps++
	}
	if steps == MaxUpdatesPerFrame && accumulator > PhysicsDT {
		accumulator = PhysicsDT
	}
	return steps, accumulator
}

func (e *Engine) run(ctx context.Context, room *Room) {
	log.Printf("[LOOP] Starting loop for game %s", room.GameID)
	defer func() {
		room.Lock()
		room.LoopRunning = false
		room.Unlock()
		log.Printf("[LOOP] Loop for game %s exited", room.GameID)
	}()

	var accumulator float64
	lastUpdate := time.Now()
	lastBroadcast := time.Now()
	halfPhysicsDT := PhysicsDT / 2
	sleep := time.Duration(halfPhysicsDT * float64(time.Second))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := time.Now()
		frameTime := now.Sub(lastUpdate).Seconds()
		lastUpdate = now

		room.Lock()
		status := room.GameStatus
		anyConnected := room.Players[1].Connected || room.Players[2].Connected
		if anyConnected {
			room.LastActivityTime = now
		}
		idle := now.Sub(room.LastActivityTime)
		room.Unlock()

		if !anyConnected && idle > e.inactiveTimeout {
			log.Printf("[LOOP] Game %s inactive for %s, reclaiming room", room.GameID, idle.Round(time.Second))
			if err := e.FinalizeForfeit(ctx, room, 0, "inactivity timeout"); err != nil {
				log.Printf("[LOOP] Failed to persist inactive game %s: %v", room.GameID, err)
			}
			e.registry.Delete(room.GameID)
			return
		}

		if status != StatusPlaying {
			if status == StatusGameOver || status == StatusCancelled {
				return
			}
			broadcastDT := BroadcastDT
			if !e.sleepOrDone(ctx, time.Duration(broadcastDT*float64(time.Second))) {
				return
			}
			accumulator = 0
			continue
		}

		var steps int
		steps, accumulator = advanceAccumulator(accumulator, frameTime)

		scored := false
		terminal := ""
		room.Lock()
		for i := 0; i < steps; i++ {
			res := room.step(PhysicsDT)
			if res.ScoredBy != 0 {
				scored = true
				if t := room.evaluateMatchEnd(); t != "" {
					terminal = t
					break
				}
			}
		}
		winner := room.Winner
		room.Unlock()

		if terminal != "" {
			e.handleMatchEnd(ctx, room, terminal, winner)
			if terminal == StatusGameOver {
				return
			}
			continue
		}

		if scored || now.Sub(lastBroadcast).Seconds() >= BroadcastDT {
			lastBroadcast = now
			if err := e.bus.GroupSend(ctx, GroupName(room.GameID), room.Snapshot()); err != nil {
				log.Printf("[LOOP] Broadcast failed for game %s: %v", room.GameID, err)
			}
		}

		if !e.sleepOrDone(ctx, sleep) {
			return
		}
	}
}

func (e *Engine) sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// handleMatchEnd persists the finished subgame and broadcasts the
// transition, status first so clients see the change before the snapshot
// that reflects it.
func (e *Engine) handleMatchEnd(ctx context.Context, room *Room, status, winner string) {
	room.Lock()
	matchNumber := room.CurrentMatch
	score1 := room.LeftPaddle.Score
	score2 := room.RightPaddle.Score
	wins := room.MatchWins
	room.Unlock()

	if err := e.results.CompleteMatch(room.GameID, matchNumber, score1, score2, winner); err != nil {
		log.Printf("[LOOP] Failed to persist match %d of game %s: %v", matchNumber, room.GameID, err)
	}

	group := GroupName(room.GameID)
	e.bus.GroupSend(ctx, group, map[string]interface{}{
		"type":   "game_status_changed",
		"status": status,
		"winner": winner,
	})
	e.bus.GroupSend(ctx, group, room.Snapshot())

	if status != StatusGameOver {
		return
	}

	winnerID := room.Player1ID
	if winner == "player2" {
		winnerID = room.Player2ID
	}
	if err := e.results.FinalizeGame(room.GameID, winnerID, wins.Player1, wins.Player2); err != nil {
		log.Printf("[LOOP] Failed to finalize game %s: %v", room.GameID, err)
	}

	e.bus.GroupSend(ctx, group, map[string]interface{}{
		"type":        "game_completed",
		"winner":      winner,
		"winner_id":   winnerID,
		"final_state": room.Snapshot(),
	})

	// Give clients a moment to render the final frame before closing.
	e.sleepOrDone(ctx, e.gameOverLinger)
	e.bus.GroupSend(ctx, group, map[string]interface{}{
		"type": "close_connection",
		"code": 1000,
	})
	e.registry.Delete(room.GameID)
}

// FinalizeForfeit settles a game outside normal play: a mid-play disconnect
// names the remaining player winner, a timeout or abandoned room cancels the
// game. winnerNum 0 means nobody won.
func (e *Engine) FinalizeForfeit(ctx context.Context, room *Room, winnerNum int, reason string) error {
	room.Lock()
	if room.GameStatus == StatusGameOver || room.GameStatus == StatusCancelled {
		room.Unlock()
		return nil
	}
	if winnerNum == 0 {
		room.GameStatus = StatusCancelled
	} else {
		room.GameStatus = StatusGameOver
	}
	matchNumber := room.CurrentMatch
	score1 := room.LeftPaddle.Score
	score2 := room.RightPaddle.Score
	wins := room.MatchWins
	room.Unlock()

	log.Printf("[LOOP] Finalizing game %s (%s), winner slot %d", room.GameID, reason, winnerNum)

	if err := e.results.CompleteMatch(room.GameID, matchNumber, score1, score2, ""); err != nil {
		log.Printf("[LOOP] Failed to close open match of game %s: %v", room.GameID, err)
	}

	winnerID := 0
	switch winnerNum {
	case 1:
		winnerID = room.Player1ID
	case 2:
		winnerID = room.Player2ID
	}
	return e.results.FinalizeGame(room.GameID, winnerID, wins.Player1, wins.Player2)
}
