package game

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pongarena/backend/internal/bus"
	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/internal/store"
)

// Locker is the cluster-wide mutual exclusion around a pairing sweep.
type Locker interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Matchmaker periodically pairs waiting players by difficulty. Several nodes
// may run one; the lock ensures a single sweep at a time and a node that
// loses it simply waits for its next tick.
type Matchmaker struct {
	db       *sqlx.DB
	bus      bus.Bus
	lock     Locker
	interval time.Duration
}

func NewMatchmaker(db *sqlx.DB, b bus.Bus, lock Locker, interval time.Duration) *Matchmaker {
	return &Matchmaker{db: db, bus: b, lock: lock, interval: interval}
}

func (m *Matchmaker) Run(ctx context.Context) {
	log.Printf("[MATCHMAKER] Worker started, sweeping every %s", m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[MATCHMAKER] Worker stopped")
			return
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil {
				log.Printf("[MATCHMAKER] Sweep failed: %v", err)
			}
		}
	}
}

// pairing is one matched pair produced by a sweep, fanned out after commit.
type pairing struct {
	game    *models.Game
	player1 models.QueueEntry
	player2 models.QueueEntry
}

// PairEntries greedily pairs waiters in FIFO order. An entry whose user
// already appears in an earlier pair, or who would be matched against
// themselves, is passed over; each user is matched at most once per sweep.
func PairEntries(entries []models.QueueEntry) [][2]models.QueueEntry {
	var pairs [][2]models.QueueEntry
	matched := make(map[int]bool)
	for i := 0; i < len(entries); i++ {
		a := entries[i]
		if matched[a.UserID] {
			continue
		}
		for j := i + 1; j < len(entries); j++ {
			b := entries[j]
			if matched[b.UserID] || b.UserID == a.UserID {
				continue
			}
			pairs = append(pairs, [2]models.QueueEntry{a, b})
			matched[a.UserID] = true
			matched[b.UserID] = true
			break
		}
	}
	return pairs
}

// Sweep runs one pairing pass under the cluster lock.
func (m *Matchmaker) Sweep(ctx context.Context) error {
	acquired, err := m.lock.TryAcquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil
	}
	defer m.lock.Release(ctx)

	tx, err := m.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	difficulties, err := store.PairableDifficulties(tx)
	if err != nil {
		return fmt.Errorf("list difficulties: %w", err)
	}

	var pairings []pairing
	for _, difficulty := range difficulties {
		entries, err := store.ClaimWaiting(tx, difficulty)
		if err != nil {
			return fmt.Errorf("claim bucket (%s): %w", difficulty, err)
		}
		for _, pair := range PairEntries(entries) {
			g, err := store.CreateGame(tx, pair[0].UserID, pair[1].UserID, difficulty)
			if err != nil {
				return err
			}
			if err := store.MarkMatched(tx, []int{pair[0].ID, pair[1].ID}, g.ID); err != nil {
				return err
			}
			pairings = append(pairings, pairing{game: g, player1: pair[0], player2: pair[1]})
		}
	}

	if len(pairings) == 0 {
		return nil
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, p := range pairings {
		log.Printf("[MATCHMAKER] Matched users %d and %d into game %s (%s)",
			p.player1.UserID, p.player2.UserID, p.game.ID, p.game.Difficulty)
		m.announce(ctx, p)
	}
	return nil
}

// announce fans match_found out to both players' personal groups, each frame
// carrying the opponent's avatar.
func (m *Matchmaker) announce(ctx context.Context, p pairing) {
	users := map[int]*models.User{}
	for _, id := range []int{p.player1.UserID, p.player2.UserID} {
		u, err := store.GetUserByID(m.db, id)
		if err != nil {
			log.Printf("[MATCHMAKER] Failed to load user %d: %v", id, err)
			continue
		}
		users[id] = u
	}

	for recipient, opponent := range map[int]int{
		p.player1.UserID: p.player2.UserID,
		p.player2.UserID: p.player1.UserID,
	} {
		frame := map[string]interface{}{
			"type":     "match_found",
			"game_id":  p.game.ID,
			"player1":  p.game.Player1ID,
			"player2":  p.game.Player2ID,
			"game_url": "/game/" + p.game.ID,
		}
		if opp, ok := users[opponent]; ok {
			frame["opponent"] = opp.Username
			frame["opponent_avatar"] = opp.AvatarURL
		}
		if err := m.bus.GroupSend(ctx, UserGroup(recipient), frame); err != nil {
			log.Printf("[MATCHMAKER] match_found delivery to user %d failed: %v", recipient, err)
		}
	}
}

// UserGroup is the personal bus group every connection of a user joins.
func UserGroup(userID int) string { return fmt.Sprintf("user_%d", userID) }
