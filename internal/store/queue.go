package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pongarena/backend/internal/models"
)

const queueColumns = `id, user_id, joined_at, difficulty_preference, is_active, status, matched_at, game_id`

// JoinQueue enqueues the user, or returns the existing active entry if they
// are already waiting. The partial unique index on (user_id) WHERE is_active
// guarantees at most one live entry per player.
func JoinQueue(db *sqlx.DB, userID int, difficulty string) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := db.Get(&e, `INSERT INTO matchmaking_queue (user_id, difficulty_preference)
		VALUES ($1, $2)
		ON CONFLICT (user_id) WHERE is_active DO UPDATE SET user_id = matchmaking_queue.user_id
		RETURNING `+queueColumns, userID, difficulty)
	if err != nil {
		return nil, fmt.Errorf("join queue: %w", err)
	}
	return &e, nil
}

// LeaveQueue deactivates the user's waiting entry. Entries already matched
// stay untouched so the match_found delivery is not lost.
func LeaveQueue(db *sqlx.DB, userID int) error {
	_, err := db.Exec(`UPDATE matchmaking_queue SET is_active=FALSE, status=$1
		WHERE user_id=$2 AND is_active AND status=$3`,
		models.QueueTimedOut, userID, models.QueueWaiting)
	return err
}

// UserInQueue reports whether the user has a live queue entry.
func UserInQueue(db *sqlx.DB, userID int) (bool, error) {
	var count int
	err := db.Get(&count, `SELECT COUNT(*) FROM matchmaking_queue
		WHERE user_id=$1 AND is_active`, userID)
	return count > 0, err
}

// QueuePosition reports the 1-based FIFO position among waiting entries with
// the same difficulty preference. Returns ErrNotFound if the user is not
// actively queued.
func QueuePosition(db *sqlx.DB, userID int) (int, error) {
	var e models.QueueEntry
	err := db.Get(&e, `SELECT `+queueColumns+` FROM matchmaking_queue
		WHERE user_id=$1 AND is_active`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	var ahead int
	err = db.Get(&ahead, `SELECT COUNT(*) FROM matchmaking_queue
		WHERE is_active AND status=$1 AND difficulty_preference=$2 AND joined_at < $3`,
		models.QueueWaiting, e.DifficultyPreference, e.JoinedAt)
	if err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

// PairableDifficulties lists difficulty buckets with at least two waiting
// players, so the matchmaker only sweeps buckets that can produce a pair.
func PairableDifficulties(tx *sqlx.Tx) ([]string, error) {
	difficulties := []string{}
	err := tx.Select(&difficulties, `SELECT difficulty_preference FROM matchmaking_queue
		WHERE is_active AND status=$1
		GROUP BY difficulty_preference HAVING COUNT(*) >= 2`, models.QueueWaiting)
	return difficulties, err
}

// ClaimWaiting locks every waiting entry in a difficulty bucket, oldest
// first. SKIP LOCKED lets concurrent sweeps pass over rows another
// transaction is pairing instead of blocking on them.
func ClaimWaiting(tx *sqlx.Tx, difficulty string) ([]models.QueueEntry, error) {
	entries := []models.QueueEntry{}
	err := tx.Select(&entries, `SELECT `+queueColumns+` FROM matchmaking_queue
		WHERE is_active AND status=$1 AND difficulty_preference=$2
		ORDER BY joined_at FOR UPDATE SKIP LOCKED`,
		models.QueueWaiting, difficulty)
	return entries, err
}

// MarkMatched settles a claimed pair against the game created for it.
func MarkMatched(tx *sqlx.Tx, entryIDs []int, gameID string) error {
	for _, id := range entryIDs {
		_, err := tx.Exec(`UPDATE matchmaking_queue
			SET status=$1, is_active=FALSE, matched_at=NOW(), game_id=$2 WHERE id=$3`,
			models.QueueMatched, gameID, id)
		if err != nil {
			return fmt.Errorf("mark matched %d: %w", id, err)
		}
	}
	return nil
}
