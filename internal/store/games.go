package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pongarena/backend/internal/models"
)

const gameColumns = `id, player1_id, player2_id, difficulty, status, winner_id,
	final_score_player1, final_score_player2, created_at, started_at, completed_at`

// CreateGame inserts a new waiting game between two players.
func CreateGame(q sqlx.Ext, player1ID, player2ID int, difficulty string) (*models.Game, error) {
	id := uuid.NewString()
	var g models.Game
	err := sqlx.Get(q, &g, `INSERT INTO games (id, player1_id, player2_id, difficulty, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+gameColumns,
		id, player1ID, player2ID, difficulty, models.GameWaiting)
	if err != nil {
		return nil, fmt.Errorf("insert game: %w", err)
	}
	return &g, nil
}

// UserHasActiveGame reports whether the user is party to a game that has not
// reached a terminal status.
func UserHasActiveGame(db *sqlx.DB, userID int) (bool, error) {
	var count int
	err := db.Get(&count, `SELECT COUNT(*) FROM games
		WHERE (player1_id=$1 OR player2_id=$1) AND status IN ($2, $3, $4)`,
		userID, models.GameWaiting, models.GameInProgress, models.GamePaused)
	return count > 0, err
}

func GetGame(db *sqlx.DB, gameID string) (*models.Game, error) {
	var g models.Game
	err := db.Get(&g, `SELECT `+gameColumns+` FROM games WHERE id=$1`, gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// MarkGameStarted flips a game to in_progress, keeping the first start time.
func MarkGameStarted(db *sqlx.DB, gameID string) error {
	_, err := db.Exec(`UPDATE games SET status=$1, started_at=COALESCE(started_at, NOW())
		WHERE id=$2 AND status NOT IN ($3, $4)`,
		models.GameInProgress, gameID, models.GameCompleted, models.GameCancelled)
	return err
}

func SetGameStatus(db *sqlx.DB, gameID, status string) error {
	_, err := db.Exec(`UPDATE games SET status=$1 WHERE id=$2 AND status NOT IN ($3, $4)`,
		status, gameID, models.GameCompleted, models.GameCancelled)
	return err
}

// FinalizeGame records the outcome and updates both profiles atomically.
// winnerID may be zero for a cancelled game nobody won.
func FinalizeGame(db *sqlx.DB, gameID string, winnerID int, matchWins1, matchWins2 int) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var g models.Game
	err = tx.Get(&g, `SELECT `+gameColumns+` FROM games WHERE id=$1 FOR UPDATE`, gameID)
	if err != nil {
		return fmt.Errorf("lock game: %w", err)
	}
	if g.Status == models.GameCompleted || g.Status == models.GameCancelled {
		// Already settled (e.g. both connection handlers raced on disconnect)
		return nil
	}

	status := models.GameCompleted
	winner := sql.NullInt64{}
	if winnerID > 0 {
		winner = sql.NullInt64{Int64: int64(winnerID), Valid: true}
	} else {
		status = models.GameCancelled
	}

	_, err = tx.Exec(`UPDATE games SET status=$1, winner_id=$2,
		final_score_player1=$3, final_score_player2=$4,
		started_at=COALESCE(started_at, NOW()), completed_at=NOW()
		WHERE id=$5`,
		status, winner, matchWins1, matchWins2, gameID)
	if err != nil {
		return fmt.Errorf("finalize game: %w", err)
	}

	if winnerID > 0 {
		loserID := g.Player1ID
		loserWins := matchWins1
		if winnerID == g.Player1ID {
			loserID = g.Player2ID
			loserWins = matchWins2
		}
		if err := ApplyGameResult(tx, winnerID, loserID, loserWins == 0); err != nil {
			return err
		}
	}

	return tx.Commit()
}
