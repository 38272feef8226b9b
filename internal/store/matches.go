package store

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pongarena/backend/internal/models"
)

const matchColumns = `id, game_id, match_number, status, score_player1, score_player2,
	winner, created_at, completed_at`

// StartMatch records the beginning of a subgame. The unique (game_id,
// match_number) pair makes a duplicate start from a replayed message a no-op.
func StartMatch(db *sqlx.DB, gameID string, matchNumber int) (*models.Match, error) {
	var m models.Match
	err := db.Get(&m, `INSERT INTO matches (game_id, match_number) VALUES ($1, $2)
		ON CONFLICT (game_id, match_number) DO UPDATE SET match_number = matches.match_number
		RETURNING `+matchColumns, gameID, matchNumber)
	if err != nil {
		return nil, fmt.Errorf("start match: %w", err)
	}
	return &m, nil
}

// CompleteMatch writes the final score of a subgame. winner is "player1" or
// "player2", or empty for a match abandoned mid-play.
func CompleteMatch(db *sqlx.DB, gameID string, matchNumber, score1, score2 int, winner string) error {
	w := sql.NullString{}
	if winner != "" {
		w = sql.NullString{String: winner, Valid: true}
	}
	_, err := db.Exec(`UPDATE matches SET status=$1, score_player1=$2, score_player2=$3,
		winner=$4, completed_at=NOW()
		WHERE game_id=$5 AND match_number=$6 AND status=$7`,
		models.MatchCompleted, score1, score2, w, gameID, matchNumber, models.MatchInProgress)
	return err
}

func ListMatches(db *sqlx.DB, gameID string) ([]models.Match, error) {
	matches := []models.Match{}
	err := db.Select(&matches, `SELECT `+matchColumns+` FROM matches
		WHERE game_id=$1 ORDER BY match_number`, gameID)
	return matches, err
}
