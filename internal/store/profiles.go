package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pongarena/backend/internal/models"
)

// Experience granted per completed game.
const (
	WinnerXP = 500
	LoserXP  = 100
)

const profileColumns = `user_id, theme, difficulty, matches_played, matches_won, matches_lost,
	first_win, pure_win, triple_win, win_streak, experience, level`

func GetProfile(db *sqlx.DB, userID int) (*models.PlayerProfile, error) {
	var p models.PlayerProfile
	err := db.Get(&p, `SELECT `+profileColumns+` FROM player_profiles WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func UpdatePreferences(db *sqlx.DB, userID int, theme, difficulty string) error {
	_, err := db.Exec(`UPDATE player_profiles SET theme=$1, difficulty=$2 WHERE user_id=$3`,
		theme, difficulty, userID)
	return err
}

// NextLevel derives the level from accumulated experience. Re-applied on
// every grant: level = experience / (1000 * max(level, 1)), integer division.
func NextLevel(experience, currentLevel int) int {
	divisor := currentLevel
	if divisor < 1 {
		divisor = 1
	}
	return experience / (1000 * divisor)
}

// ApplyWin advances a winner's profile in place: counters, streak,
// achievements and experience. pureWin means the loser took no match.
func ApplyWin(p *models.PlayerProfile, pureWin bool) {
	p.MatchesPlayed++
	p.MatchesWon++
	p.WinStreak++
	p.FirstWin = true
	if pureWin {
		p.PureWin = true
	}
	if p.WinStreak >= 3 {
		p.TripleWin = true
	}
	p.Experience += WinnerXP
	p.Level = NextLevel(p.Experience, p.Level)
}

// ApplyLoss advances a loser's profile in place.
func ApplyLoss(p *models.PlayerProfile) {
	p.MatchesPlayed++
	p.MatchesLost++
	p.WinStreak = 0
	p.Experience += LoserXP
	p.Level = NextLevel(p.Experience, p.Level)
}

// ApplyGameResult updates both players' profiles for a completed game within
// the given transaction. Rows are locked so concurrent completions cannot
// interleave counter updates.
func ApplyGameResult(tx *sqlx.Tx, winnerID, loserID int, pureWin bool) error {
	for _, pair := range []struct {
		userID int
		apply  func(*models.PlayerProfile)
	}{
		{winnerID, func(p *models.PlayerProfile) { ApplyWin(p, pureWin) }},
		{loserID, ApplyLoss},
	} {
		var p models.PlayerProfile
		err := tx.Get(&p, `SELECT `+profileColumns+` FROM player_profiles WHERE user_id=$1 FOR UPDATE`, pair.userID)
		if err != nil {
			return fmt.Errorf("lock profile %d: %w", pair.userID, err)
		}
		pair.apply(&p)
		_, err = tx.Exec(`UPDATE player_profiles SET
			matches_played=$1, matches_won=$2, matches_lost=$3,
			first_win=$4, pure_win=$5, triple_win=$6, win_streak=$7,
			experience=$8, level=$9
			WHERE user_id=$10`,
			p.MatchesPlayed, p.MatchesWon, p.MatchesLost,
			p.FirstWin, p.PureWin, p.TripleWin, p.WinStreak,
			p.Experience, p.Level, pair.userID)
		if err != nil {
			return fmt.Errorf("update profile %d: %w", pair.userID, err)
		}
	}
	return nil
}
