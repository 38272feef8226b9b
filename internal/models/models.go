package models

import (
	"database/sql"
	"time"
)

// Game status values
const (
	GameWaiting    = "waiting"
	GameInProgress = "in_progress"
	GamePaused     = "paused"
	GameCompleted  = "completed"
	GameCancelled  = "cancelled"
)

// Match status values
const (
	MatchInProgress = "in_progress"
	MatchCompleted  = "completed"
)

// Queue entry status values
const (
	QueueWaiting  = "waiting"
	QueueMatched  = "matched"
	QueueTimedOut = "timed_out"
)

// Invitation status values
const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteDeclined = "declined"
	InviteExpired  = "expired"
)

// User display-status values. Presence is written by the realtime core on
// connect/disconnect; invisible and do-not-disturb are user-chosen.
const (
	StatusOnline       = "online"
	StatusInvisible    = "invisible"
	StatusDoNotDisturb = "do-not-disturb"
	StatusOffline      = "offline"
)

// User represents an account in the system
type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	AvatarURL    string    `db:"avatar_url" json:"avatar_url"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PlayerProfile holds per-user game preferences, counters and achievements
type PlayerProfile struct {
	UserID        int    `db:"user_id" json:"user_id"`
	Theme         string `db:"theme" json:"theme"`
	Difficulty    string `db:"difficulty" json:"difficulty"`
	MatchesPlayed int    `db:"matches_played" json:"matches_played"`
	MatchesWon    int    `db:"matches_won" json:"matches_won"`
	MatchesLost   int    `db:"matches_lost" json:"matches_lost"`
	FirstWin      bool   `db:"first_win" json:"first_win"`
	PureWin       bool   `db:"pure_win" json:"pure_win"`
	TripleWin     bool   `db:"triple_win" json:"triple_win"`
	WinStreak     int    `db:"win_streak" json:"win_streak"`
	Experience    int    `db:"experience" json:"experience"`
	Level         int    `db:"level" json:"level"`
}

// Game represents a best-of-5 session between two players
type Game struct {
	ID                string        `db:"id" json:"id"`
	Player1ID         int           `db:"player1_id" json:"player1_id"`
	Player2ID         int           `db:"player2_id" json:"player2_id"`
	Difficulty        string        `db:"difficulty" json:"difficulty"`
	Status            string        `db:"status" json:"status"`
	WinnerID          sql.NullInt64 `db:"winner_id" json:"winner_id,omitempty"`
	FinalScorePlayer1 int           `db:"final_score_player1" json:"final_score_player1"`
	FinalScorePlayer2 int           `db:"final_score_player2" json:"final_score_player2"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	StartedAt         sql.NullTime  `db:"started_at" json:"started_at,omitempty"`
	CompletedAt       sql.NullTime  `db:"completed_at" json:"completed_at,omitempty"`
}

// Match is one first-to-5 subgame within a Game
type Match struct {
	ID           int            `db:"id" json:"id"`
	GameID       string         `db:"game_id" json:"game_id"`
	MatchNumber  int            `db:"match_number" json:"match_number"`
	Status       string         `db:"status" json:"status"`
	ScorePlayer1 int            `db:"score_player1" json:"score_player1"`
	ScorePlayer2 int            `db:"score_player2" json:"score_player2"`
	Winner       sql.NullString `db:"winner" json:"winner,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	CompletedAt  sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
}

// QueueEntry represents a player waiting for a match
type QueueEntry struct {
	ID                   int            `db:"id" json:"id"`
	UserID               int            `db:"user_id" json:"user_id"`
	JoinedAt             time.Time      `db:"joined_at" json:"joined_at"`
	DifficultyPreference string         `db:"difficulty_preference" json:"difficulty_preference"`
	IsActive             bool           `db:"is_active" json:"is_active"`
	Status               string         `db:"status" json:"status"`
	MatchedAt            sql.NullTime   `db:"matched_at" json:"matched_at,omitempty"`
	GameID               sql.NullString `db:"game_id" json:"game_id,omitempty"`
}

// Invitation is a direct challenge from one player to another
type Invitation struct {
	ID          int            `db:"id" json:"id"`
	Code        string         `db:"code" json:"code"`
	SenderID    int            `db:"sender_id" json:"sender_id"`
	RecipientID int            `db:"recipient_id" json:"recipient_id"`
	Difficulty  string         `db:"difficulty" json:"difficulty"`
	Status      string         `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	RespondedAt sql.NullTime   `db:"responded_at" json:"responded_at,omitempty"`
	GameID      sql.NullString `db:"game_id" json:"game_id,omitempty"`
}

// Notification is the durable side of the notification sink
type Notification struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Kind      string    `db:"kind" json:"kind"`
	Message   string    `db:"message" json:"message"`
	Data      []byte    `db:"data" json:"data"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
