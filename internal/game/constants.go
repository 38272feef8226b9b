package game

import "time"

// Field geometry shared with the frontend renderer.
const (
	BaseWidth    = 800.0
	BaseHeight   = 500.0
	PaddleWidth  = 18.0
	PaddleHeight = 100.0
	BallRadius   = 10.0
	PaddleSpeed  = 8.0

	// A single paddle_move may not jump further than ten rendered frames of
	// paddle travel; anything larger is impossible input.
	MaxPaddleStep = PaddleSpeed * 10

	PointsToWinMatch = 5
	MatchesToWinGame = 3
)

// Loop timing. Physics runs at a fixed timestep well above the broadcast
// rate; snapshots go out at the renderer's rate.
const (
	PhysicsRate   = 240
	BroadcastRate = 60

	PhysicsDT   = 1.0 / PhysicsRate
	BroadcastDT = 1.0 / BroadcastRate

	MaxFrameTime       = 0.25
	MaxUpdatesPerFrame = 5

	GameOverLinger = 2 * time.Second
)

// Game status values for the in-memory room. These are distinct from the
// persisted game statuses: a room cycles through menu/playing/matchOver
// several times within one in_progress game.
const (
	StatusWaiting   = "waiting"
	StatusMenu      = "menu"
	StatusPlaying   = "playing"
	StatusPaused    = "paused"
	StatusMatchOver = "matchOver"
	StatusGameOver  = "gameOver"
	StatusCancelled = "cancelled"
)

// Settings is the difficulty tuple controlling ball behavior.
type Settings struct {
	BallSpeed           float64 `json:"ball_speed"`
	IncrementMultiplier float64 `json:"increment_multiplier"`
	MaxBallSpeed        float64 `json:"max_ball_speed"`
}

var difficultySettings = map[string]Settings{
	"easy":   {BallSpeed: 3, IncrementMultiplier: 0.02, MaxBallSpeed: 6},
	"medium": {BallSpeed: 5, IncrementMultiplier: 0.05, MaxBallSpeed: 8},
	"hard":   {BallSpeed: 7, IncrementMultiplier: 0.1, MaxBallSpeed: 11},
}

// SettingsFor returns the tuple for a difficulty, defaulting to medium for
// anything unrecognized.
func SettingsFor(difficulty string) Settings {
	if s, ok := difficultySettings[difficulty]; ok {
		return s
	}
	return difficultySettings["medium"]
}
