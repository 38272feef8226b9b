package game

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Ball carries the previous position so clients can interpolate between
// snapshots.
type Ball struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Speed  float64 `json:"speed"`
	Radius float64 `json:"radius"`
	PrevX  float64 `json:"prev_x"`
	PrevY  float64 `json:"prev_y"`
}

type Paddle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Speed  float64 `json:"speed"`
	Score  int     `json:"score"`
}

type PlayerSlot struct {
	ID        int  `json:"id"`
	Connected bool `json:"connected"`
}

// MatchWins tracks best-of-5 progress.
type MatchWins struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// Room is the authoritative in-memory state for one live game. Physics
// writes belong to the room loop; connection handlers mutate paddles and
// connection flags under the same mutex.
type Room struct {
	mu sync.Mutex

	GameID       string
	Player1ID    int
	Player2ID    int
	Difficulty   string
	Settings     Settings
	Ball         Ball
	LeftPaddle   Paddle
	RightPaddle  Paddle
	Players      map[int]*PlayerSlot
	MatchWins    MatchWins
	CurrentMatch int
	GameStatus   string
	Winner       string

	LastUpdateTime   time.Time
	LastActivityTime time.Time
	LoopRunning      bool

	rng    *rand.Rand
	cancel func()
}

// NewRoom materializes room state from a game record. The seed drives the
// jitter and ball-reset randomness; production callers pass the clock, tests
// pass a fixed value for reproducible traces.
func NewRoom(gameID string, player1ID, player2ID int, difficulty string, seed int64) *Room {
	settings := SettingsFor(difficulty)
	now := time.Now()
	r := &Room{
		GameID:     gameID,
		Player1ID:  player1ID,
		Player2ID:  player2ID,
		Difficulty: difficulty,
		Settings:   settings,
		LeftPaddle: Paddle{
			X: 20, Y: BaseHeight/2 - PaddleHeight/2,
			Width: PaddleWidth, Height: PaddleHeight, Speed: PaddleSpeed,
		},
		RightPaddle: Paddle{
			X: BaseWidth - 20 - PaddleWidth, Y: BaseHeight/2 - PaddleHeight/2,
			Width: PaddleWidth, Height: PaddleHeight, Speed: PaddleSpeed,
		},
		Players: map[int]*PlayerSlot{
			1: {ID: player1ID},
			2: {ID: player2ID},
		},
		CurrentMatch:     1,
		GameStatus:       StatusWaiting,
		LastUpdateTime:   now,
		LastActivityTime: now,
		rng:              rand.New(rand.NewSource(seed)),
	}
	r.resetBall(1)
	r.Ball.DY = settings.BallSpeed * BaseHeight / BaseWidth
	return r
}

// resetBall recenters the ball toward the given direction with base speed.
// Caller holds the lock.
func (r *Room) resetBall(direction float64) {
	s := r.Settings
	r.Ball = Ball{
		X:      BaseWidth / 2,
		Y:      BaseHeight / 2,
		Speed:  s.BallSpeed,
		DX:     direction * s.BallSpeed,
		DY:     (r.rng.Float64()*2 - 1) * s.BallSpeed / 2,
		Radius: BallRadius,
		PrevX:  BaseWidth / 2,
		PrevY:  BaseHeight / 2,
	}
}

// Lock exposes the room mutex to connection handlers.
func (r *Room) Lock()   { r.mu.Lock() }
func (r *Room) Unlock() { r.mu.Unlock() }

// ClampPaddleY snaps an out-of-bound paddle target back into the field.
func ClampPaddleY(y float64) float64 {
	if y < 0 {
		return 0
	}
	if y > BaseHeight-PaddleHeight {
		return BaseHeight - PaddleHeight
	}
	return y
}

// MovePaddle writes a player's paddle position. Player 1 owns the left
// paddle, player 2 the right; a move never touches the opponent's paddle.
// The target is snapped into the field, and a jump beyond MaxPaddleStep is
// rejected with the paddle left where it was.
func (r *Room) MovePaddle(playerNum int, y float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &r.LeftPaddle
	if playerNum != 1 {
		p = &r.RightPaddle
	}
	y = ClampPaddleY(y)
	if math.Abs(y-p.Y) > MaxPaddleStep {
		return false
	}
	p.Y = y
	return true
}

// SetConnected flips a player's presence flag and reports whether both
// players are now connected.
func (r *Room) SetConnected(playerNum int, connected bool) (bothConnected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.Players[playerNum]; ok {
		slot.Connected = connected
	}
	if connected {
		r.LastActivityTime = time.Now()
	}
	return r.Players[1].Connected && r.Players[2].Connected
}

func (r *Room) BothConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Players[1].Connected && r.Players[2].Connected
}

func (r *Room) AnyConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Players[1].Connected || r.Players[2].Connected
}

// Status returns the current game status under the lock.
func (r *Room) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.GameStatus
}

// SetStatus transitions the room status. Terminal statuses stick.
func (r *Room) SetStatus(status string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GameStatus == StatusGameOver || r.GameStatus == StatusCancelled {
		return false
	}
	r.GameStatus = status
	return true
}

// ResetForNewMatch prepares the next subgame: fresh ball, centered paddles,
// zero scores. Caller holds the lock.
func (r *Room) ResetForNewMatch() {
	r.resetBall(1)
	r.Ball.DY = r.Settings.BallSpeed * BaseHeight / BaseWidth
	r.LeftPaddle.Y = BaseHeight/2 - PaddleHeight/2
	r.RightPaddle.Y = BaseHeight/2 - PaddleHeight/2
	r.LeftPaddle.Score = 0
	r.RightPaddle.Score = 0
	r.Winner = ""
	r.CurrentMatch++
}

// evaluateMatchEnd applies the first-to-5 / first-to-3 rules after a score.
// Caller holds the lock. Returns the new status if a transition happened.
func (r *Room) evaluateMatchEnd() string {
	var winner string
	switch {
	case r.LeftPaddle.Score >= PointsToWinMatch:
		winner = "player1"
		r.MatchWins.Player1++
	case r.RightPaddle.Score >= PointsToWinMatch:
		winner = "player2"
		r.MatchWins.Player2++
	default:
		return ""
	}
	r.Winner = winner
	if r.MatchWins.Player1 >= MatchesToWinGame || r.MatchWins.Player2 >= MatchesToWinGame {
		r.GameStatus = StatusGameOver
	} else {
		r.GameStatus = StatusMatchOver
	}
	return r.GameStatus
}

// Snapshot is the wire form of a room broadcast to both clients.
type Snapshot struct {
	Type            string    `json:"type"`
	GameID          string    `json:"game_id"`
	Ball            Ball      `json:"ball"`
	LeftPaddle      Paddle    `json:"left_paddle"`
	RightPaddle     Paddle    `json:"right_paddle"`
	MatchWins       MatchWins `json:"match_wins"`
	CurrentMatch    int       `json:"current_match"`
	GameStatus      string    `json:"game_status"`
	Winner          string    `json:"winner,omitempty"`
	BroadcastTime   float64   `json:"broadcast_time"`
	PhysicsInterval float64   `json:"physics_interval"`
}

// Snapshot copies the renderable state under the lock.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Type:            "game_state",
		GameID:          r.GameID,
		Ball:            r.Ball,
		LeftPaddle:      r.LeftPaddle,
		RightPaddle:     r.RightPaddle,
		MatchWins:       r.MatchWins,
		CurrentMatch:    r.CurrentMatch,
		GameStatus:      r.GameStatus,
		Winner:          r.Winner,
		BroadcastTime:   float64(time.Now().UnixNano()) / 1e9,
		PhysicsInterval: PhysicsDT,
	}
}
