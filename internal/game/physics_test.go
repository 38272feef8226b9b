package game

import (
	"testing"
)

func newTestRoom(difficulty string, seed int64) *Room {
	return NewRoom("test-game", 1, 2, difficulty, seed)
}

// stepN runs n ticks at the fixed timestep and returns the results.
func stepN(r *Room, n int) []StepResult {
	results := make([]StepResult, 0, n)
	r.Lock()
	defer r.Unlock()
	for i := 0; i < n; i++ {
		results = append(results, r.step(PhysicsDT))
	}
	return results
}

func TestInitialBallVelocity(t *testing.T) {
	r := newTestRoom("medium", 1)
	if r.Ball.DX != 5 {
		t.Errorf("dx = %v, want 5", r.Ball.DX)
	}
	if r.Ball.DY != 3.125 {
		t.Errorf("dy = %v, want 3.125 (speed * height/width)", r.Ball.DY)
	}
	if r.Ball.X != BaseWidth/2 || r.Ball.Y != BaseHeight/2 {
		t.Errorf("ball not centered: (%v, %v)", r.Ball.X, r.Ball.Y)
	}
}

func TestDifficultyTable(t *testing.T) {
	cases := []struct {
		difficulty      string
		speed, inc, max float64
	}{
		{"easy", 3, 0.02, 6},
		{"medium", 5, 0.05, 8},
		{"hard", 7, 0.1, 11},
		{"garbage", 5, 0.05, 8},
	}
	for _, tc := range cases {
		s := SettingsFor(tc.difficulty)
		if s.BallSpeed != tc.speed || s.IncrementMultiplier != tc.inc || s.MaxBallSpeed != tc.max {
			t.Errorf("%s: got %+v", tc.difficulty, s)
		}
	}
}

func TestPhysicsDeterminism(t *testing.T) {
	a := newTestRoom("medium", 42)
	b := newTestRoom("medium", 42)
	a.GameStatus = StatusPlaying
	b.GameStatus = StatusPlaying

	for i := 0; i < 5000; i++ {
		ra := stepN(a, 1)[0]
		rb := stepN(b, 1)[0]
		if ra != rb {
			t.Fatalf("tick %d: results diverged: %+v vs %+v", i, ra, rb)
		}
		if a.Ball != b.Ball {
			t.Fatalf("tick %d: ball state diverged:\n%+v\n%+v", i, a.Ball, b.Ball)
		}
	}
}

func TestBallStaysWithinSpeedBounds(t *testing.T) {
	r := newTestRoom("hard", 7)
	r.GameStatus = StatusPlaying
	// Track the ball with both paddles so speed keeps climbing.
	for i := 0; i < 20000; i++ {
		r.Lock()
		r.LeftPaddle.Y = ClampPaddleY(r.Ball.Y - PaddleHeight/2)
		r.RightPaddle.Y = ClampPaddleY(r.Ball.Y - PaddleHeight/2)
		r.step(PhysicsDT)
		if r.Ball.Speed < r.Settings.BallSpeed || r.Ball.Speed > r.Settings.MaxBallSpeed {
			r.Unlock()
			t.Fatalf("tick %d: speed %v outside [%v, %v]",
				i, r.Ball.Speed, r.Settings.BallSpeed, r.Settings.MaxBallSpeed)
		}
		r.Unlock()
	}
}

func TestWallBounceFlipsDirection(t *testing.T) {
	r := newTestRoom("medium", 3)
	r.Ball.Y = BallRadius + 0.5
	r.Ball.DY = -4
	r.Ball.DX = 0

	stepN(r, 1)

	if r.Ball.DY <= 0 {
		t.Errorf("dy = %v after top wall hit, want positive", r.Ball.DY)
	}
	// Jitter keeps the magnitude near the incoming speed
	if r.Ball.DY < 4-wallJitter || r.Ball.DY > 4+wallJitter {
		t.Errorf("dy = %v, want 4 +/- jitter", r.Ball.DY)
	}
}

func TestPaddleBounceAnglesByHitPosition(t *testing.T) {
	r := newTestRoom("medium", 9)
	// Ball approaching the left paddle face, striking near the bottom edge.
	r.LeftPaddle.Y = 200
	r.Ball.X = r.LeftPaddle.X + r.LeftPaddle.Width + BallRadius - 1
	r.Ball.Y = 295 // 45 units below center: hit position 0.9, clamped to 0.8
	r.Ball.DX = -5
	r.Ball.DY = 0

	res := stepN(r, 1)[0]

	if !res.Collided {
		t.Fatal("expected a paddle collision")
	}
	if r.Ball.DX <= 0 {
		t.Errorf("dx = %v after left paddle hit, want positive", r.Ball.DX)
	}
	// Angle uses the speed before the increment: 0.8 * 5
	wantDY := maxHitOffset * 5.0
	if r.Ball.DY < wantDY-paddleJitter || r.Ball.DY > wantDY+paddleJitter {
		t.Errorf("dy = %v, want %v +/- jitter (clamped hit offset)", r.Ball.DY, wantDY)
	}
	if r.Ball.Speed != 5*1.05 {
		t.Errorf("speed = %v, want 5.25", r.Ball.Speed)
	}
}

func TestScoringResetsAndCounts(t *testing.T) {
	r := newTestRoom("medium", 11)
	r.GameStatus = StatusPlaying
	// Park the left paddle out of the way, send the ball left.
	r.LeftPaddle.Y = 0
	r.Ball.Y = 400
	r.Ball.DY = 0
	r.Ball.DX = -5
	r.Ball.X = 30

	scores := 0
	for i := 0; i < 600 && scores == 0; i++ {
		res := stepN(r, 1)[0]
		if res.ScoredBy == 1 {
			t.Fatal("left player scored on own goal")
		}
		if res.ScoredBy == 2 {
			scores++
		}
	}
	if scores != 1 {
		t.Fatal("ball never crossed the left goal line")
	}
	if r.RightPaddle.Score != 1 {
		t.Errorf("right score = %d, want 1", r.RightPaddle.Score)
	}
	if r.Ball.X != BaseWidth/2 || r.Ball.DX != 5 {
		t.Errorf("ball not reset rightward: x=%v dx=%v", r.Ball.X, r.Ball.DX)
	}
	if r.Ball.Speed != 5 {
		t.Errorf("speed = %v after reset, want base 5", r.Ball.Speed)
	}
	if r.Ball.DY < -2.5 || r.Ball.DY > 2.5 {
		t.Errorf("reset dy = %v, want within half base speed", r.Ball.DY)
	}
}

func TestLeftPaddleMissScenario(t *testing.T) {
	// Five straight left misses end the match for player2.
	r := newTestRoom("medium", 13)
	r.GameStatus = StatusPlaying
	r.LeftPaddle.Y = 0

	misses := 0
	r.Lock()
	defer r.Unlock()
	for tick := 0; tick < 50000 && misses < PointsToWinMatch; tick++ {
		// Right paddle always returns the ball, left paddle hides top-left
		// while the ball travels low.
		r.RightPaddle.Y = ClampPaddleY(r.Ball.Y - PaddleHeight/2)
		if r.Ball.Y > 150 {
			r.LeftPaddle.Y = 0
		} else {
			r.LeftPaddle.Y = BaseHeight - PaddleHeight
		}
		res := r.step(PhysicsDT)
		if res.ScoredBy == 2 {
			misses++
			if status := r.evaluateMatchEnd(); status != "" {
				if misses != PointsToWinMatch {
					t.Fatalf("match ended at %d points", misses)
				}
				if status != StatusMatchOver {
					t.Fatalf("status = %s, want matchOver", status)
				}
				if r.Winner != "player2" {
					t.Fatalf("winner = %s, want player2", r.Winner)
				}
			}
		}
	}
	if misses != PointsToWinMatch {
		t.Fatalf("only %d misses recorded", misses)
	}
	if r.MatchWins.Player2 != 1 {
		t.Errorf("player2 match wins = %d, want 1", r.MatchWins.Player2)
	}
}
