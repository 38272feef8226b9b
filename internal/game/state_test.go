package game

import "testing"

func TestPaddleOwnership(t *testing.T) {
	r := newTestRoom("medium", 1)
	leftStart := r.LeftPaddle.Y
	rightStart := r.RightPaddle.Y

	r.MovePaddle(1, leftStart+60)
	if r.LeftPaddle.Y != leftStart+60 {
		t.Errorf("left paddle y = %v, want %v", r.LeftPaddle.Y, leftStart+60)
	}
	if r.RightPaddle.Y != rightStart {
		t.Error("player 1 move touched the right paddle")
	}

	r.LeftPaddle.Y = leftStart
	r.MovePaddle(2, rightStart-60)
	if r.RightPaddle.Y != rightStart-60 {
		t.Errorf("right paddle y = %v, want %v", r.RightPaddle.Y, rightStart-60)
	}
	if r.LeftPaddle.Y != leftStart {
		t.Error("player 2 move touched the left paddle")
	}
}

func TestPaddleMoveSnapsToBounds(t *testing.T) {
	r := newTestRoom("medium", 1)

	r.LeftPaddle.Y = 30
	r.MovePaddle(1, -50)
	if r.LeftPaddle.Y != 0 {
		t.Errorf("y = %v, want snapped to 0", r.LeftPaddle.Y)
	}

	r.LeftPaddle.Y = BaseHeight - PaddleHeight - 20
	r.MovePaddle(1, BaseHeight)
	if r.LeftPaddle.Y != BaseHeight-PaddleHeight {
		t.Errorf("y = %v, want snapped to %v", r.LeftPaddle.Y, BaseHeight-PaddleHeight)
	}
}

func TestPaddleMoveRejectsTeleports(t *testing.T) {
	r := newTestRoom("medium", 1)
	start := r.LeftPaddle.Y

	if !r.MovePaddle(1, start+MaxPaddleStep) {
		t.Fatal("move at exactly the per-message limit rejected")
	}
	held := r.LeftPaddle.Y
	if r.MovePaddle(1, held+MaxPaddleStep+1) {
		t.Error("move beyond the per-message limit accepted")
	}
	if r.LeftPaddle.Y != held {
		t.Errorf("rejected move shifted the paddle to %v", r.LeftPaddle.Y)
	}
}

func TestConnectionFlags(t *testing.T) {
	r := newTestRoom("medium", 1)
	if r.AnyConnected() {
		t.Error("fresh room should have nobody connected")
	}
	if both := r.SetConnected(1, true); both {
		t.Error("one player is not both")
	}
	if both := r.SetConnected(2, true); !both {
		t.Error("both players connected should report true")
	}
	r.SetConnected(1, false)
	if r.BothConnected() {
		t.Error("player 1 left, both should be false")
	}
	if !r.AnyConnected() {
		t.Error("player 2 is still connected")
	}
}

func TestTerminalStatusSticks(t *testing.T) {
	r := newTestRoom("medium", 1)
	r.SetStatus(StatusGameOver)
	if r.SetStatus(StatusPlaying) {
		t.Error("gameOver must not transition back to playing")
	}
	if r.Status() != StatusGameOver {
		t.Errorf("status = %s, want gameOver", r.Status())
	}
}

func TestGameOverAtThreeMatchWins(t *testing.T) {
	r := newTestRoom("medium", 1)
	r.Lock()
	defer r.Unlock()

	for match := 1; match <= MatchesToWinGame; match++ {
		r.GameStatus = StatusPlaying
		r.LeftPaddle.Score = PointsToWinMatch
		status := r.evaluateMatchEnd()

		if match < MatchesToWinGame {
			if status != StatusMatchOver {
				t.Fatalf("match %d: status = %s, want matchOver", match, status)
			}
			r.ResetForNewMatch()
			if r.LeftPaddle.Score != 0 || r.RightPaddle.Score != 0 {
				t.Fatal("scores not reset for new match")
			}
			if r.CurrentMatch != match+1 {
				t.Fatalf("current match = %d, want %d", r.CurrentMatch, match+1)
			}
		} else {
			if status != StatusGameOver {
				t.Fatalf("match %d: status = %s, want gameOver", match, status)
			}
		}
	}
	if r.MatchWins.Player1 != MatchesToWinGame {
		t.Errorf("player1 match wins = %d, want %d", r.MatchWins.Player1, MatchesToWinGame)
	}
	if r.Winner != "player1" {
		t.Errorf("winner = %s, want player1", r.Winner)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry()
	g := testGameRecord("g1", 1, 2)

	room, created := reg.GetOrCreate(g)
	if !created {
		t.Fatal("first access should create")
	}
	again, created := reg.GetOrCreate(g)
	if created || again != room {
		t.Fatal("second access should return the same room")
	}
	if got, ok := reg.Get("g1"); !ok || got != room {
		t.Fatal("Get should find the room")
	}
	if reg.Count() != 1 {
		t.Errorf("count = %d, want 1", reg.Count())
	}

	reg.Delete("g1")
	if _, ok := reg.Get("g1"); ok {
		t.Fatal("room should be gone after Delete")
	}
	// Deleting twice is harmless
	reg.Delete("g1")
}
