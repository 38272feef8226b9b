package game

import (
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pongarena/backend/internal/bus"
)

// fakeResultStore records terminal persistence calls in place of Postgres.
type fakeResultStore struct {
	mu        sync.Mutex
	completed []string
	finalized map[string]int
}

func (f *fakeResultStore) CompleteMatch(gameID string, matchNumber, score1, score2 int, winner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, gameID)
	return nil
}

func (f *fakeResultStore) FinalizeGame(gameID string, winnerID, wins1, wins2 int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalized == nil {
		f.finalized = make(map[string]int)
	}
	f.finalized[gameID] = winnerID
	return nil
}

func (f *fakeResultStore) finalizedWinner(gameID string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	winner, ok := f.finalized[gameID]
	return winner, ok
}

func TestAccumulatorRunsFixedSteps(t *testing.T) {
	// A frame exactly two timesteps long yields two ticks and no remainder.
	steps, rem := advanceAccumulator(0, 2*PhysicsDT)
	if steps != 2 {
		t.Errorf("steps = %d, want 2", steps)
	}
	if math.Abs(rem) > 1e-12 {
		t.Errorf("remainder = %v, want 0", rem)
	}
}

func TestAccumulatorCarriesRemainder(t *testing.T) {
	steps, rem := advanceAccumulator(0, 1.5*PhysicsDT)
	if steps != 1 {
		t.Errorf("steps = %d, want 1", steps)
	}
	if math.Abs(rem-0.5*PhysicsDT) > 1e-12 {
		t.Errorf("remainder = %v, want half a timestep", rem)
	}

	// The carried remainder tops up the next frame.
	steps, rem = advanceAccumulator(rem, 0.5*PhysicsDT)
	if steps != 1 {
		t.Errorf("steps after carry = %d, want 1", steps)
	}
	if math.Abs(rem) > 1e-12 {
		t.Errorf("remainder after carry = %v, want 0", rem)
	}
}

func TestAccumulatorClampsLongFrames(t *testing.T) {
	// A one-second stall is clamped to MaxFrameTime, then capped at
	// MaxUpdatesPerFrame ticks with at most one tick's worth kept.
	steps, rem := advanceAccumulator(0, 1.0)
	if steps != MaxUpdatesPerFrame {
		t.Errorf("steps = %d, want cap %d", steps, MaxUpdatesPerFrame)
	}
	if rem > PhysicsDT {
		t.Errorf("remainder = %v, want <= one timestep after clamp", rem)
	}
}

func TestAccumulatorNeverSpirals(t *testing.T) {
	// Feeding worst-case frames forever must keep the per-frame work bounded.
	acc := 0.0
	for i := 0; i < 1000; i++ {
		var steps int
		steps, acc = advanceAccumulator(acc, MaxFrameTime)
		if steps > MaxUpdatesPerFrame {
			t.Fatalf("frame %d ran %d steps", i, steps)
		}
		if acc > PhysicsDT {
			t.Fatalf("frame %d left accumulator %v above one timestep", i, acc)
		}
	}
}

func TestShortFrameRunsNoSteps(t *testing.T) {
	steps, rem := advanceAccumulator(0, PhysicsDT/4)
	if steps != 0 {
		t.Errorf("steps = %d, want 0", steps)
	}
	if math.Abs(rem-PhysicsDT/4) > 1e-12 {
		t.Errorf("remainder = %v, want the full frame carried", rem)
	}
}

func TestInactiveRoomIsReclaimed(t *testing.T) {
	b := bus.NewLocalBus()
	reg := NewRegistry()
	results := &fakeResultStore{}
	e := NewEngine(results, b, reg, 25*time.Millisecond, 0)

	room, _ := reg.GetOrCreate(testGameRecord("idle-game", 1, 2))
	e.EnsureLoop(room)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := reg.Get("idle-game"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("room with nobody connected was never reclaimed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if room.Status() != StatusCancelled {
		t.Errorf("status = %s, want cancelled", room.Status())
	}
	if winner, ok := results.finalizedWinner("idle-game"); !ok || winner != 0 {
		t.Errorf("finalized winner = %d (recorded %v), want 0 with no winner", winner, ok)
	}
}

func TestSnapshotBroadcastTimesIncrease(t *testing.T) {
	b := bus.NewLocalBus()
	watcher := b.Register("watcher")
	reg := NewRegistry()
	e := NewEngine(&fakeResultStore{}, b, reg, time.Minute, 0)

	room, _ := reg.GetOrCreate(testGameRecord("live-game", 1, 2))
	b.GroupAdd(GroupName("live-game"), "watcher")
	room.SetConnected(1, true)
	room.SetConnected(2, true)
	room.SetStatus(StatusPlaying)
	e.EnsureLoop(room)
	defer reg.Delete("live-game")

	var last float64
	seen := 0
	timeout := time.After(2 * time.Second)
	for seen < 6 {
		select {
		case raw := <-watcher:
			var frame struct {
				Type          string  `json:"type"`
				BroadcastTime float64 `json:"broadcast_time"`
			}
			if err := json.Unmarshal(raw, &frame); err != nil {
				t.Fatalf("undecodable frame: %v", err)
			}
			if frame.Type != "game_state" {
				continue
			}
			if frame.BroadcastTime <= last {
				t.Fatalf("snapshot %d: broadcast_time %v not after %v", seen, frame.BroadcastTime, last)
			}
			last = frame.BroadcastTime
			seen++
		case <-timeout:
			t.Fatalf("only %d snapshots arrived before the deadline", seen)
		}
	}
}
