package game

import (
	"testing"

	"github.com/pongarena/backend/internal/models"
)

func testGameRecord(id string, p1, p2 int) *models.Game {
	return &models.Game{ID: id, Player1ID: p1, Player2ID: p2, Difficulty: "medium"}
}

func queueEntries(users ...int) []models.QueueEntry {
	entries := make([]models.QueueEntry, len(users))
	for i, u := range users {
		entries[i] = models.QueueEntry{ID: i + 1, UserID: u}
	}
	return entries
}

func TestPairEntriesFIFO(t *testing.T) {
	pairs := PairEntries(queueEntries(7, 9, 11, 13, 15))
	if len(pairs) != 2 {
		t.Fatalf("pairs = %d, want 2 with one waiter left over", len(pairs))
	}
	if pairs[0][0].UserID != 7 || pairs[0][1].UserID != 9 {
		t.Errorf("first pair = (%d, %d), want the two oldest waiters", pairs[0][0].UserID, pairs[0][1].UserID)
	}
	if pairs[1][0].UserID != 11 || pairs[1][1].UserID != 13 {
		t.Errorf("second pair = (%d, %d), want the next two", pairs[1][0].UserID, pairs[1][1].UserID)
	}
}

func TestPairEntriesSkipsSameUser(t *testing.T) {
	// A duplicate entry for the head user is passed over, not matched
	// against its owner.
	pairs := PairEntries(queueEntries(7, 7, 9))
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	if pairs[0][0].UserID != 7 || pairs[0][1].UserID != 9 {
		t.Errorf("pair = (%d, %d), want (7, 9)", pairs[0][0].UserID, pairs[0][1].UserID)
	}

	if pairs := PairEntries(queueEntries(7, 7)); len(pairs) != 0 {
		t.Errorf("a user's own entries paired together: %v", pairs)
	}
}

func TestPairEntriesMatchesEachUserOnce(t *testing.T) {
	// User 7's second entry must not produce a second game for them, so
	// user 11 is left waiting for the next sweep.
	pairs := PairEntries(queueEntries(7, 9, 7, 11))
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	if pairs[0][0].UserID != 7 || pairs[0][1].UserID != 9 {
		t.Errorf("pair = (%d, %d), want (7, 9)", pairs[0][0].UserID, pairs[0][1].UserID)
	}
}

func TestPairEntriesEmptyAndSingle(t *testing.T) {
	if pairs := PairEntries(nil); len(pairs) != 0 {
		t.Error("no waiters should yield no pairs")
	}
	if pairs := PairEntries(queueEntries(7)); len(pairs) != 0 {
		t.Error("a lone waiter should yield no pairs")
	}
}

func TestUserGroupName(t *testing.T) {
	if got := UserGroup(42); got != "user_42" {
		t.Errorf("UserGroup(42) = %q", got)
	}
	if got := GroupName("abc"); got != "game_abc" {
		t.Errorf("GroupName(abc) = %q", got)
	}
}
