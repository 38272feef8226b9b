package bus

import (
	"context"
	"encoding/json"
	"testing"
)

func recvOne(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	default:
		t.Fatal("expected a buffered message, channel was empty")
		return nil
	}
}

func TestGroupSendReachesAllMembers(t *testing.T) {
	b := NewLocalBus()
	ch1 := b.Register("conn-1")
	ch2 := b.Register("conn-2")
	b.GroupAdd("game_abc", "conn-1")
	b.GroupAdd("game_abc", "conn-2")

	if err := b.GroupSend(context.Background(), "game_abc", map[string]string{"type": "game_start"}); err != nil {
		t.Fatalf("GroupSend failed: %v", err)
	}

	for _, ch := range []<-chan []byte{ch1, ch2} {
		var msg map[string]string
		if err := json.Unmarshal(recvOne(t, ch), &msg); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if msg["type"] != "game_start" {
			t.Errorf("got type %q, want game_start", msg["type"])
		}
	}
}

func TestGroupSendSkipsNonMembers(t *testing.T) {
	b := NewLocalBus()
	b.Register("conn-1")
	ch2 := b.Register("conn-2")
	b.GroupAdd("game_abc", "conn-1")

	if err := b.GroupSend(context.Background(), "game_abc", "hello"); err != nil {
		t.Fatalf("GroupSend failed: %v", err)
	}

	select {
	case data := <-ch2:
		t.Errorf("non-member received %s", data)
	default:
	}
}

func TestGroupDiscardStopsDelivery(t *testing.T) {
	b := NewLocalBus()
	ch := b.Register("conn-1")
	b.GroupAdd("game_abc", "conn-1")
	b.GroupDiscard("game_abc", "conn-1")

	if err := b.GroupSend(context.Background(), "game_abc", "hello"); err != nil {
		t.Fatalf("GroupSend failed: %v", err)
	}
	select {
	case data := <-ch:
		t.Errorf("discarded member received %s", data)
	default:
	}
}

func TestSendTargetsSingleChannel(t *testing.T) {
	b := NewLocalBus()
	ch1 := b.Register("conn-1")
	ch2 := b.Register("conn-2")

	if err := b.Send(context.Background(), "conn-1", "direct"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if got := string(recvOne(t, ch1)); got != `"direct"` {
		t.Errorf("got %s, want \"direct\"", got)
	}
	select {
	case data := <-ch2:
		t.Errorf("wrong channel received %s", data)
	default:
	}
}

func TestUnregisterClosesChannelAndLeavesGroups(t *testing.T) {
	b := NewLocalBus()
	ch := b.Register("conn-1")
	b.GroupAdd("game_abc", "conn-1")

	b.Unregister("conn-1")

	if _, open := <-ch; open {
		t.Error("channel should be closed after Unregister")
	}
	// Sending to the group must not deliver to (or panic on) the closed channel
	if err := b.GroupSend(context.Background(), "game_abc", "hello"); err != nil {
		t.Fatalf("GroupSend failed: %v", err)
	}
}

func TestReregisterReplacesChannel(t *testing.T) {
	b := NewLocalBus()
	old := b.Register("conn-1")
	fresh := b.Register("conn-1")

	if _, open := <-old; open {
		t.Error("stale channel should be closed on re-register")
	}
	if err := b.Send(context.Background(), "conn-1", "hi"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	recvOne(t, fresh)
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	b := NewLocalBus()
	b.Register("conn-1")
	b.GroupAdd("game_abc", "conn-1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendBuffer+10; i++ {
			b.GroupSend(context.Background(), "game_abc", i)
		}
	}()
	<-done
}
