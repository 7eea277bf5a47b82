package chatclient

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"relaychat/internal/domain"
)

func confirmed(room, id, text string) domain.Message {
	return domain.Message{ID: id, Room: room, Text: text, Sender: "peer", CreatedAt: time.Now()}
}

func statuses(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Status
	}
	return out
}

func TestSendIntentAppendsPendingEntry(t *testing.T) {
	c := NewConversation("general")
	c.ApplyBroadcast(confirmed("general", "m1", "earlier"))

	token := c.SendIntent("alice", "hello", "")
	if token == "" {
		t.Fatal("expected a client token")
	}

	entries := c.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	last := entries[1]
	if last.Status != StatusPending || last.Text != "hello" || last.ClientToken != token {
		t.Fatalf("unexpected optimistic entry: %+v", last)
	}
}

func TestApplyAckConfirmsInPlace(t *testing.T) {
	c := NewConversation("general")
	c.ApplyBroadcast(confirmed("general", "m1", "first"))
	token := c.SendIntent("alice", "second", "")
	c.ApplyBroadcast(confirmed("general", "m3", "third"))

	c.ApplyAck(domain.AckPayload{Status: domain.AckDelivered, ServerID: "m2", ClientToken: token})

	entries := c.Entries()
	if entries[1].Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %q", entries[1].Status)
	}
	if entries[1].ID != "m2" {
		t.Errorf("server id not adopted: %q", entries[1].ID)
	}
	// Confirmation never reorders: the sequence stays first, second, third.
	for i, want := range []string{"first", "second", "third"} {
		if entries[i].Text != want {
			t.Errorf("position %d: got %q, want %q", i, entries[i].Text, want)
		}
	}
}

func TestApplyAckErrorFailsEntry(t *testing.T) {
	c := NewConversation("general")
	token := c.SendIntent("alice", "hello", "")

	c.ApplyAck(domain.AckPayload{Status: domain.AckError, ClientToken: token, Reason: "boom"})

	entries := c.Entries()
	if entries[0].Status != StatusFailed {
		t.Fatalf("expected failed, got %q", entries[0].Status)
	}
	if len(entries) != 1 {
		t.Errorf("failed entry must stay visible, got %d entries", len(entries))
	}
}

func TestLateAckAfterTimeoutIsDiscarded(t *testing.T) {
	c := NewConversation("general")
	token := c.SendIntent("alice", "hello", "")

	c.Fail(token)
	c.ApplyAck(domain.AckPayload{Status: domain.AckDelivered, ServerID: "m9", ClientToken: token})

	entry := c.Entries()[0]
	if entry.Status != StatusFailed {
		t.Fatalf("late ack must not resurrect a failed entry, got %q", entry.Status)
	}
	if entry.ID != "" {
		t.Errorf("late ack must not adopt the server id, got %q", entry.ID)
	}
}

func TestApplyAckUnknownTokenIsNoop(t *testing.T) {
	c := NewConversation("general")
	c.SendIntent("alice", "hello", "")

	c.ApplyAck(domain.AckPayload{Status: domain.AckDelivered, ServerID: "mX", ClientToken: "unknown"})

	if got := statuses(c.Entries()); got[0] != StatusPending {
		t.Fatalf("unknown ack must leave entries alone, got %v", got)
	}
}

func TestBroadcastEchoDedupedByToken(t *testing.T) {
	c := NewConversation("general")
	token := c.SendIntent("alice", "hello", "")

	// The room broadcast of our own send arrives before the ack.
	c.ApplyBroadcast(domain.Message{ID: "m1", ClientToken: token, Room: "general", Sender: "alice", Text: "hello"})
	c.ApplyAck(domain.AckPayload{Status: domain.AckDelivered, ServerID: "m1", ClientToken: token})

	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("own echo must not duplicate the entry, got %d", len(entries))
	}
	if entries[0].Status != StatusConfirmed || entries[0].ID != "m1" {
		t.Fatalf("unexpected reconciled entry: %+v", entries[0])
	}
}

func TestBroadcastForOtherRoomBumpsUnread(t *testing.T) {
	c := NewConversation("general")
	c.ApplyBroadcast(confirmed("general", "m1", "visible"))

	before := c.Entries()
	c.ApplyBroadcast(confirmed("random", "m2", "elsewhere"))
	c.ApplyBroadcast(confirmed("random", "m3", "elsewhere too"))

	if got := c.Unread("random"); got != 2 {
		t.Fatalf("expected unread 2, got %d", got)
	}
	after := c.Entries()
	if len(after) != len(before) {
		t.Fatal("other-room broadcasts must not change the visible sequence")
	}
}

func TestLoadOlderPrependsPage(t *testing.T) {
	c := NewConversation("general")
	c.ApplyBroadcast(confirmed("general", "m3", "three"))
	c.ApplyBroadcast(confirmed("general", "m4", "four"))

	cursor, ok := c.BeginLoadOlder()
	if !ok {
		t.Fatal("first load must be allowed")
	}
	if cursor == nil {
		t.Fatal("cursor must be the oldest entry's timestamp")
	}

	c.CompleteLoadOlder([]domain.Message{
		confirmed("general", "m1", "one"),
		confirmed("general", "m2", "two"),
	})

	entries := c.Entries()
	want := []string{"one", "two", "three", "four"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, text := range want {
		if entries[i].Text != text {
			t.Errorf("position %d: got %q, want %q", i, entries[i].Text, text)
		}
	}
}

func TestLoadOlderSingleFlight(t *testing.T) {
	c := NewConversation("general")
	c.ApplyBroadcast(confirmed("general", "m2", "two"))

	if _, ok := c.BeginLoadOlder(); !ok {
		t.Fatal("first load must be allowed")
	}
	if _, ok := c.BeginLoadOlder(); ok {
		t.Fatal("second load while one is outstanding must be refused")
	}

	c.CompleteLoadOlder([]domain.Message{confirmed("general", "m1", "one")})
	if _, ok := c.BeginLoadOlder(); !ok {
		t.Fatal("load must be allowed again after completion")
	}
}

func TestLoadOlderSingleFlightConcurrent(t *testing.T) {
	c := NewConversation("general")
	c.ApplyBroadcast(confirmed("general", "m1", "one"))

	var granted int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := c.BeginLoadOlder(); ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 1 {
		t.Fatalf("expected exactly one in-flight load, got %d", granted)
	}
}

func TestEmptyPageLatchesNoMoreHistory(t *testing.T) {
	c := NewConversation("general")
	c.ApplyBroadcast(confirmed("general", "m1", "one"))

	if _, ok := c.BeginLoadOlder(); !ok {
		t.Fatal("first load must be allowed")
	}
	c.CompleteLoadOlder(nil)

	if _, ok := c.BeginLoadOlder(); ok {
		t.Fatal("exhausted history must refuse further loads")
	}
}

func TestAbortLoadOlderAllowsRetry(t *testing.T) {
	c := NewConversation("general")
	c.ApplyBroadcast(confirmed("general", "m1", "one"))

	if _, ok := c.BeginLoadOlder(); !ok {
		t.Fatal("first load must be allowed")
	}
	c.AbortLoadOlder()

	if _, ok := c.BeginLoadOlder(); !ok {
		t.Fatal("a failed load must not latch the single-flight flag")
	}
}

func TestSwitchRoomResetsState(t *testing.T) {
	c := NewConversation("general")
	c.ApplyBroadcast(confirmed("general", "m1", "one"))
	c.ApplyBroadcast(confirmed("random", "m2", "unseen"))
	if _, ok := c.BeginLoadOlder(); !ok {
		t.Fatal("first load must be allowed")
	}
	c.CompleteLoadOlder(nil) // latch exhaustion in the old room

	c.SwitchRoom("random")

	if got := c.Room(); got != "random" {
		t.Fatalf("room not switched: %q", got)
	}
	if len(c.Entries()) != 0 {
		t.Error("entries must be cleared on switch")
	}
	if got := c.Unread("random"); got != 0 {
		t.Errorf("opening a room must clear its unread counter, got %d", got)
	}
	if _, ok := c.BeginLoadOlder(); !ok {
		t.Error("pagination state must reset for the new room")
	}
}

func TestManyPendingSendsKeepOrder(t *testing.T) {
	c := NewConversation("general")
	tokens := make([]string, 5)
	for i := range tokens {
		tokens[i] = c.SendIntent("alice", fmt.Sprintf("msg-%d", i), "")
	}

	// Acks arrive out of order.
	c.ApplyAck(domain.AckPayload{Status: domain.AckDelivered, ServerID: "s3", ClientToken: tokens[3]})
	c.ApplyAck(domain.AckPayload{Status: domain.AckDelivered, ServerID: "s0", ClientToken: tokens[0]})
	c.ApplyAck(domain.AckPayload{Status: domain.AckError, ClientToken: tokens[1]})

	entries := c.Entries()
	for i := range tokens {
		if want := fmt.Sprintf("msg-%d", i); entries[i].Text != want {
			t.Fatalf("position %d: got %q, want %q", i, entries[i].Text, want)
		}
	}
	want := []string{StatusConfirmed, StatusFailed, StatusPending, StatusConfirmed, StatusPending}
	for i, s := range statuses(entries) {
		if s != want[i] {
			t.Errorf("entry %d status %q, want %q", i, s, want[i])
		}
	}
}
