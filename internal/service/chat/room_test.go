package chat_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	chatmodel "github.com/zhouzirui/projecthub/backend/internal/model/chat"
	chat "github.com/zhouzirui/projecthub/backend/internal/service/chat"
)

type failingStore struct {
	chatmodel.MessageStore
	appendErr error
	recentErr error
}

func (s *failingStore) Append(ctx context.Context, m chatmodel.Message) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.MessageStore.Append(ctx, m)
}

func (s *failingStore) Recent(ctx context.Context, limit int) ([]chatmodel.Message, error) {
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	return s.MessageStore.Recent(ctx, limit)
}

func seedMessage(t *testing.T, store *chatmodel.MemoryStore, text string) {
	t.Helper()
	m := chatmodel.Message{
		ID:        text,
		UserID:    "seed",
		Username:  "seed",
		Message:   text,
		Timestamp: time.Now().UTC(),
	}
	if err := store.Append(context.Background(), m); err != nil {
		t.Fatalf("seed Append err: %v", err)
	}
}

func newRoom(limit int) (*chat.Room, *chatmodel.MemoryStore) {
	store := chatmodel.NewMemoryStore()
	return chat.NewRoom(chat.NewRegistry(), store, limit), store
}

func historyOf(t *testing.T, ev any) []chatmodel.Message {
	t.Helper()
	h, ok := ev.(chat.HistoryEvent)
	if !ok {
		t.Fatalf("expected HistoryEvent, got %T", ev)
	}
	return h.Messages
}

func TestJoinReplaysHistoryOldestFirst(t *testing.T) {
	room, store := newRoom(50)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedMessage(t, store, fmt.Sprintf("m%d", i))
	}

	conn := &fakeConn{}
	if _, err := room.Join(ctx, conn, "u1", "alice"); err != nil {
		t.Fatalf("Join err: %v", err)
	}

	events := conn.recorded()
	if len(events) != 2 {
		t.Fatalf("expected history then join announcement, got %d events", len(events))
	}

	history := historyOf(t, events[0])
	if len(history) != 5 {
		t.Fatalf("expected 5 history messages, got %d", len(history))
	}
	for i, m := range history {
		if want := fmt.Sprintf("m%d", i); m.Message != want {
			t.Fatalf("history out of order at %d: got %s want %s", i, m.Message, want)
		}
	}

	joined, ok := events[1].(chat.PresenceEvent)
	if !ok || joined.Type != chat.EventUserJoined || joined.Username != "alice" {
		t.Fatalf("expected user_joined for alice, got %#v", events[1])
	}
}

func TestJoinHistoryCappedAtLimit(t *testing.T) {
	room, store := newRoom(3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		seedMessage(t, store, fmt.Sprintf("m%d", i))
	}

	conn := &fakeConn{}
	if _, err := room.Join(ctx, conn, "u1", "alice"); err != nil {
		t.Fatalf("Join err: %v", err)
	}

	history := historyOf(t, conn.recorded()[0])
	if len(history) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(history))
	}
	// The cap keeps the most recent messages, still oldest first.
	for i, want := range []string{"m7", "m8", "m9"} {
		if history[i].Message != want {
			t.Fatalf("history[%d]: got %s want %s", i, history[i].Message, want)
		}
	}
}

func TestJoinFailedHandshakeNotRegistered(t *testing.T) {
	store := &failingStore{MessageStore: chatmodel.NewMemoryStore(), recentErr: errors.New("db down")}
	reg := chat.NewRegistry()
	room := chat.NewRoom(reg, store, 50)

	if _, err := room.Join(context.Background(), &fakeConn{}, "u1", "alice"); err == nil {
		t.Fatal("expected handshake error")
	}
	if reg.Len() != 0 {
		t.Fatalf("failed handshake must not register a session, got %d", reg.Len())
	}

	// A rejected history write keeps the session invisible as well.
	room2 := chat.NewRoom(chat.NewRegistry(), chatmodel.NewMemoryStore(), 50)
	if _, err := room2.Join(context.Background(), &fakeConn{fail: true}, "u1", "alice"); err == nil {
		t.Fatal("expected handshake error on history write failure")
	}
	if room2.Registry().Len() != 0 {
		t.Fatal("failed history delivery must not register a session")
	}
}

func TestPostPersistsBeforeBroadcast(t *testing.T) {
	room, store := newRoom(50)
	ctx := context.Background()

	connA := &fakeConn{}
	sessA, err := room.Join(ctx, connA, "u1", "alice")
	if err != nil {
		t.Fatalf("Join err: %v", err)
	}

	msg, err := room.Post(ctx, sessA, "hello")
	if err != nil {
		t.Fatalf("Post err: %v", err)
	}
	if msg.ID == "" || msg.Timestamp.IsZero() {
		t.Fatal("expected assigned id and server timestamp")
	}

	recent, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent err: %v", err)
	}
	if len(recent) != 1 || recent[0].Message != "hello" {
		t.Fatalf("expected persisted message, got %#v", recent)
	}

	events := connA.recorded()
	last, ok := events[len(events)-1].(chat.MessageEvent)
	if !ok || last.Data.Message != "hello" || last.Data.Username != "alice" {
		t.Fatalf("expected message broadcast, got %#v", events[len(events)-1])
	}
}

func TestPostStoreFailureSkipsBroadcast(t *testing.T) {
	store := &failingStore{MessageStore: chatmodel.NewMemoryStore(), appendErr: errors.New("db down")}
	reg := chat.NewRegistry()
	room := chat.NewRoom(reg, store, 50)
	ctx := context.Background()

	connA := &fakeConn{}
	sessA, err := room.Join(ctx, connA, "u1", "alice")
	if err != nil {
		t.Fatalf("Join err: %v", err)
	}
	before := len(connA.recorded())

	if _, err := room.Post(ctx, sessA, "hello"); err == nil {
		t.Fatal("expected persistence error")
	}
	if got := len(connA.recorded()); got != before {
		t.Fatalf("unpersisted message must not be broadcast, got %d new events", got-before)
	}
	// The session survives the failure.
	if reg.Len() != 1 {
		t.Fatalf("session should remain connected, got %d", reg.Len())
	}
}

func TestPerOriginOrderingPreserved(t *testing.T) {
	room, _ := newRoom(50)
	ctx := context.Background()

	connA := &fakeConn{}
	connB := &fakeConn{}
	sessA, err := room.Join(ctx, connA, "u1", "alice")
	if err != nil {
		t.Fatalf("Join err: %v", err)
	}
	if _, err := room.Join(ctx, connB, "u2", "bob"); err != nil {
		t.Fatalf("Join err: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := room.Post(ctx, sessA, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("Post err: %v", err)
		}
	}

	var got []string
	for _, ev := range connB.recorded() {
		if m, ok := ev.(chat.MessageEvent); ok {
			got = append(got, m.Data.Message)
		}
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 messages at observer, got %d", len(got))
	}
	for i, text := range got {
		if want := fmt.Sprintf("m%d", i); text != want {
			t.Fatalf("ordering violated at %d: got %s want %s", i, text, want)
		}
	}
}

func TestLeaveAnnouncesOnce(t *testing.T) {
	room, _ := newRoom(50)
	ctx := context.Background()

	connA := &fakeConn{}
	connB := &fakeConn{}
	sessA, err := room.Join(ctx, connA, "u1", "alice")
	if err != nil {
		t.Fatalf("Join err: %v", err)
	}
	if _, err := room.Join(ctx, connB, "u2", "bob"); err != nil {
		t.Fatalf("Join err: %v", err)
	}

	room.Leave(sessA)
	room.Leave(sessA) // repeated leave stays silent

	var left int
	for _, ev := range connB.recorded() {
		if p, ok := ev.(chat.PresenceEvent); ok && p.Type == chat.EventUserLeft {
			left++
			if p.Username != "alice" {
				t.Fatalf("expected user_left for alice, got %s", p.Username)
			}
		}
	}
	if left != 1 {
		t.Fatalf("expected exactly one user_left, got %d", left)
	}
	// The departed session hears nothing further.
	for _, ev := range connA.recorded() {
		if p, ok := ev.(chat.PresenceEvent); ok && p.Type == chat.EventUserLeft {
			t.Fatal("departed session must not receive its own user_left")
		}
	}
}

// Scenario from the chat protocol: A joins and speaks, B joins and sees
// A's message in history, then B speaks; A observes joined(B) followed by
// message(B).
func TestJoinSendScenario(t *testing.T) {
	room, _ := newRoom(50)
	ctx := context.Background()

	connA := &fakeConn{}
	sessA, err := room.Join(ctx, connA, "u1", "alice")
	if err != nil {
		t.Fatalf("Join err: %v", err)
	}
	if _, err := room.Post(ctx, sessA, "hello"); err != nil {
		t.Fatalf("Post err: %v", err)
	}

	connB := &fakeConn{}
	sessB, err := room.Join(ctx, connB, "u2", "bob")
	if err != nil {
		t.Fatalf("Join err: %v", err)
	}

	// B's first frame is history containing A's message.
	eventsB := connB.recorded()
	history := historyOf(t, eventsB[0])
	if len(history) != 1 || history[0].Message != "hello" {
		t.Fatalf("expected history with hello, got %#v", history)
	}
	// The newcomer receives its own join announcement.
	joined, ok := eventsB[1].(chat.PresenceEvent)
	if !ok || joined.Type != chat.EventUserJoined || joined.Username != "bob" {
		t.Fatalf("expected bob's own user_joined, got %#v", eventsB[1])
	}

	if _, err := room.Post(ctx, sessB, "hi"); err != nil {
		t.Fatalf("Post err: %v", err)
	}

	// After A's own earlier message, A sees exactly joined(bob) then hi.
	eventsA := connA.recorded()
	var tail []any
	for i, ev := range eventsA {
		if m, ok := ev.(chat.MessageEvent); ok && m.Data.Message == "hello" {
			tail = eventsA[i+1:]
			break
		}
	}
	if len(tail) != 2 {
		t.Fatalf("expected 2 events after hello, got %d", len(tail))
	}
	j, ok := tail[0].(chat.PresenceEvent)
	if !ok || j.Type != chat.EventUserJoined || j.Username != "bob" {
		t.Fatalf("expected joined(bob) first, got %#v", tail[0])
	}
	m, ok := tail[1].(chat.MessageEvent)
	if !ok || m.Data.Message != "hi" || m.Data.Username != "bob" {
		t.Fatalf("expected message(bob, hi) second, got %#v", tail[1])
	}
}
