package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/projecthub/backend/internal/logger"
	chatmodel "github.com/zhouzirui/projecthub/backend/internal/model/chat"
)

// DefaultHistoryLimit bounds the history replay sent on join.
const DefaultHistoryLimit = 50

// Room drives the chat protocol over a Registry: handshake with history
// replay, persist-then-broadcast for inbound messages, presence
// announcements on join and leave.
type Room struct {
	registry     *Registry
	messages     chatmodel.MessageStore
	historyLimit int
}

// NewRoom wires a room to its registry and message store. limit <= 0
// falls back to DefaultHistoryLimit.
func NewRoom(registry *Registry, messages chatmodel.MessageStore, limit int) *Room {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Room{registry: registry, messages: messages, historyLimit: limit}
}

// Registry exposes the underlying registry for transports that observe
// disconnects directly.
func (r *Room) Registry() *Registry {
	return r.registry
}

// Join completes the connect handshake: history is replayed to the new
// connection first, then the session is registered and a join
// announcement goes out to every session, the newcomer included. A
// handshake failure (history fetch or the history write itself) leaves
// the session unregistered and invisible to broadcasts.
func (r *Room) Join(ctx context.Context, conn Conn, userID, username string) (*Session, error) {
	recent, err := r.messages.Recent(ctx, r.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch chat history: %w", err)
	}

	// Recent is newest-first for bounded retrieval; replay chronologically.
	history := make([]chatmodel.Message, len(recent))
	for i, m := range recent {
		history[len(recent)-1-i] = m
	}

	if err := conn.WriteJSON(HistoryEvent{Type: EventHistory, Messages: history}); err != nil {
		return nil, fmt.Errorf("send chat history: %w", err)
	}

	s := r.registry.Connect(conn, userID, username)
	r.registry.Broadcast(PresenceEvent{Type: EventUserJoined, Username: username})
	logger.Infof("[chat] session joined user=%s sessions=%d", username, r.registry.Len())
	return s, nil
}

// Post accepts one inbound text frame from the origin session: a fresh
// message id and server timestamp are assigned, the message is persisted,
// then broadcast. A persistence failure is fatal to that message only —
// it is not broadcast, and the session stays connected.
func (r *Room) Post(ctx context.Context, s *Session, text string) (chatmodel.Message, error) {
	m := chatmodel.Message{
		ID:        uuid.NewString(),
		UserID:    s.UserID,
		Username:  s.Username,
		Message:   text,
		Timestamp: time.Now().UTC(),
	}

	if err := r.messages.Append(ctx, m); err != nil {
		logger.Errorf("[chat] message not persisted, skipping broadcast user=%s: %v", s.Username, err)
		return chatmodel.Message{}, fmt.Errorf("append chat message: %w", err)
	}

	r.registry.Broadcast(MessageEvent{Type: EventMessage, Data: m})
	return m, nil
}

// Leave deregisters the session and, if it was still live, announces the
// departure to the remaining sessions. Safe to call more than once.
func (r *Room) Leave(s *Session) {
	if !r.registry.Disconnect(s) {
		return
	}
	r.registry.Broadcast(PresenceEvent{Type: EventUserLeft, Username: s.Username})
	logger.Infof("[chat] session left user=%s sessions=%d", s.Username, r.registry.Len())
}
