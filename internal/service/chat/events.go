package chat

import chatmodel "github.com/zhouzirui/projecthub/backend/internal/model/chat"

// Event type discriminators on the chat wire.
const (
	EventHistory    = "history"
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
	EventMessage    = "message"
)

// HistoryEvent is the first frame a session receives after joining:
// recent messages in chronological order, oldest first.
type HistoryEvent struct {
	Type     string              `json:"type"`
	Messages []chatmodel.Message `json:"messages"`
}

// PresenceEvent announces a join or leave by display name only.
type PresenceEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// MessageEvent carries one persisted chat message to all sessions.
type MessageEvent struct {
	Type string            `json:"type"`
	Data chatmodel.Message `json:"data"`
}
