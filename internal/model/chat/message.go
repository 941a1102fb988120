package chat

import "time"

// Message is one chat room entry. Immutable once created; persisted
// before it is broadcast to live sessions.
type Message struct {
	ID        string    `json:"id" bson:"id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Username  string    `json:"username" bson:"username"`
	Message   string    `json:"message" bson:"message"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
