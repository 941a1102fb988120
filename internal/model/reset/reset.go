package reset

import "time"

// Code is an emailed six-digit password reset code with a short expiry.
type Code struct {
	ID        string    `json:"id" bson:"id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Code      string    `json:"code" bson:"code"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	Used      bool      `json:"used" bson:"used"`
}

// Request statuses for admin-mediated resets.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Request is an admin-mediated reset for accounts without an email.
type Request struct {
	ID          string     `json:"id" bson:"id"`
	UserID      string     `json:"user_id" bson:"user_id"`
	Username    string     `json:"username" bson:"username"`
	Status      string     `json:"status" bson:"status"`
	RequestedAt time.Time  `json:"requested_at" bson:"requested_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}
