package user

import "time"

// Roles assignable to an account.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered account. Email is optional; accounts without one
// fall back to admin-mediated password resets.
type User struct {
	ID           string    `json:"id" bson:"id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         string    `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Public is the wire shape with credentials stripped.
type Public struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips the password hash for API responses.
func (u User) Public() Public {
	return Public{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// IsAdmin reports whether the account may mutate projects and files.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
