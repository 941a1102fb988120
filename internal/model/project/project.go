package project

import "time"

// Project groups related files under a name and description.
type Project struct {
	ID          string    `json:"id" bson:"id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	CreatedBy   string    `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// Update carries a partial mutation; nil fields are left untouched.
type Update struct {
	Name        *string
	Description *string
}

// Empty reports whether the update would change nothing.
func (u Update) Empty() bool {
	return u.Name == nil && u.Description == nil
}
