package file

import "time"

// File is a named document inside a project. Binary content is stored
// base64-encoded with IsBinary set; text content is stored verbatim.
type File struct {
	ID           string    `json:"id" bson:"id"`
	ProjectID    string    `json:"project_id" bson:"project_id"`
	Name         string    `json:"name" bson:"name"`
	Content      string    `json:"content" bson:"content"`
	FileType     string    `json:"file_type" bson:"file_type"`
	IsBinary     bool      `json:"is_binary" bson:"is_binary"`
	DetectedMIME string    `json:"detected_mime,omitempty" bson:"detected_mime,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Update carries a partial mutation; nil fields are left untouched.
type Update struct {
	Name    *string
	Content *string
}

// Empty reports whether the update would change nothing.
func (u Update) Empty() bool {
	return u.Name == nil && u.Content == nil
}
