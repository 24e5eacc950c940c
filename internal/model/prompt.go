package model

import "time"

// Prompt is a saved prompt owned by one identity.
type Prompt struct {
	ID          int64     `db:"id"          json:"id"`
	Owner       string    `db:"user_id"     json:"-"`
	Name        string    `db:"name"        json:"name"`
	Description string    `db:"description" json:"description"`
	Content     string    `db:"content"     json:"content"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}

// PromptInput carries the user-editable fields for create and update.
type PromptInput struct {
	Name        string `json:"name"        validate:"required"`
	Description string `json:"description" validate:"required"`
	Content     string `json:"content"     validate:"required"`
}
