package domain

import "time"

// Resource type tags understood by the permission evaluator
const (
	ResourceUser  = "User"
	ResourceBoard = "Board"
)

// Board is a post owned by the user who wrote it
type Board struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
