package dto

import (
	"time"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
)

// BoardListQuery pages through boards, optionally filtered by a keyword
// matched against title and content
type BoardListQuery struct {
	ListQuery
	Keyword string `form:"keyword" binding:"omitempty,max=100"`
}

type CreateBoardRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Content string `json:"content"`
}

type UpdateBoardRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Content string `json:"content"`
}

type BoardResponse struct {
	ID        int64  `json:"id"`
	AuthorID  int64  `json:"authorId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func NewBoardResponse(b *domain.Board) BoardResponse {
	return BoardResponse{
		ID:        b.ID,
		AuthorID:  b.AuthorID,
		Title:     b.Title,
		Content:   b.Content,
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
		UpdatedAt: b.UpdatedAt.Format(time.RFC3339),
	}
}
