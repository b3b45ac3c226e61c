package models

import "time"

// Comment представляет модель комментария к идее.
type Comment struct {
	ID              string    `json:"id"`
	IdeaID          string    `json:"ideaId"`
	AuthorID        string    `json:"authorId"`
	Content         string    `json:"content"`
	ParentCommentID string    `json:"parentCommentId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CommentRequest представляет структуру запроса для создания комментария.
type CommentRequest struct {
	Username        string `json:"username"`
	Content         string `json:"content"`
	ParentCommentID string `json:"parentCommentId"`
}
