package repository

import (
	"context"
	"errors"
	"time"

	"github.com/senyabanana/idea-funding-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CommentRepository - интерфейс для работы с комментариями.
type CommentRepository interface {
	CreateComment(ctx context.Context, ideaID, authorID string, req models.CommentRequest) (*models.Comment, error)
	ListByIdea(ctx context.Context, ideaID string, limit, offset int) ([]models.Comment, error)
}

// PostgresCommentRepository - реализация CommentRepository для базы данных.
type PostgresCommentRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresCommentRepository создает новый экземпляр PostgresCommentRepository.
func NewPostgresCommentRepository(db *pgxpool.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{DB: db}
}

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	var parentID *string
	err := row.Scan(&c.ID, &c.IdeaID, &c.AuthorID, &c.Content, &parentID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if parentID != nil {
		c.ParentCommentID = *parentID
	}
	return &c, nil
}

// CreateComment создает комментарий к идее.
func (r *PostgresCommentRepository) CreateComment(ctx context.Context, ideaID, authorID string, req models.CommentRequest) (*models.Comment, error) {
	newComment := models.Comment{
		ID:              uuid.New().String(),
		IdeaID:          ideaID,
		AuthorID:        authorID,
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
		CreatedAt:       time.Now().UTC(),
	}
	var parentID *string
	if req.ParentCommentID != "" {
		parentID = &req.ParentCommentID
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO comment (id, idea_id, author_id, content, parent_comment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, newComment.ID, newComment.IdeaID, newComment.AuthorID, newComment.Content, parentID, newComment.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &newComment, nil
}

// ListByIdea возвращает комментарии по идее.
func (r *PostgresCommentRepository) ListByIdea(ctx context.Context, ideaID string, limit, offset int) ([]models.Comment, error) {
	query := `
		SELECT id, idea_id, author_id, content, parent_comment_id, created_at
		FROM comment WHERE idea_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`
	rows, err := r.DB.Query(ctx, query, ideaID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, nil
}
