package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/idea-funding-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// IdeaRepository - интерфейс для работы с идеями.
type IdeaRepository interface {
	CreateIdea(ctx context.Context, req models.IdeaRequest, creatorID string, status models.IdeaStatus) (*models.Idea, error)
	GetByID(ctx context.Context, id string) (*models.Idea, error)
	ListIdeas(ctx context.Context, limit, offset int, statuses, tags []string) ([]models.Idea, error)
	ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]models.Idea, error)
	PublishIdea(ctx context.Context, ideaID string) (*models.Idea, error)
	DeliverIdea(ctx context.Context, ideaID string, req models.DeliveryRequest) (*models.Idea, error)
	CancelIdea(ctx context.Context, ideaID string) (*models.Idea, []models.Pledge, error)
}

// PostgresIdeaRepository - реализация IdeaRepository для базы данных.
type PostgresIdeaRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresIdeaRepository создает новый экземпляр PostgresIdeaRepository.
func NewPostgresIdeaRepository(db *pgxpool.Pool) *PostgresIdeaRepository {
	return &PostgresIdeaRepository{DB: db}
}

const ideaColumns = `id, title, description, problem_statement, tags, mockup_urls, status, creator_id,
	funding_goal, total_pledged, selected_bid_id, github_repo_url, live_demo_url, delivery_notes, created_at, updated_at`

func scanIdea(row pgx.Row) (*models.Idea, error) {
	var idea models.Idea
	var selectedBidID *string
	err := row.Scan(
		&idea.ID,
		&idea.Title,
		&idea.Description,
		&idea.ProblemStatement,
		&idea.Tags,
		&idea.MockupURLs,
		&idea.Status,
		&idea.CreatorID,
		&idea.FundingGoal,
		&idea.TotalPledged,
		&selectedBidID,
		&idea.GithubRepoURL,
		&idea.LiveDemoURL,
		&idea.DeliveryNotes,
		&idea.CreatedAt,
		&idea.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if selectedBidID != nil {
		idea.SelectedBidID = *selectedBidID
	}
	return &idea, nil
}

// CreateIdea создает новую идею и увеличивает счетчик созданных идей автора.
func (r *PostgresIdeaRepository) CreateIdea(ctx context.Context, req models.IdeaRequest, creatorID string, status models.IdeaStatus) (*models.Idea, error) {
	now := time.Now().UTC()
	newIdea := models.Idea{
		ID:               uuid.New().String(),
		Title:            req.Title,
		Description:      req.Description,
		ProblemStatement: req.ProblemStatement,
		Tags:             req.Tags,
		MockupURLs:       req.MockupURLs,
		Status:           status,
		CreatorID:        creatorID,
		FundingGoal:      req.FundingGoal,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if newIdea.Tags == nil {
		newIdea.Tags = []string{}
	}
	if newIdea.MockupURLs == nil {
		newIdea.MockupURLs = []string{}
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO idea (id, title, description, problem_statement, tags, mockup_urls, status, creator_id,
			funding_goal, total_pledged, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11)
	`,
		newIdea.ID,
		newIdea.Title,
		newIdea.Description,
		newIdea.ProblemStatement,
		newIdea.Tags,
		newIdea.MockupURLs,
		newIdea.Status,
		newIdea.CreatorID,
		newIdea.FundingGoal,
		newIdea.CreatedAt,
		newIdea.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert idea: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE participant SET total_ideas_created = total_ideas_created + 1 WHERE id = $1
	`, creatorID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &newIdea, nil
}

// GetByID возвращает идею по ID.
func (r *PostgresIdeaRepository) GetByID(ctx context.Context, id string) (*models.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM idea WHERE id = $1`
	return scanIdea(r.DB.QueryRow(ctx, query, id))
}

// ListIdeas возвращает список идей с фильтрами по статусу и тегам.
func (r *PostgresIdeaRepository) ListIdeas(ctx context.Context, limit, offset int, statuses, tags []string) ([]models.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM idea`
	var filters []string
	var args []interface{}
	argIndex := 1

	if len(statuses) > 0 {
		filters = append(filters, fmt.Sprintf("status = ANY($%d)", argIndex))
		args = append(args, pq.Array(statuses))
		argIndex++
	}

	if len(tags) > 0 {
		filters = append(filters, fmt.Sprintf("tags && $%d", argIndex))
		args = append(args, pq.Array(tags))
		argIndex++
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ideas []models.Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		ideas = append(ideas, *idea)
	}
	return ideas, nil
}

// ListByCreator возвращает список идей участника.
func (r *PostgresIdeaRepository) ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]models.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM idea WHERE creator_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.DB.Query(ctx, query, creatorID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ideas []models.Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		ideas = append(ideas, *idea)
	}
	return ideas, nil
}

// PublishIdea переводит черновик в открытый сбор средств.
func (r *PostgresIdeaRepository) PublishIdea(ctx context.Context, ideaID string) (*models.Idea, error) {
	query := `UPDATE idea SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 RETURNING ` + ideaColumns
	idea, err := scanIdea(r.DB.QueryRow(ctx, query, models.OpenIdea, time.Now().UTC(), ideaID, models.DraftIdea))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidState
		}
		return nil, err
	}
	return idea, nil
}

// DeliverIdea прикрепляет метаданные о передаче результата. Движений по журналу нет.
func (r *PostgresIdeaRepository) DeliverIdea(ctx context.Context, ideaID string, req models.DeliveryRequest) (*models.Idea, error) {
	query := `
		UPDATE idea SET status = $1, github_repo_url = $2, live_demo_url = $3, delivery_notes = $4, updated_at = $5
		WHERE id = $6 AND status = $7
		RETURNING ` + ideaColumns
	idea, err := scanIdea(r.DB.QueryRow(
		ctx,
		query,
		models.DeliveredIdea,
		req.GithubRepoURL,
		req.LiveDemoURL,
		req.DeliveryNotes,
		time.Now().UTC(),
		ideaID,
		models.CompletedIdea))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidState
		}
		return nil, err
	}
	return idea, nil
}

// CancelIdea отменяет идею и возвращает все зарезервированные пледжи
// одной транзакцией: каждому бекеру начисляется возврат через журнал.
func (r *PostgresIdeaRepository) CancelIdea(ctx context.Context, ideaID string) (*models.Idea, []models.Pledge, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	idea, err := scanIdea(tx.QueryRow(ctx, `SELECT `+ideaColumns+` FROM idea WHERE id = $1 FOR UPDATE`, ideaID))
	if err != nil {
		return nil, nil, err
	}

	switch idea.Status {
	case models.CompletedIdea, models.DeliveredIdea, models.CancelledIdea:
		return nil, nil, models.ErrInvalidState
	}

	rows, err := tx.Query(ctx, `
		SELECT id, idea_id, backer_id, amount, status, created_at
		FROM pledge WHERE idea_id = $1 AND status = $2
		FOR UPDATE
	`, ideaID, models.EscrowedPledge)
	if err != nil {
		return nil, nil, err
	}

	var escrowed []models.Pledge
	for rows.Next() {
		var p models.Pledge
		if err := rows.Scan(&p.ID, &p.IdeaID, &p.BackerID, &p.Amount, &p.Status, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, nil, err
		}
		escrowed = append(escrowed, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var refunded []models.Pledge
	for _, p := range escrowed {
		backerID := p.BackerID
		err = insertTransaction(ctx, tx, &models.TokenTransaction{
			ParticipantID: &backerID,
			Kind:          models.PledgeRefundTransaction,
			Amount:        p.Amount,
			IdeaID:        &p.IdeaID,
			Description:   "pledge refund on idea cancellation",
		})
		if err != nil {
			return nil, nil, err
		}
		_, err = tx.Exec(ctx, `UPDATE pledge SET status = $1 WHERE id = $2`, models.RefundedPledge, p.ID)
		if err != nil {
			return nil, nil, err
		}
		p.Status = models.RefundedPledge
		refunded = append(refunded, p)
	}

	idea, err = scanIdea(tx.QueryRow(ctx, `
		UPDATE idea SET status = $1, updated_at = $2 WHERE id = $3 RETURNING `+ideaColumns,
		models.CancelledIdea, time.Now().UTC(), ideaID))
	if err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return idea, refunded, nil
}
