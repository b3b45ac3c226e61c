package repository

import (
	"context"
	"errors"
	"time"

	"github.com/senyabanana/idea-funding-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BidRepository - интерфейс для работы с заявками и голосами.
type BidRepository interface {
	CreateBid(ctx context.Context, req models.BidRequest, builderID string) (*models.Bid, error)
	GetByID(ctx context.Context, bidID string) (*models.Bid, error)
	ListByIdea(ctx context.Context, ideaID string, limit, offset int) ([]models.Bid, error)
	CastVote(ctx context.Context, ideaID, bidID, voterID string, weight int32) (*models.BuilderVote, error)
	ListVotesByIdea(ctx context.Context, ideaID string) ([]models.BuilderVote, error)
	WithdrawBid(ctx context.Context, bidID string) (*models.Bid, error)
	SelectBuilder(ctx context.Context, ideaID string) (*models.Bid, error)
}

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresBidRepository создает новый экземпляр PostgresBidRepository.
func NewPostgresBidRepository(db *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

const bidColumns = `id, idea_id, builder_id, requested_tokens, proposed_timeline, description,
	proposed_milestones, vote_count, status, created_at`

func scanBid(row pgx.Row) (*models.Bid, error) {
	var bid models.Bid
	err := row.Scan(
		&bid.ID,
		&bid.IdeaID,
		&bid.BuilderID,
		&bid.RequestedTokens,
		&bid.ProposedTimeline,
		&bid.Description,
		&bid.ProposedMilestones,
		&bid.VoteCount,
		&bid.Status,
		&bid.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &bid, nil
}

// CreateBid создает новую заявку. Статус идеи проверяется под блокировкой,
// чтобы заявка не появилась после выбора исполнителя.
func (r *PostgresBidRepository) CreateBid(ctx context.Context, req models.BidRequest, builderID string) (*models.Bid, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	idea, err := scanIdea(tx.QueryRow(ctx, `SELECT `+ideaColumns+` FROM idea WHERE id = $1 FOR UPDATE`, req.IdeaID))
	if err != nil {
		return nil, err
	}
	if idea.Status != models.OpenIdea && idea.Status != models.FundedIdea {
		return nil, models.ErrInvalidState
	}

	newBid := models.Bid{
		ID:                 uuid.New().String(),
		IdeaID:             req.IdeaID,
		BuilderID:          builderID,
		RequestedTokens:    req.RequestedTokens,
		ProposedTimeline:   req.ProposedTimeline,
		Description:        req.Description,
		ProposedMilestones: req.ProposedMilestones,
		Status:             models.ActiveBid,
		CreatedAt:          time.Now().UTC(),
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO bid (id, idea_id, builder_id, requested_tokens, proposed_timeline, description,
			proposed_milestones, vote_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9)
	`,
		newBid.ID,
		newBid.IdeaID,
		newBid.BuilderID,
		newBid.RequestedTokens,
		newBid.ProposedTimeline,
		newBid.Description,
		newBid.ProposedMilestones,
		newBid.Status,
		newBid.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &newBid, nil
}

// GetByID возвращает заявку по ID.
func (r *PostgresBidRepository) GetByID(ctx context.Context, bidID string) (*models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bid WHERE id = $1`
	return scanBid(r.DB.QueryRow(ctx, query, bidID))
}

// ListByIdea возвращает список заявок по идее.
func (r *PostgresBidRepository) ListByIdea(ctx context.Context, ideaID string, limit, offset int) ([]models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bid WHERE idea_id = $1 ORDER BY vote_count DESC, created_at LIMIT $2 OFFSET $3`
	rows, err := r.DB.Query(ctx, query, ideaID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *bid)
	}
	return bids, nil
}

// CastVote записывает голос и увеличивает счетчик заявки одной транзакцией.
// Повторный голос того же участника по идее отсекается уникальным индексом:
// при параллельных попытках ровно одна завершается успехом.
func (r *PostgresBidRepository) CastVote(ctx context.Context, ideaID, bidID, voterID string, weight int32) (*models.BuilderVote, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	idea, err := scanIdea(tx.QueryRow(ctx, `SELECT `+ideaColumns+` FROM idea WHERE id = $1 FOR UPDATE`, ideaID))
	if err != nil {
		return nil, err
	}
	if idea.Status != models.OpenIdea && idea.Status != models.FundedIdea {
		return nil, models.ErrInvalidState
	}

	newVote := models.BuilderVote{
		ID:        uuid.New().String(),
		IdeaID:    ideaID,
		BidID:     bidID,
		VoterID:   voterID,
		Weight:    weight,
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO builder_vote (id, idea_id, bid_id, voter_id, weight, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, newVote.ID, newVote.IdeaID, newVote.BidID, newVote.VoterID, newVote.Weight, newVote.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrDuplicateVote
		}
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE bid SET vote_count = vote_count + $1 WHERE id = $2 AND idea_id = $3 AND status = $4
	`, weight, bidID, ideaID, models.ActiveBid)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, models.ErrInvalidState
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &newVote, nil
}

// ListVotesByIdea возвращает голоса по идее.
func (r *PostgresBidRepository) ListVotesByIdea(ctx context.Context, ideaID string) ([]models.BuilderVote, error) {
	query := `SELECT id, idea_id, bid_id, voter_id, weight, created_at FROM builder_vote WHERE idea_id = $1 ORDER BY created_at`
	rows, err := r.DB.Query(ctx, query, ideaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.BuilderVote
	for rows.Next() {
		var vote models.BuilderVote
		if err := rows.Scan(&vote.ID, &vote.IdeaID, &vote.BidID, &vote.VoterID, &vote.Weight, &vote.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	return votes, nil
}

// WithdrawBid отзывает активную заявку.
func (r *PostgresBidRepository) WithdrawBid(ctx context.Context, bidID string) (*models.Bid, error) {
	query := `UPDATE bid SET status = $1 WHERE id = $2 AND status = $3 RETURNING ` + bidColumns
	bid, err := scanBid(r.DB.QueryRow(ctx, query, models.WithdrawnBid, bidID, models.ActiveBid))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidState
		}
		return nil, err
	}
	return bid, nil
}

// SelectBuilder выбирает победителя среди активных заявок: максимум голосов,
// при равенстве - более ранняя заявка. Одной транзакцией: победитель получает
// статус Selected, остальные Rejected, идея переходит в InProgress,
// зарезервированные пледжи помечаются Released, а этапы из заявки
// материализуются в статусе Pending.
func (r *PostgresBidRepository) SelectBuilder(ctx context.Context, ideaID string) (*models.Bid, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	idea, err := scanIdea(tx.QueryRow(ctx, `SELECT `+ideaColumns+` FROM idea WHERE id = $1 FOR UPDATE`, ideaID))
	if err != nil {
		return nil, err
	}
	if idea.Status != models.FundedIdea {
		return nil, models.ErrInvalidState
	}

	winner, err := scanBid(tx.QueryRow(ctx, `
		SELECT `+bidColumns+` FROM bid
		WHERE idea_id = $1 AND status = $2
		ORDER BY vote_count DESC, created_at ASC
		LIMIT 1
	`, ideaID, models.ActiveBid))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNoBidsAvailable
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `UPDATE bid SET status = $1 WHERE id = $2`, models.SelectedBid, winner.ID)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE bid SET status = $1 WHERE idea_id = $2 AND status = $3
	`, models.RejectedBid, ideaID, models.ActiveBid)
	if err != nil {
		return nil, err
	}

	// выбор сделан - пледжи закреплены за выплатами, возврат больше невозможен
	_, err = tx.Exec(ctx, `
		UPDATE pledge SET status = $1 WHERE idea_id = $2 AND status = $3
	`, models.ReleasedPledge, ideaID, models.EscrowedPledge)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, proposal := range winner.ProposedMilestones {
		_, err = tx.Exec(ctx, `
			INSERT INTO milestone (id, idea_id, bid_id, title, description, token_allocation, order_index, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			uuid.New().String(),
			ideaID,
			winner.ID,
			proposal.Title,
			proposal.Description,
			proposal.TokenAllocation,
			proposal.Order,
			models.PendingMilestone,
			now)
		if err != nil {
			return nil, err
		}
	}

	// BuilderSelected -> InProgress происходит автоматически при выборе
	_, err = tx.Exec(ctx, `
		UPDATE idea SET status = $1, selected_bid_id = $2, updated_at = $3 WHERE id = $4
	`, models.InProgressIdea, winner.ID, now, ideaID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	winner.Status = models.SelectedBid
	return winner, nil
}
