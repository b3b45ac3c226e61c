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

// PledgeRepository - интерфейс для работы с пледжами.
type PledgeRepository interface {
	EscrowPledge(ctx context.Context, ideaID, backerID string, amount int64) (*models.Pledge, *models.Idea, error)
	RefundPledge(ctx context.Context, pledgeID string) (*models.Pledge, error)
	GetByID(ctx context.Context, pledgeID string) (*models.Pledge, error)
	ListByIdea(ctx context.Context, ideaID string, limit, offset int) ([]models.Pledge, error)
}

// PostgresPledgeRepository - реализация PledgeRepository для базы данных.
type PostgresPledgeRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresPledgeRepository создает новый экземпляр PostgresPledgeRepository.
func NewPostgresPledgeRepository(db *pgxpool.Pool) *PostgresPledgeRepository {
	return &PostgresPledgeRepository{DB: db}
}

const pledgeColumns = `id, idea_id, backer_id, amount, status, created_at`

func scanPledge(row pgx.Row) (*models.Pledge, error) {
	var p models.Pledge
	err := row.Scan(&p.ID, &p.IdeaID, &p.BackerID, &p.Amount, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// EscrowPledge резервирует токены бекера под идею одной транзакцией:
// дебет по журналу, создание пледжа и обновление totalPledged. Достижение
// цели переводит идею в Funded тем же коммитом - наблюдатель не увидит
// totalPledged >= цели при статусе Open. Порядок блокировок фиксированный
// для всех денежных транзакций: сначала идея, затем участник. Проверка
// баланса выполняется условным UPDATE внутри insertTransaction.
func (r *PostgresPledgeRepository) EscrowPledge(ctx context.Context, ideaID, backerID string, amount int64) (*models.Pledge, *models.Idea, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	idea, err := scanIdea(tx.QueryRow(ctx, `SELECT `+ideaColumns+` FROM idea WHERE id = $1 FOR UPDATE`, ideaID))
	if err != nil {
		return nil, nil, err
	}
	if idea.Status != models.OpenIdea && idea.Status != models.FundedIdea {
		return nil, nil, models.ErrInvalidState
	}

	err = insertTransaction(ctx, tx, &models.TokenTransaction{
		ParticipantID: &backerID,
		Kind:          models.PledgeTransaction,
		Amount:        -amount,
		IdeaID:        &ideaID,
		Description:   "pledge escrowed",
	})
	if err != nil {
		return nil, nil, err
	}

	newPledge := models.Pledge{
		ID:        uuid.New().String(),
		IdeaID:    ideaID,
		BackerID:  backerID,
		Amount:    amount,
		Status:    models.EscrowedPledge,
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO pledge (id, idea_id, backer_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, newPledge.ID, newPledge.IdeaID, newPledge.BackerID, newPledge.Amount, newPledge.Status, newPledge.CreatedAt)
	if err != nil {
		return nil, nil, err
	}

	newStatus := idea.Status
	if idea.Status == models.OpenIdea && idea.TotalPledged+amount >= idea.FundingGoal {
		newStatus = models.FundedIdea
	}
	idea, err = scanIdea(tx.QueryRow(ctx, `
		UPDATE idea SET total_pledged = total_pledged + $1, status = $2, updated_at = $3
		WHERE id = $4 RETURNING `+ideaColumns,
		amount, newStatus, time.Now().UTC(), ideaID))
	if err != nil {
		return nil, nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE participant SET total_ideas_backed = total_ideas_backed + 1 WHERE id = $1
	`, backerID)
	if err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return &newPledge, idea, nil
}

// RefundPledge возвращает зарезервированный пледж бекеру. Возврат возможен
// только пока исполнитель не выбран.
func (r *PostgresPledgeRepository) RefundPledge(ctx context.Context, pledgeID string) (*models.Pledge, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var ideaID string
	err = tx.QueryRow(ctx, `SELECT idea_id FROM pledge WHERE id = $1`, pledgeID).Scan(&ideaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	idea, err := scanIdea(tx.QueryRow(ctx, `SELECT `+ideaColumns+` FROM idea WHERE id = $1 FOR UPDATE`, ideaID))
	if err != nil {
		return nil, err
	}
	switch idea.Status {
	case models.DraftIdea, models.OpenIdea, models.FundedIdea:
	default:
		return nil, models.ErrInvalidState
	}

	// статус перечитывается под блокировкой после взятия блокировки идеи
	pledge, err := scanPledge(tx.QueryRow(ctx, `SELECT `+pledgeColumns+` FROM pledge WHERE id = $1 FOR UPDATE`, pledgeID))
	if err != nil {
		return nil, err
	}
	if pledge.Status != models.EscrowedPledge {
		return nil, models.ErrInvalidState
	}

	err = insertTransaction(ctx, tx, &models.TokenTransaction{
		ParticipantID: &pledge.BackerID,
		Kind:          models.PledgeRefundTransaction,
		Amount:        pledge.Amount,
		IdeaID:        &pledge.IdeaID,
		Description:   "pledge refunded",
	})
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `UPDATE pledge SET status = $1 WHERE id = $2`, models.RefundedPledge, pledge.ID)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE idea SET total_pledged = total_pledged - $1, updated_at = $2 WHERE id = $3
	`, pledge.Amount, time.Now().UTC(), pledge.IdeaID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	pledge.Status = models.RefundedPledge
	return pledge, nil
}

// GetByID возвращает пледж по ID.
func (r *PostgresPledgeRepository) GetByID(ctx context.Context, pledgeID string) (*models.Pledge, error) {
	query := `SELECT ` + pledgeColumns + ` FROM pledge WHERE id = $1`
	return scanPledge(r.DB.QueryRow(ctx, query, pledgeID))
}

// ListByIdea возвращает список пледжей по идее.
func (r *PostgresPledgeRepository) ListByIdea(ctx context.Context, ideaID string, limit, offset int) ([]models.Pledge, error) {
	query := `SELECT ` + pledgeColumns + ` FROM pledge WHERE idea_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`
	rows, err := r.DB.Query(ctx, query, ideaID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pledges []models.Pledge
	for rows.Next() {
		pledge, err := scanPledge(rows)
		if err != nil {
			return nil, err
		}
		pledges = append(pledges, *pledge)
	}
	return pledges, nil
}
