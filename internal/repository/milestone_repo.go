package repository

import (
	"context"
	"errors"
	"time"

	"github.com/senyabanana/idea-funding-service/internal/models"
	"github.com/senyabanana/idea-funding-service/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MilestoneRepository - интерфейс для работы с этапами.
type MilestoneRepository interface {
	GetByID(ctx context.Context, milestoneID string) (*models.Milestone, error)
	ListByIdea(ctx context.Context, ideaID string) ([]models.Milestone, error)
	SubmitMilestone(ctx context.Context, milestoneID string, req models.MilestoneSubmitRequest) (*models.Milestone, error)
	ApproveMilestone(ctx context.Context, milestoneID string, feeBps int64) (*models.MilestoneApproval, error)
	RejectMilestone(ctx context.Context, milestoneID string) (*models.Milestone, error)
}

// PostgresMilestoneRepository - реализация MilestoneRepository для базы данных.
type PostgresMilestoneRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresMilestoneRepository создает новый экземпляр PostgresMilestoneRepository.
func NewPostgresMilestoneRepository(db *pgxpool.Pool) *PostgresMilestoneRepository {
	return &PostgresMilestoneRepository{DB: db}
}

const milestoneColumns = `id, idea_id, bid_id, title, description, token_allocation, order_index,
	status, submission_notes, submission_url, created_at, completed_at`

func scanMilestone(row pgx.Row) (*models.Milestone, error) {
	var m models.Milestone
	err := row.Scan(
		&m.ID,
		&m.IdeaID,
		&m.BidID,
		&m.Title,
		&m.Description,
		&m.TokenAllocation,
		&m.OrderIndex,
		&m.Status,
		&m.SubmissionNotes,
		&m.SubmissionURL,
		&m.CreatedAt,
		&m.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetByID возвращает этап по ID.
func (r *PostgresMilestoneRepository) GetByID(ctx context.Context, milestoneID string) (*models.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestone WHERE id = $1`
	return scanMilestone(r.DB.QueryRow(ctx, query, milestoneID))
}

// ListByIdea возвращает этапы идеи в порядке выполнения.
func (r *PostgresMilestoneRepository) ListByIdea(ctx context.Context, ideaID string) ([]models.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestone WHERE idea_id = $1 ORDER BY order_index`
	rows, err := r.DB.Query(ctx, query, ideaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []models.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, *m)
	}
	return milestones, nil
}

// SubmitMilestone отправляет этап на проверку. Сдать можно только самый
// ранний непринятый этап: порядок выполнения строгий.
func (r *PostgresMilestoneRepository) SubmitMilestone(ctx context.Context, milestoneID string, req models.MilestoneSubmitRequest) (*models.Milestone, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	milestone, err := scanMilestone(tx.QueryRow(ctx, `SELECT `+milestoneColumns+` FROM milestone WHERE id = $1 FOR UPDATE`, milestoneID))
	if err != nil {
		return nil, err
	}
	if milestone.Status != models.PendingMilestone && milestone.Status != models.InProgressMilestone {
		return nil, models.ErrInvalidState
	}

	idea, err := scanIdea(tx.QueryRow(ctx, `SELECT `+ideaColumns+` FROM idea WHERE id = $1 FOR UPDATE`, milestone.IdeaID))
	if err != nil {
		return nil, err
	}
	if idea.Status != models.InProgressIdea {
		return nil, models.ErrInvalidState
	}

	var minUnapproved int32
	err = tx.QueryRow(ctx, `
		SELECT MIN(order_index) FROM milestone WHERE idea_id = $1 AND status <> $2
	`, milestone.IdeaID, models.ApprovedMilestone).Scan(&minUnapproved)
	if err != nil {
		return nil, err
	}
	if milestone.OrderIndex != minUnapproved {
		return nil, models.ErrInvalidState
	}

	milestone, err = scanMilestone(tx.QueryRow(ctx, `
		UPDATE milestone SET status = $1, submission_notes = $2, submission_url = $3
		WHERE id = $4 RETURNING `+milestoneColumns,
		models.SubmittedMilestone, req.SubmissionNotes, req.SubmissionURL, milestoneID))
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE idea SET status = $1, updated_at = $2 WHERE id = $3
	`, models.MilestoneReviewIdea, time.Now().UTC(), milestone.IdeaID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return milestone, nil
}

// ApproveMilestone принимает этап и проводит выплату одной транзакцией:
// комиссия платформы уходит в журнал без участника, остаток начисляется
// исполнителю. Повторное принятие уже принятого этапа возвращает
// ErrInvalidState, выплата не дублируется. Если непринятых этапов
// не осталось, идея переходит в Completed.
func (r *PostgresMilestoneRepository) ApproveMilestone(ctx context.Context, milestoneID string, feeBps int64) (*models.MilestoneApproval, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	milestone, err := scanMilestone(tx.QueryRow(ctx, `SELECT `+milestoneColumns+` FROM milestone WHERE id = $1 FOR UPDATE`, milestoneID))
	if err != nil {
		return nil, err
	}
	if milestone.Status != models.SubmittedMilestone {
		return nil, models.ErrInvalidState
	}

	idea, err := scanIdea(tx.QueryRow(ctx, `SELECT `+ideaColumns+` FROM idea WHERE id = $1 FOR UPDATE`, milestone.IdeaID))
	if err != nil {
		return nil, err
	}
	if idea.Status != models.MilestoneReviewIdea {
		return nil, models.ErrInvalidState
	}

	var builderID, payeeRef string
	err = tx.QueryRow(ctx, `
		SELECT p.id, p.payee_account_ref FROM bid b
		JOIN participant p ON p.id = b.builder_id
		WHERE b.id = $1
	`, milestone.BidID).Scan(&builderID, &payeeRef)
	if err != nil {
		return nil, err
	}

	fee := utils.PlatformFee(milestone.TokenAllocation, feeBps)
	payout := milestone.TokenAllocation - fee

	feeTxn := models.TokenTransaction{
		Kind:        models.PlatformFeeTransaction,
		Amount:      fee,
		IdeaID:      &milestone.IdeaID,
		MilestoneID: &milestone.ID,
		Description: "platform fee on milestone payout",
	}
	if err = insertTransaction(ctx, tx, &feeTxn); err != nil {
		return nil, err
	}

	payoutTxn := models.TokenTransaction{
		ParticipantID: &builderID,
		Kind:          models.MilestonePayoutTransaction,
		Amount:        payout,
		IdeaID:        &milestone.IdeaID,
		MilestoneID:   &milestone.ID,
		Description:   "milestone payout",
	}
	if payeeRef != "" {
		payoutTxn.Settlement = models.SettlementPending
	}
	if err = insertTransaction(ctx, tx, &payoutTxn); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	milestone, err = scanMilestone(tx.QueryRow(ctx, `
		UPDATE milestone SET status = $1, completed_at = $2 WHERE id = $3 RETURNING `+milestoneColumns,
		models.ApprovedMilestone, now, milestoneID))
	if err != nil {
		return nil, err
	}

	var remaining int64
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM milestone WHERE idea_id = $1 AND status <> $2
	`, milestone.IdeaID, models.ApprovedMilestone).Scan(&remaining)
	if err != nil {
		return nil, err
	}

	ideaCompleted := remaining == 0
	nextStatus := models.InProgressIdea
	if ideaCompleted {
		nextStatus = models.CompletedIdea
	}
	_, err = tx.Exec(ctx, `
		UPDATE idea SET status = $1, updated_at = $2 WHERE id = $3
	`, nextStatus, now, milestone.IdeaID)
	if err != nil {
		return nil, err
	}

	if ideaCompleted {
		_, err = tx.Exec(ctx, `
			UPDATE participant SET total_ideas_completed = total_ideas_completed + 1, reputation = reputation + 10
			WHERE id = $1
		`, builderID)
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &models.MilestoneApproval{
		Milestone:         milestone,
		PayoutTransaction: &payoutTxn,
		PlatformFee:       fee,
		BuilderPayeeRef:   payeeRef,
		IdeaCompleted:     ideaCompleted,
	}, nil
}

// RejectMilestone возвращает сданный этап на доработку.
func (r *PostgresMilestoneRepository) RejectMilestone(ctx context.Context, milestoneID string) (*models.Milestone, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	milestone, err := scanMilestone(tx.QueryRow(ctx, `
		UPDATE milestone SET status = $1 WHERE id = $2 AND status = $3 RETURNING `+milestoneColumns,
		models.InProgressMilestone, milestoneID, models.SubmittedMilestone))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidState
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE idea SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4
	`, models.InProgressIdea, time.Now().UTC(), milestone.IdeaID, models.MilestoneReviewIdea)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return milestone, nil
}
