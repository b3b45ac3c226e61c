package repository

import (
	"context"
	"time"

	"github.com/senyabanana/idea-funding-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository - интерфейс для работы с журналом токенов.
// Журнал append-only: записи никогда не изменяются и не удаляются,
// меняется только состояние расчета с внешним шлюзом.
type LedgerRepository interface {
	Record(ctx context.Context, txn models.TokenTransaction) (*models.TokenTransaction, error)
	BalanceOf(ctx context.Context, participantID string) (int64, error)
	Rebuild(ctx context.Context, participantID string) (int64, error)
	ListByParticipant(ctx context.Context, participantID string, limit, offset int) ([]models.TokenTransaction, error)
	ListUnsettled(ctx context.Context, participantID string) ([]models.TokenTransaction, error)
	AttachTransferRef(ctx context.Context, txnID, transferRef string) error
}

// PostgresLedgerRepository - реализация LedgerRepository для базы данных.
type PostgresLedgerRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresLedgerRepository создает новый экземпляр PostgresLedgerRepository.
func NewPostgresLedgerRepository(db *pgxpool.Pool) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{DB: db}
}

const transactionColumns = `id, participant_id, kind, amount, idea_id, milestone_id,
	external_intent_ref, external_transfer_ref, settlement, description, created_at`

func scanTransaction(row pgx.Row) (*models.TokenTransaction, error) {
	var txn models.TokenTransaction
	err := row.Scan(
		&txn.ID,
		&txn.ParticipantID,
		&txn.Kind,
		&txn.Amount,
		&txn.IdeaID,
		&txn.MilestoneID,
		&txn.ExternalIntentRef,
		&txn.ExternalTransferRef,
		&txn.Settlement,
		&txn.Description,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// insertTransaction добавляет запись журнала и применяет ее к кэшу баланса
// в рамках переданной транзакции. Дебет, уводящий баланс в минус,
// завершается ErrInsufficientFunds: проверка и запись атомарны благодаря
// блокировке строки участника оператором UPDATE.
func insertTransaction(ctx context.Context, tx pgx.Tx, txn *models.TokenTransaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.Settlement == "" {
		txn.Settlement = models.SettlementNone
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	if txn.ParticipantID != nil {
		tag, err := tx.Exec(ctx, `
			UPDATE participant SET token_balance = token_balance + $1
			WHERE id = $2 AND token_balance + $1 >= 0
		`, txn.Amount, *txn.ParticipantID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM participant WHERE id = $1)`, *txn.ParticipantID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return models.ErrNotFound
			}
			return models.ErrInsufficientFunds
		}
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO token_transaction (id, participant_id, kind, amount, idea_id, milestone_id,
			external_intent_ref, external_transfer_ref, settlement, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		txn.ID,
		txn.ParticipantID,
		txn.Kind,
		txn.Amount,
		txn.IdeaID,
		txn.MilestoneID,
		txn.ExternalIntentRef,
		txn.ExternalTransferRef,
		txn.Settlement,
		txn.Description,
		txn.CreatedAt)
	return err
}

// Record добавляет запись журнала и обновляет кэш баланса одной транзакцией.
func (r *PostgresLedgerRepository) Record(ctx context.Context, txn models.TokenTransaction) (*models.TokenTransaction, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := insertTransaction(ctx, tx, &txn); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &txn, nil
}

// BalanceOf возвращает баланс участника как сумму записей журнала.
func (r *PostgresLedgerRepository) BalanceOf(ctx context.Context, participantID string) (int64, error) {
	var balance int64
	query := `SELECT COALESCE(SUM(amount), 0) FROM token_transaction WHERE participant_id = $1`
	err := r.DB.QueryRow(ctx, query, participantID).Scan(&balance)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Rebuild пересчитывает кэш баланса по журналу и возвращает результат.
func (r *PostgresLedgerRepository) Rebuild(ctx context.Context, participantID string) (int64, error) {
	var balance int64
	query := `
		UPDATE participant
		SET token_balance = (SELECT COALESCE(SUM(amount), 0) FROM token_transaction WHERE participant_id = $1)
		WHERE id = $1
		RETURNING token_balance`
	err := r.DB.QueryRow(ctx, query, participantID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, models.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

// ListByParticipant возвращает историю проводок участника.
func (r *PostgresLedgerRepository) ListByParticipant(ctx context.Context, participantID string, limit, offset int) ([]models.TokenTransaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM token_transaction
		WHERE participant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.DB.Query(ctx, query, participantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.TokenTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	return transactions, nil
}

// ListUnsettled возвращает проводки, ожидающие расчета, по которым перевод
// в шлюз так и не был оформлен.
func (r *PostgresLedgerRepository) ListUnsettled(ctx context.Context, participantID string) ([]models.TokenTransaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM token_transaction
		WHERE participant_id = $1 AND settlement = $2 AND external_transfer_ref IS NULL
		ORDER BY created_at`
	rows, err := r.DB.Query(ctx, query, participantID, models.SettlementPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.TokenTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	return transactions, nil
}

// AttachTransferRef привязывает внешний идентификатор перевода к проводке.
func (r *PostgresLedgerRepository) AttachTransferRef(ctx context.Context, txnID, transferRef string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE token_transaction SET external_transfer_ref = $1 WHERE id = $2
	`, transferRef, txnID)
	return err
}
