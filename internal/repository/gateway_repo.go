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

// GatewayEventRepository - интерфейс для применения событий платежного шлюза.
// Шлюз доставляет события повторно, поэтому каждое применяется не более
// одного раза: идентификатор события фиксируется уникальным индексом.
type GatewayEventRepository interface {
	ApplyPurchase(ctx context.Context, eventRef, participantID string, tokens int64, intentRef string) (bool, error)
	MarkTransferSettled(ctx context.Context, eventRef, transferRef string) (bool, error)
}

// PostgresGatewayEventRepository - реализация GatewayEventRepository для базы данных.
type PostgresGatewayEventRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresGatewayEventRepository создает новый экземпляр PostgresGatewayEventRepository.
func NewPostgresGatewayEventRepository(db *pgxpool.Pool) *PostgresGatewayEventRepository {
	return &PostgresGatewayEventRepository{DB: db}
}

// recordEvent фиксирует событие шлюза. Возвращает false, если событие
// уже было применено ранее.
func recordEvent(ctx context.Context, tx pgx.Tx, eventRef, eventType string) (bool, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO gateway_event (id, event_ref, event_type, processed_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New().String(), eventRef, eventType, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ApplyPurchase начисляет купленные токены по событию успешного платежа.
// Повторная доставка того же события возвращает (false, nil) без движения
// по журналу.
func (r *PostgresGatewayEventRepository) ApplyPurchase(ctx context.Context, eventRef, participantID string, tokens int64, intentRef string) (bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	applied, err := recordEvent(ctx, tx, eventRef, "purchase")
	if err != nil || !applied {
		return false, err
	}

	err = insertTransaction(ctx, tx, &models.TokenTransaction{
		ParticipantID:     &participantID,
		Kind:              models.PurchaseTransaction,
		Amount:            tokens,
		ExternalIntentRef: &intentRef,
		Settlement:        models.SettlementSettled,
		Description:       "token purchase",
	})
	if err != nil {
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// MarkTransferSettled подтверждает исходящий перевод: проводки с этим
// переводом переходят из pending_settlement в settled.
func (r *PostgresGatewayEventRepository) MarkTransferSettled(ctx context.Context, eventRef, transferRef string) (bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	applied, err := recordEvent(ctx, tx, eventRef, "transfer_settled")
	if err != nil || !applied {
		return false, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE token_transaction SET settlement = $1
		WHERE external_transfer_ref = $2 AND settlement = $3
	`, models.SettlementSettled, transferRef, models.SettlementPending)
	if err != nil {
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
