package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/idea-funding-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ParticipantRepository - интерфейс для работы с участниками.
type ParticipantRepository interface {
	CreateParticipant(ctx context.Context, req models.ParticipantRequest) (*models.Participant, error)
	GetByID(ctx context.Context, id string) (*models.Participant, error)
	GetByUsername(ctx context.Context, username string) (*models.Participant, error)
	SetCustomerRef(ctx context.Context, id, customerRef string) error
	SetPayeeAccount(ctx context.Context, id, payeeRef string) error
}

// PostgresParticipantRepository - реализация ParticipantRepository для базы данных.
type PostgresParticipantRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresParticipantRepository создает новый экземпляр PostgresParticipantRepository.
func NewPostgresParticipantRepository(db *pgxpool.Pool) *PostgresParticipantRepository {
	return &PostgresParticipantRepository{DB: db}
}

const participantColumns = `id, username, email, display_name, bio, avatar_url, token_balance, reputation,
	customer_ref, payee_account_ref, total_ideas_created, total_ideas_completed, total_ideas_backed, created_at`

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	var p models.Participant
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.Email,
		&p.DisplayName,
		&p.Bio,
		&p.AvatarURL,
		&p.TokenBalance,
		&p.Reputation,
		&p.CustomerRef,
		&p.PayeeAccountRef,
		&p.TotalIdeasCreated,
		&p.TotalIdeasCompleted,
		&p.TotalIdeasBacked,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateParticipant создает нового участника.
func (r *PostgresParticipantRepository) CreateParticipant(ctx context.Context, req models.ParticipantRequest) (*models.Participant, error) {
	newParticipant := models.Participant{
		ID:          uuid.New().String(),
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO participant (id, username, email, display_name, bio, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		newParticipant.ID,
		newParticipant.Username,
		newParticipant.Email,
		newParticipant.DisplayName,
		newParticipant.Bio,
		newParticipant.AvatarURL,
		newParticipant.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert participant: %w", err)
	}
	return &newParticipant, nil
}

// GetByID возвращает участника по ID.
func (r *PostgresParticipantRepository) GetByID(ctx context.Context, id string) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participant WHERE id = $1`
	return scanParticipant(r.DB.QueryRow(ctx, query, id))
}

// GetByUsername возвращает участника по имени пользователя.
func (r *PostgresParticipantRepository) GetByUsername(ctx context.Context, username string) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participant WHERE username = $1`
	return scanParticipant(r.DB.QueryRow(ctx, query, username))
}

// SetCustomerRef сохраняет ссылку на клиента платежного шлюза.
func (r *PostgresParticipantRepository) SetCustomerRef(ctx context.Context, id, customerRef string) error {
	_, err := r.DB.Exec(ctx, `UPDATE participant SET customer_ref = $1 WHERE id = $2`, customerRef, id)
	return err
}

// SetPayeeAccount сохраняет ссылку на счет получателя выплат.
func (r *PostgresParticipantRepository) SetPayeeAccount(ctx context.Context, id, payeeRef string) error {
	_, err := r.DB.Exec(ctx, `UPDATE participant SET payee_account_ref = $1 WHERE id = $2`, payeeRef, id)
	return err
}
