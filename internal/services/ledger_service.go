package services

import (
	"context"
	"net/http"

	"github.com/senyabanana/idea-funding-service/internal/models"
	"github.com/senyabanana/idea-funding-service/internal/repository"
	"github.com/senyabanana/idea-funding-service/internal/utils"

	"github.com/sirupsen/logrus"
)

type LedgerService struct {
	Repo         repository.LedgerRepository
	Participants repository.ParticipantRepository
	Log          *logrus.Logger
}

// NewLedgerService создает новый экземпляр LedgerService.
func NewLedgerService(repo repository.LedgerRepository, participants repository.ParticipantRepository, log *logrus.Logger) *LedgerService {
	return &LedgerService{Repo: repo, Participants: participants, Log: log}
}

// GetBalance возвращает баланс участника, вычисленный по журналу.
func (s *LedgerService) GetBalance(ctx context.Context, username string) (int64, error) {
	participant, err := s.lookup(ctx, username)
	if err != nil {
		return 0, err
	}
	return s.Repo.BalanceOf(ctx, participant.ID)
}

// GetHistory возвращает историю проводок участника.
func (s *LedgerService) GetHistory(ctx context.Context, username, limitStr, offsetStr string) ([]models.TokenTransaction, error) {
	participant, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, err.Error())
	}
	return s.Repo.ListByParticipant(ctx, participant.ID, limit, offset)
}

// Reconcile пересчитывает кэш баланса участника по журналу. Расхождение
// кэша с журналом означает ошибку в коде и попадает в лог.
func (s *LedgerService) Reconcile(ctx context.Context, username string) (int64, error) {
	participant, err := s.lookup(ctx, username)
	if err != nil {
		return 0, err
	}

	rebuilt, err := s.Repo.Rebuild(ctx, participant.ID)
	if err != nil {
		return 0, err
	}
	if rebuilt != participant.TokenBalance {
		s.Log.WithFields(logrus.Fields{
			"username": participant.Username,
			"cached":   participant.TokenBalance,
			"rebuilt":  rebuilt,
		}).Error("balance cache diverged from ledger")
	}
	return rebuilt, nil
}

func (s *LedgerService) lookup(ctx context.Context, username string) (*models.Participant, error) {
	if username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required query parameter: username")
	}
	return s.Participants.GetByUsername(ctx, username)
}
