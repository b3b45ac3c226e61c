package services

import (
	"context"
	"net/http"

	"github.com/senyabanana/idea-funding-service/internal/models"
	"github.com/senyabanana/idea-funding-service/internal/repository"
	"github.com/senyabanana/idea-funding-service/internal/utils"

	"github.com/sirupsen/logrus"
)

type PledgeService struct {
	Repo         repository.PledgeRepository
	Participants repository.ParticipantRepository
	Log          *logrus.Logger
}

// NewPledgeService создает новый экземпляр PledgeService.
func NewPledgeService(repo repository.PledgeRepository, participants repository.ParticipantRepository, log *logrus.Logger) *PledgeService {
	return &PledgeService{Repo: repo, Participants: participants, Log: log}
}

// CreatePledge резервирует токены бекера под идею. При достижении цели
// финансирования идея переходит в Funded в той же операции.
func (s *PledgeService) CreatePledge(ctx context.Context, ideaID string, req models.PledgeRequest) (*models.Pledge, *models.Idea, error) {
	if ideaID == "" || req.Username == "" {
		return nil, nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: ideaId or username")
	}
	if req.Amount <= 0 {
		return nil, nil, models.NewErrorResponse(http.StatusBadRequest, "pledge amount must be positive")
	}

	backer, err := s.Participants.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, nil, err
	}

	pledge, idea, err := s.Repo.EscrowPledge(ctx, ideaID, backer.ID, req.Amount)
	if err != nil {
		return nil, nil, err
	}
	if idea.Status == models.FundedIdea && idea.TotalPledged-req.Amount < idea.FundingGoal {
		s.Log.WithFields(logrus.Fields{"ideaId": idea.ID, "totalPledged": idea.TotalPledged}).Info("idea reached funding goal")
	}
	return pledge, idea, nil
}

// RefundPledge возвращает зарезервированный пледж. Доступно только бекеру
// и только пока исполнитель не выбран.
func (s *PledgeService) RefundPledge(ctx context.Context, pledgeID, username string) (*models.Pledge, error) {
	if pledgeID == "" || username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: pledgeId or username")
	}

	participant, err := s.Participants.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	pledge, err := s.Repo.GetByID(ctx, pledgeID)
	if err != nil {
		return nil, err
	}
	if pledge.BackerID != participant.ID {
		return nil, models.NewErrorResponse(http.StatusForbidden, "only the backer can refund this pledge")
	}
	return s.Repo.RefundPledge(ctx, pledgeID)
}

// FetchPledges возвращает список пледжей по идее.
func (s *PledgeService) FetchPledges(ctx context.Context, ideaID, limitStr, offsetStr string) ([]models.Pledge, error) {
	if ideaID == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: ideaId")
	}
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, err.Error())
	}
	return s.Repo.ListByIdea(ctx, ideaID, limit, offset)
}
