package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/senyabanana/idea-funding-service/internal/models"
	"github.com/senyabanana/idea-funding-service/internal/repository"
	"github.com/senyabanana/idea-funding-service/internal/utils"

	"github.com/sirupsen/logrus"
)

// allowedStatusTransition описывает жизненный цикл идеи. Переходы вне этой
// карты запрещены. Cancelled достижим из любого нетерминального статуса
// и проверяется отдельно.
var allowedStatusTransition = map[models.IdeaStatus][]models.IdeaStatus{
	models.DraftIdea:           {models.OpenIdea},
	models.OpenIdea:            {models.FundedIdea},
	models.FundedIdea:          {models.BuilderSelectedIdea, models.InProgressIdea},
	models.BuilderSelectedIdea: {models.InProgressIdea},
	models.InProgressIdea:      {models.MilestoneReviewIdea},
	models.MilestoneReviewIdea: {models.InProgressIdea, models.CompletedIdea},
	models.CompletedIdea:       {models.DeliveredIdea},
	models.DeliveredIdea:       {},
	models.CancelledIdea:       {},
}

type IdeaService struct {
	Repo         repository.IdeaRepository
	Participants repository.ParticipantRepository
	Log          *logrus.Logger
}

// NewIdeaService создает новый экземпляр IdeaService.
func NewIdeaService(repo repository.IdeaRepository, participants repository.ParticipantRepository, log *logrus.Logger) *IdeaService {
	return &IdeaService{Repo: repo, Participants: participants, Log: log}
}

// CreateIdea создает новую идею. С флагом draft идея остается черновиком,
// иначе сразу открывается для сбора средств.
func (s *IdeaService) CreateIdea(ctx context.Context, req models.IdeaRequest) (*models.Idea, error) {
	if req.Title == "" || req.Description == "" || req.CreatorUsername == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required fields")
	}
	if req.FundingGoal <= 0 {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "funding goal must be positive")
	}

	creator, err := s.Participants.GetByUsername(ctx, req.CreatorUsername)
	if err != nil {
		return nil, err
	}

	status := models.OpenIdea
	if req.Draft {
		status = models.DraftIdea
	}

	idea, err := s.Repo.CreateIdea(ctx, req, creator.ID, status)
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"ideaId": idea.ID, "creator": creator.Username}).Info("idea created")
	return idea, nil
}

// GetIdea возвращает идею по ID.
func (s *IdeaService) GetIdea(ctx context.Context, ideaID string) (*models.Idea, error) {
	if ideaID == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: ideaId")
	}
	return s.Repo.GetByID(ctx, ideaID)
}

// FetchIdeas возвращает список идей с фильтрами по статусу и тегам.
func (s *IdeaService) FetchIdeas(ctx context.Context, limitStr, offsetStr string, statuses, tags []string) ([]models.Idea, error) {
	for _, status := range statuses {
		if _, ok := allowedStatusTransition[models.IdeaStatus(status)]; !ok {
			return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("unsupported status: %s", status))
		}
	}

	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, err.Error())
	}
	return s.Repo.ListIdeas(ctx, limit, offset, statuses, tags)
}

// GetUserIdeas возвращает список идей участника.
func (s *IdeaService) GetUserIdeas(ctx context.Context, limitStr, offsetStr, username string) ([]models.Idea, error) {
	if username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required query parameter: username")
	}
	participant, err := s.Participants.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, err.Error())
	}
	return s.Repo.ListByCreator(ctx, participant.ID, limit, offset)
}

// PublishIdea открывает черновик для сбора средств. Доступно только автору.
func (s *IdeaService) PublishIdea(ctx context.Context, ideaID, username string) (*models.Idea, error) {
	idea, err := s.authorizeCreator(ctx, ideaID, username)
	if err != nil {
		return nil, err
	}
	if !utils.ContainsIdeaStatus(allowedStatusTransition[idea.Status], models.OpenIdea) {
		return nil, models.ErrInvalidState
	}
	return s.Repo.PublishIdea(ctx, ideaID)
}

// DeliverIdea фиксирует передачу результата сообществу. Доступно только
// автору и только после принятия всех этапов.
func (s *IdeaService) DeliverIdea(ctx context.Context, ideaID string, req models.DeliveryRequest) (*models.Idea, error) {
	idea, err := s.authorizeCreator(ctx, ideaID, req.Username)
	if err != nil {
		return nil, err
	}
	if !utils.ContainsIdeaStatus(allowedStatusTransition[idea.Status], models.DeliveredIdea) {
		return nil, models.ErrInvalidState
	}
	return s.Repo.DeliverIdea(ctx, ideaID, req)
}

// CancelIdea отменяет идею и возвращает зарезервированные пледжи бекерам.
// Доступно только автору из любого нетерминального статуса. Уже выплаченные
// этапы не откатываются.
func (s *IdeaService) CancelIdea(ctx context.Context, ideaID, username string) (*models.Idea, []models.Pledge, error) {
	_, err := s.authorizeCreator(ctx, ideaID, username)
	if err != nil {
		return nil, nil, err
	}

	idea, refunded, err := s.Repo.CancelIdea(ctx, ideaID)
	if err != nil {
		return nil, nil, err
	}
	s.Log.WithFields(logrus.Fields{"ideaId": ideaID, "refundedPledges": len(refunded)}).Info("idea cancelled")
	return idea, refunded, nil
}

func (s *IdeaService) authorizeCreator(ctx context.Context, ideaID, username string) (*models.Idea, error) {
	if ideaID == "" || username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: ideaId or username")
	}
	participant, err := s.Participants.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	idea, err := s.Repo.GetByID(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea.CreatorID != participant.ID {
		return nil, models.NewErrorResponse(http.StatusForbidden, "only the idea creator can perform this action")
	}
	return idea, nil
}
