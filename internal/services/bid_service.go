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

type BidService struct {
	Repo         repository.BidRepository
	Ideas        repository.IdeaRepository
	Participants repository.ParticipantRepository
	Log          *logrus.Logger
}

// NewBidService создает новый экземпляр BidService.
func NewBidService(repo repository.BidRepository, ideas repository.IdeaRepository, participants repository.ParticipantRepository, log *logrus.Logger) *BidService {
	return &BidService{Repo: repo, Ideas: ideas, Participants: participants, Log: log}
}

// validateProposals проверяет предложенные этапы заявки: порядковые номера
// образуют последовательность 1..n без пропусков, все доли положительны
// и их сумма не превышает запрошенных токенов.
func validateProposals(proposals []models.MilestoneProposal, requestedTokens int64) error {
	if len(proposals) == 0 {
		return models.NewErrorResponse(http.StatusBadRequest, "bid must propose at least one milestone")
	}

	seen := make(map[int32]bool, len(proposals))
	var total int64
	for _, proposal := range proposals {
		if proposal.Title == "" {
			return models.NewErrorResponse(http.StatusBadRequest, "milestone title is required")
		}
		if proposal.TokenAllocation <= 0 {
			return models.NewErrorResponse(http.StatusBadRequest, "milestone allocation must be positive")
		}
		if proposal.Order < 1 || proposal.Order > int32(len(proposals)) {
			return models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("milestone order %d is out of range", proposal.Order))
		}
		if seen[proposal.Order] {
			return models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("duplicate milestone order: %d", proposal.Order))
		}
		seen[proposal.Order] = true
		total += proposal.TokenAllocation
	}
	if total > requestedTokens {
		return models.NewErrorResponse(http.StatusBadRequest, "milestone allocations exceed requested tokens")
	}
	return nil
}

// CreateBid создает заявку исполнителя на идею.
func (s *BidService) CreateBid(ctx context.Context, req models.BidRequest) (*models.Bid, error) {
	if req.IdeaID == "" || req.BuilderUsername == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required fields")
	}
	if req.RequestedTokens <= 0 {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "requested tokens must be positive")
	}
	if err := validateProposals(req.ProposedMilestones, req.RequestedTokens); err != nil {
		return nil, err
	}

	builder, err := s.Participants.GetByUsername(ctx, req.BuilderUsername)
	if err != nil {
		return nil, err
	}
	idea, err := s.Ideas.GetByID(ctx, req.IdeaID)
	if err != nil {
		return nil, err
	}
	if idea.CreatorID == builder.ID {
		return nil, models.NewErrorResponse(http.StatusForbidden, "idea creator cannot bid on their own idea")
	}

	return s.Repo.CreateBid(ctx, req, builder.ID)
}

// GetBid возвращает заявку по ID.
func (s *BidService) GetBid(ctx context.Context, bidID string) (*models.Bid, error) {
	if bidID == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: bidId")
	}
	return s.Repo.GetByID(ctx, bidID)
}

// FetchBids возвращает список заявок по идее.
func (s *BidService) FetchBids(ctx context.Context, ideaID, limitStr, offsetStr string) ([]models.Bid, error) {
	if ideaID == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: ideaId")
	}
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, err.Error())
	}
	return s.Repo.ListByIdea(ctx, ideaID, limit, offset)
}

// Vote записывает взвешенный голос за заявку. Вес по умолчанию равен 1.
// Каждый участник голосует по идее только один раз.
func (s *BidService) Vote(ctx context.Context, bidID string, req models.VoteRequest) (*models.BuilderVote, error) {
	if bidID == "" || req.Username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: bidId or username")
	}
	weight := req.Weight
	if weight == 0 {
		weight = 1
	}
	if weight < 1 {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "vote weight must be at least 1")
	}

	voter, err := s.Participants.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	bid, err := s.Repo.GetByID(ctx, bidID)
	if err != nil {
		return nil, err
	}

	vote, err := s.Repo.CastVote(ctx, bid.IdeaID, bidID, voter.ID, weight)
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"bidId": bidID, "voter": voter.Username, "weight": weight}).Info("vote cast")
	return vote, nil
}

// WithdrawBid отзывает заявку. Доступно только ее автору.
func (s *BidService) WithdrawBid(ctx context.Context, bidID, username string) (*models.Bid, error) {
	if bidID == "" || username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: bidId or username")
	}

	builder, err := s.Participants.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	bid, err := s.Repo.GetByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.BuilderID != builder.ID {
		return nil, models.NewErrorResponse(http.StatusForbidden, "only the bid author can withdraw it")
	}
	return s.Repo.WithdrawBid(ctx, bidID)
}

// SelectBuilder подводит итоги голосования по профинансированной идее.
// Доступно только автору идеи. Побеждает активная заявка с максимальной
// суммой голосов, при равенстве - поданная раньше.
func (s *BidService) SelectBuilder(ctx context.Context, ideaID, username string) (*models.Bid, error) {
	if ideaID == "" || username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: ideaId or username")
	}

	participant, err := s.Participants.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	idea, err := s.Ideas.GetByID(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea.CreatorID != participant.ID {
		return nil, models.NewErrorResponse(http.StatusForbidden, "only the idea creator can select a builder")
	}

	winner, err := s.Repo.SelectBuilder(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"ideaId": ideaID, "bidId": winner.ID, "votes": winner.VoteCount}).Info("builder selected")
	return winner, nil
}
