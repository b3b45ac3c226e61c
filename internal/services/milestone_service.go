package services

import (
	"context"
	"net/http"

	"github.com/senyabanana/idea-funding-service/internal/gateway"
	"github.com/senyabanana/idea-funding-service/internal/models"
	"github.com/senyabanana/idea-funding-service/internal/repository"

	"github.com/sirupsen/logrus"
)

type MilestoneService struct {
	Repo         repository.MilestoneRepository
	Ideas        repository.IdeaRepository
	Bids         repository.BidRepository
	Participants repository.ParticipantRepository
	Ledger       repository.LedgerRepository
	Gateway      gateway.Client
	FeeBps       int64
	PriceCents   int64
	Log          *logrus.Logger
}

// NewMilestoneService создает новый экземпляр MilestoneService.
func NewMilestoneService(
	repo repository.MilestoneRepository,
	ideas repository.IdeaRepository,
	bids repository.BidRepository,
	participants repository.ParticipantRepository,
	ledger repository.LedgerRepository,
	gw gateway.Client,
	feeBps, priceCents int64,
	log *logrus.Logger,
) *MilestoneService {
	return &MilestoneService{
		Repo:         repo,
		Ideas:        ideas,
		Bids:         bids,
		Participants: participants,
		Ledger:       ledger,
		Gateway:      gw,
		FeeBps:       feeBps,
		PriceCents:   priceCents,
		Log:          log,
	}
}

// FetchMilestones возвращает этапы идеи в порядке выполнения.
func (s *MilestoneService) FetchMilestones(ctx context.Context, ideaID string) ([]models.Milestone, error) {
	if ideaID == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: ideaId")
	}
	return s.Repo.ListByIdea(ctx, ideaID)
}

// SubmitMilestone отправляет этап на проверку. Доступно только выбранному
// исполнителю и только для самого раннего непринятого этапа.
func (s *MilestoneService) SubmitMilestone(ctx context.Context, milestoneID string, req models.MilestoneSubmitRequest) (*models.Milestone, error) {
	if milestoneID == "" || req.Username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: milestoneId or username")
	}

	participant, err := s.Participants.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	milestone, err := s.Repo.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	bid, err := s.Bids.GetByID(ctx, milestone.BidID)
	if err != nil {
		return nil, err
	}
	if bid.BuilderID != participant.ID {
		return nil, models.NewErrorResponse(http.StatusForbidden, "only the selected builder can submit milestones")
	}

	return s.Repo.SubmitMilestone(ctx, milestoneID, req)
}

// ApproveMilestone принимает этап и проводит выплату исполнителю за вычетом
// комиссии платформы. Доступно только автору идеи. Перевод денег через шлюз
// инициируется после фиксации выплаты в журнале: при сбое шлюза проводка
// остается в pending_settlement и досылается событием вебхука.
func (s *MilestoneService) ApproveMilestone(ctx context.Context, milestoneID, username string) (*models.MilestoneApproval, error) {
	if err := s.authorizeCreator(ctx, milestoneID, username); err != nil {
		return nil, err
	}

	approval, err := s.Repo.ApproveMilestone(ctx, milestoneID, s.FeeBps)
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{
		"milestoneId": milestoneID,
		"payout":      approval.PayoutTransaction.Amount,
		"platformFee": approval.PlatformFee,
	}).Info("milestone approved")

	if approval.BuilderPayeeRef != "" {
		transfer, err := s.Gateway.Transfer(ctx, approval.BuilderPayeeRef, approval.PayoutTransaction.Amount*s.PriceCents, "milestone payout")
		if err != nil {
			s.Log.WithError(err).WithField("milestoneId", milestoneID).Warn("payout transfer failed, settlement stays pending")
			return approval, nil
		}
		if err := s.Ledger.AttachTransferRef(ctx, approval.PayoutTransaction.ID, transfer.Ref); err != nil {
			s.Log.WithError(err).WithField("milestoneId", milestoneID).Warn("failed to attach transfer ref")
		}
	}
	return approval, nil
}

// RejectMilestone возвращает сданный этап на доработку. Доступно только
// автору идеи.
func (s *MilestoneService) RejectMilestone(ctx context.Context, milestoneID, username string) (*models.Milestone, error) {
	if err := s.authorizeCreator(ctx, milestoneID, username); err != nil {
		return nil, err
	}
	return s.Repo.RejectMilestone(ctx, milestoneID)
}

func (s *MilestoneService) authorizeCreator(ctx context.Context, milestoneID, username string) error {
	if milestoneID == "" || username == "" {
		return models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: milestoneId or username")
	}

	participant, err := s.Participants.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	milestone, err := s.Repo.GetByID(ctx, milestoneID)
	if err != nil {
		return err
	}
	idea, err := s.Ideas.GetByID(ctx, milestone.IdeaID)
	if err != nil {
		return err
	}
	if idea.CreatorID != participant.ID {
		return models.NewErrorResponse(http.StatusForbidden, "only the idea creator can review milestones")
	}
	return nil
}
