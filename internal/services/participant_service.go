package services

import (
	"context"
	"net/http"
	"strconv"

	"github.com/senyabanana/idea-funding-service/internal/gateway"
	"github.com/senyabanana/idea-funding-service/internal/models"
	"github.com/senyabanana/idea-funding-service/internal/repository"

	"github.com/sirupsen/logrus"
)

// minPurchaseTokens - минимальный размер покупки токенов.
const minPurchaseTokens = 10

type ParticipantService struct {
	Repo       repository.ParticipantRepository
	Ledger     repository.LedgerRepository
	Gateway    gateway.Client
	PriceCents int64
	Log        *logrus.Logger
}

// NewParticipantService создает новый экземпляр ParticipantService.
func NewParticipantService(repo repository.ParticipantRepository, ledger repository.LedgerRepository, gw gateway.Client, priceCents int64, log *logrus.Logger) *ParticipantService {
	return &ParticipantService{Repo: repo, Ledger: ledger, Gateway: gw, PriceCents: priceCents, Log: log}
}

// CreateParticipant регистрирует нового участника.
func (s *ParticipantService) CreateParticipant(ctx context.Context, req models.ParticipantRequest) (*models.Participant, error) {
	if req.Username == "" || req.Email == "" || req.DisplayName == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required fields")
	}
	return s.Repo.CreateParticipant(ctx, req)
}

// GetParticipant возвращает участника по имени пользователя.
func (s *ParticipantService) GetParticipant(ctx context.Context, username string) (*models.Participant, error) {
	if username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required query parameter: username")
	}
	return s.Repo.GetByUsername(ctx, username)
}

// StartPurchase создает намерение списания для покупки токенов. Токены
// начисляются только после события успешного платежа от шлюза, поэтому
// здесь движений по журналу нет.
func (s *ParticipantService) StartPurchase(ctx context.Context, req models.PurchaseRequest) (*gateway.ChargeIntent, error) {
	if req.Username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required query parameter: username")
	}
	if req.TokenAmount < minPurchaseTokens {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "minimum purchase is 10 tokens")
	}

	participant, err := s.Repo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	customerRef := participant.CustomerRef
	if customerRef == "" {
		customerRef, err = s.Gateway.CreateCustomer(ctx, participant.Email, participant.Username)
		if err != nil {
			return nil, err
		}
		if err = s.Repo.SetCustomerRef(ctx, participant.ID, customerRef); err != nil {
			return nil, err
		}
	}

	intent, err := s.Gateway.CreateChargeIntent(ctx, customerRef, req.TokenAmount*s.PriceCents, map[string]string{
		"participantId": participant.ID,
		"tokenAmount":   strconv.FormatInt(req.TokenAmount, 10),
	})
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"username": participant.Username, "tokens": req.TokenAmount}).Info("charge intent created")
	return intent, nil
}

// CreatePayeeAccount создает счет получателя выплат для исполнителя
// и возвращает ссылку на онбординг в шлюзе.
func (s *ParticipantService) CreatePayeeAccount(ctx context.Context, username string) (*gateway.PayeeAccount, error) {
	if username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required query parameter: username")
	}

	participant, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if participant.PayeeAccountRef != "" {
		return nil, models.NewErrorResponse(http.StatusConflict, "payee account already exists")
	}

	account, err := s.Gateway.CreatePayeeAccount(ctx, participant.Email)
	if err != nil {
		return nil, err
	}
	if err = s.Repo.SetPayeeAccount(ctx, participant.ID, account.Ref); err != nil {
		return nil, err
	}
	return account, nil
}

// Withdraw списывает токены участника и инициирует перевод на его внешний
// счет. Списание фиксируется в журнале до обращения к шлюзу: при сбое
// перевода проводка остается в pending_settlement.
func (s *ParticipantService) Withdraw(ctx context.Context, req models.WithdrawRequest) (*models.TokenTransaction, error) {
	if req.Username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required query parameter: username")
	}
	if req.TokenAmount <= 0 {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "withdrawal amount must be positive")
	}

	participant, err := s.Repo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if participant.PayeeAccountRef == "" {
		return nil, models.NewErrorResponse(http.StatusUnprocessableEntity, "payee account is not set up")
	}

	txn, err := s.Ledger.Record(ctx, models.TokenTransaction{
		ParticipantID: &participant.ID,
		Kind:          models.WithdrawalTransaction,
		Amount:        -req.TokenAmount,
		Settlement:    models.SettlementPending,
		Description:   "token withdrawal",
	})
	if err != nil {
		return nil, err
	}

	transfer, err := s.Gateway.Transfer(ctx, participant.PayeeAccountRef, req.TokenAmount*s.PriceCents, "token withdrawal")
	if err != nil {
		s.Log.WithError(err).WithField("username", participant.Username).Warn("withdrawal transfer failed, settlement stays pending")
		return txn, nil
	}
	if err := s.Ledger.AttachTransferRef(ctx, txn.ID, transfer.Ref); err != nil {
		s.Log.WithError(err).WithField("username", participant.Username).Warn("failed to attach transfer ref")
	}
	txn.ExternalTransferRef = &transfer.Ref
	return txn, nil
}

// RetryTransfers досылает переводы по проводкам, ожидающим расчета без
// оформленного перевода в шлюзе. Возвращает проводки, по которым перевод
// был инициирован этим вызовом.
func (s *ParticipantService) RetryTransfers(ctx context.Context, username string) ([]models.TokenTransaction, error) {
	if username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required query parameter: username")
	}

	participant, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if participant.PayeeAccountRef == "" {
		return nil, models.NewErrorResponse(http.StatusUnprocessableEntity, "payee account is not set up")
	}

	pending, err := s.Ledger.ListUnsettled(ctx, participant.ID)
	if err != nil {
		return nil, err
	}

	reissued := make([]models.TokenTransaction, 0, len(pending))
	for _, txn := range pending {
		cents := txn.Amount
		if cents < 0 {
			cents = -cents
		}
		transfer, err := s.Gateway.Transfer(ctx, participant.PayeeAccountRef, cents*s.PriceCents, txn.Description)
		if err != nil {
			return reissued, err
		}
		if err := s.Ledger.AttachTransferRef(ctx, txn.ID, transfer.Ref); err != nil {
			return reissued, err
		}
		ref := transfer.Ref
		txn.ExternalTransferRef = &ref
		reissued = append(reissued, txn)
	}
	s.Log.WithFields(logrus.Fields{"username": participant.Username, "reissued": len(reissued)}).Info("pending transfers reissued")
	return reissued, nil
}
