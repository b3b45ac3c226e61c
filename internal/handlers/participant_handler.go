package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/senyabanana/idea-funding-service/internal/models"
	"github.com/senyabanana/idea-funding-service/internal/services"
	"github.com/senyabanana/idea-funding-service/internal/utils"

	"github.com/sirupsen/logrus"
)

// ParticipantHandler - структура для обработки HTTP-запросов участников.
type ParticipantHandler struct {
	Service *services.ParticipantService
	Ledger  *services.LedgerService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewParticipantHandler создает новый экземпляр ParticipantHandler.
func NewParticipantHandler(service *services.ParticipantService, ledger *services.LedgerService, logger *logrus.Logger, timeout time.Duration) *ParticipantHandler {
	return &ParticipantHandler{
		Service: service,
		Ledger:  ledger,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateParticipant обрабатывает запросы для регистрации участника.
func (h *ParticipantHandler) CreateParticipant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.ParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	participant, err := h.Service.CreateParticipant(ctx, req)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to create participant")
		return
	}

	writeJSON(w, h.Logger, participant)
}

// GetParticipant обрабатывает запросы для получения профиля участника.
func (h *ParticipantHandler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	username := r.PathValue("username")

	participant, err := h.Service.GetParticipant(ctx, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to fetch participant")
		return
	}

	writeJSON(w, h.Logger, participant)
}

// GetBalance обрабатывает запросы для получения баланса участника.
func (h *ParticipantHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	username := r.PathValue("username")

	balance, err := h.Ledger.GetBalance(ctx, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to fetch balance")
		return
	}

	writeJSON(w, h.Logger, map[string]int64{"tokenBalance": balance})
}

// GetHistory обрабатывает запросы для получения истории проводок участника.
func (h *ParticipantHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	username := r.PathValue("username")
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	history, err := h.Ledger.GetHistory(ctx, username, limitStr, offsetStr)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to fetch transaction history")
		return
	}

	writeJSON(w, h.Logger, history)
}

// Reconcile обрабатывает запросы для сверки баланса участника с журналом.
func (h *ParticipantHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	username := r.PathValue("username")

	balance, err := h.Ledger.Reconcile(ctx, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to reconcile balance")
		return
	}

	writeJSON(w, h.Logger, map[string]int64{"tokenBalance": balance})
}

// StartPurchase обрабатывает запросы для покупки токенов.
func (h *ParticipantHandler) StartPurchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	intent, err := h.Service.StartPurchase(ctx, req)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to start purchase")
		return
	}

	writeJSON(w, h.Logger, intent)
}

// CreatePayeeAccount обрабатывает запросы для создания счета выплат.
func (h *ParticipantHandler) CreatePayeeAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	username := r.PathValue("username")

	account, err := h.Service.CreatePayeeAccount(ctx, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to create payee account")
		return
	}

	writeJSON(w, h.Logger, account)
}

// Withdraw обрабатывает запросы для вывода токенов на внешний счет.
func (h *ParticipantHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := h.Service.Withdraw(ctx, req)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to withdraw tokens")
		return
	}

	writeJSON(w, h.Logger, txn)
}

// RetryTransfers обрабатывает запросы на досылку незавершенных переводов.
func (h *ParticipantHandler) RetryTransfers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	username := r.PathValue("username")

	reissued, err := h.Service.RetryTransfers(ctx, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to retry transfers")
		return
	}

	writeJSON(w, h.Logger, reissued)
}

func writeJSON(w http.ResponseWriter, logger *logrus.Logger, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error(err)
	}
}
