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

// PledgeHandler - структура для обработки HTTP-запросов пледжей.
type PledgeHandler struct {
	Service *services.PledgeService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewPledgeHandler создает новый экземпляр PledgeHandler.
func NewPledgeHandler(service *services.PledgeService, logger *logrus.Logger, timeout time.Duration) *PledgeHandler {
	return &PledgeHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreatePledge обрабатывает запросы для резервирования токенов под идею.
func (h *PledgeHandler) CreatePledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ideaID := r.PathValue("ideaId")

	var req models.PledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pledge, idea, err := h.Service.CreatePledge(ctx, ideaID, req)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to create pledge")
		return
	}

	writeJSON(w, h.Logger, map[string]interface{}{
		"pledge": pledge,
		"idea":   idea,
	})
}

// GetPledges обрабатывает запросы для получения списка пледжей по идее.
func (h *PledgeHandler) GetPledges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ideaID := r.PathValue("ideaId")
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	pledges, err := h.Service.FetchPledges(ctx, ideaID, limitStr, offsetStr)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to fetch pledges")
		return
	}

	writeJSON(w, h.Logger, pledges)
}

// RefundPledge обрабатывает запросы для возврата пледжа.
func (h *PledgeHandler) RefundPledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	pledgeID := r.PathValue("pledgeId")
	username := r.URL.Query().Get("username")

	pledge, err := h.Service.RefundPledge(ctx, pledgeID, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to refund pledge")
		return
	}

	writeJSON(w, h.Logger, pledge)
}
