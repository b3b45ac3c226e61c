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

// MilestoneHandler - структура для обработки HTTP-запросов этапов.
type MilestoneHandler struct {
	Service *services.MilestoneService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewMilestoneHandler создает новый экземпляр MilestoneHandler.
func NewMilestoneHandler(service *services.MilestoneService, logger *logrus.Logger, timeout time.Duration) *MilestoneHandler {
	return &MilestoneHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetMilestones обрабатывает запросы для получения этапов идеи.
func (h *MilestoneHandler) GetMilestones(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ideaID := r.PathValue("ideaId")

	milestones, err := h.Service.FetchMilestones(ctx, ideaID)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to fetch milestones")
		return
	}

	writeJSON(w, h.Logger, milestones)
}

// SubmitMilestone обрабатывает запросы для сдачи этапа на проверку.
func (h *MilestoneHandler) SubmitMilestone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	milestoneID := r.PathValue("milestoneId")

	var req models.MilestoneSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	milestone, err := h.Service.SubmitMilestone(ctx, milestoneID, req)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to submit milestone")
		return
	}

	writeJSON(w, h.Logger, milestone)
}

// ApproveMilestone обрабатывает запросы для принятия этапа.
func (h *MilestoneHandler) ApproveMilestone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	milestoneID := r.PathValue("milestoneId")
	username := r.URL.Query().Get("username")

	approval, err := h.Service.ApproveMilestone(ctx, milestoneID, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to approve milestone")
		return
	}

	writeJSON(w, h.Logger, approval)
}

// RejectMilestone обрабатывает запросы для возврата этапа на доработку.
func (h *MilestoneHandler) RejectMilestone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	milestoneID := r.PathValue("milestoneId")
	username := r.URL.Query().Get("username")

	milestone, err := h.Service.RejectMilestone(ctx, milestoneID, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to reject milestone")
		return
	}

	writeJSON(w, h.Logger, milestone)
}
