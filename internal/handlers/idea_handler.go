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

// IdeaHandler - структура для обработки HTTP-запросов идей.
type IdeaHandler struct {
	Service *services.IdeaService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewIdeaHandler создает новый экземпляр IdeaHandler.
func NewIdeaHandler(service *services.IdeaService, logger *logrus.Logger, timeout time.Duration) *IdeaHandler {
	return &IdeaHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetIdeas обрабатывает запросы для получения списка идей.
func (h *IdeaHandler) GetIdeas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")
	statuses := r.URL.Query()["status"]
	tags := r.URL.Query()["tag"]

	ideas, err := h.Service.FetchIdeas(ctx, limitStr, offsetStr, statuses, tags)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to fetch ideas")
		return
	}

	writeJSON(w, h.Logger, ideas)
}

// CreateIdea обрабатывает запросы для создания идеи.
func (h *IdeaHandler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.IdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	idea, err := h.Service.CreateIdea(ctx, req)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to create idea")
		return
	}

	writeJSON(w, h.Logger, idea)
}

// GetUserIdeas обрабатывает запросы для получения списка идей пользователя.
func (h *IdeaHandler) GetUserIdeas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")
	username := r.URL.Query().Get("username")

	ideas, err := h.Service.GetUserIdeas(ctx, limitStr, offsetStr, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to fetch ideas")
		return
	}

	writeJSON(w, h.Logger, ideas)
}

// GetIdea обрабатывает запросы для получения идеи.
func (h *IdeaHandler) GetIdea(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ideaID := r.PathValue("ideaId")

	idea, err := h.Service.GetIdea(ctx, ideaID)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to fetch idea")
		return
	}

	writeJSON(w, h.Logger, idea)
}

// PublishIdea обрабатывает запросы для публикации черновика.
func (h *IdeaHandler) PublishIdea(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ideaID := r.PathValue("ideaId")
	username := r.URL.Query().Get("username")

	idea, err := h.Service.PublishIdea(ctx, ideaID, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to publish idea")
		return
	}

	writeJSON(w, h.Logger, idea)
}

// DeliverIdea обрабатывает запросы для передачи результата сообществу.
func (h *IdeaHandler) DeliverIdea(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ideaID := r.PathValue("ideaId")

	var req models.DeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	idea, err := h.Service.DeliverIdea(ctx, ideaID, req)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to deliver idea")
		return
	}

	writeJSON(w, h.Logger, idea)
}

// CancelIdea обрабатывает запросы для отмены идеи.
func (h *IdeaHandler) CancelIdea(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ideaID := r.PathValue("ideaId")
	username := r.URL.Query().Get("username")

	idea, refunded, err := h.Service.CancelIdea(ctx, ideaID, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to cancel idea")
		return
	}

	writeJSON(w, h.Logger, map[string]interface{}{
		"idea":            idea,
		"refundedPledges": refunded,
	})
}
