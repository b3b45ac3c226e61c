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

// CommentHandler - структура для обработки HTTP-запросов комментариев.
type CommentHandler struct {
	Service *services.CommentService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewCommentHandler создает новый экземпляр CommentHandler.
func NewCommentHandler(service *services.CommentService, logger *logrus.Logger, timeout time.Duration) *CommentHandler {
	return &CommentHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateComment обрабатывает запросы для создания комментария.
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ideaID := r.PathValue("ideaId")

	var req models.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := h.Service.CreateComment(ctx, ideaID, req)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to create comment")
		return
	}

	writeJSON(w, h.Logger, comment)
}

// GetComments обрабатывает запросы для получения комментариев по идее.
func (h *CommentHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ideaID := r.PathValue("ideaId")
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	comments, err := h.Service.FetchComments(ctx, ideaID, limitStr, offsetStr)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to fetch comments")
		return
	}

	writeJSON(w, h.Logger, comments)
}
