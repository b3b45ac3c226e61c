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

// BidHandler - структура для обработки HTTP-запросов заявок.
type BidHandler struct {
	Service *services.BidService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewBidHandler создает новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, logger *logrus.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateBid обрабатывает запросы для создания заявки.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bid, err := h.Service.CreateBid(ctx, req)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to create bid")
		return
	}

	writeJSON(w, h.Logger, bid)
}

// GetIdeaBids обрабатывает запросы для получения заявок по идее.
func (h *BidHandler) GetIdeaBids(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ideaID := r.PathValue("ideaId")
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	bids, err := h.Service.FetchBids(ctx, ideaID, limitStr, offsetStr)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to fetch bids")
		return
	}

	writeJSON(w, h.Logger, bids)
}

// Vote обрабатывает запросы для голосования за заявку.
func (h *BidHandler) Vote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bidID := r.PathValue("bidId")

	var req models.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	vote, err := h.Service.Vote(ctx, bidID, req)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to cast vote")
		return
	}

	writeJSON(w, h.Logger, vote)
}

// WithdrawBid обрабатывает запросы для отзыва заявки.
func (h *BidHandler) WithdrawBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bidID := r.PathValue("bidId")
	username := r.URL.Query().Get("username")

	bid, err := h.Service.WithdrawBid(ctx, bidID, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to withdraw bid")
		return
	}

	writeJSON(w, h.Logger, bid)
}

// SelectBuilder обрабатывает запросы для подведения итогов голосования.
func (h *BidHandler) SelectBuilder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ideaID := r.PathValue("ideaId")
	username := r.URL.Query().Get("username")

	winner, err := h.Service.SelectBuilder(ctx, ideaID, username)
	if err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to select builder")
		return
	}

	writeJSON(w, h.Logger, winner)
}
