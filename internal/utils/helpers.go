package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/senyabanana/idea-funding-service/internal/models"
)

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := models.ErrorResponse{
		StatusCode: statusCode,
		Message:    message,
	}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Println(err)
	}
}

// StatusForError подбирает HTTP-статус для ошибок ядра.
func StatusForError(err error) (int, bool) {
	switch {
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusConflict, true
	case errors.Is(err, models.ErrDuplicateVote):
		return http.StatusConflict, true
	case errors.Is(err, models.ErrNoBidsAvailable):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, models.ErrSignatureInvalid):
		return http.StatusBadRequest, true
	case errors.Is(err, models.ErrGatewayUnavailable):
		return http.StatusBadGateway, true
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, true
	}
	return 0, false
}

// SendServiceError отправляет ошибку сервисного слоя с подходящим статусом.
func SendServiceError(w http.ResponseWriter, err error, fallback string) {
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
		return
	}
	if status, ok := StatusForError(err); ok {
		SendErrorResponse(w, status, err.Error())
		return
	}
	SendErrorResponse(w, http.StatusInternalServerError, fallback)
}

// ParseLimitOffset обрабатывает limit и offset
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	var limit, offset int
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > 50 {
			return 0, 0, fmt.Errorf("invalid limit parameter, must be a positive integer [0:50]")
		}
	} else {
		limit = 5
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter, must be a non-negative integer")
		}
	} else {
		offset = 0
	}

	return limit, offset, nil
}

// ContainsIdeaStatus - функция для проверки перехода у идей
func ContainsIdeaStatus(validTransitions []models.IdeaStatus, newStatus models.IdeaStatus) bool {
	for _, validStatus := range validTransitions {
		if validStatus == newStatus {
			return true
		}
	}
	return false
}

// PlatformFee считает комиссию платформы с округлением вниз.
// Для любого allocation >= 0 выполняется fee + (allocation - fee) == allocation.
func PlatformFee(allocation, feeBps int64) int64 {
	return allocation * feeBps / 10000
}
