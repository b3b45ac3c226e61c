package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/senyabanana/idea-funding-service/internal/services"
	"github.com/senyabanana/idea-funding-service/internal/utils"

	"github.com/sirupsen/logrus"
)

// maxWebhookBody ограничивает размер тела вебхука.
const maxWebhookBody = 1 << 20

// WebhookHandler - структура для обработки событий платежного шлюза.
type WebhookHandler struct {
	Service *services.GatewayService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewWebhookHandler создает новый экземпляр WebhookHandler.
func NewWebhookHandler(service *services.GatewayService, logger *logrus.Logger, timeout time.Duration) *WebhookHandler {
	return &WebhookHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// HandleWebhook обрабатывает событие шлюза. Подпись тела передается
// в заголовке Gateway-Signature.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	signature := r.Header.Get("Gateway-Signature")

	if err := h.Service.HandleEvent(ctx, payload, signature); err != nil {
		h.Logger.Error(err)
		utils.SendServiceError(w, err, "failed to process gateway event")
		return
	}

	w.WriteHeader(http.StatusOK)
}
