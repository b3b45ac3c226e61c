package services

import (
	"context"
	"strconv"

	"github.com/senyabanana/idea-funding-service/internal/gateway"
	"github.com/senyabanana/idea-funding-service/internal/repository"

	"github.com/sirupsen/logrus"
)

type GatewayService struct {
	Events        repository.GatewayEventRepository
	WebhookSecret string
	Log           *logrus.Logger
}

// NewGatewayService создает новый экземпляр GatewayService.
func NewGatewayService(events repository.GatewayEventRepository, webhookSecret string, log *logrus.Logger) *GatewayService {
	return &GatewayService{Events: events, WebhookSecret: webhookSecret, Log: log}
}

// HandleEvent проверяет подпись и применяет событие шлюза. Повторная
// доставка того же события безопасна: событие применяется не более
// одного раза, все последующие доставки подтверждаются без эффекта.
func (s *GatewayService) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := gateway.ParseEvent(payload, signature, s.WebhookSecret)
	if err != nil {
		return err
	}

	switch event.Type {
	case gateway.EventChargeSucceeded:
		participantID := event.Object.Metadata["participantId"]
		tokens, convErr := strconv.ParseInt(event.Object.Metadata["tokenAmount"], 10, 64)
		if participantID == "" || convErr != nil || tokens <= 0 {
			s.Log.WithField("eventRef", event.Ref).Warn("charge event has malformed metadata, skipping")
			return nil
		}
		applied, err := s.Events.ApplyPurchase(ctx, event.Ref, participantID, tokens, event.Object.Ref)
		if err != nil {
			return err
		}
		if !applied {
			s.Log.WithField("eventRef", event.Ref).Info("duplicate charge event ignored")
			return nil
		}
		s.Log.WithFields(logrus.Fields{"eventRef": event.Ref, "tokens": tokens}).Info("purchase credited")

	case gateway.EventTransferSettled:
		applied, err := s.Events.MarkTransferSettled(ctx, event.Ref, event.Object.Ref)
		if err != nil {
			return err
		}
		if !applied {
			s.Log.WithField("eventRef", event.Ref).Info("duplicate transfer event ignored")
			return nil
		}
		s.Log.WithField("transferRef", event.Object.Ref).Info("transfer settled")

	case gateway.EventPayeeReady:
		s.Log.WithField("payeeRef", event.Object.Ref).Info("payee account onboarding completed")

	default:
		s.Log.WithField("type", event.Type).Debug("unhandled gateway event type")
	}
	return nil
}
