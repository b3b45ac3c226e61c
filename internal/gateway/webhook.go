package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/senyabanana/idea-funding-service/internal/models"
)

// Типы событий, которые присылает шлюз. Остальные подтверждаются
// без обработки.
const (
	EventChargeSucceeded = "charge_intent.succeeded"
	EventTransferSettled = "transfer.settled"
	EventPayeeReady      = "payee_account.updated"
)

// EventObject - объект, к которому относится событие.
type EventObject struct {
	Ref      string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// Event - событие платежного шлюза. Шлюз доставляет события как минимум
// один раз, поэтому Ref используется для защиты от повторной обработки.
type Event struct {
	Ref    string      `json:"id"`
	Type   string      `json:"type"`
	Object EventObject `json:"object"`
}

// Sign считает подпись тела вебхука.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseEvent проверяет подпись тела и разбирает событие. Сравнение подписи
// выполняется за постоянное время. Неверная подпись возвращает
// ErrSignatureInvalid.
func ParseEvent(payload []byte, signature, secret string) (*Event, error) {
	expected := Sign(payload, secret)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, models.ErrSignatureInvalid
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
