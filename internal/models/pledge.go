package models

import "time"

type PledgeStatus string // Статус пледжа

const (
	PendingPledge  PledgeStatus = "Pending"  // Пледж создан, но еще не зарезервирован
	EscrowedPledge PledgeStatus = "Escrowed" // Токены зарезервированы под идею
	ReleasedPledge PledgeStatus = "Released" // Токены закреплены за выплатами исполнителю
	RefundedPledge PledgeStatus = "Refunded" // Токены возвращены бекеру
)

// Pledge представляет модель пледжа токенов под идею.
type Pledge struct {
	ID        string       `json:"id"`
	IdeaID    string       `json:"ideaId"`
	BackerID  string       `json:"backerId"`
	Amount    int64        `json:"amount"`
	Status    PledgeStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// PledgeRequest представляет структуру запроса для создания пледжа.
type PledgeRequest struct {
	Username string `json:"username"`
	Amount   int64  `json:"amount"`
}
