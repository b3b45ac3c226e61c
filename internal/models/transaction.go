package models

import "time"

type (
	TransactionKind string // Тип проводки в журнале токенов
	SettlementState string // Состояние расчета с платежным шлюзом
)

const (
	PurchaseTransaction        TransactionKind = "Purchase"        // Покупка токенов за деньги
	PledgeTransaction          TransactionKind = "Pledge"          // Резервирование токенов под идею
	PledgeRefundTransaction    TransactionKind = "PledgeRefund"    // Возврат зарезервированных токенов
	MilestonePayoutTransaction TransactionKind = "MilestonePayout" // Выплата исполнителю за этап
	PlatformFeeTransaction     TransactionKind = "PlatformFee"     // Комиссия платформы
	WithdrawalTransaction      TransactionKind = "Withdrawal"      // Вывод токенов на внешний счет

	SettlementNone    SettlementState = "none"               // Движение денег за пределы платформы не требуется
	SettlementPending SettlementState = "pending_settlement" // Перевод инициирован, подтверждение не получено
	SettlementSettled SettlementState = "settled"            // Перевод подтвержден шлюзом
)

// TokenTransaction представляет неизменяемую запись журнала токенов.
// Журнал - источник истины: балансы участников и totalPledged идеи
// являются производными кэшами и сверяются по нему.
type TokenTransaction struct {
	ID                  string          `json:"id"`
	ParticipantID       *string         `json:"participantId,omitempty"`
	Kind                TransactionKind `json:"kind"`
	Amount              int64           `json:"amount"`
	IdeaID              *string         `json:"ideaId,omitempty"`
	MilestoneID         *string         `json:"milestoneId,omitempty"`
	ExternalIntentRef   *string         `json:"externalIntentRef,omitempty"`
	ExternalTransferRef *string         `json:"externalTransferRef,omitempty"`
	Settlement          SettlementState `json:"settlement"`
	Description         string          `json:"description,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
}
