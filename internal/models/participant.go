package models

import "time"

// Participant представляет модель участника платформы.
type Participant struct {
	ID                  string    `json:"id"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	DisplayName         string    `json:"displayName"`
	Bio                 string    `json:"bio,omitempty"`
	AvatarURL           string    `json:"avatarUrl,omitempty"`
	TokenBalance        int64     `json:"tokenBalance"`
	Reputation          int32     `json:"reputation"`
	CustomerRef         string    `json:"-"`
	PayeeAccountRef     string    `json:"payeeAccountRef,omitempty"`
	TotalIdeasCreated   int32     `json:"totalIdeasCreated"`
	TotalIdeasCompleted int32     `json:"totalIdeasCompleted"`
	TotalIdeasBacked    int32     `json:"totalIdeasBacked"`
	CreatedAt           time.Time `json:"createdAt"`
}

// ParticipantRequest представляет структуру запроса для создания участника.
type ParticipantRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatarUrl"`
}

// PurchaseRequest представляет запрос на покупку токенов через платежный шлюз.
type PurchaseRequest struct {
	Username    string `json:"username"`
	TokenAmount int64  `json:"tokenAmount"`
}

// WithdrawRequest представляет запрос на вывод токенов на внешний счет.
type WithdrawRequest struct {
	Username    string `json:"username"`
	TokenAmount int64  `json:"tokenAmount"`
}
