package models

import "time"

type MilestoneStatus string // Статус этапа

const (
	PendingMilestone    MilestoneStatus = "Pending"    // Этап еще не начат
	InProgressMilestone MilestoneStatus = "InProgress" // Этап в работе
	SubmittedMilestone  MilestoneStatus = "Submitted"  // Этап отправлен на проверку
	ApprovedMilestone   MilestoneStatus = "Approved"   // Этап принят, выплата проведена
	RejectedMilestone   MilestoneStatus = "Rejected"   // Этап отклонен, ожидается доработка
)

// Milestone представляет модель этапа работы по идее.
type Milestone struct {
	ID              string          `json:"id"`
	IdeaID          string          `json:"ideaId"`
	BidID           string          `json:"bidId"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	TokenAllocation int64           `json:"tokenAllocation"`
	OrderIndex      int32           `json:"order"`
	Status          MilestoneStatus `json:"status"`
	SubmissionNotes string          `json:"submissionNotes,omitempty"`
	SubmissionURL   string          `json:"submissionUrl,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// MilestoneSubmitRequest представляет структуру запроса для сдачи этапа.
type MilestoneSubmitRequest struct {
	Username        string `json:"username"`
	SubmissionNotes string `json:"submissionNotes"`
	SubmissionURL   string `json:"submissionUrl"`
}

// MilestoneApproval - результат принятия этапа: сам этап, проводка выплаты
// и данные для перевода средств через платежный шлюз.
type MilestoneApproval struct {
	Milestone         *Milestone        `json:"milestone"`
	PayoutTransaction *TokenTransaction `json:"payoutTransaction"`
	PlatformFee       int64             `json:"platformFee"`
	BuilderPayeeRef   string            `json:"-"`
	IdeaCompleted     bool              `json:"ideaCompleted"`
}
