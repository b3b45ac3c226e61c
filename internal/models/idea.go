package models

import "time"

type IdeaStatus string // Статус идеи

const (
	DraftIdea           IdeaStatus = "Draft"           // Идея создана как черновик
	OpenIdea            IdeaStatus = "Open"            // Идея открыта для сбора средств
	FundedIdea          IdeaStatus = "Funded"          // Цель финансирования достигнута
	BuilderSelectedIdea IdeaStatus = "BuilderSelected" // Исполнитель выбран голосованием
	InProgressIdea      IdeaStatus = "InProgress"      // Идея в работе
	MilestoneReviewIdea IdeaStatus = "MilestoneReview" // Этап отправлен на проверку
	CompletedIdea       IdeaStatus = "Completed"       // Все этапы приняты
	DeliveredIdea       IdeaStatus = "Delivered"       // Результат передан сообществу
	CancelledIdea       IdeaStatus = "Cancelled"       // Идея отменена создателем
)

// Idea представляет модель идеи.
type Idea struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	ProblemStatement string     `json:"problemStatement,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	MockupURLs       []string   `json:"mockupUrls,omitempty"`
	Status           IdeaStatus `json:"status"`
	CreatorID        string     `json:"creatorId"`
	FundingGoal      int64      `json:"fundingGoal"`
	TotalPledged     int64      `json:"totalPledged"`
	SelectedBidID    string     `json:"selectedBidId,omitempty"`
	GithubRepoURL    string     `json:"githubRepoUrl,omitempty"`
	LiveDemoURL      string     `json:"liveDemoUrl,omitempty"`
	DeliveryNotes    string     `json:"deliveryNotes,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// IdeaRequest представляет структуру запроса для создания идеи.
type IdeaRequest struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	ProblemStatement string   `json:"problemStatement"`
	Tags             []string `json:"tags"`
	MockupURLs       []string `json:"mockupUrls"`
	FundingGoal      int64    `json:"fundingGoal"`
	CreatorUsername  string   `json:"creatorUsername"`
	Draft            bool     `json:"draft"`
}

// DeliveryRequest представляет структуру запроса для передачи результата.
type DeliveryRequest struct {
	Username      string `json:"username"`
	GithubRepoURL string `json:"githubRepoUrl"`
	LiveDemoURL   string `json:"liveDemoUrl"`
	DeliveryNotes string `json:"deliveryNotes"`
}
