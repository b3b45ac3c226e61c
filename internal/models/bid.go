package models

import "time"

type BidStatus string // Статус заявки исполнителя

const (
	ActiveBid    BidStatus = "Active"    // Заявка участвует в голосовании
	SelectedBid  BidStatus = "Selected"  // Заявка выбрана сообществом
	RejectedBid  BidStatus = "Rejected"  // Заявка отклонена при выборе исполнителя
	WithdrawnBid BidStatus = "Withdrawn" // Заявка отозвана исполнителем
)

// MilestoneProposal представляет этап, предложенный в заявке исполнителя.
type MilestoneProposal struct {
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	TokenAllocation int64  `json:"tokenAllocation"`
	Order           int32  `json:"order"`
}

// Bid представляет модель заявки исполнителя на идею.
type Bid struct {
	ID                 string              `json:"id"`
	IdeaID             string              `json:"ideaId"`
	BuilderID          string              `json:"builderId"`
	RequestedTokens    int64               `json:"requestedTokens"`
	ProposedTimeline   string              `json:"proposedTimeline"`
	Description        string              `json:"description,omitempty"`
	ProposedMilestones []MilestoneProposal `json:"proposedMilestones"`
	VoteCount          int64               `json:"voteCount"`
	Status             BidStatus           `json:"status"`
	CreatedAt          time.Time           `json:"createdAt"`
}

// BidRequest представляет структуру запроса для создания заявки.
type BidRequest struct {
	IdeaID             string              `json:"ideaId"`
	BuilderUsername    string              `json:"builderUsername"`
	RequestedTokens    int64               `json:"requestedTokens"`
	ProposedTimeline   string              `json:"proposedTimeline"`
	Description        string              `json:"description"`
	ProposedMilestones []MilestoneProposal `json:"proposedMilestones"`
}

// BuilderVote представляет модель голоса за исполнителя.
type BuilderVote struct {
	ID        string    `json:"id"`
	IdeaID    string    `json:"ideaId"`
	BidID     string    `json:"bidId"`
	VoterID   string    `json:"voterId"`
	Weight    int32     `json:"weight"`
	CreatedAt time.Time `json:"createdAt"`
}

// VoteRequest представляет структуру запроса для голосования за заявку.
type VoteRequest struct {
	Username string `json:"username"`
	Weight   int32  `json:"weight"`
}
