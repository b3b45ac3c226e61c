package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/senyabanana/idea-funding-service/internal/gateway"
	"github.com/senyabanana/idea-funding-service/internal/models"
	"github.com/senyabanana/idea-funding-service/internal/utils"

	"github.com/sirupsen/logrus"
)

// memStore - общее хранилище для фейковых репозиториев. Повторяет
// семантику Postgres-реализаций в памяти, чтобы сервисы можно было
// тестировать без базы данных.
type memStore struct {
	mu           sync.Mutex
	seq          int
	participants map[string]*models.Participant
	ideas        map[string]*models.Idea
	pledges      map[string]*models.Pledge
	bids         map[string]*models.Bid
	votes        map[string]*models.BuilderVote
	milestones   map[string]*models.Milestone
	transactions []models.TokenTransaction
	events       map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		participants: make(map[string]*models.Participant),
		ideas:        make(map[string]*models.Idea),
		pledges:      make(map[string]*models.Pledge),
		bids:         make(map[string]*models.Bid),
		votes:        make(map[string]*models.BuilderVote),
		milestones:   make(map[string]*models.Milestone),
		events:       make(map[string]bool),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// applyTxn повторяет insertTransaction: проверка баланса и запись журнала
// выполняются под одной блокировкой.
func (s *memStore) applyTxn(txn *models.TokenTransaction) error {
	if txn.ID == "" {
		txn.ID = s.nextID("txn")
	}
	if txn.Settlement == "" {
		txn.Settlement = models.SettlementNone
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	if txn.ParticipantID != nil {
		p, ok := s.participants[*txn.ParticipantID]
		if !ok {
			return models.ErrNotFound
		}
		if p.TokenBalance+txn.Amount < 0 {
			return models.ErrInsufficientFunds
		}
		p.TokenBalance += txn.Amount
	}
	s.transactions = append(s.transactions, *txn)
	return nil
}

type fakeParticipantRepo struct{ store *memStore }

func (r *fakeParticipantRepo) CreateParticipant(_ context.Context, req models.ParticipantRequest) (*models.Participant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p := &models.Participant{
		ID:          r.store.nextID("p"),
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		CreatedAt:   time.Now().UTC(),
	}
	r.store.participants[p.ID] = p
	return p, nil
}

func (r *fakeParticipantRepo) GetByID(_ context.Context, id string) (*models.Participant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeParticipantRepo) GetByUsername(_ context.Context, username string) (*models.Participant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.participants {
		if p.Username == username {
			copied := *p
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeParticipantRepo) SetCustomerRef(_ context.Context, id, customerRef string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[id]
	if !ok {
		return models.ErrNotFound
	}
	p.CustomerRef = customerRef
	return nil
}

func (r *fakeParticipantRepo) SetPayeeAccount(_ context.Context, id, payeeRef string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[id]
	if !ok {
		return models.ErrNotFound
	}
	p.PayeeAccountRef = payeeRef
	return nil
}

type fakeLedgerRepo struct{ store *memStore }

func (r *fakeLedgerRepo) Record(_ context.Context, txn models.TokenTransaction) (*models.TokenTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.applyTxn(&txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *fakeLedgerRepo) BalanceOf(_ context.Context, participantID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var balance int64
	for _, txn := range r.store.transactions {
		if txn.ParticipantID != nil && *txn.ParticipantID == participantID {
			balance += txn.Amount
		}
	}
	return balance, nil
}

func (r *fakeLedgerRepo) Rebuild(_ context.Context, participantID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[participantID]
	if !ok {
		return 0, models.ErrNotFound
	}
	var balance int64
	for _, txn := range r.store.transactions {
		if txn.ParticipantID != nil && *txn.ParticipantID == participantID {
			balance += txn.Amount
		}
	}
	p.TokenBalance = balance
	return balance, nil
}

func (r *fakeLedgerRepo) ListByParticipant(_ context.Context, participantID string, limit, offset int) ([]models.TokenTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var txns []models.TokenTransaction
	for _, txn := range r.store.transactions {
		if txn.ParticipantID != nil && *txn.ParticipantID == participantID {
			txns = append(txns, txn)
		}
	}
	if offset >= len(txns) {
		return nil, nil
	}
	txns = txns[offset:]
	if len(txns) > limit {
		txns = txns[:limit]
	}
	return txns, nil
}

func (r *fakeLedgerRepo) ListUnsettled(_ context.Context, participantID string) ([]models.TokenTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var txns []models.TokenTransaction
	for _, txn := range r.store.transactions {
		if txn.ParticipantID != nil && *txn.ParticipantID == participantID &&
			txn.Settlement == models.SettlementPending && txn.ExternalTransferRef == nil {
			txns = append(txns, txn)
		}
	}
	return txns, nil
}

func (r *fakeLedgerRepo) AttachTransferRef(_ context.Context, txnID, transferRef string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.transactions {
		if r.store.transactions[i].ID == txnID {
			ref := transferRef
			r.store.transactions[i].ExternalTransferRef = &ref
			return nil
		}
	}
	return models.ErrNotFound
}

type fakeIdeaRepo struct{ store *memStore }

func (r *fakeIdeaRepo) CreateIdea(_ context.Context, req models.IdeaRequest, creatorID string, status models.IdeaStatus) (*models.Idea, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now().UTC()
	idea := &models.Idea{
		ID:               r.store.nextID("idea"),
		Title:            req.Title,
		Description:      req.Description,
		ProblemStatement: req.ProblemStatement,
		Tags:             req.Tags,
		MockupURLs:       req.MockupURLs,
		Status:           status,
		CreatorID:        creatorID,
		FundingGoal:      req.FundingGoal,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.store.ideas[idea.ID] = idea
	if p, ok := r.store.participants[creatorID]; ok {
		p.TotalIdeasCreated++
	}
	copied := *idea
	return &copied, nil
}

func (r *fakeIdeaRepo) GetByID(_ context.Context, id string) (*models.Idea, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	idea, ok := r.store.ideas[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *idea
	return &copied, nil
}

func (r *fakeIdeaRepo) ListIdeas(_ context.Context, limit, offset int, statuses, tags []string) ([]models.Idea, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var ideas []models.Idea
	for _, idea := range r.store.ideas {
		if len(statuses) > 0 && !containsString(statuses, string(idea.Status)) {
			continue
		}
		if len(tags) > 0 && !overlaps(idea.Tags, tags) {
			continue
		}
		ideas = append(ideas, *idea)
	}
	sort.Slice(ideas, func(i, j int) bool { return ideas[i].CreatedAt.After(ideas[j].CreatedAt) })
	return page(ideas, limit, offset), nil
}

func (r *fakeIdeaRepo) ListByCreator(_ context.Context, creatorID string, limit, offset int) ([]models.Idea, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var ideas []models.Idea
	for _, idea := range r.store.ideas {
		if idea.CreatorID == creatorID {
			ideas = append(ideas, *idea)
		}
	}
	sort.Slice(ideas, func(i, j int) bool { return ideas[i].CreatedAt.After(ideas[j].CreatedAt) })
	return page(ideas, limit, offset), nil
}

func (r *fakeIdeaRepo) PublishIdea(_ context.Context, ideaID string) (*models.Idea, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	idea, ok := r.store.ideas[ideaID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if idea.Status != models.DraftIdea {
		return nil, models.ErrInvalidState
	}
	idea.Status = models.OpenIdea
	copied := *idea
	return &copied, nil
}

func (r *fakeIdeaRepo) DeliverIdea(_ context.Context, ideaID string, req models.DeliveryRequest) (*models.Idea, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	idea, ok := r.store.ideas[ideaID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if idea.Status != models.CompletedIdea {
		return nil, models.ErrInvalidState
	}
	idea.Status = models.DeliveredIdea
	idea.GithubRepoURL = req.GithubRepoURL
	idea.LiveDemoURL = req.LiveDemoURL
	idea.DeliveryNotes = req.DeliveryNotes
	copied := *idea
	return &copied, nil
}

func (r *fakeIdeaRepo) CancelIdea(_ context.Context, ideaID string) (*models.Idea, []models.Pledge, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	idea, ok := r.store.ideas[ideaID]
	if !ok {
		return nil, nil, models.ErrNotFound
	}
	switch idea.Status {
	case models.CompletedIdea, models.DeliveredIdea, models.CancelledIdea:
		return nil, nil, models.ErrInvalidState
	}

	var refunded []models.Pledge
	for _, pledge := range r.store.pledges {
		if pledge.IdeaID != ideaID || pledge.Status != models.EscrowedPledge {
			continue
		}
		backerID := pledge.BackerID
		err := r.store.applyTxn(&models.TokenTransaction{
			ParticipantID: &backerID,
			Kind:          models.PledgeRefundTransaction,
			Amount:        pledge.Amount,
			IdeaID:        &pledge.IdeaID,
		})
		if err != nil {
			return nil, nil, err
		}
		pledge.Status = models.RefundedPledge
		refunded = append(refunded, *pledge)
	}
	idea.Status = models.CancelledIdea
	copied := *idea
	return &copied, refunded, nil
}

type fakePledgeRepo struct{ store *memStore }

func (r *fakePledgeRepo) EscrowPledge(_ context.Context, ideaID, backerID string, amount int64) (*models.Pledge, *models.Idea, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	idea, ok := r.store.ideas[ideaID]
	if !ok {
		return nil, nil, models.ErrNotFound
	}
	if idea.Status != models.OpenIdea && idea.Status != models.FundedIdea {
		return nil, nil, models.ErrInvalidState
	}

	err := r.store.applyTxn(&models.TokenTransaction{
		ParticipantID: &backerID,
		Kind:          models.PledgeTransaction,
		Amount:        -amount,
		IdeaID:        &ideaID,
	})
	if err != nil {
		return nil, nil, err
	}

	pledge := &models.Pledge{
		ID:        r.store.nextID("pledge"),
		IdeaID:    ideaID,
		BackerID:  backerID,
		Amount:    amount,
		Status:    models.EscrowedPledge,
		CreatedAt: time.Now().UTC(),
	}
	r.store.pledges[pledge.ID] = pledge

	idea.TotalPledged += amount
	if idea.Status == models.OpenIdea && idea.TotalPledged >= idea.FundingGoal {
		idea.Status = models.FundedIdea
	}
	r.store.participants[backerID].TotalIdeasBacked++

	pledgeCopy := *pledge
	ideaCopy := *idea
	return &pledgeCopy, &ideaCopy, nil
}

func (r *fakePledgeRepo) RefundPledge(_ context.Context, pledgeID string) (*models.Pledge, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	pledge, ok := r.store.pledges[pledgeID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if pledge.Status != models.EscrowedPledge {
		return nil, models.ErrInvalidState
	}
	idea := r.store.ideas[pledge.IdeaID]
	switch idea.Status {
	case models.DraftIdea, models.OpenIdea, models.FundedIdea:
	default:
		return nil, models.ErrInvalidState
	}

	backerID := pledge.BackerID
	err := r.store.applyTxn(&models.TokenTransaction{
		ParticipantID: &backerID,
		Kind:          models.PledgeRefundTransaction,
		Amount:        pledge.Amount,
		IdeaID:        &pledge.IdeaID,
	})
	if err != nil {
		return nil, err
	}
	pledge.Status = models.RefundedPledge
	idea.TotalPledged -= pledge.Amount
	copied := *pledge
	return &copied, nil
}

func (r *fakePledgeRepo) GetByID(_ context.Context, pledgeID string) (*models.Pledge, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	pledge, ok := r.store.pledges[pledgeID]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *pledge
	return &copied, nil
}

func (r *fakePledgeRepo) ListByIdea(_ context.Context, ideaID string, limit, offset int) ([]models.Pledge, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var pledges []models.Pledge
	for _, pledge := range r.store.pledges {
		if pledge.IdeaID == ideaID {
			pledges = append(pledges, *pledge)
		}
	}
	sort.Slice(pledges, func(i, j int) bool { return pledges[i].CreatedAt.Before(pledges[j].CreatedAt) })
	return page(pledges, limit, offset), nil
}

type fakeBidRepo struct{ store *memStore }

func (r *fakeBidRepo) CreateBid(_ context.Context, req models.BidRequest, builderID string) (*models.Bid, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	idea, ok := r.store.ideas[req.IdeaID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if idea.Status != models.OpenIdea && idea.Status != models.FundedIdea {
		return nil, models.ErrInvalidState
	}
	bid := &models.Bid{
		ID:                 r.store.nextID("bid"),
		IdeaID:             req.IdeaID,
		BuilderID:          builderID,
		RequestedTokens:    req.RequestedTokens,
		ProposedTimeline:   req.ProposedTimeline,
		Description:        req.Description,
		ProposedMilestones: req.ProposedMilestones,
		Status:             models.ActiveBid,
		CreatedAt:          time.Now().UTC().Add(time.Duration(r.store.seq) * time.Millisecond),
	}
	r.store.bids[bid.ID] = bid
	copied := *bid
	return &copied, nil
}

func (r *fakeBidRepo) GetByID(_ context.Context, bidID string) (*models.Bid, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	bid, ok := r.store.bids[bidID]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *bid
	return &copied, nil
}

func (r *fakeBidRepo) ListByIdea(_ context.Context, ideaID string, limit, offset int) ([]models.Bid, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var bids []models.Bid
	for _, bid := range r.store.bids {
		if bid.IdeaID == ideaID {
			bids = append(bids, *bid)
		}
	}
	sort.Slice(bids, func(i, j int) bool {
		if bids[i].VoteCount != bids[j].VoteCount {
			return bids[i].VoteCount > bids[j].VoteCount
		}
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
	return page(bids, limit, offset), nil
}

func (r *fakeBidRepo) CastVote(_ context.Context, ideaID, bidID, voterID string, weight int32) (*models.BuilderVote, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	idea, ok := r.store.ideas[ideaID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if idea.Status != models.OpenIdea && idea.Status != models.FundedIdea {
		return nil, models.ErrInvalidState
	}
	for _, vote := range r.store.votes {
		if vote.IdeaID == ideaID && vote.VoterID == voterID {
			return nil, models.ErrDuplicateVote
		}
	}
	bid, ok := r.store.bids[bidID]
	if !ok || bid.Status != models.ActiveBid {
		return nil, models.ErrInvalidState
	}

	vote := &models.BuilderVote{
		ID:        r.store.nextID("vote"),
		IdeaID:    ideaID,
		BidID:     bidID,
		VoterID:   voterID,
		Weight:    weight,
		CreatedAt: time.Now().UTC(),
	}
	r.store.votes[vote.ID] = vote
	bid.VoteCount += int64(weight)
	copied := *vote
	return &copied, nil
}

func (r *fakeBidRepo) ListVotesByIdea(_ context.Context, ideaID string) ([]models.BuilderVote, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var votes []models.BuilderVote
	for _, vote := range r.store.votes {
		if vote.IdeaID == ideaID {
			votes = append(votes, *vote)
		}
	}
	return votes, nil
}

func (r *fakeBidRepo) WithdrawBid(_ context.Context, bidID string) (*models.Bid, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	bid, ok := r.store.bids[bidID]
	if !ok || bid.Status != models.ActiveBid {
		return nil, models.ErrInvalidState
	}
	bid.Status = models.WithdrawnBid
	copied := *bid
	return &copied, nil
}

func (r *fakeBidRepo) SelectBuilder(_ context.Context, ideaID string) (*models.Bid, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	idea, ok := r.store.ideas[ideaID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if idea.Status != models.FundedIdea {
		return nil, models.ErrInvalidState
	}

	var winner *models.Bid
	for _, bid := range r.store.bids {
		if bid.IdeaID != ideaID || bid.Status != models.ActiveBid {
			continue
		}
		if winner == nil ||
			bid.VoteCount > winner.VoteCount ||
			(bid.VoteCount == winner.VoteCount && bid.CreatedAt.Before(winner.CreatedAt)) {
			winner = bid
		}
	}
	if winner == nil {
		return nil, models.ErrNoBidsAvailable
	}

	winner.Status = models.SelectedBid
	for _, bid := range r.store.bids {
		if bid.IdeaID == ideaID && bid.Status == models.ActiveBid {
			bid.Status = models.RejectedBid
		}
	}
	for _, pledge := range r.store.pledges {
		if pledge.IdeaID == ideaID && pledge.Status == models.EscrowedPledge {
			pledge.Status = models.ReleasedPledge
		}
	}
	for _, proposal := range winner.ProposedMilestones {
		m := &models.Milestone{
			ID:              r.store.nextID("ms"),
			IdeaID:          ideaID,
			BidID:           winner.ID,
			Title:           proposal.Title,
			Description:     proposal.Description,
			TokenAllocation: proposal.TokenAllocation,
			OrderIndex:      proposal.Order,
			Status:          models.PendingMilestone,
			CreatedAt:       time.Now().UTC(),
		}
		r.store.milestones[m.ID] = m
	}
	idea.Status = models.InProgressIdea
	idea.SelectedBidID = winner.ID
	copied := *winner
	return &copied, nil
}

type fakeMilestoneRepo struct{ store *memStore }

func (r *fakeMilestoneRepo) GetByID(_ context.Context, milestoneID string) (*models.Milestone, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.milestones[milestoneID]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMilestoneRepo) ListByIdea(_ context.Context, ideaID string) ([]models.Milestone, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var milestones []models.Milestone
	for _, m := range r.store.milestones {
		if m.IdeaID == ideaID {
			milestones = append(milestones, *m)
		}
	}
	sort.Slice(milestones, func(i, j int) bool { return milestones[i].OrderIndex < milestones[j].OrderIndex })
	return milestones, nil
}

func (r *fakeMilestoneRepo) minUnapprovedOrder(ideaID string) int32 {
	min := int32(0)
	for _, m := range r.store.milestones {
		if m.IdeaID != ideaID || m.Status == models.ApprovedMilestone {
			continue
		}
		if min == 0 || m.OrderIndex < min {
			min = m.OrderIndex
		}
	}
	return min
}

func (r *fakeMilestoneRepo) SubmitMilestone(_ context.Context, milestoneID string, req models.MilestoneSubmitRequest) (*models.Milestone, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.milestones[milestoneID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if m.Status != models.PendingMilestone && m.Status != models.InProgressMilestone {
		return nil, models.ErrInvalidState
	}
	idea := r.store.ideas[m.IdeaID]
	if idea.Status != models.InProgressIdea {
		return nil, models.ErrInvalidState
	}
	if m.OrderIndex != r.minUnapprovedOrder(m.IdeaID) {
		return nil, models.ErrInvalidState
	}

	m.Status = models.SubmittedMilestone
	m.SubmissionNotes = req.SubmissionNotes
	m.SubmissionURL = req.SubmissionURL
	idea.Status = models.MilestoneReviewIdea
	copied := *m
	return &copied, nil
}

func (r *fakeMilestoneRepo) ApproveMilestone(_ context.Context, milestoneID string, feeBps int64) (*models.MilestoneApproval, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.milestones[milestoneID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if m.Status != models.SubmittedMilestone {
		return nil, models.ErrInvalidState
	}
	idea := r.store.ideas[m.IdeaID]
	if idea.Status != models.MilestoneReviewIdea {
		return nil, models.ErrInvalidState
	}

	bid := r.store.bids[m.BidID]
	builder := r.store.participants[bid.BuilderID]

	fee := utils.PlatformFee(m.TokenAllocation, feeBps)
	payout := m.TokenAllocation - fee

	feeTxn := models.TokenTransaction{
		Kind:        models.PlatformFeeTransaction,
		Amount:      fee,
		IdeaID:      &m.IdeaID,
		MilestoneID: &m.ID,
	}
	if err := r.store.applyTxn(&feeTxn); err != nil {
		return nil, err
	}

	payoutTxn := models.TokenTransaction{
		ParticipantID: &builder.ID,
		Kind:          models.MilestonePayoutTransaction,
		Amount:        payout,
		IdeaID:        &m.IdeaID,
		MilestoneID:   &m.ID,
	}
	if builder.PayeeAccountRef != "" {
		payoutTxn.Settlement = models.SettlementPending
	}
	if err := r.store.applyTxn(&payoutTxn); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m.Status = models.ApprovedMilestone
	m.CompletedAt = &now

	ideaCompleted := r.minUnapprovedOrder(m.IdeaID) == 0
	if ideaCompleted {
		idea.Status = models.CompletedIdea
		builder.TotalIdeasCompleted++
		builder.Reputation += 10
	} else {
		idea.Status = models.InProgressIdea
	}

	copied := *m
	return &models.MilestoneApproval{
		Milestone:         &copied,
		PayoutTransaction: &payoutTxn,
		PlatformFee:       fee,
		BuilderPayeeRef:   builder.PayeeAccountRef,
		IdeaCompleted:     ideaCompleted,
	}, nil
}

func (r *fakeMilestoneRepo) RejectMilestone(_ context.Context, milestoneID string) (*models.Milestone, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.milestones[milestoneID]
	if !ok || m.Status != models.SubmittedMilestone {
		return nil, models.ErrInvalidState
	}
	m.Status = models.InProgressMilestone
	idea := r.store.ideas[m.IdeaID]
	if idea.Status == models.MilestoneReviewIdea {
		idea.Status = models.InProgressIdea
	}
	copied := *m
	return &copied, nil
}

type fakeCommentRepo struct{ store *memStore }

func (r *fakeCommentRepo) CreateComment(_ context.Context, ideaID, authorID string, req models.CommentRequest) (*models.Comment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return &models.Comment{
		ID:              r.store.nextID("comment"),
		IdeaID:          ideaID,
		AuthorID:        authorID,
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

func (r *fakeCommentRepo) ListByIdea(_ context.Context, ideaID string, limit, offset int) ([]models.Comment, error) {
	return nil, nil
}

type fakeEventRepo struct{ store *memStore }

func (r *fakeEventRepo) ApplyPurchase(_ context.Context, eventRef, participantID string, tokens int64, intentRef string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.events[eventRef] {
		return false, nil
	}
	r.store.events[eventRef] = true
	err := r.store.applyTxn(&models.TokenTransaction{
		ParticipantID:     &participantID,
		Kind:              models.PurchaseTransaction,
		Amount:            tokens,
		ExternalIntentRef: &intentRef,
		Settlement:        models.SettlementSettled,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *fakeEventRepo) MarkTransferSettled(_ context.Context, eventRef, transferRef string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.events[eventRef] {
		return false, nil
	}
	r.store.events[eventRef] = true
	for i := range r.store.transactions {
		txn := &r.store.transactions[i]
		if txn.ExternalTransferRef != nil && *txn.ExternalTransferRef == transferRef && txn.Settlement == models.SettlementPending {
			txn.Settlement = models.SettlementSettled
		}
	}
	return true, nil
}

// fakeGatewayClient записывает вызовы и возвращает предсказуемые ссылки.
type fakeGatewayClient struct {
	mu          sync.Mutex
	failing     bool
	transfers   []int64
	lastPayee   string
	intentCount int
}

func (c *fakeGatewayClient) CreateChargeIntent(_ context.Context, customerRef string, amountCents int64, metadata map[string]string) (*gateway.ChargeIntent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return nil, models.ErrGatewayUnavailable
	}
	c.intentCount++
	return &gateway.ChargeIntent{
		Ref:          fmt.Sprintf("ci_%d", c.intentCount),
		ClientSecret: "secret",
		AmountCents:  amountCents,
		Status:       "requires_confirmation",
	}, nil
}

func (c *fakeGatewayClient) CreateCustomer(_ context.Context, email, username string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return "", models.ErrGatewayUnavailable
	}
	return "cus_" + username, nil
}

func (c *fakeGatewayClient) CreatePayeeAccount(_ context.Context, email string) (*gateway.PayeeAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return nil, models.ErrGatewayUnavailable
	}
	return &gateway.PayeeAccount{Ref: "acct_" + email, OnboardingURL: "https://gateway.test/onboard"}, nil
}

func (c *fakeGatewayClient) Transfer(_ context.Context, payeeRef string, amountCents int64, description string) (*gateway.TransferResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return nil, models.ErrGatewayUnavailable
	}
	c.transfers = append(c.transfers, amountCents)
	c.lastPayee = payeeRef
	return &gateway.TransferResult{Ref: fmt.Sprintf("tr_%d", len(c.transfers)), Status: "pending"}, nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func overlaps(a, b []string) bool {
	for _, value := range a {
		if containsString(b, value) {
			return true
		}
	}
	return false
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}
