package services

import (
	"context"
	"testing"

	"github.com/senyabanana/idea-funding-service/internal/models"

	"github.com/stretchr/testify/require"
)

// testEnv собирает все сервисы поверх общего хранилища в памяти.
type testEnv struct {
	store        *memStore
	gw           *fakeGatewayClient
	participants *ParticipantService
	ledger       *LedgerService
	ideas        *IdeaService
	pledges      *PledgeService
	bids         *BidService
	milestones   *MilestoneService
	comments     *CommentService
	events       *GatewayService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	logger := testLogger()
	gw := &fakeGatewayClient{}

	participantRepo := &fakeParticipantRepo{store: store}
	ledgerRepo := &fakeLedgerRepo{store: store}
	ideaRepo := &fakeIdeaRepo{store: store}
	pledgeRepo := &fakePledgeRepo{store: store}
	bidRepo := &fakeBidRepo{store: store}
	milestoneRepo := &fakeMilestoneRepo{store: store}
	commentRepo := &fakeCommentRepo{store: store}
	eventRepo := &fakeEventRepo{store: store}

	return &testEnv{
		store:        store,
		gw:           gw,
		participants: NewParticipantService(participantRepo, ledgerRepo, gw, 10, logger),
		ledger:       NewLedgerService(ledgerRepo, participantRepo, logger),
		ideas:        NewIdeaService(ideaRepo, participantRepo, logger),
		pledges:      NewPledgeService(pledgeRepo, participantRepo, logger),
		bids:         NewBidService(bidRepo, ideaRepo, participantRepo, logger),
		milestones:   NewMilestoneService(milestoneRepo, ideaRepo, bidRepo, participantRepo, ledgerRepo, gw, 500, 10, logger),
		comments:     NewCommentService(commentRepo, ideaRepo, participantRepo, logger),
		events:       NewGatewayService(eventRepo, "whsec_test", logger),
	}
}

// addParticipant создает участника с заданным балансом токенов.
func (e *testEnv) addParticipant(t *testing.T, username string, balance int64) *models.Participant {
	t.Helper()
	p, err := e.participants.CreateParticipant(context.Background(), models.ParticipantRequest{
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: username,
	})
	require.NoError(t, err)
	if balance > 0 {
		e.store.mu.Lock()
		err = e.store.applyTxn(&models.TokenTransaction{
			ParticipantID: &p.ID,
			Kind:          models.PurchaseTransaction,
			Amount:        balance,
			Settlement:    models.SettlementSettled,
		})
		e.store.mu.Unlock()
		require.NoError(t, err)
	}
	return p
}

// addOpenIdea создает открытую идею с заданной целью финансирования.
func (e *testEnv) addOpenIdea(t *testing.T, creator string, goal int64) *models.Idea {
	t.Helper()
	idea, err := e.ideas.CreateIdea(context.Background(), models.IdeaRequest{
		Title:           "idea by " + creator,
		Description:     "description",
		FundingGoal:     goal,
		CreatorUsername: creator,
	})
	require.NoError(t, err)
	return idea
}

// fundIdea доводит идею до цели одним пледжем бекера.
func (e *testEnv) fundIdea(t *testing.T, ideaID, backer string, amount int64) *models.Idea {
	t.Helper()
	_, idea, err := e.pledges.CreatePledge(context.Background(), ideaID, models.PledgeRequest{
		Username: backer,
		Amount:   amount,
	})
	require.NoError(t, err)
	return idea
}

// balanceOf возвращает кэшированный баланс участника.
func (e *testEnv) balanceOf(t *testing.T, id string) int64 {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	p, ok := e.store.participants[id]
	require.True(t, ok)
	return p.TokenBalance
}
