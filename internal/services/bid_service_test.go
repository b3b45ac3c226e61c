package services

import (
	"context"
	"testing"

	"github.com/senyabanana/idea-funding-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proposals(allocations ...int64) []models.MilestoneProposal {
	result := make([]models.MilestoneProposal, 0, len(allocations))
	for i, allocation := range allocations {
		result = append(result, models.MilestoneProposal{
			Title:           "milestone",
			TokenAllocation: allocation,
			Order:           int32(i + 1),
		})
	}
	return result
}

func TestCreateBidValidatesProposals(t *testing.T) {
	env := newTestEnv()
	env.addParticipant(t, "alice", 0)
	env.addParticipant(t, "dave", 0)
	idea := env.addOpenIdea(t, "alice", 100)

	tests := []struct {
		name string
		req  models.BidRequest
	}{
		{
			name: "no milestones",
			req: models.BidRequest{
				IdeaID: idea.ID, BuilderUsername: "dave", RequestedTokens: 100,
			},
		},
		{
			name: "allocations exceed requested tokens",
			req: models.BidRequest{
				IdeaID: idea.ID, BuilderUsername: "dave", RequestedTokens: 100,
				ProposedMilestones: proposals(60, 50),
			},
		},
		{
			name: "duplicate order",
			req: models.BidRequest{
				IdeaID: idea.ID, BuilderUsername: "dave", RequestedTokens: 100,
				ProposedMilestones: []models.MilestoneProposal{
					{Title: "a", TokenAllocation: 40, Order: 1},
					{Title: "b", TokenAllocation: 40, Order: 1},
				},
			},
		},
		{
			name: "zero allocation",
			req: models.BidRequest{
				IdeaID: idea.ID, BuilderUsername: "dave", RequestedTokens: 100,
				ProposedMilestones: []models.MilestoneProposal{
					{Title: "a", TokenAllocation: 0, Order: 1},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.bids.CreateBid(context.Background(), tt.req)
			var errorResponse *models.ErrorResponse
			require.ErrorAs(t, err, &errorResponse)
			assert.Equal(t, 400, errorResponse.StatusCode)
		})
	}
}

func TestCreatorCannotBidOnOwnIdea(t *testing.T) {
	env := newTestEnv()
	env.addParticipant(t, "alice", 0)
	idea := env.addOpenIdea(t, "alice", 100)

	_, err := env.bids.CreateBid(context.Background(), models.BidRequest{
		IdeaID:             idea.ID,
		BuilderUsername:    "alice",
		RequestedTokens:    100,
		ProposedMilestones: proposals(100),
	})
	var errorResponse *models.ErrorResponse
	require.ErrorAs(t, err, &errorResponse)
	assert.Equal(t, 403, errorResponse.StatusCode)
}

func TestVoteDefaultWeight(t *testing.T) {
	env := newTestEnv()
	env.addParticipant(t, "alice", 0)
	env.addParticipant(t, "dave", 0)
	env.addParticipant(t, "voter", 0)
	idea := env.addOpenIdea(t, "alice", 100)

	bid, err := env.bids.CreateBid(context.Background(), models.BidRequest{
		IdeaID:             idea.ID,
		BuilderUsername:    "dave",
		RequestedTokens:    100,
		ProposedMilestones: proposals(100),
	})
	require.NoError(t, err)

	vote, err := env.bids.Vote(context.Background(), bid.ID, models.VoteRequest{Username: "voter"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), vote.Weight)

	updated, err := env.bids.GetBid(context.Background(), bid.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.VoteCount)
}

func TestDuplicateVoteRejected(t *testing.T) {
	env := newTestEnv()
	env.addParticipant(t, "alice", 0)
	env.addParticipant(t, "dave", 0)
	env.addParticipant(t, "eve", 0)
	env.addParticipant(t, "voter", 0)
	idea := env.addOpenIdea(t, "alice", 100)

	first, err := env.bids.CreateBid(context.Background(), models.BidRequest{
		IdeaID:             idea.ID,
		BuilderUsername:    "dave",
		RequestedTokens:    100,
		ProposedMilestones: proposals(100),
	})
	require.NoError(t, err)
	second, err := env.bids.CreateBid(context.Background(), models.BidRequest{
		IdeaID:             idea.ID,
		BuilderUsername:    "eve",
		RequestedTokens:    100,
		ProposedMilestones: proposals(100),
	})
	require.NoError(t, err)

	_, err = env.bids.Vote(context.Background(), first.ID, models.VoteRequest{Username: "voter", Weight: 3})
	require.NoError(t, err)

	// повторный голос по той же идее, даже за другую заявку
	_, err = env.bids.Vote(context.Background(), second.ID, models.VoteRequest{Username: "voter"})
	assert.ErrorIs(t, err, models.ErrDuplicateVote)

	updated, err := env.bids.GetBid(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.VoteCount)
}

func TestSelectBuilderPicksMostVoted(t *testing.T) {
	env := newTestEnv()
	env.addParticipant(t, "alice", 0)
	env.addParticipant(t, "bob", 100)
	env.addParticipant(t, "dave", 0)
	env.addParticipant(t, "eve", 0)
	env.addParticipant(t, "v1", 0)
	env.addParticipant(t, "v2", 0)
	env.addParticipant(t, "v3", 0)
	idea := env.addOpenIdea(t, "alice", 100)

	weak, err := env.bids.CreateBid(context.Background(), models.BidRequest{
		IdeaID:             idea.ID,
		BuilderUsername:    "dave",
		RequestedTokens:    100,
		ProposedMilestones: proposals(100),
	})
	require.NoError(t, err)
	strong, err := env.bids.CreateBid(context.Background(), models.BidRequest{
		IdeaID:             idea.ID,
		BuilderUsername:    "eve",
		RequestedTokens:    100,
		ProposedMilestones: proposals(60, 40),
	})
	require.NoError(t, err)

	_, err = env.bids.Vote(context.Background(), weak.ID, models.VoteRequest{Username: "v1"})
	require.NoError(t, err)
	_, err = env.bids.Vote(context.Background(), strong.ID, models.VoteRequest{Username: "v2", Weight: 2})
	require.NoError(t, err)
	_, err = env.bids.Vote(context.Background(), strong.ID, models.VoteRequest{Username: "v3"})
	require.NoError(t, err)

	env.fundIdea(t, idea.ID, "bob", 100)

	winner, err := env.bids.SelectBuilder(context.Background(), idea.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, strong.ID, winner.ID)
	assert.Equal(t, models.SelectedBid, winner.Status)

	loser, err := env.bids.GetBid(context.Background(), weak.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RejectedBid, loser.Status)

	updated, err := env.ideas.GetIdea(context.Background(), idea.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InProgressIdea, updated.Status)
	assert.Equal(t, strong.ID, updated.SelectedBidID)

	milestones, err := env.milestones.FetchMilestones(context.Background(), idea.ID)
	require.NoError(t, err)
	require.Len(t, milestones, 2)
	assert.Equal(t, int64(60), milestones[0].TokenAllocation)
	assert.Equal(t, models.PendingMilestone, milestones[0].Status)
}

func TestSelectBuilderTieGoesToEarliestBid(t *testing.T) {
	env := newTestEnv()
	env.addParticipant(t, "alice", 0)
	env.addParticipant(t, "bob", 100)
	env.addParticipant(t, "dave", 0)
	env.addParticipant(t, "eve", 0)
	env.addParticipant(t, "v1", 0)
	env.addParticipant(t, "v2", 0)
	idea := env.addOpenIdea(t, "alice", 100)

	earliest, err := env.bids.CreateBid(context.Background(), models.BidRequest{
		IdeaID:             idea.ID,
		BuilderUsername:    "dave",
		RequestedTokens:    100,
		ProposedMilestones: proposals(100),
	})
	require.NoError(t, err)
	later, err := env.bids.CreateBid(context.Background(), models.BidRequest{
		IdeaID:             idea.ID,
		BuilderUsername:    "eve",
		RequestedTokens:    100,
		ProposedMilestones: proposals(100),
	})
	require.NoError(t, err)

	_, err = env.bids.Vote(context.Background(), earliest.ID, models.VoteRequest{Username: "v1", Weight: 2})
	require.NoError(t, err)
	_, err = env.bids.Vote(context.Background(), later.ID, models.VoteRequest{Username: "v2", Weight: 2})
	require.NoError(t, err)

	env.fundIdea(t, idea.ID, "bob", 100)

	winner, err := env.bids.SelectBuilder(context.Background(), idea.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, earliest.ID, winner.ID)
}

func TestSelectBuilderRequiresFundedIdea(t *testing.T) {
	env := newTestEnv()
	env.addParticipant(t, "alice", 0)
	env.addParticipant(t, "dave", 0)
	idea := env.addOpenIdea(t, "alice", 100)

	_, err := env.bids.CreateBid(context.Background(), models.BidRequest{
		IdeaID:             idea.ID,
		BuilderUsername:    "dave",
		RequestedTokens:    100,
		ProposedMilestones: proposals(100),
	})
	require.NoError(t, err)

	_, err = env.bids.SelectBuilder(context.Background(), idea.ID, "alice")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSelectBuilderWithoutBids(t *testing.T) {
	env := newTestEnv()
	env.addParticipant(t, "alice", 0)
	env.addParticipant(t, "bob", 100)
	idea := env.addOpenIdea(t, "alice", 100)
	env.fundIdea(t, idea.ID, "bob", 100)

	_, err := env.bids.SelectBuilder(context.Background(), idea.ID, "alice")
	assert.ErrorIs(t, err, models.ErrNoBidsAvailable)
}

func TestSelectBuilderIgnoresWithdrawnBids(t *testing.T) {
	env := newTestEnv()
	env.addParticipant(t, "alice", 0)
	env.addParticipant(t, "bob", 100)
	env.addParticipant(t, "dave", 0)
	idea := env.addOpenIdea(t, "alice", 100)

	bid, err := env.bids.CreateBid(context.Background(), models.BidRequest{
		IdeaID:             idea.ID,
		BuilderUsername:    "dave",
		RequestedTokens:    100,
		ProposedMilestones: proposals(100),
	})
	require.NoError(t, err)

	_, err = env.bids.WithdrawBid(context.Background(), bid.ID, "dave")
	require.NoError(t, err)

	env.fundIdea(t, idea.ID, "bob", 100)

	_, err = env.bids.SelectBuilder(context.Background(), idea.ID, "alice")
	assert.ErrorIs(t, err, models.ErrNoBidsAvailable)
}

func TestSelectBuilderReleasesPledges(t *testing.T) {
	env := newTestEnv()
	env.addParticipant(t, "alice", 0)
	env.addParticipant(t, "bob", 100)
	env.addParticipant(t, "dave", 0)
	idea := env.addOpenIdea(t, "alice", 100)

	_, err := env.bids.CreateBid(context.Background(), models.BidRequest{
		IdeaID:             idea.ID,
		BuilderUsername:    "dave",
		RequestedTokens:    100,
		ProposedMilestones: proposals(100),
	})
	require.NoError(t, err)

	env.fundIdea(t, idea.ID, "bob", 100)

	_, err = env.bids.SelectBuilder(context.Background(), idea.ID, "alice")
	require.NoError(t, err)

	pledges, err := env.pledges.FetchPledges(context.Background(), idea.ID, "", "")
	require.NoError(t, err)
	require.Len(t, pledges, 1)
	assert.Equal(t, models.ReleasedPledge, pledges[0].Status)
}
