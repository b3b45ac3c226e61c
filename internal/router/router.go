package router

import (
	"net/http"

	"github.com/senyabanana/idea-funding-service/internal/handlers"
)

func InitRoutes(
	participantHandler *handlers.ParticipantHandler,
	ideaHandler *handlers.IdeaHandler,
	pledgeHandler *handlers.PledgeHandler,
	bidHandler *handlers.BidHandler,
	milestoneHandler *handlers.MilestoneHandler,
	commentHandler *handlers.CommentHandler,
	webhookHandler *handlers.WebhookHandler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ping", handlers.PingHandler)

	mux.HandleFunc("/api/participants/new", participantHandler.CreateParticipant)
	mux.HandleFunc("/api/participants/{username}", participantHandler.GetParticipant)
	mux.HandleFunc("/api/participants/{username}/balance", participantHandler.GetBalance)
	mux.HandleFunc("/api/participants/{username}/transactions", participantHandler.GetHistory)
	mux.HandleFunc("/api/participants/{username}/reconcile", participantHandler.Reconcile)
	mux.HandleFunc("/api/participants/{username}/payee_account", participantHandler.CreatePayeeAccount)
	mux.HandleFunc("/api/participants/{username}/retry_transfers", participantHandler.RetryTransfers)
	mux.HandleFunc("/api/tokens/purchase", participantHandler.StartPurchase)
	mux.HandleFunc("/api/tokens/withdraw", participantHandler.Withdraw)

	mux.HandleFunc("/api/ideas", ideaHandler.GetIdeas)
	mux.HandleFunc("/api/ideas/new", ideaHandler.CreateIdea)
	mux.HandleFunc("/api/ideas/my", ideaHandler.GetUserIdeas)
	mux.HandleFunc("/api/ideas/{ideaId}", ideaHandler.GetIdea)
	mux.HandleFunc("/api/ideas/{ideaId}/publish", ideaHandler.PublishIdea)
	mux.HandleFunc("/api/ideas/{ideaId}/deliver", ideaHandler.DeliverIdea)
	mux.HandleFunc("/api/ideas/{ideaId}/cancel", ideaHandler.CancelIdea)

	mux.HandleFunc("/api/ideas/{ideaId}/pledge", pledgeHandler.CreatePledge)
	mux.HandleFunc("/api/ideas/{ideaId}/pledges", pledgeHandler.GetPledges)
	mux.HandleFunc("/api/pledges/{pledgeId}/refund", pledgeHandler.RefundPledge)

	mux.HandleFunc("/api/bids/new", bidHandler.CreateBid)
	mux.HandleFunc("/api/ideas/{ideaId}/bids", bidHandler.GetIdeaBids)
	mux.HandleFunc("/api/bids/{bidId}/vote", bidHandler.Vote)
	mux.HandleFunc("/api/bids/{bidId}/withdraw", bidHandler.WithdrawBid)
	mux.HandleFunc("/api/ideas/{ideaId}/select_builder", bidHandler.SelectBuilder)

	mux.HandleFunc("/api/ideas/{ideaId}/milestones", milestoneHandler.GetMilestones)
	mux.HandleFunc("/api/milestones/{milestoneId}/submit", milestoneHandler.SubmitMilestone)
	mux.HandleFunc("/api/milestones/{milestoneId}/approve", milestoneHandler.ApproveMilestone)
	mux.HandleFunc("/api/milestones/{milestoneId}/reject", milestoneHandler.RejectMilestone)

	mux.HandleFunc("/api/ideas/{ideaId}/comments/new", commentHandler.CreateComment)
	mux.HandleFunc("/api/ideas/{ideaId}/comments", commentHandler.GetComments)

	mux.HandleFunc("/api/gateway/webhook", webhookHandler.HandleWebhook)

	return mux
}
