package services

import (
	"context"
	"net/http"

	"github.com/senyabanana/idea-funding-service/internal/models"
	"github.com/senyabanana/idea-funding-service/internal/repository"
	"github.com/senyabanana/idea-funding-service/internal/utils"

	"github.com/sirupsen/logrus"
)

type CommentService struct {
	Repo         repository.CommentRepository
	Ideas        repository.IdeaRepository
	Participants repository.ParticipantRepository
	Log          *logrus.Logger
}

// NewCommentService создает новый экземпляр CommentService.
func NewCommentService(repo repository.CommentRepository, ideas repository.IdeaRepository, participants repository.ParticipantRepository, log *logrus.Logger) *CommentService {
	return &CommentService{Repo: repo, Ideas: ideas, Participants: participants, Log: log}
}

// CreateComment создает комментарий к идее.
func (s *CommentService) CreateComment(ctx context.Context, ideaID string, req models.CommentRequest) (*models.Comment, error) {
	if ideaID == "" || req.Username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: ideaId or username")
	}
	if req.Content == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "comment content is required")
	}

	author, err := s.Participants.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if _, err = s.Ideas.GetByID(ctx, ideaID); err != nil {
		return nil, err
	}
	return s.Repo.CreateComment(ctx, ideaID, author.ID, req)
}

// FetchComments возвращает комментарии по идее.
func (s *CommentService) FetchComments(ctx context.Context, ideaID, limitStr, offsetStr string) ([]models.Comment, error) {
	if ideaID == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: ideaId")
	}
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, err.Error())
	}
	return s.Repo.ListByIdea(ctx, ideaID, limit, offset)
}
