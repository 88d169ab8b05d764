package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akinalp/shopchat/database"
	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
	"github.com/akinalp/shopchat/repository"
)

// ConversationService manages conversations and guards membership.
type ConversationService interface {
	Create(ctx context.Context, userID string, req *models.CreateConversationRequest) (*models.Conversation, error)
	List(ctx context.Context, userID string) ([]models.Conversation, error)
	Get(ctx context.Context, conversationID, userID string) (*models.Conversation, error)
	// RequireMember returns ErrNotFound unless userID belongs to the
	// conversation, so non-members cannot guess which ids exist.
	RequireMember(ctx context.Context, conversationID, userID string) error
}

type conversationService struct {
	db       *sql.DB
	convRepo repository.ConversationRepository
	log      *zap.Logger
	now      func() time.Time
}

// NewConversationService creates the service; db is used for WithTx.
func NewConversationService(db *sql.DB, convRepo repository.ConversationRepository, log *zap.Logger) ConversationService {
	return &conversationService{
		db:       db,
		convRepo: convRepo,
		log:      log.Named("conversation"),
		now:      time.Now,
	}
}

func (s *conversationService) Create(ctx context.Context, userID string, req *models.CreateConversationRequest) (*models.Conversation, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	members := []string{userID}
	seen := map[string]bool{userID: true}
	for _, id := range req.MemberIDs {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}

	conv := &models.Conversation{
		ID:        uuid.New().String(),
		Subject:   req.Subject,
		OrderRef:  req.OrderRef,
		MemberIDs: members,
		CreatedAt: s.now().UTC(),
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.convRepo.Create(ctx, tx, conv)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("created_by", userID),
		zap.Int("members", len(members)))
	return conv, nil
}

func (s *conversationService) List(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.convRepo.ListForUser(ctx, userID)
}

func (s *conversationService) Get(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	if err := s.RequireMember(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.convRepo.GetByID(ctx, conversationID)
}

func (s *conversationService) RequireMember(ctx context.Context, conversationID, userID string) error {
	ok, err := s.convRepo.IsMember(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: conversation not found", pkg.ErrNotFound)
	}
	return nil
}
