package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akinalp/shopchat/database"
	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
	"github.com/akinalp/shopchat/pkg/mention"
	"github.com/akinalp/shopchat/pkg/tags"
	"github.com/akinalp/shopchat/repository"
)

const (
	defaultMentionsLimit = 20
	maxMentionsLimit     = 100
)

// MessageService serves conversation pages and accepts new messages.
type MessageService interface {
	// GetPage is the fetchMessagesPage collaborator. Page 0 holds the newest
	// messages; a page past the end comes back empty.
	GetPage(ctx context.Context, conversationID, userID string, pageIndex int) (*models.Page, error)
	// Send stores a message from userID. Bracket mentions still in the
	// content are resolved against the directory.
	Send(ctx context.Context, conversationID, userID string, req *models.SendMessageRequest) (*models.Message, error)
	// Mentions lists the newest messages that mention userID.
	Mentions(ctx context.Context, userID string, limit int) ([]models.Message, error)
}

// MessageObserver is told about every stored message. The metrics registry
// implements it.
type MessageObserver interface {
	ObserveMessage(mentions int)
}

type messageService struct {
	db          *sql.DB
	messageRepo repository.MessageRepository
	tagRepo     repository.TagRepository
	mentionRepo repository.MentionRepository
	userRepo    repository.UserRepository
	convService ConversationService
	pageSize    int
	observer    MessageObserver
	log         *zap.Logger
	now         func() time.Time
}

// NewMessageService creates the service. db is used for WithTx; observer
// may be nil.
func NewMessageService(
	db *sql.DB,
	messageRepo repository.MessageRepository,
	tagRepo repository.TagRepository,
	mentionRepo repository.MentionRepository,
	userRepo repository.UserRepository,
	convService ConversationService,
	pageSize int,
	observer MessageObserver,
	log *zap.Logger,
) MessageService {
	if pageSize <= 0 {
		pageSize = 30
	}
	return &messageService{
		db:          db,
		messageRepo: messageRepo,
		tagRepo:     tagRepo,
		mentionRepo: mentionRepo,
		userRepo:    userRepo,
		convService: convService,
		pageSize:    pageSize,
		observer:    observer,
		log:         log.Named("message"),
		now:         time.Now,
	}
}

func (s *messageService) GetPage(ctx context.Context, conversationID, userID string, pageIndex int) (*models.Page, error) {
	if pageIndex < 0 {
		return nil, fmt.Errorf("%w: page index must not be negative", pkg.ErrBadRequest)
	}
	if err := s.convService.RequireMember(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	total, err := s.messageRepo.CountByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	pageCount := (total + s.pageSize - 1) / s.pageSize

	page := &models.Page{
		Results: []models.Message{},
		Meta:    models.PageMeta{PageIndex: pageIndex, PageCount: pageCount},
	}
	if pageIndex >= pageCount {
		return page, nil
	}

	messages, err := s.messageRepo.ListPage(ctx, conversationID, pageIndex*s.pageSize, s.pageSize)
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, messages); err != nil {
		return nil, err
	}

	page.Results = messages
	return page, nil
}

func (s *messageService) Send(ctx context.Context, conversationID, userID string, req *models.SendMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}
	if err := s.convService.RequireMember(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	content, resolved, err := s.resolveMentions(ctx, req.Content)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return nil, fmt.Errorf("%w: message content must be at most %d characters", pkg.ErrBadRequest, models.MaxMessageLength)
	}

	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        content,
		SentAt:         s.now().UTC(),
		Tags:           tags.Normalize(req.Tags, resolved...),
	}
	mentioned := tags.UserIDs(msg.Tags)

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.messageRepo.Create(ctx, tx, msg); err != nil {
			return err
		}
		if err := s.tagRepo.Save(ctx, tx, msg.ID, msg.Tags); err != nil {
			return err
		}
		return s.mentionRepo.SaveMentions(ctx, tx, msg.ID, mentioned)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	s.log.Debug("message stored",
		zap.String("message_id", msg.ID),
		zap.String("conversation_id", conversationID),
		zap.String("sender_id", userID),
		zap.Int("tags", len(msg.Tags)),
		zap.Strings("mentions", mentioned))
	if s.observer != nil {
		s.observer.ObserveMessage(len(mentioned))
	}
	return msg, nil
}

// resolveMentions rewrites @[Display Name] spans the client left in the
// content. Spans naming nobody stay as typed.
func (s *messageService) resolveMentions(ctx context.Context, content string) (string, []string, error) {
	names := mention.Names(content)
	if len(names) == 0 {
		return content, nil, nil
	}

	directory, err := s.userRepo.GetByDisplayNames(ctx, names)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve mentions: %w", err)
	}

	res := mention.Parse(content, directory)
	if len(res.Unresolved) > 0 {
		s.log.Debug("unresolved mentions", zap.Strings("names", res.Unresolved))
	}
	return res.Content, res.MentionedUserIDs, nil
}

func (s *messageService) Mentions(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultMentionsLimit
	}
	if limit > maxMentionsLimit {
		limit = maxMentionsLimit
	}

	messages, err := s.messageRepo.ListMentioning(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// attachTags loads the tags of all messages in one query.
func (s *messageService) attachTags(ctx context.Context, messages []models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}

	byMessage, err := s.tagRepo.GetByMessageIDs(ctx, ids)
	if err != nil {
		return err
	}

	for i := range messages {
		messages[i].Tags = byMessage[messages[i].ID]
		if messages[i].Tags == nil {
			messages[i].Tags = []string{}
		}
	}
	return nil
}
