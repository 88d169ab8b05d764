package repository

import (
	"context"

	"github.com/akinalp/shopchat/database"
	"github.com/akinalp/shopchat/models"
)

// MessageRepository stores message rows. Tags and the mention index live in
// TagRepository and MentionRepository; returned messages have nil Tags.
type MessageRepository interface {
	Create(ctx context.Context, q database.TxQuerier, msg *models.Message) error
	CountByConversation(ctx context.Context, conversationID string) (int, error)
	// ListPage returns up to limit messages after skipping offset, newest
	// first (sent_at DESC, id DESC).
	ListPage(ctx context.Context, conversationID string, offset, limit int) ([]models.Message, error)
	// ListMentioning returns the newest messages whose mention index names
	// userID.
	ListMentioning(ctx context.Context, userID string, limit int) ([]models.Message, error)
}

// TagRepository stores message tags verbatim and in order.
type TagRepository interface {
	Save(ctx context.Context, q database.TxQuerier, messageID string, tags []string) error
	// GetByMessageIDs loads the tags of many messages in one query.
	GetByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]string, error)
}

// MentionRepository is the (message, mentioned user) index derived from
// USER: tags.
type MentionRepository interface {
	SaveMentions(ctx context.Context, q database.TxQuerier, messageID string, userIDs []string) error
}
