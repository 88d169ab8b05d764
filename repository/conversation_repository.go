package repository

import (
	"context"

	"github.com/akinalp/shopchat/database"
	"github.com/akinalp/shopchat/models"
)

// ConversationRepository stores conversations and their membership.
type ConversationRepository interface {
	// Create inserts the conversation and its MemberIDs.
	Create(ctx context.Context, q database.TxQuerier, conv *models.Conversation) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
}
