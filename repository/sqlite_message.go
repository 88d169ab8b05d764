package repository

import (
	"context"
	"fmt"

	"github.com/akinalp/shopchat/database"
	"github.com/akinalp/shopchat/models"
)

type sqliteMessageRepo struct {
	db database.TxQuerier
}

// NewSQLiteMessageRepo returns the SQLite MessageRepository.
func NewSQLiteMessageRepo(db database.TxQuerier) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

func (r *sqliteMessageRepo) Create(ctx context.Context, q database.TxQuerier, msg *models.Message) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, formatTime(msg.SentAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepo) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// ListPage uses OFFSET pagination: page boundaries shift when messages
// arrive, which the feed's id-based merge absorbs.
func (r *sqliteMessageRepo) ListPage(ctx context.Context, conversationID string, offset, limit int) ([]models.Message, error) {
	return r.list(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, conversationID, limit, offset)
}

func (r *sqliteMessageRepo) ListMentioning(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	return r.list(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.created_at
		FROM messages m
		JOIN message_mentions mm ON mm.message_id = m.id
		WHERE mm.user_id = ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?`, userID, limit)
}

func (r *sqliteMessageRepo) list(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		var sentAt string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if msg.SentAt, err = parseTime(sentAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}
