package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/shopchat/database"
	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
)

type sqliteConversationRepo struct {
	db database.TxQuerier
}

// NewSQLiteConversationRepo returns the SQLite ConversationRepository.
func NewSQLiteConversationRepo(db database.TxQuerier) ConversationRepository {
	return &sqliteConversationRepo{db: db}
}

func (r *sqliteConversationRepo) Create(ctx context.Context, q database.TxQuerier, conv *models.Conversation) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO conversations (id, subject, order_ref, created_at) VALUES (?, ?, ?, ?)`,
		conv.ID, conv.Subject, conv.OrderRef, formatTime(conv.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	for _, userID := range conv.MemberIDs {
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO conversation_members (conversation_id, user_id) VALUES (?, ?)`,
			conv.ID, userID,
		); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: unknown member %s", pkg.ErrBadRequest, userID)
			}
			return fmt.Errorf("failed to add conversation member: %w", err)
		}
	}
	return nil
}

func (r *sqliteConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	var orderRef sql.NullString
	var createdAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, subject, order_ref, created_at FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &conv.Subject, &orderRef, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	if err := fillConversation(&conv, orderRef, createdAt); err != nil {
		return nil, err
	}

	members, err := r.members(ctx, []string{conv.ID})
	if err != nil {
		return nil, err
	}
	conv.MemberIDs = members[conv.ID]
	return &conv, nil
}

func (r *sqliteConversationRepo) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.subject, c.order_ref, c.created_at
		FROM conversations c
		JOIN conversation_members cm ON cm.conversation_id = c.id
		WHERE cm.user_id = ?
		ORDER BY c.created_at DESC, c.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	convs := []models.Conversation{}
	for rows.Next() {
		var conv models.Conversation
		var orderRef sql.NullString
		var createdAt string
		if err := rows.Scan(&conv.ID, &conv.Subject, &orderRef, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		if err := fillConversation(&conv, orderRef, createdAt); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	if len(convs) == 0 {
		return convs, nil
	}

	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	members, err := r.members(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		convs[i].MemberIDs = members[convs[i].ID]
	}
	return convs, nil
}

func (r *sqliteConversationRepo) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversation_members WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return n > 0, nil
}

// members loads member ids for several conversations in one query.
func (r *sqliteConversationRepo) members(ctx context.Context, conversationIDs []string) (map[string][]string, error) {
	placeholders, args := inClause(conversationIDs)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT conversation_id, user_id FROM conversation_members
		WHERE conversation_id IN (%s)
		ORDER BY joined_at ASC, user_id ASC`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation members: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var convID, userID string
		if err := rows.Scan(&convID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		result[convID] = append(result[convID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}
	return result, nil
}

func fillConversation(conv *models.Conversation, orderRef sql.NullString, createdAt string) error {
	if orderRef.Valid {
		ref := orderRef.String
		conv.OrderRef = &ref
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return err
	}
	conv.CreatedAt = t
	return nil
}
