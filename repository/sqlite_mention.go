package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/akinalp/shopchat/database"
)

type sqliteMentionRepo struct {
	db database.TxQuerier
}

// NewSQLiteMentionRepo returns the SQLite MentionRepository.
func NewSQLiteMentionRepo(db database.TxQuerier) MentionRepository {
	return &sqliteMentionRepo{db: db}
}

// SaveMentions writes the (message, mentioned user) index rows for one message.
//
// What is this table for?
// A message stores its mentions as USER:<id> tags, which is enough to render
// it. "Which messages mention me?" is a different question: answering it from
// tags would mean scanning every tag row and parsing the prefix. The
// message_mentions table answers it with one indexed lookup on user_id.
//
// Why INSERT OR IGNORE?
// (message_id, user_id) is the primary key. "@jane ... @jane" yields the same
// user twice, and the index only needs to know that jane was mentioned, not
// how many times. OR IGNORE drops the second row instead of failing the whole
// statement, so callers do not have to deduplicate first.
//
// Why a single multi-row INSERT?
// A message with five mentions would otherwise cost five round trips inside
// the send transaction. VALUES (?, ?), (?, ?), ... writes them all at once.
//
// q is the caller's transaction: the index rows must commit or roll back
// together with the message they point at.
func (r *sqliteMentionRepo) SaveMentions(ctx context.Context, q database.TxQuerier, messageID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	placeholders := make([]string, len(userIDs))
	args := make([]any, 0, len(userIDs)*2)
	for i, uid := range userIDs {
		placeholders[i] = "(?, ?)"
		args = append(args, messageID, uid)
	}

	query := fmt.Sprintf(
		"INSERT OR IGNORE INTO message_mentions (message_id, user_id) VALUES %s",
		strings.Join(placeholders, ", "),
	)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save mentions: %w", err)
	}
	return nil
}
