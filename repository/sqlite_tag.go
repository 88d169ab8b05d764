package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/akinalp/shopchat/database"
)

type sqliteTagRepo struct {
	db database.TxQuerier
}

// NewSQLiteTagRepo returns the SQLite TagRepository.
func NewSQLiteTagRepo(db database.TxQuerier) TagRepository {
	return &sqliteTagRepo{db: db}
}

// Save writes all tags in one multi-row INSERT, keeping their positions.
func (r *sqliteTagRepo) Save(ctx context.Context, q database.TxQuerier, messageID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	placeholders := make([]string, len(tags))
	args := make([]any, 0, len(tags)*3)
	for i, tag := range tags {
		placeholders[i] = "(?, ?, ?)"
		args = append(args, messageID, i, tag)
	}

	query := fmt.Sprintf(
		"INSERT INTO message_tags (message_id, position, tag) VALUES %s",
		strings.Join(placeholders, ", "),
	)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	return nil
}

func (r *sqliteTagRepo) GetByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]string, error) {
	result := make(map[string][]string)
	if len(messageIDs) == 0 {
		return result, nil
	}

	placeholders, args := inClause(messageIDs)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT message_id, tag FROM message_tags
		WHERE message_id IN (%s)
		ORDER BY message_id, position ASC`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to batch get tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var messageID, tag string
		if err := rows.Scan(&messageID, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		result[messageID] = append(result[messageID], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}
	return result, nil
}
