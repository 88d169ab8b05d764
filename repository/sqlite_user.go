package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/akinalp/shopchat/database"
	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
)

type sqliteUserRepo struct {
	db database.TxQuerier
}

// NewSQLiteUserRepo returns the SQLite UserRepository.
func NewSQLiteUserRepo(db database.TxQuerier) UserRepository {
	return &sqliteUserRepo{db: db}
}

const userColumns = `id, COALESCE(username, ''), display_name, created_at`

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, display_name_key, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, nullIfEmpty(user.Username), user.DisplayName, displayNameKey(user.DisplayName), formatTime(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username already taken", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *sqliteUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ? COLLATE NOCASE`, username)
}

func (r *sqliteUserRepo) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *sqliteUserRepo) GetByDisplayNames(ctx context.Context, names []string) ([]models.User, error) {
	if len(names) == 0 {
		return nil, nil
	}

	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = displayNameKey(n)
	}
	placeholders, args := inClause(keys)

	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE display_name_key IN (%s)
		ORDER BY created_at ASC, id ASC`, userColumns, placeholders)

	return r.list(ctx, query, args...)
}

func (r *sqliteUserRepo) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	q := displayNameKey(query)

	// instr avoids LIKE wildcard escaping for %, _ in the query.
	sqlQuery := `
		SELECT ` + userColumns + ` FROM users
		WHERE ? = '' OR instr(display_name_key, ?) > 0
		ORDER BY display_name_key ASC, id ASC`
	args := []any{q, q}
	if limit > 0 {
		sqlQuery += ` LIMIT ?`
		args = append(args, limit)
	}

	return r.list(ctx, sqlQuery, args...)
}

func (r *sqliteUserRepo) list(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// displayNameKey folds a display name the way the mention parser compares
// names. The folding happens here rather than in SQL: SQLite's lower() and
// NOCASE only know ASCII, so "Émile" and "émile" would never meet.
func displayNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}
