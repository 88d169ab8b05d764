package repository

import (
	"context"

	"github.com/akinalp/shopchat/models"
)

// UserRepository reads and writes the user directory.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetByDisplayNames returns users whose display name equals one of names,
	// case-insensitively, oldest registration first.
	GetByDisplayNames(ctx context.Context, names []string) ([]models.User, error)
	// Search matches query as a case-insensitive substring of the display
	// name. An empty query matches everyone. Results are ordered by display
	// name.
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
}
