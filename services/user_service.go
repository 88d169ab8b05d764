package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
	"github.com/akinalp/shopchat/pkg/cache"
	"github.com/akinalp/shopchat/repository"
)

const (
	// DefaultDirectorySize bounds the answer to an empty search.
	DefaultDirectorySize = 10
	// MaxSearchResults bounds the answer to a non-empty search.
	MaxSearchResults = 50
)

// UserService serves the user directory.
type UserService interface {
	// Search is the searchUsers collaborator: case-insensitive substring
	// match on display name; an empty query returns the default set.
	Search(ctx context.Context, query string) ([]models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Register adds a directory entry.
	Register(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
	// Ensure returns the user with req.Username, registering it if missing.
	Ensure(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
	// InvalidateDirectory drops every cached search answer.
	InvalidateDirectory()
	Close()
}

type userService struct {
	userRepo repository.UserRepository
	results  *cache.TTLCache[string, []models.User]
	log      *zap.Logger
	now      func() time.Time
}

// NewUserService creates the directory service. Search answers are cached
// for cacheTTL.
func NewUserService(userRepo repository.UserRepository, cacheTTL time.Duration, log *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		results:  cache.New[string, []models.User](cacheTTL, cacheTTL),
		log:      log.Named("directory"),
		now:      time.Now,
	}
}

func (s *userService) Search(ctx context.Context, query string) ([]models.User, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if users, ok := s.results.Get(key); ok {
		return users, nil
	}

	limit := MaxSearchResults
	if key == "" {
		limit = DefaultDirectorySize
	}

	users, err := s.userRepo.Search(ctx, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}

	s.results.Set(key, users)
	return users, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) Register(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user := &models.User{
		ID:          uuid.New().String(),
		Username:    req.Username,
		DisplayName: req.DisplayName,
		CreatedAt:   s.now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	// A new entry changes search answers.
	s.InvalidateDirectory()
	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("display_name", user.DisplayName))
	return user, nil
}

func (s *userService) Ensure(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if username := strings.TrimSpace(req.Username); username != "" {
		existing, err := s.userRepo.GetByUsername(ctx, username)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, pkg.ErrNotFound) {
			return nil, err
		}
	}
	return s.Register(ctx, req)
}

func (s *userService) InvalidateDirectory() {
	s.results.Clear()
	s.log.Debug("search cache invalidated")
}

func (s *userService) Close() {
	s.results.Close()
}
