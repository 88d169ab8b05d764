package main

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/akinalp/shopchat/config"
	"github.com/akinalp/shopchat/pkg/metrics"
	"github.com/akinalp/shopchat/pkg/ratelimit"
	"github.com/akinalp/shopchat/services"
)

// Services holds every service instance.
type Services struct {
	Auth         services.AuthService
	User         services.UserService
	Conversation services.ConversationService
	Message      services.MessageService
}

// RateLimiters holds the limiters shared by handlers.
type RateLimiters struct {
	Message *ratelimit.SendLimiter
}

// initServices builds the services. ConversationService comes first: the
// message service checks membership through it.
func initServices(db *sql.DB, repos *Repositories, cfg *config.Config, m *metrics.Metrics, log *zap.Logger) (*Services, *RateLimiters) {
	conversationService := services.NewConversationService(db, repos.Conversation, log)

	svcs := &Services{
		Auth:         services.NewAuthService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry),
		User:         services.NewUserService(repos.User, cfg.Directory.CacheTTL, log),
		Conversation: conversationService,
		Message: services.NewMessageService(
			db,
			repos.Message,
			repos.Tag,
			repos.Mention,
			repos.User,
			conversationService,
			cfg.Messages.PageSize,
			m,
			log,
		),
	}

	limiters := &RateLimiters{
		Message: ratelimit.NewSendLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window, cfg.RateLimit.Cooldown),
	}

	return svcs, limiters
}

// Close stops the background goroutines owned by services and limiters.
func (s *Services) Close(limiters *RateLimiters) {
	s.User.Close()
	limiters.Message.Close()
}
