package main

import (
	"github.com/akinalp/shopchat/handlers"
)

// Handlers holds every HTTP handler.
type Handlers struct {
	User         *handlers.UserHandler
	Conversation *handlers.ConversationHandler
	Message      *handlers.MessageHandler
}

func initHandlers(svcs *Services, limiters *RateLimiters) *Handlers {
	return &Handlers{
		User:         handlers.NewUserHandler(svcs.User),
		Conversation: handlers.NewConversationHandler(svcs.Conversation),
		Message:      handlers.NewMessageHandler(svcs.Message, limiters.Message),
	}
}
