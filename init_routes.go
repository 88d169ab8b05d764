package main

import (
	"net/http"

	"github.com/akinalp/shopchat/middleware"
	"github.com/akinalp/shopchat/pkg/metrics"
	"github.com/akinalp/shopchat/repository"
	"github.com/akinalp/shopchat/services"
)

// initRoutes wires every endpoint onto mux.
//
// Literal paths are registered before parametric ones that could shadow
// them ("/api/users/me" before anything with {id}).
func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	m *metrics.Metrics,
	authService services.AuthService,
	userRepo repository.UserRepository,
	convRepo repository.ConversationRepository,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(authService, userRepo)
	memberMw := middleware.NewConversationMembershipMiddleware(convRepo)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}
	authMember := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(memberMw.Require(http.HandlerFunc(handler)))
	}

	// Health
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","service":"shopchat"}`))
	})

	mux.Handle("GET /metrics", m.Handler())

	// Users
	mux.Handle("GET /api/users/me", auth(h.User.Me))
	mux.Handle("GET /api/users/me/mentions", auth(h.Message.Mentions))
	mux.Handle("GET /api/users/search", auth(h.User.Search))
	mux.Handle("POST /api/users/directory/invalidate", auth(h.User.InvalidateDirectory))

	// Conversations
	mux.Handle("GET /api/conversations", auth(h.Conversation.List))
	mux.Handle("POST /api/conversations", auth(h.Conversation.Create))
	mux.Handle("GET /api/conversations/{id}", authMember(h.Conversation.Get))

	// Messages
	mux.Handle("GET /api/conversations/{id}/messages", authMember(h.Message.List))
	mux.Handle("POST /api/conversations/{id}/messages", authMember(h.Message.Create))
}
