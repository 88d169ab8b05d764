package middleware

import (
	"net/http"

	"github.com/akinalp/shopchat/handlers"
	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
	"github.com/akinalp/shopchat/repository"
)

// ConversationMembershipMiddleware gates /api/conversations/{id}/... routes
// on membership. It runs after AuthMiddleware.
type ConversationMembershipMiddleware struct {
	convRepo repository.ConversationRepository
}

// NewConversationMembershipMiddleware creates the middleware.
func NewConversationMembershipMiddleware(convRepo repository.ConversationRepository) *ConversationMembershipMiddleware {
	return &ConversationMembershipMiddleware{convRepo: convRepo}
}

// Require answers 404 unless the user belongs to the {id} conversation.
// Non-members get the same answer as for a missing conversation.
func (m *ConversationMembershipMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := r.Context().Value(handlers.UserContextKey).(*models.User)
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
			return
		}

		conversationID := r.PathValue("id")
		if conversationID == "" {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "conversation id is required")
			return
		}

		isMember, err := m.convRepo.IsMember(r.Context(), conversationID, user.ID)
		if err != nil {
			pkg.Error(w, err)
			return
		}
		if !isMember {
			pkg.ErrorWithMessage(w, http.StatusNotFound, "conversation not found")
			return
		}

		next.ServeHTTP(w, r)
	})
}
