package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
	"github.com/akinalp/shopchat/services"
)

// ConversationHandler serves conversations.
type ConversationHandler struct {
	conversationService services.ConversationService
}

// NewConversationHandler creates the handler.
func NewConversationHandler(conversationService services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// List godoc
// GET /api/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	convs, err := h.conversationService.List(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, convs)
}

// Create godoc
// POST /api/conversations
// Body: {"subject": "...", "order_ref": "...", "member_ids": ["..."]}
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreateConversationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.conversationService.Create(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, conv)
}

// Get godoc
// GET /api/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	conv, err := h.conversationService.Get(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, conv)
}
