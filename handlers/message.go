package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
	"github.com/akinalp/shopchat/pkg/ratelimit"
	"github.com/akinalp/shopchat/services"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 * 1024

// MessageHandler serves conversation messages.
type MessageHandler struct {
	messageService services.MessageService
	limiter        *ratelimit.SendLimiter
}

// NewMessageHandler creates the handler. A nil limiter disables throttling.
func NewMessageHandler(messageService services.MessageService, limiter *ratelimit.SendLimiter) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		limiter:        limiter,
	}
}

// List godoc
// GET /api/conversations/{id}/messages?page=N
// Returns one page, newest first. page defaults to 0.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	pageIndex := 0
	if p := r.URL.Query().Get("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || parsed < 0 {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "page must be a non-negative integer")
			return
		}
		pageIndex = parsed
	}

	page, err := h.messageService.GetPage(r.Context(), r.PathValue("id"), user.ID, pageIndex)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, page)
}

// Create godoc
// POST /api/conversations/{id}/messages
// Body: {"content": "...", "tags": ["..."]}
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if h.limiter != nil && !h.limiter.Allow(user.ID) {
		w.Header().Set("Retry-After", strconv.Itoa(h.limiter.RetryAfter(user.ID)))
		pkg.Error(w, fmt.Errorf("%w: slow down", pkg.ErrTooManyRequests))
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.messageService.Send(r.Context(), r.PathValue("id"), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, msg)
}

// Mentions godoc
// GET /api/users/me/mentions?limit=N
func (h *MessageHandler) Mentions(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	messages, err := h.messageService.Mentions(r.Context(), user.ID, limit)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, messages)
}
