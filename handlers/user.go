package handlers

import (
	"net/http"

	"github.com/akinalp/shopchat/pkg"
	"github.com/akinalp/shopchat/services"
)

// UserHandler serves the user directory.
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler creates the handler.
func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Me godoc
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	pkg.JSON(w, http.StatusOK, user)
}

// Search godoc
// GET /api/users/search?q=ja
// An empty q returns the default set.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, users)
}

// InvalidateDirectory godoc
// POST /api/users/directory/invalidate
func (h *UserHandler) InvalidateDirectory(w http.ResponseWriter, r *http.Request) {
	h.userService.InvalidateDirectory()
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "directory cache cleared"})
}
