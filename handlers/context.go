// Package handlers holds the HTTP endpoints. Handlers decode the request,
// call one service method and write the JSON envelope from pkg.
package handlers

import (
	"net/http"

	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
)

type contextKey string

// UserContextKey carries the authenticated *models.User, set by the auth
// middleware.
const UserContextKey contextKey = "user"

// currentUser returns the authenticated user, writing a 401 when the
// request did not pass through the auth middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return nil, false
	}
	return user, true
}
