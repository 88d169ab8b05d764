package autocomplete

import (
	"context"
	"strings"

	"github.com/akinalp/shopchat/models"
)

// UserSearcher is the searchUsers collaborator. It must tolerate rapid,
// repeated calls; debouncing is its concern.
type UserSearcher interface {
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
}

// Lookup is an outstanding directory query issued by the controller. Seq
// identifies it; only the result for the newest Seq is applied.
type Lookup struct {
	Seq   uint64
	Query string
}

// LookupResult carries a Lookup's answer back to the controller.
type LookupResult struct {
	Seq   uint64
	Query string
	Users []models.User
	Err   error
}

// Run performs the lookup against s. It blocks; hosts run it off the event
// loop and hand the result to Controller.ResolveLookup.
func (l Lookup) Run(ctx context.Context, s UserSearcher) LookupResult {
	users, err := s.SearchUsers(ctx, l.Query)
	return LookupResult{Seq: l.Seq, Query: l.Query, Users: users, Err: err}
}

// Filter returns the users whose display name contains query,
// case-insensitively, in input order. An empty query yields the first limit
// users instead (the default set); limit <= 0 means no bound.
func Filter(users []models.User, query string, limit int) []models.User {
	var out []models.User
	if query == "" {
		for _, u := range users {
			if limit > 0 && len(out) == limit {
				break
			}
			out = append(out, u)
		}
		return out
	}

	q := strings.ToLower(query)
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.DisplayName), q) {
			out = append(out, u)
		}
	}
	return out
}
