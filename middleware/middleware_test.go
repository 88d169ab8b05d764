package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/akinalp/shopchat/database"
	"github.com/akinalp/shopchat/handlers"
	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
	"github.com/akinalp/shopchat/pkg/metrics"
)

type fakeAuth struct{}

func (fakeAuth) ValidateAccessToken(token string) (*models.TokenClaims, error) {
	switch token {
	case "good":
		return &models.TokenClaims{UserID: "u1"}, nil
	case "orphan":
		return &models.TokenClaims{UserID: "ghost"}, nil
	}
	return nil, pkg.ErrUnauthorized
}

func (fakeAuth) IssueAccessToken(string) (string, error) { return "good", nil }

type fakeUsers struct{}

func (fakeUsers) Create(context.Context, *models.User) error { return nil }
func (fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if id == "u1" {
		return &models.User{ID: "u1", DisplayName: "Jane Doe"}, nil
	}
	return nil, pkg.ErrNotFound
}
func (fakeUsers) GetByUsername(context.Context, string) (*models.User, error) {
	return nil, pkg.ErrNotFound
}
func (fakeUsers) GetByDisplayNames(context.Context, []string) ([]models.User, error) { return nil, nil }
func (fakeUsers) Search(context.Context, string, int) ([]models.User, error)        { return nil, nil }

func whoAmI(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(handlers.UserContextKey).(*models.User)
	pkg.JSON(w, http.StatusOK, user.ID)
}

func TestAuthRequire(t *testing.T) {
	h := NewAuthMiddleware(fakeAuth{}, fakeUsers{}).Require(http.HandlerFunc(whoAmI))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer good", http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"deleted user", "Bearer orphan", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

type fakeConversations struct {
	members map[string]bool
}

func (f fakeConversations) Create(context.Context, database.TxQuerier, *models.Conversation) error {
	return nil
}
func (f fakeConversations) GetByID(context.Context, string) (*models.Conversation, error) {
	return nil, pkg.ErrNotFound
}
func (f fakeConversations) ListForUser(context.Context, string) ([]models.Conversation, error) {
	return nil, nil
}
func (f fakeConversations) IsMember(_ context.Context, conversationID, userID string) (bool, error) {
	return f.members[conversationID+"/"+userID], nil
}

func TestConversationMembership(t *testing.T) {
	auth := NewAuthMiddleware(fakeAuth{}, fakeUsers{})
	member := NewConversationMembershipMiddleware(fakeConversations{members: map[string]bool{"c1/u1": true}})

	mux := http.NewServeMux()
	mux.Handle("GET /api/conversations/{id}/messages", auth.Require(member.Require(http.HandlerFunc(whoAmI))))

	get := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("/api/conversations/c1/messages"))
	assert.Equal(t, http.StatusNotFound, get("/api/conversations/c2/messages"))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tea", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusTeapot), entries[0].ContextMap()["status"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "/boom", entries[1].ContextMap()["path"])
}

func TestInstrument(t *testing.T) {
	m := metrics.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Instrument(m)(mux)

	for _, path := range []string{"/things/1", "/things/2", "/nowhere"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET /things/{id}", "418")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("unmatched", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
}
