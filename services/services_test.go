package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akinalp/shopchat/database"
	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
	"github.com/akinalp/shopchat/repository"
)

type fixture struct {
	db       *database.DB
	users    repository.UserRepository
	convs    ConversationService
	messages MessageService
	clock    time.Time
}

func (f *fixture) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func newFixture(t *testing.T, pageSize int) *fixture {
	t.Helper()
	db, err := database.Open(database.MemoryPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db, clock: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	f.users = repository.NewSQLiteUserRepo(db.Conn)
	f.convs = NewConversationService(db.Conn, repository.NewSQLiteConversationRepo(db.Conn), zap.NewNop())

	svc := NewMessageService(
		db.Conn,
		repository.NewSQLiteMessageRepo(db.Conn),
		repository.NewSQLiteTagRepo(db.Conn),
		repository.NewSQLiteMentionRepo(db.Conn),
		f.users,
		f.convs,
		pageSize,
		nil,
		zap.NewNop(),
	)
	svc.(*messageService).now = f.tick
	f.messages = svc

	ctx := context.Background()
	for i, u := range []models.User{
		{ID: "u1", DisplayName: "Jane Doe", Username: "janedoe"},
		{ID: "u2", DisplayName: "Jack Ryan", Username: "jryan"},
		{ID: "u3", DisplayName: "Outsider"},
	} {
		u.CreatedAt = f.clock.Add(time.Duration(i) * time.Minute)
		require.NoError(t, f.users.Create(ctx, &u))
	}
	return f
}

func (f *fixture) conversation(t *testing.T) string {
	t.Helper()
	conv, err := f.convs.Create(context.Background(), "u1", &models.CreateConversationRequest{
		Subject:   "Order 1042",
		MemberIDs: []string{"u2", "u1", " "},
	})
	require.NoError(t, err)
	return conv.ID
}

func TestConversationService(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	conv, err := f.convs.Create(ctx, "u1", &models.CreateConversationRequest{Subject: "  Refund  ", MemberIDs: []string{"u2", "u2"}})
	require.NoError(t, err)
	assert.Equal(t, "Refund", conv.Subject)
	assert.Equal(t, []string{"u1", "u2"}, conv.MemberIDs)

	_, err = f.convs.Create(ctx, "u1", &models.CreateConversationRequest{Subject: " "})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	got, err := f.convs.Get(ctx, conv.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	_, err = f.convs.Get(ctx, conv.ID, "u3")
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	list, err := f.convs.List(ctx, "u3")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSendResolvesBracketMentions(t *testing.T) {
	f := newFixture(t, 10)
	convID := f.conversation(t)
	ctx := context.Background()

	msg, err := f.messages.Send(ctx, convID, "u1", &models.SendMessageRequest{
		Content: "  Hi @[jack ryan], see @[Nobody]  ",
		Tags:    []string{"order-1042"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi @jryan, see @[Nobody]", msg.Content)
	assert.Equal(t, []string{"order-1042", "USER:u2"}, msg.Tags)
	assert.Equal(t, "u1", msg.SenderID)
	assert.NotEmpty(t, msg.ID)

	inbox, err := f.messages.Mentions(ctx, "u2", 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, msg.ID, inbox[0].ID)
	assert.Equal(t, msg.Tags, inbox[0].Tags)
}

func TestSendResolvesNonASCIIMentions(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, &models.User{ID: "u4", DisplayName: "Émile Zola", Username: "ezola", CreatedAt: f.clock}))

	conv, err := f.convs.Create(ctx, "u1", &models.CreateConversationRequest{Subject: "Livraison", MemberIDs: []string{"u4"}})
	require.NoError(t, err)

	msg, err := f.messages.Send(ctx, conv.ID, "u1", &models.SendMessageRequest{Content: "hi @[Émile Zola] and @[émile zola]"})
	require.NoError(t, err)
	assert.Equal(t, "hi @ezola and @ezola", msg.Content)
	assert.Equal(t, []string{"USER:u4"}, msg.Tags)

	svc := NewUserService(f.users, time.Hour, zap.NewNop())
	defer svc.Close()
	for _, q := range []string{"Ém", "ém"} {
		users, err := svc.Search(ctx, q)
		require.NoError(t, err)
		require.Len(t, users, 1, q)
		assert.Equal(t, "u4", users[0].ID)
	}
}

func TestSendKeepsClientMentionTags(t *testing.T) {
	f := newFixture(t, 10)
	convID := f.conversation(t)
	ctx := context.Background()

	msg, err := f.messages.Send(ctx, convID, "u2", &models.SendMessageRequest{
		Content: "ping @janedoe",
		Tags:    []string{"USER:u1", "urgent", "USER:u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ping @janedoe", msg.Content)
	assert.Equal(t, []string{"urgent", "USER:u1"}, msg.Tags)

	inbox, err := f.messages.Mentions(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
}

func TestSendRejections(t *testing.T) {
	f := newFixture(t, 10)
	convID := f.conversation(t)
	ctx := context.Background()

	_, err := f.messages.Send(ctx, convID, "u1", &models.SendMessageRequest{Content: "   "})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = f.messages.Send(ctx, convID, "u3", &models.SendMessageRequest{Content: "let me in"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = f.messages.Send(ctx, "missing", "u1", &models.SendMessageRequest{Content: "hello"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestGetPage(t *testing.T) {
	f := newFixture(t, 2)
	convID := f.conversation(t)
	ctx := context.Background()

	empty, err := f.messages.GetPage(ctx, convID, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, models.PageMeta{PageIndex: 0, PageCount: 0}, empty.Meta)
	assert.NotNil(t, empty.Results)
	assert.Empty(t, empty.Results)

	for i := 1; i <= 5; i++ {
		_, err := f.messages.Send(ctx, convID, "u1", &models.SendMessageRequest{Content: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	contents := func(p *models.Page) []string {
		var out []string
		for _, m := range p.Results {
			out = append(out, m.Content)
		}
		return out
	}

	p0, err := f.messages.GetPage(ctx, convID, "u2", 0)
	require.NoError(t, err)
	assert.Equal(t, models.PageMeta{PageIndex: 0, PageCount: 3}, p0.Meta)
	assert.Equal(t, []string{"m5", "m4"}, contents(p0))
	assert.Equal(t, []string{}, p0.Results[0].Tags)

	p2, err := f.messages.GetPage(ctx, convID, "u2", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, contents(p2))

	past, err := f.messages.GetPage(ctx, convID, "u2", 7)
	require.NoError(t, err)
	assert.Empty(t, past.Results)
	assert.Equal(t, 3, past.Meta.PageCount)

	_, err = f.messages.GetPage(ctx, convID, "u2", -1)
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = f.messages.GetPage(ctx, convID, "u3", 0)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestUserServiceSearchAndInvalidate(t *testing.T) {
	f := newFixture(t, 10)
	svc := NewUserService(f.users, time.Hour, zap.NewNop())
	defer svc.Close()
	ctx := context.Background()

	users, err := svc.Search(ctx, "JA")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	// A row written behind the service's back stays invisible until the
	// cache is invalidated.
	require.NoError(t, f.users.Create(ctx, &models.User{ID: "u4", DisplayName: "Jasmine", CreatedAt: f.clock}))
	users, err = svc.Search(ctx, "ja")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	svc.InvalidateDirectory()
	users, err = svc.Search(ctx, "ja")
	require.NoError(t, err)
	assert.Len(t, users, 3)

	all, err := svc.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := svc.Search(ctx, "zzz")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestUserServiceRegisterAndEnsure(t *testing.T) {
	f := newFixture(t, 10)
	svc := NewUserService(f.users, time.Hour, zap.NewNop())
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.Search(ctx, "support")
	require.NoError(t, err)

	u, err := svc.Register(ctx, &models.CreateUserRequest{Username: "support", DisplayName: "Support Desk"})
	require.NoError(t, err)

	found, err := svc.Search(ctx, "support")
	require.NoError(t, err)
	require.Len(t, found, 1, "register invalidates the search cache")

	again, err := svc.Ensure(ctx, &models.CreateUserRequest{Username: "SUPPORT", DisplayName: "Other"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	_, err = svc.Register(ctx, &models.CreateUserRequest{DisplayName: "Bad [name]"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = svc.Register(ctx, &models.CreateUserRequest{Username: "support", DisplayName: "Dup"})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)
}

func TestAuthService(t *testing.T) {
	svc := NewAuthService("secret", 15*time.Minute)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.(*authService).now = func() time.Time { return now }

	token, err := svc.IssueAccessToken("u1")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)

	other := NewAuthService("other-secret", time.Minute)
	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	now = now.Add(time.Hour)
	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized, "expired")

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &models.TokenClaims{UserID: "u1"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(raw)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	_, err = svc.IssueAccessToken("")
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}
