package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/shopchat/autocomplete"
	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
	"github.com/akinalp/shopchat/timeline"
)

var now = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

type sentMessage struct {
	conversationID string
	content        string
	tags           []string
}

type fakeBackend struct {
	mu      sync.Mutex
	pages   []models.Page
	sendErr error
	sent    []sentMessage
	fetches int
}

func (b *fakeBackend) FetchMessagesPage(ctx context.Context, conversationID string, pageIndex int) (*models.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	if pageIndex >= len(b.pages) {
		return &models.Page{Results: []models.Message{}, Meta: models.PageMeta{PageIndex: pageIndex, PageCount: len(b.pages)}}, nil
	}
	p := b.pages[pageIndex]
	return &p, nil
}

func (b *fakeBackend) SendMessage(ctx context.Context, conversationID, content string, tags []string) (*models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return nil, b.sendErr
	}
	b.sent = append(b.sent, sentMessage{conversationID: conversationID, content: content, tags: tags})
	return &models.Message{ID: "sent", ConversationID: conversationID, Content: content, Tags: tags}, nil
}

type fakeDirectory struct {
	users         []models.User
	queries       []string
	invalidations int
}

func (d *fakeDirectory) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	d.queries = append(d.queries, query)
	return autocomplete.Filter(d.users, query, 0), nil
}

func (d *fakeDirectory) Known() []models.User { return d.users }

func (d *fakeDirectory) Invalidate() { d.invalidations++ }

func message(id, sender, content string, minutesAgo int) models.Message {
	return models.Message{
		ID:             id,
		ConversationID: "c1",
		SenderID:       sender,
		Content:        content,
		SentAt:         now.Add(-time.Duration(minutesAgo) * time.Minute),
		Tags:           []string{},
	}
}

func newTestModel(t *testing.T) (Model, *fakeBackend, *fakeDirectory) {
	t.Helper()
	backend := &fakeBackend{pages: []models.Page{
		{
			Results: []models.Message{message("m3", "u1", "Order shipped", 1), message("m2", "u2", "Any update?", 2)},
			Meta:    models.PageMeta{PageIndex: 0, PageCount: 2},
		},
		{
			Results: []models.Message{message("m1", "u2", "Hello, I placed order 1042", 60*24)},
			Meta:    models.PageMeta{PageIndex: 1, PageCount: 2},
		},
	}}
	dir := &fakeDirectory{users: []models.User{
		{ID: "u1", DisplayName: "Jane Doe", Username: "janedoe"},
		{ID: "u2", DisplayName: "Jack Ryan", Username: "jryan"},
	}}
	builder := timeline.NewBuilder(timeline.WithLocation(time.UTC), timeline.WithClock(func() time.Time { return now }))
	m := New("c1", backend, dir, nil, WithTimeline(builder))
	return m, backend, dir
}

// step delivers msg and then runs every resulting command to completion.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	for cmd != nil {
		out := cmd()
		if out == nil {
			return m
		}
		next, cmd = m.Update(out)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func TestFirstPageRendersTimeline(t *testing.T) {
	m, backend, _ := newTestModel(t)

	m = step(t, m, m.fetchNextCmd()())

	assert.False(t, m.loading)
	assert.Equal(t, 2, m.feed.Len())
	assert.Equal(t, 1, backend.fetches)

	view := m.View()
	assert.Contains(t, view, "Today")
	assert.Contains(t, view, "Any update?")
	assert.Contains(t, view, "Order shipped")
	assert.Less(t, strings.Index(view, "Any update?"), strings.Index(view, "Order shipped"), "oldest first")
}

func TestSenderNamesComeFromDirectory(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = step(t, m, m.fetchNextCmd()())

	assert.Contains(t, m.View(), "Jane Doe")
	assert.Contains(t, m.View(), "Jack Ryan")
}

func TestPageUpAtTopFetchesOlderPage(t *testing.T) {
	m, backend, _ := newTestModel(t)
	m = step(t, m, tea.WindowSizeMsg{Width: 100, Height: 60})
	m = step(t, m, m.fetchNextCmd()())
	require.True(t, m.viewport.AtTop())

	m = step(t, m, key(tea.KeyPgUp))

	assert.Equal(t, 3, m.feed.Len())
	assert.Equal(t, 2, backend.fetches)
	assert.Contains(t, m.View(), "Yesterday")
	assert.False(t, m.feed.HasNextPage())
}

func TestMentionAutocompleteAndSend(t *testing.T) {
	m, backend, dir := newTestModel(t)
	m = step(t, m, m.fetchNextCmd()())

	m = step(t, m, runes("Hi "))
	m = step(t, m, runes("@"))
	m = step(t, m, runes("ja"))

	require.True(t, m.input.State().Showing)
	assert.Contains(t, dir.queries, "ja")
	assert.Len(t, m.input.Candidates(), 2)
	assert.Contains(t, m.View(), "@janedoe")

	m = step(t, m, key(tea.KeyEnter))
	assert.Equal(t, "Hi @[Jane Doe] ", m.input.Text())
	assert.Empty(t, backend.sent, "enter on an open dropdown picks a candidate")
	assert.Contains(t, m.View(), "USER:u1")

	m = step(t, m, key(tea.KeyEnter))

	require.Len(t, backend.sent, 1)
	assert.Equal(t, "c1", backend.sent[0].conversationID)
	assert.Contains(t, backend.sent[0].content, "@janedoe")
	assert.Equal(t, []string{"USER:u1"}, backend.sent[0].tags)

	assert.Empty(t, m.input.Text())
	assert.False(t, m.sending)
	assert.Equal(t, 2, m.feed.Len(), "feed reopened and refetched")
}

func TestSpaceClosesDropdown(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = step(t, m, runes("@ja"))
	require.True(t, m.input.State().Showing)

	m = step(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.True(t, m.input.State().Idle())
	assert.Equal(t, "@ja ", m.input.Text())
}

func TestUnresolvedMentionWarning(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = step(t, m, runes("ping @[Nobody Here]"))

	assert.Contains(t, m.View(), "@[Nobody Here] does not match anyone")
}

func TestEmptyInputDoesNotSend(t *testing.T) {
	m, backend, _ := newTestModel(t)

	m = step(t, m, runes("   "))
	m = step(t, m, key(tea.KeyEnter))

	assert.Empty(t, backend.sent)
}

func TestEnterOnEmptyDropdownDoesNotSend(t *testing.T) {
	m, backend, _ := newTestModel(t)

	m = step(t, m, runes("ping @zzz"))
	require.True(t, m.input.State().Showing)
	require.Empty(t, m.input.Candidates())

	m = step(t, m, key(tea.KeyEnter))
	assert.Empty(t, backend.sent)
	assert.True(t, m.input.State().Showing)
	assert.Equal(t, "ping @zzz", m.input.Text())

	m = step(t, m, key(tea.KeyEsc))
	m = step(t, m, key(tea.KeyEnter))
	require.Len(t, backend.sent, 1, "enter sends once the dropdown is closed")
	assert.Contains(t, backend.sent[0].content, "@zzz")
}

func TestSendFailureKeepsText(t *testing.T) {
	m, backend, _ := newTestModel(t)
	backend.sendErr = errors.New("boom")

	m = step(t, m, runes("hello"))
	m = step(t, m, key(tea.KeyEnter))

	assert.Equal(t, "hello", m.input.Text())
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "boom")
}

func TestFetchErrorIsShown(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = step(t, m, pageFetchedMsg{err: fmt.Errorf("fetch failed: %w", errors.New("offline"))})

	assert.Contains(t, m.View(), "offline")
}

func TestSupersededFetchKeepsLoading(t *testing.T) {
	m, _, _ := newTestModel(t)
	require.True(t, m.loading)

	m = step(t, m, pageFetchedMsg{err: pkg.ErrStaleResponse})
	assert.True(t, m.loading, "the newer fetch is still in flight")
	assert.Nil(t, m.err)

	m = step(t, m, pageFetchedMsg{err: pkg.ErrAlreadyFetching})
	assert.True(t, m.loading)

	m = step(t, m, pageFetchedMsg{err: pkg.ErrNoMorePages})
	assert.False(t, m.loading)
	assert.Nil(t, m.err)
}

func TestReloadInvalidatesDirectory(t *testing.T) {
	m, backend, dir := newTestModel(t)
	m = step(t, m, m.fetchNextCmd()())

	m = step(t, m, key(tea.KeyCtrlR))

	assert.Equal(t, 1, dir.invalidations)
	assert.Equal(t, 2, backend.fetches)
	assert.Equal(t, 2, m.feed.Len())
	assert.False(t, m.loading)
}

func TestStaleLookupIsDropped(t *testing.T) {
	m, _, _ := newTestModel(t)

	next, lookup := m.Update(runes("@j"))
	m = next.(Model)
	require.NotNil(t, lookup)

	m = step(t, m, key(tea.KeyEsc))
	m = step(t, m, lookup())

	assert.True(t, m.input.State().Idle())
	assert.Empty(t, m.input.Candidates())
	assert.Nil(t, m.err)
}

func TestControllerKeyMapping(t *testing.T) {
	k, ok := controllerKey(key(tea.KeyTab))
	assert.True(t, ok)
	assert.Equal(t, autocomplete.KeyTab, k)

	_, ok = controllerKey(key(tea.KeyCtrlA))
	assert.False(t, ok)
}
