package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
)

var base = time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

func msg(id string, minutes int) models.Message {
	return models.Message{ID: id, ConversationID: "c1", Content: "m " + id, SentAt: base.Add(time.Duration(minutes) * time.Minute)}
}

// stubFetcher serves fixed pages; a non-nil gate blocks each call until a
// value is received from it.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[int]*models.Page
	errs  map[int]error
	calls []int
	gate  chan struct{}
}

func (s *stubFetcher) FetchMessagesPage(ctx context.Context, conversationID string, pageIndex int) (*models.Page, error) {
	s.mu.Lock()
	s.calls = append(s.calls, pageIndex)
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[pageIndex]; err != nil {
		return nil, err
	}
	p, ok := s.pages[pageIndex]
	if !ok {
		return nil, fmt.Errorf("no page %d", pageIndex)
	}
	return p, nil
}

func twoPages() *stubFetcher {
	return &stubFetcher{pages: map[int]*models.Page{
		0: {Results: []models.Message{msg("m5", 50), msg("m4", 40), msg("m3", 30)}, Meta: models.PageMeta{PageIndex: 0, PageCount: 2}},
		1: {Results: []models.Message{msg("m3", 30), msg("m2", 20), msg("m1", 10)}, Meta: models.PageMeta{PageIndex: 1, PageCount: 2}},
	}}
}

func ids(messages []models.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}

func assertNewestFirst(t *testing.T, messages []models.Message) {
	t.Helper()
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].SentAt.After(messages[i-1].SentAt), "position %d out of order", i)
	}
}

func TestFetchNextTwoPages(t *testing.T) {
	f := New(twoPages(), nil)
	f.Open("c1")
	assert.True(t, f.HasNextPage())

	require.NoError(t, f.FetchNext(context.Background()))
	assert.True(t, f.HasNextPage())
	assert.Equal(t, 1, f.NextPageIndex())

	require.NoError(t, f.FetchNext(context.Background()))
	assert.False(t, f.HasNextPage())

	snap := f.Snapshot()
	// m3 sits on both pages (a new message shifted the boundary).
	assert.Equal(t, []string{"m5", "m4", "m3", "m2", "m1"}, ids(snap))
	assertNewestFirst(t, snap)

	assert.ErrorIs(t, f.FetchNext(context.Background()), pkg.ErrNoMorePages)
}

func TestFetchNextFirstOccurrenceWins(t *testing.T) {
	stale := msg("m3", 30)
	stale.Content = "changed"
	fetcher := twoPages()
	fetcher.pages[1].Results[0] = stale

	f := New(fetcher, nil)
	f.Open("c1")
	require.NoError(t, f.FetchNext(context.Background()))
	require.NoError(t, f.FetchNext(context.Background()))

	for _, m := range f.Snapshot() {
		if m.ID == "m3" {
			assert.Equal(t, "m m3", m.Content)
		}
	}
}

func TestFetchNextDropsDuplicatesWithinPage(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]*models.Page{
		0: {Results: []models.Message{msg("a", 1), msg("a", 1), msg("b", 2)}, Meta: models.PageMeta{PageCount: 1}},
	}}
	f := New(fetcher, nil)
	f.Open("c1")
	require.NoError(t, f.FetchNext(context.Background()))

	assert.Equal(t, []string{"b", "a"}, ids(f.Snapshot()))
	assert.False(t, f.HasNextPage())
}

func TestSortTieBreaksById(t *testing.T) {
	messages := []models.Message{msg("a", 5), msg("c", 5), msg("b", 5), msg("z", 1)}
	SortNewestFirst(messages)
	assert.Equal(t, []string{"c", "b", "a", "z"}, ids(messages))
}

func TestFetchNextFailureLeavesStateUnchanged(t *testing.T) {
	boom := errors.New("connection reset")
	fetcher := twoPages()
	fetcher.errs = map[int]error{1: boom}

	f := New(fetcher, nil)
	f.Open("c1")
	require.NoError(t, f.FetchNext(context.Background()))
	before := f.Snapshot()

	err := f.FetchNext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrFetchFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, f.Snapshot())
	assert.Equal(t, 1, f.NextPageIndex())
	assert.True(t, f.HasNextPage())
	assert.False(t, f.Fetching())

	// Retry succeeds once the collaborator recovers.
	fetcher.mu.Lock()
	fetcher.errs = nil
	fetcher.mu.Unlock()
	require.NoError(t, f.FetchNext(context.Background()))
	assert.Equal(t, 5, f.Len())
}

func TestFetchNextRejectsOverlap(t *testing.T) {
	fetcher := twoPages()
	fetcher.gate = make(chan struct{})

	f := New(fetcher, nil)
	f.Open("c1")

	done := make(chan error, 1)
	go func() { done <- f.FetchNext(context.Background()) }()

	require.Eventually(t, f.Fetching, time.Second, time.Millisecond)
	assert.ErrorIs(t, f.FetchNext(context.Background()), pkg.ErrAlreadyFetching)

	fetcher.gate <- struct{}{}
	require.NoError(t, <-done)
	assert.Equal(t, []int{0}, fetcher.calls)
	assert.Equal(t, 3, f.Len())
}

func TestOpenSupersedesInFlightFetch(t *testing.T) {
	fetcher := twoPages()
	fetcher.gate = make(chan struct{})

	f := New(fetcher, nil)
	f.Open("c1")

	done := make(chan error, 1)
	go func() { done <- f.FetchNext(context.Background()) }()
	require.Eventually(t, f.Fetching, time.Second, time.Millisecond)

	f.Open("c2")
	assert.False(t, f.Fetching())

	fetcher.gate <- struct{}{}
	assert.ErrorIs(t, <-done, pkg.ErrStaleResponse)
	assert.Equal(t, 0, f.Len())
	assert.Equal(t, "c2", f.ConversationID())
	assert.Equal(t, 0, f.NextPageIndex())
}

func TestFetchNextRequiresOpen(t *testing.T) {
	f := New(twoPages(), nil)
	assert.ErrorIs(t, f.FetchNext(context.Background()), pkg.ErrNotOpen)

	f.Open("c1")
	require.NoError(t, f.FetchNext(context.Background()))
	f.Close()
	assert.Equal(t, 0, f.Len())
	assert.ErrorIs(t, f.FetchNext(context.Background()), pkg.ErrNotOpen)
}

func TestEmptyConversation(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]*models.Page{0: {Meta: models.PageMeta{PageCount: 0}}}}
	f := New(fetcher, nil)
	f.Open("c1")

	require.NoError(t, f.FetchNext(context.Background()))
	assert.False(t, f.HasNextPage())
	assert.Empty(t, f.Snapshot())
}

func TestSubscribe(t *testing.T) {
	f := New(twoPages(), nil)
	calls := 0
	unsubscribe := f.Subscribe(func() { calls++ })

	f.Open("c1")
	require.NoError(t, f.FetchNext(context.Background()))
	// open, fetch start, merge
	assert.Equal(t, 3, calls)

	unsubscribe()
	require.NoError(t, f.FetchNext(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestSnapshotIsACopy(t *testing.T) {
	f := New(twoPages(), nil)
	f.Open("c1")
	require.NoError(t, f.FetchNext(context.Background()))

	snap := f.Snapshot()
	snap[0].Content = "mutated"
	assert.NotEqual(t, "mutated", f.Snapshot()[0].Content)
}
