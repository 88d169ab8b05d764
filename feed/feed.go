// Package feed accumulates the paged message history of one conversation.
//
// A Feed issues strictly sequential forward fetches (page 0 is the newest
// slice) and merges every page into one collection that is duplicate-free by
// message id and ordered newest first. Host code reads it through Snapshot
// and is told about changes through Subscribe.
package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
)

// PageFetcher is the fetchMessagesPage collaborator.
type PageFetcher interface {
	FetchMessagesPage(ctx context.Context, conversationID string, pageIndex int) (*models.Page, error)
}

// Feed is the per-conversation FeedState plus its pagination controls.
//
// All methods are safe for concurrent use, but the model is sequential: at
// most one FetchNext is outstanding at any time.
type Feed struct {
	fetcher PageFetcher
	log     *zap.Logger

	mu             sync.Mutex
	conversationID string
	opened         bool
	messages       []models.Message
	ids            map[string]struct{}
	nextPageIndex  int
	hasNextPage    bool
	fetching       bool
	// generation changes on every Open/Close; a fetch that started under an
	// older generation has been superseded and its page is dropped.
	generation uint64

	listeners  map[int]func()
	listenerID int
}

// New creates an empty, closed feed.
func New(fetcher PageFetcher, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{
		fetcher:   fetcher,
		log:       log.Named("feed"),
		listeners: make(map[int]func()),
	}
}

// Open resets the feed to an empty state for conversationID. A fetch still in
// flight for the previous session is superseded.
func (f *Feed) Open(conversationID string) {
	f.mu.Lock()
	f.reset()
	f.conversationID = conversationID
	f.opened = true
	f.hasNextPage = true
	f.mu.Unlock()

	f.notify()
}

// Close discards the feed state.
func (f *Feed) Close() {
	f.mu.Lock()
	f.reset()
	f.mu.Unlock()

	f.notify()
}

func (f *Feed) reset() {
	f.generation++
	f.conversationID = ""
	f.opened = false
	f.messages = nil
	f.ids = make(map[string]struct{})
	f.nextPageIndex = 0
	f.hasNextPage = false
	f.fetching = false
}

// FetchNext requests the next page and merges it.
//
// Errors:
//   - ErrAlreadyFetching when another FetchNext is outstanding
//   - ErrNotOpen before Open, ErrNoMorePages once the last page was merged
//   - ErrFetchFailed wrapping the collaborator error; state is unchanged
//   - ErrStaleResponse when Open or Close ran while the fetch was in flight
func (f *Feed) FetchNext(ctx context.Context) error {
	f.mu.Lock()
	switch {
	case f.fetching:
		f.mu.Unlock()
		return pkg.ErrAlreadyFetching
	case !f.opened:
		f.mu.Unlock()
		return pkg.ErrNotOpen
	case !f.hasNextPage:
		f.mu.Unlock()
		return pkg.ErrNoMorePages
	}
	f.fetching = true
	gen := f.generation
	conversationID := f.conversationID
	pageIndex := f.nextPageIndex
	f.mu.Unlock()

	f.notify()

	page, err := f.fetcher.FetchMessagesPage(ctx, conversationID, pageIndex)

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		f.log.Debug("dropped superseded page",
			zap.String("conversation_id", conversationID),
			zap.Int("page_index", pageIndex))
		return pkg.ErrStaleResponse
	}
	f.fetching = false

	if err == nil && page == nil {
		err = fmt.Errorf("empty response for page %d", pageIndex)
	}
	if err != nil {
		f.mu.Unlock()
		f.notify()
		return fmt.Errorf("%w: conversation %s page %d: %w", pkg.ErrFetchFailed, conversationID, pageIndex, err)
	}

	added := f.merge(page.Results)
	f.nextPageIndex++
	f.hasNextPage = f.nextPageIndex < page.Meta.PageCount
	total := len(f.messages)
	hasNext := f.hasNextPage
	f.mu.Unlock()

	f.log.Debug("merged page",
		zap.String("conversation_id", conversationID),
		zap.Int("page_index", pageIndex),
		zap.Int("page_count", page.Meta.PageCount),
		zap.Int("added", added),
		zap.Int("total", total),
		zap.Bool("has_next_page", hasNext))

	f.notify()
	return nil
}

// merge appends unseen messages and restores storage order. A message
// already present is never overwritten: ids are stable and messages
// immutable. Must be called with mu held.
func (f *Feed) merge(results []models.Message) int {
	added := 0
	for _, m := range results {
		if _, dup := f.ids[m.ID]; dup {
			continue
		}
		f.ids[m.ID] = struct{}{}
		f.messages = append(f.messages, m)
		added++
	}
	if added > 0 {
		SortNewestFirst(f.messages)
	}
	return added
}

// HasNextPage reports whether another page is available. It is true right
// after Open and afterwards follows the latest page's meta.
func (f *Feed) HasNextPage() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasNextPage
}

// Fetching reports whether a FetchNext is outstanding.
func (f *Feed) Fetching() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetching
}

// NextPageIndex is the page the next FetchNext will request.
func (f *Feed) NextPageIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextPageIndex
}

// ConversationID returns the open conversation, or "" when closed.
func (f *Feed) ConversationID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversationID
}

// Snapshot returns a copy of the merged messages, newest first.
func (f *Feed) Snapshot() []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// Len is the number of merged messages.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

// Subscribe registers fn to run after every state change (open, fetch start,
// merge, failure, close). fn runs on the goroutine that caused the change,
// without locks held. The returned func unsubscribes.
func (f *Feed) Subscribe(fn func()) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.listenerID
	f.listenerID++
	f.listeners[id] = fn

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *Feed) notify() {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// SortNewestFirst orders messages by SentAt descending, ties by id
// descending. This is storage order.
func SortNewestFirst(messages []models.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if !a.SentAt.Equal(b.SentAt) {
			return a.SentAt.After(b.SentAt)
		}
		return a.ID > b.ID
	})
}
