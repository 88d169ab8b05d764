// Package autocomplete drives the "@mention" dropdown of one text input.
//
// The Controller owns the input's text and cursor and runs a two-state
// machine (Idle, Open) over keystrokes, cursor moves and clicks. Choosing a
// candidate splices an @[Display Name] token into the text; the mention
// parser then re-runs over the whole text to refresh the live tag preview.
//
// A Controller is not safe for concurrent use. It is driven from a single
// event loop; the only asynchronous work, directory lookups, is handed out
// as Lookup values and comes back through ResolveLookup, where results
// superseded by a newer lookup are discarded.
package autocomplete

import (
	"fmt"
	"unicode"

	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
	"github.com/akinalp/shopchat/pkg/mention"
)

// DefaultCandidateLimit bounds the candidate list shown for an empty query.
const DefaultCandidateLimit = 10

// Controller is the MentionAutocompleteController.
type Controller struct {
	text   []rune
	cursor int
	state  State

	// directory is the preloaded user list; when nil, candidates come from
	// lookups issued to the host.
	directory    []models.User
	lastResults  []models.User
	candidates   []models.User
	defaultLimit int

	// known holds every user seen so far; it is the directory the preview
	// parser resolves against.
	known      []models.User
	knownIndex map[string]int

	seq     uint64
	pending *Lookup

	existingTags []string
	preview      Preview

	listeners  map[int]func()
	listenerID int
}

// Option configures a Controller.
type Option func(*Controller)

// WithDirectory preloads the candidate directory. Candidates are then
// filtered synchronously and no lookups are issued.
func WithDirectory(users []models.User) Option {
	return func(c *Controller) {
		c.directory = append([]models.User{}, users...)
	}
}

// WithDefaultLimit sets the size of the empty-query default set.
func WithDefaultLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.defaultLimit = n
		}
	}
}

// WithTags sets the message's existing tags. Their free-form entries are
// carried into the preview; their mention entries are recomputed.
func WithTags(existing []string) Option {
	return func(c *Controller) {
		c.existingTags = append([]string{}, existing...)
	}
}

// New creates an Idle controller with empty text.
func New(opts ...Option) *Controller {
	c := &Controller{
		defaultLimit: DefaultCandidateLimit,
		knownIndex:   make(map[string]int),
		listeners:    make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Learn(c.directory...)
	c.refreshPreview()
	return c
}

// ─── Accessors ───

// Text returns the current input text.
func (c *Controller) Text() string { return string(c.text) }

// Cursor returns the cursor position as a rune offset.
func (c *Controller) Cursor() int { return c.cursor }

// State returns the current AutocompleteState.
func (c *Controller) State() State { return c.state }

// Candidates returns the current candidate list (nil when Idle).
func (c *Controller) Candidates() []models.User {
	return append([]models.User(nil), c.candidates...)
}

// Selected returns the highlighted candidate.
func (c *Controller) Selected() (models.User, bool) {
	if !c.state.Showing || len(c.candidates) == 0 {
		return models.User{}, false
	}
	return c.candidates[c.state.SelectedIndex], true
}

// Preview returns the live parse of the current text.
func (c *Controller) Preview() Preview { return c.preview }

// ─── Host-driven edits ───

// SetText replaces the text and cursor without interpreting the change as
// typing; the dropdown closes.
func (c *Controller) SetText(text string, cursor int) {
	c.text = []rune(text)
	c.cursor = clamp(cursor, 0, len(c.text))
	c.close()
	c.refreshPreview()
	c.notify()
}

// Reset clears the input, e.g. after the message was sent.
func (c *Controller) Reset() {
	c.SetText("", 0)
}

// Learn adds users to the directory the preview resolves against. The
// first entry seen for an id wins.
func (c *Controller) Learn(users ...models.User) {
	for _, u := range users {
		if _, ok := c.knownIndex[u.ID]; ok {
			continue
		}
		c.knownIndex[u.ID] = len(c.known)
		c.known = append(c.known, u)
	}
}

// ─── Input events ───

// Type inserts s at the cursor as if each rune were typed in turn.
func (c *Controller) Type(s string) {
	for _, r := range s {
		c.typeRune(r)
	}
	c.refreshPreview()
	c.notify()
}

func (c *Controller) typeRune(r rune) {
	c.insert(c.cursor, []rune{r})
	c.cursor++

	if c.state.Showing {
		c.refreshQuery()
		return
	}

	at := c.cursor - 1
	if r == '@' && (at == 0 || unicode.IsSpace(c.text[at-1])) {
		c.open(at)
	}
}

// HandleKey applies a non-character key. It reports whether the controller
// consumed the key; an unconsumed Enter, for instance, is the host's cue to
// send the message.
func (c *Controller) HandleKey(k Key) bool {
	consumed := c.handleKey(k)
	c.notify()
	return consumed
}

func (c *Controller) handleKey(k Key) bool {
	switch k {
	case KeyUp, KeyDown:
		if !c.state.Showing {
			return false
		}
		delta := 1
		if k == KeyUp {
			delta = -1
		}
		c.state.SelectedIndex = clamp(c.state.SelectedIndex+delta, 0, len(c.candidates)-1)
		return true

	case KeyEnter, KeyTab:
		if !c.state.Showing || len(c.candidates) == 0 {
			return false
		}
		c.accept(c.candidates[c.state.SelectedIndex])
		return true

	case KeyEscape:
		if !c.state.Showing {
			return false
		}
		c.close()
		return true

	case KeyBackspace:
		if c.cursor == 0 {
			return true
		}
		c.remove(c.cursor-1, c.cursor)
		c.cursor--
		c.afterEdit()
		return true

	case KeyDelete:
		if c.cursor < len(c.text) {
			c.remove(c.cursor, c.cursor+1)
			c.afterEdit()
		}
		return true

	case KeyLeft:
		c.moveTo(c.cursor - 1)
		return true
	case KeyRight:
		c.moveTo(c.cursor + 1)
		return true
	case KeyHome:
		c.moveTo(0)
		return true
	case KeyEnd:
		c.moveTo(len(c.text))
		return true
	}
	return false
}

// MoveCursor places the cursor at pos (clamped), e.g. after a mouse click
// inside the input.
func (c *Controller) MoveCursor(pos int) {
	c.moveTo(pos)
	c.notify()
}

// ClickOutside closes the dropdown without touching the text. Hosts call it
// for clicks outside both the input and the candidate list.
func (c *Controller) ClickOutside() {
	if c.state.Showing {
		c.close()
		c.notify()
	}
}

// Choose accepts the candidate at index i, as a click on the list does.
func (c *Controller) Choose(i int) bool {
	if !c.state.Showing || i < 0 || i >= len(c.candidates) {
		return false
	}
	c.accept(c.candidates[i])
	c.notify()
	return true
}

// ─── Lookups ───

// PendingLookup hands out the lookup the host should run, at most once.
func (c *Controller) PendingLookup() (Lookup, bool) {
	if c.pending == nil {
		return Lookup{}, false
	}
	l := *c.pending
	c.pending = nil
	return l, true
}

// ResolveLookup applies a lookup result. Results for a superseded lookup,
// or arriving after the dropdown closed, return ErrStaleResponse and change
// nothing. A failed lookup returns ErrLookupFailed and keeps the current
// candidates.
func (c *Controller) ResolveLookup(res LookupResult) error {
	if res.Seq != c.seq || !c.state.Showing {
		return pkg.ErrStaleResponse
	}
	if res.Err != nil {
		return fmt.Errorf("%w: query %q: %w", pkg.ErrLookupFailed, res.Query, res.Err)
	}

	c.Learn(res.Users...)
	c.lastResults = res.Users
	c.candidates = Filter(res.Users, c.state.Query, c.defaultLimit)
	c.clampSelection()
	c.notify()
	return nil
}

// ─── Subscriptions ───

// Subscribe registers fn to run after every event that may have changed
// the text, the state, the candidates or the preview.
func (c *Controller) Subscribe(fn func()) (unsubscribe func()) {
	id := c.listenerID
	c.listenerID++
	c.listeners[id] = fn
	return func() { delete(c.listeners, id) }
}

func (c *Controller) notify() {
	for _, fn := range c.listeners {
		fn()
	}
}

// ─── Transitions ───

func (c *Controller) open(offset int) {
	c.state = State{Showing: true, TriggerOffset: offset}
	c.requestCandidates()
}

func (c *Controller) close() {
	c.state = State{}
	c.candidates = nil
	c.lastResults = nil
	c.pending = nil
	// Any lookup still out is now stale.
	c.seq++
}

// refreshQuery re-derives the query after the text or cursor changed while
// Open, closing when the mention attempt no longer holds.
func (c *Controller) refreshQuery() {
	offset := c.state.TriggerOffset
	if c.cursor <= offset || offset >= len(c.text) || c.text[offset] != '@' {
		c.close()
		return
	}

	query := c.text[offset+1 : c.cursor]
	for _, r := range query {
		if unicode.IsSpace(r) {
			c.close()
			return
		}
	}

	if q := string(query); q != c.state.Query {
		c.state.Query = q
		c.state.SelectedIndex = 0
		c.requestCandidates()
	}
}

func (c *Controller) requestCandidates() {
	if c.directory != nil {
		c.candidates = Filter(c.directory, c.state.Query, c.defaultLimit)
		c.clampSelection()
		return
	}

	c.seq++
	c.pending = &Lookup{Seq: c.seq, Query: c.state.Query}
	// Narrow what is on screen until the lookup answers.
	c.candidates = Filter(c.lastResults, c.state.Query, c.defaultLimit)
	c.clampSelection()
}

func (c *Controller) accept(u models.User) {
	token := []rune(mention.Token(u) + " ")
	start := c.state.TriggerOffset

	c.remove(start, c.cursor)
	c.insert(start, token)
	c.cursor = start + len(token)

	c.Learn(u)
	c.close()
	c.refreshPreview()
}

func (c *Controller) moveTo(pos int) {
	c.cursor = clamp(pos, 0, len(c.text))
	if c.state.Showing {
		c.refreshQuery()
	}
}

func (c *Controller) afterEdit() {
	if c.state.Showing {
		c.refreshQuery()
	}
	c.refreshPreview()
}

func (c *Controller) refreshPreview() {
	res := mention.Parse(string(c.text), c.known)
	c.preview = Preview{
		Content:          res.Content,
		Tags:             res.Tags(c.existingTags),
		MentionedUserIDs: res.MentionedUserIDs,
		Unresolved:       res.Unresolved,
	}
}

func (c *Controller) clampSelection() {
	c.state.SelectedIndex = clamp(c.state.SelectedIndex, 0, len(c.candidates)-1)
}

// ─── Text buffer ───

func (c *Controller) insert(at int, rs []rune) {
	out := make([]rune, 0, len(c.text)+len(rs))
	out = append(out, c.text[:at]...)
	out = append(out, rs...)
	out = append(out, c.text[at:]...)
	c.text = out
}

func (c *Controller) remove(from, to int) {
	c.text = append(c.text[:from], c.text[to:]...)
}

// clamp bounds v to [lo, hi]; an empty range (hi < lo) yields lo.
func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
