// Package tui is the terminal conversation view: a paged message timeline
// above a compose line with @mention autocomplete.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"go.uber.org/zap"

	"github.com/akinalp/shopchat/autocomplete"
	"github.com/akinalp/shopchat/feed"
	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
	"github.com/akinalp/shopchat/timeline"
)

// Backend is the server side of the view.
type Backend interface {
	feed.PageFetcher
	SendMessage(ctx context.Context, conversationID, content string, tags []string) (*models.Message, error)
}

// Directory answers mention lookups and remembers every user it has seen.
// Invalidate drops cached lookups so the next search reaches the server.
type Directory interface {
	autocomplete.UserSearcher
	Known() []models.User
	Invalidate()
}

type pageFetchedMsg struct {
	err error
}

type directoryWarmedMsg struct {
	users []models.User
	err   error
}

type lookupResolvedMsg struct {
	result autocomplete.LookupResult
}

type messageSentMsg struct {
	message *models.Message
	err     error
}

const (
	headerHeight = 2
	footerHeight = 7
)

// Model is the bubbletea model of one open conversation.
type Model struct {
	ctx            context.Context
	conversationID string

	backend   Backend
	directory Directory
	feed      *feed.Feed
	builder   *timeline.Builder
	input     *autocomplete.Controller
	log       *zap.Logger

	viewport viewport.Model
	spinner  spinner.Model
	width    int
	height   int

	loading bool
	sending bool
	err     error
}

// Option configures a Model.
type Option func(*Model)

// WithTimeline replaces the timeline builder, e.g. to pin the viewer's
// location.
func WithTimeline(b *timeline.Builder) Option {
	return func(m *Model) {
		if b != nil {
			m.builder = b
		}
	}
}

// WithContext sets the context every backend call derives from.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// New creates the view for conversationID. The feed is opened right away;
// Init fetches the first page.
func New(conversationID string, backend Backend, directory Directory, log *zap.Logger, opts ...Option) Model {
	if log == nil {
		log = zap.NewNop()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	m := Model{
		ctx:            context.Background(),
		conversationID: conversationID,
		backend:        backend,
		directory:      directory,
		feed:           feed.New(backend, log),
		builder:        timeline.NewBuilder(),
		input:          autocomplete.New(),
		log:            log.Named("tui"),
		viewport:       viewport.New(80, 20),
		spinner:        s,
		width:          80,
		height:         30,
		loading:        true,
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.feed.Open(conversationID)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchNextCmd(), m.warmDirectoryCmd())
}

// ─── Commands ───

func (m Model) fetchNextCmd() tea.Cmd {
	f, ctx := m.feed, m.ctx
	return func() tea.Msg {
		return pageFetchedMsg{err: f.FetchNext(ctx)}
	}
}

// warmDirectoryCmd loads the default directory set so sender names resolve
// and the first "@" has candidates to show.
func (m Model) warmDirectoryCmd() tea.Cmd {
	d, ctx := m.directory, m.ctx
	return func() tea.Msg {
		users, err := d.SearchUsers(ctx, "")
		return directoryWarmedMsg{users: users, err: err}
	}
}

// lookupCmd runs the controller's pending lookup, if any.
func (m Model) lookupCmd() tea.Cmd {
	l, ok := m.input.PendingLookup()
	if !ok {
		return nil
	}
	d, ctx := m.directory, m.ctx
	return func() tea.Msg {
		return lookupResolvedMsg{result: l.Run(ctx, d)}
	}
}

func (m Model) sendCmd(content string, tags []string) tea.Cmd {
	b, ctx, convID := m.backend, m.ctx, m.conversationID
	return func() tea.Msg {
		msg, err := b.SendMessage(ctx, convID, content, tags)
		return messageSentMsg{message: msg, err: err}
	}
}

// ─── Update ───

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(msg.Width-2, 10)
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 3)
		m.refreshTimeline(false)
		return m, nil

	case pageFetchedMsg:
		switch {
		case msg.err == nil:
			m.loading = false
			m.err = nil
			// The first page lands at the bottom; older pages keep the
			// reader at the top where they asked for more.
			m.refreshTimeline(m.feed.NextPageIndex() == 1)
		case errors.Is(msg.err, pkg.ErrStaleResponse),
			errors.Is(msg.err, pkg.ErrAlreadyFetching):
			// Another fetch is still in flight and will report itself.
			m.log.Debug("fetch superseded", zap.Error(msg.err))
		case errors.Is(msg.err, pkg.ErrNoMorePages):
			m.loading = false
			m.log.Debug("fetch skipped", zap.Error(msg.err))
		default:
			m.loading = false
			m.log.Error("failed to fetch messages", zap.Error(msg.err))
			m.err = msg.err
		}
		return m, nil

	case directoryWarmedMsg:
		if msg.err != nil {
			m.log.Warn("failed to load directory", zap.Error(msg.err))
			return m, nil
		}
		m.input.Learn(msg.users...)
		m.refreshTimeline(false)
		return m, nil

	case lookupResolvedMsg:
		if err := m.input.ResolveLookup(msg.result); err != nil {
			if errors.Is(err, pkg.ErrStaleResponse) {
				m.log.Debug("dropped stale lookup", zap.Uint64("seq", msg.result.Seq))
			} else {
				m.log.Warn("mention lookup failed", zap.Error(err))
			}
		}
		return m, nil

	case messageSentMsg:
		m.sending = false
		if msg.err != nil {
			m.log.Error("failed to send message", zap.Error(msg.err))
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.input.Reset()
		m.feed.Open(m.conversationID)
		m.loading = true
		return m, m.fetchNextCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyPgUp:
		if m.viewport.AtTop() && m.feed.HasNextPage() && !m.feed.Fetching() {
			m.loading = true
			return m, m.fetchNextCmd()
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyCtrlR:
		m.directory.Invalidate()
		m.feed.Open(m.conversationID)
		m.loading = true
		return m, m.fetchNextCmd()

	case tea.KeyRunes, tea.KeySpace:
		m.input.Type(string(msg.Runes))
		return m, m.lookupCmd()
	}

	k, ok := controllerKey(msg)
	if !ok {
		return m, nil
	}
	if m.input.HandleKey(k) {
		return m, m.lookupCmd()
	}

	// An open dropdown with nothing to pick still owns Enter, otherwise the
	// half-typed "@que" would go out as a message.
	if k == autocomplete.KeyEnter && !m.input.State().Showing {
		return m.send()
	}
	return m, nil
}

func (m Model) send() (tea.Model, tea.Cmd) {
	if m.sending {
		return m, nil
	}
	preview := m.input.Preview()
	if strings.TrimSpace(preview.Content) == "" {
		return m, nil
	}
	if len(preview.Unresolved) > 0 {
		m.log.Debug("sending with unresolved mentions", zap.Strings("unresolved", preview.Unresolved))
	}
	m.sending = true
	return m, m.sendCmd(preview.Content, preview.Tags)
}

// ─── Rendering ───

func (m *Model) refreshTimeline(gotoBottom bool) {
	m.viewport.SetContent(m.renderTimeline(m.builder.Build(m.feed.Snapshot())))
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderTimeline(items []models.TimelineItem) string {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	names := m.senderNames()

	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		switch item.Kind {
		case models.TimelineItemDateSeparator:
			b.WriteString(separatorStyle.Width(width).Render("── " + item.Separator.Label + " ──"))
		case models.TimelineItemMessage:
			msg := item.Message
			sender := names[msg.SenderID]
			if sender == "" {
				sender = msg.SenderID
			}
			header := messageHeaderStyle.Render(fmt.Sprintf("%s • %s", sender, msg.SentAt.Local().Format("15:04")))
			body := highlightMentions(wordwrap.String(msg.Content, max(width-4, 10)))
			b.WriteString(header + "\n" + messageBodyStyle.Render(body))
		}
	}
	return b.String()
}

func (m Model) senderNames() map[string]string {
	known := m.directory.Known()
	names := make(map[string]string, len(known))
	for _, u := range known {
		names[u.ID] = u.DisplayName
	}
	return names
}

func highlightMentions(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		words := strings.Split(line, " ")
		for j, w := range words {
			if len(w) > 1 && strings.HasPrefix(w, "@") {
				words[j] = mentionStyle.Render(w)
			}
		}
		lines[i] = strings.Join(words, " ")
	}
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	var b strings.Builder

	title := "# " + m.conversationID
	if m.loading {
		title += " " + m.spinner.View()
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")

	if m.feed.Len() == 0 && !m.loading {
		b.WriteString(helpStyle.Render("  No messages yet.") + "\n")
	} else {
		b.WriteString(m.viewport.View() + "\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	}

	if dropdown := m.renderDropdown(); dropdown != "" {
		b.WriteString(dropdown + "\n")
	}
	b.WriteString(inputStyle.Width(max(m.width-4, 10)).Render(m.renderInput()) + "\n")
	b.WriteString(m.renderPreview())

	help := "enter: send • @: mention • pgup: older • ctrl+r: reload • ctrl+c: quit"
	if m.sending {
		help = m.spinner.View() + " sending..."
	}
	b.WriteString("\n" + helpStyle.Render(help))
	return b.String()
}

func (m Model) renderInput() string {
	text := []rune(m.input.Text())
	cursor := m.input.Cursor()

	at := " "
	rest := ""
	if cursor < len(text) {
		at = string(text[cursor])
		rest = string(text[cursor+1:])
	}
	return string(text[:cursor]) + cursorStyle.Render(at) + rest
}

func (m Model) renderDropdown() string {
	state := m.input.State()
	if state.Idle() {
		return ""
	}
	candidates := m.input.Candidates()
	if len(candidates) == 0 {
		return dropdownStyle.Render(helpStyle.Render(fmt.Sprintf("no match for %q", state.Query)))
	}

	rows := make([]string, len(candidates))
	for i, u := range candidates {
		label := u.DisplayName
		if u.Username != "" {
			label += helpStyle.Render(" @" + u.Username)
		}
		if i == state.SelectedIndex {
			rows[i] = selectedCandidateStyle.Render(label)
		} else {
			rows[i] = candidateStyle.Render(label)
		}
	}
	return dropdownStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderPreview() string {
	preview := m.input.Preview()
	var b strings.Builder
	if len(preview.Tags) > 0 {
		b.WriteString(tagStyle.Render("tags: "+strings.Join(preview.Tags, ", ")) + "\n")
	}
	for _, name := range preview.Unresolved {
		b.WriteString(warningStyle.Render(fmt.Sprintf("⚠ @[%s] does not match anyone and will be sent as text", name)) + "\n")
	}
	return b.String()
}
