// Package mention resolves bracketed mention spans in message text.
//
// Raw text marks a mention as @[Display Name]. Parse rewrites every span whose
// name matches a directory user to @handle and reports the mentioned ids.
// A span that matches nobody is left verbatim so callers can surface it.
//
// The bracket syntax is the only trigger: resolved text (@handle, no
// brackets) parses to itself, which makes Parse idempotent.
package mention

import (
	"strings"
	"unicode"

	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg/tags"
)

const (
	spanOpen  = "@["
	spanClose = ']'
)

// Span is one @[Name] occurrence. Start and End are byte offsets into the
// parsed text; End is exclusive. UserID is empty when the name matched nobody.
type Span struct {
	Start  int
	End    int
	Raw    string
	Name   string
	UserID string
}

// Resolved reports whether the span matched a directory user.
func (s Span) Resolved() bool {
	return s.UserID != ""
}

// Result is the output of Parse.
type Result struct {
	Content          string
	MentionedUserIDs []string // deduplicated, first occurrence order
	Unresolved       []string // names of spans left verbatim, in order
	Spans            []Span
}

// Tags returns the tag set for the parsed message: the free-form tags of
// existing followed by one USER:<id> per mentioned user. Mention tags in
// existing are discarded and recomputed.
func (r Result) Tags(existing []string) []string {
	return tags.Build(r.MentionedUserIDs, existing)
}

// Spans tokenizes text and returns every @[Name] span without resolving it.
// Empty brackets (@[]) are not spans.
func Spans(text string) []Span {
	var spans []Span
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], spanOpen)
		if start < 0 {
			break
		}
		start += i
		nameStart := start + len(spanOpen)

		closeAt := strings.IndexByte(text[nameStart:], spanClose)
		if closeAt < 0 {
			// An unterminated span swallows nothing; the rest is plain text.
			break
		}
		closeAt += nameStart

		name := text[nameStart:closeAt]
		if strings.TrimSpace(name) == "" {
			i = nameStart
			continue
		}

		spans = append(spans, Span{
			Start: start,
			End:   closeAt + 1,
			Raw:   text[start : closeAt+1],
			Name:  strings.TrimSpace(name),
		})
		i = closeAt + 1
	}
	return spans
}

// Names returns the distinct span names in text, in order. Comparison is
// case-insensitive; the first spelling wins.
func Names(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range Spans(text) {
		key := strings.ToLower(s.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, s.Name)
	}
	return names
}

// Parse resolves the mention spans of text against directory.
//
// Names match display names case-insensitively; when two users share a
// display name the first one in directory wins.
func Parse(text string, directory []models.User) Result {
	index := make(map[string]models.User, len(directory))
	for _, u := range directory {
		key := strings.ToLower(strings.TrimSpace(u.DisplayName))
		if _, dup := index[key]; !dup {
			index[key] = u
		}
	}

	spans := Spans(text)
	res := Result{Spans: spans}
	if len(spans) == 0 {
		res.Content = text
		return res
	}

	var b strings.Builder
	b.Grow(len(text))
	seen := make(map[string]bool)
	last := 0

	for i := range spans {
		s := &spans[i]
		b.WriteString(text[last:s.Start])
		last = s.End

		u, ok := index[strings.ToLower(s.Name)]
		handle := ""
		if ok {
			handle = Handle(u)
		}
		if handle == "" {
			b.WriteString(s.Raw)
			res.Unresolved = append(res.Unresolved, s.Name)
			continue
		}

		s.UserID = u.ID
		b.WriteByte('@')
		b.WriteString(handle)
		if !seen[u.ID] {
			seen[u.ID] = true
			res.MentionedUserIDs = append(res.MentionedUserIDs, u.ID)
		}
	}
	b.WriteString(text[last:])

	res.Content = b.String()
	return res
}

// Handle is the token a resolved mention is rewritten to (without the @):
// the username, or the display name with whitespace removed. Brackets and
// '@' are stripped so a rewritten mention can never form a new span. An
// empty handle means the user cannot be mentioned.
func Handle(u models.User) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '[' || r == ']' || r == '@' {
			return -1
		}
		return r
	}, u.Handle())
}

// Token returns the raw span for u, as inserted by the autocomplete
// controller.
func Token(u models.User) string {
	return spanOpen + u.DisplayName + string(spanClose)
}
