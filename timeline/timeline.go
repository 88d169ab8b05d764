// Package timeline turns a message collection into display items.
//
// Messages are emitted oldest first, and each calendar day that has messages
// is introduced by exactly one date separator. Days are computed in the
// viewer's location.
package timeline

import (
	"sort"
	"time"

	"github.com/akinalp/shopchat/models"
)

const (
	// DateKeyLayout is the YYYY-MM-DD form of DateSeparator.DateKey.
	DateKeyLayout = "2006-01-02"
	// LongDateLayout renders separators older than yesterday ("March 3, 2024").
	LongDateLayout = "January 2, 2006"

	LabelToday     = "Today"
	LabelYesterday = "Yesterday"
)

// Builder builds timelines for one viewer.
type Builder struct {
	loc *time.Location
	now func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithLocation sets the viewer's location (default time.Local).
func WithLocation(loc *time.Location) Option {
	return func(b *Builder) {
		if loc != nil {
			b.loc = loc
		}
	}
}

// WithClock overrides the source of "now" used for Today/Yesterday labels.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder returns a Builder for the local zone and the wall clock unless
// overridden.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns a fresh item sequence for messages, which may be in any
// order. The input slice is not modified.
func (b *Builder) Build(messages []models.Message) []models.TimelineItem {
	if len(messages) == 0 {
		return []models.TimelineItem{}
	}

	sorted := make([]models.Message, len(messages))
	copy(sorted, messages)
	SortOldestFirst(sorted)

	today := b.now().In(b.loc)
	todayKey := today.Format(DateKeyLayout)
	yesterdayKey := today.AddDate(0, 0, -1).Format(DateKeyLayout)

	items := make([]models.TimelineItem, 0, len(sorted)+1)
	prevKey := ""
	for i := range sorted {
		m := sorted[i]
		local := m.SentAt.In(b.loc)
		key := local.Format(DateKeyLayout)

		if i == 0 || key != prevKey {
			items = append(items, models.TimelineItem{
				Kind: models.TimelineItemDateSeparator,
				Separator: &models.DateSeparator{
					DateKey: key,
					Label:   label(local, key, todayKey, yesterdayKey),
				},
			})
			prevKey = key
		}

		items = append(items, models.TimelineItem{
			Kind:    models.TimelineItemMessage,
			Message: &m,
		})
	}
	return items
}

func label(local time.Time, key, todayKey, yesterdayKey string) string {
	switch key {
	case todayKey:
		return LabelToday
	case yesterdayKey:
		return LabelYesterday
	default:
		return local.Format(LongDateLayout)
	}
}

// Build is NewBuilder(opts...).Build(messages).
func Build(messages []models.Message, opts ...Option) []models.TimelineItem {
	return NewBuilder(opts...).Build(messages)
}

// SortOldestFirst orders messages by SentAt ascending, ties by id ascending:
// the exact reverse of the feed's storage order.
func SortOldestFirst(messages []models.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if !a.SentAt.Equal(b.SentAt) {
			return a.SentAt.Before(b.SentAt)
		}
		return a.ID < b.ID
	})
}

// Separators counts the date separators in items.
func Separators(items []models.TimelineItem) int {
	n := 0
	for _, it := range items {
		if it.Kind == models.TimelineItemDateSeparator {
			n++
		}
	}
	return n
}
