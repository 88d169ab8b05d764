package models

// TimelineItemKind discriminates TimelineItem.
type TimelineItemKind string

const (
	TimelineItemMessage       TimelineItemKind = "message"
	TimelineItemDateSeparator TimelineItemKind = "date_separator"
)

// DateSeparator precedes the first message of each calendar day.
// DateKey is YYYY-MM-DD in the viewer's location.
type DateSeparator struct {
	DateKey string `json:"date_key"`
	Label   string `json:"label"`
}

// TimelineItem is either a message or a date separator; exactly one of
// Message and Separator is set, matching Kind.
type TimelineItem struct {
	Kind      TimelineItemKind `json:"kind"`
	Message   *Message         `json:"message,omitempty"`
	Separator *DateSeparator   `json:"separator,omitempty"`
}
