package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the upper bound on message content, in runes.
const MaxMessageLength = 2000

// Message is one chat message. It is immutable once created.
//
// Content carries mention spans either in raw form (@[Display Name]) or,
// after parsing, in resolved form (@username). Tags carries both the
// USER:<id> mention tags and any free-form tags, in their original order.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sent_at"`
	Tags           []string  `json:"tags"`
}

// PageMeta describes where a Page sits. PageIndex is zero-based; PageCount is
// the total as the server knew it when the page was produced.
type PageMeta struct {
	PageIndex int `json:"page_index"`
	PageCount int `json:"page_count"`
}

// Page is the unit returned by one fetchMessagesPage call.
// Page 0 holds the newest messages; results are ordered newest first.
type Page struct {
	Results []Message `json:"results"`
	Meta    PageMeta  `json:"meta"`
}

// SendMessageRequest is the body of a send call: MentionParser output,
// passed straight through.
type SendMessageRequest struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Validate trims the content and enforces the 1..MaxMessageLength bound.
func (r *SendMessageRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	contentLen := utf8.RuneCountInString(r.Content)
	if contentLen < 1 {
		return fmt.Errorf("message content is required")
	}
	if contentLen > MaxMessageLength {
		return fmt.Errorf("message content must be at most %d characters", MaxMessageLength)
	}
	for _, t := range r.Tags {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("tags cannot be empty")
		}
	}
	return nil
}
