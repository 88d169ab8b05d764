package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Conversation is a storefront thread between customers and staff,
// optionally tied to an order.
type Conversation struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	OrderRef  *string   `json:"order_ref"` // nullable
	MemberIDs []string  `json:"member_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateConversationRequest opens a new conversation. The caller is always
// added as a member.
type CreateConversationRequest struct {
	Subject   string   `json:"subject"`
	OrderRef  *string  `json:"order_ref"`
	MemberIDs []string `json:"member_ids"`
}

// Validate checks the subject length and drops blank member ids.
func (r *CreateConversationRequest) Validate() error {
	r.Subject = strings.TrimSpace(r.Subject)
	subjectLen := utf8.RuneCountInString(r.Subject)
	if subjectLen < 1 {
		return fmt.Errorf("subject is required")
	}
	if subjectLen > 200 {
		return fmt.Errorf("subject must be at most 200 characters")
	}

	if r.OrderRef != nil {
		ref := strings.TrimSpace(*r.OrderRef)
		if ref == "" {
			r.OrderRef = nil
		} else {
			r.OrderRef = &ref
		}
	}

	members := r.MemberIDs[:0]
	for _, id := range r.MemberIDs {
		if id = strings.TrimSpace(id); id != "" {
			members = append(members, id)
		}
	}
	r.MemberIDs = members
	return nil
}
