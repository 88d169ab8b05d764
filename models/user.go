// Package models defines the domain models shared by every layer.
//
// The same structs describe database rows and API payloads; json tags define
// the wire shape the client package decodes.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// User is a directory entry. Identity never changes within a session.
//
// Username is optional; an empty value means the user has no handle and
// mentions fall back to the display name.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Username    string    `json:"username,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Handle returns the username, or the display name when no username is set.
func (u User) Handle() string {
	if u.Username != "" {
		return u.Username
	}
	return u.DisplayName
}

// CreateUserRequest registers a directory entry (used by the token tool).
type CreateUserRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Validate checks CreateUserRequest:
//   - Username: optional, 3-32 characters, letters, digits and underscores
//   - DisplayName: required, at most 64 characters, no square brackets
func (r *CreateUserRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username != "" {
		usernameLen := utf8.RuneCountInString(r.Username)
		if usernameLen < 3 || usernameLen > 32 {
			return fmt.Errorf("username must be between 3 and 32 characters")
		}
		for _, ch := range r.Username {
			if !isValidUsernameChar(ch) {
				return fmt.Errorf("username can only contain letters, numbers, and underscores")
			}
		}
	}

	r.DisplayName = strings.TrimSpace(r.DisplayName)
	displayLen := utf8.RuneCountInString(r.DisplayName)
	if displayLen < 1 {
		return fmt.Errorf("display name is required")
	}
	if displayLen > 64 {
		return fmt.Errorf("display name must be at most 64 characters")
	}
	// Brackets would break the @[Display Name] mention syntax.
	if strings.ContainsAny(r.DisplayName, "[]") {
		return fmt.Errorf("display name cannot contain square brackets")
	}

	return nil
}

func isValidUsernameChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_'
}
