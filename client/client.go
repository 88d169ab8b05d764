// Package client talks to the messaging API over HTTP.
//
// Client implements the collaborators the messaging core depends on:
// feed.PageFetcher, autocomplete.UserSearcher and the send call. Every
// response is the {success, data, error} envelope; failures come back as the
// pkg sentinel matching the status code, wrapped with the server's message.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 5 * 1024 * 1024

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the API rooted at baseURL, authenticating with
// the bearer token.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// envelope mirrors pkg.APIResponse with a typed payload.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// FetchMessagesPage fetches one page of a conversation; page 0 is newest.
func (c *Client) FetchMessagesPage(ctx context.Context, conversationID string, pageIndex int) (*models.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(pageIndex))
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages?" + q.Encode()

	var page models.Page
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchUsers queries the user directory. An empty query returns the
// server's default set.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	q := url.Values{}
	q.Set("q", query)

	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/api/users/search?"+q.Encode(), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SendMessage posts parsed content and its tags. The server stamps id,
// sender and time.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string, tags []string) (*models.Message, error) {
	body := models.SendMessageRequest{Content: content, Tags: tags}
	if body.Tags == nil {
		body.Tags = []string{}
	}

	var msg models.Message
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListConversations returns the caller's conversations.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var convs []models.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// Mentions returns the newest messages that mention the caller.
func (c *Client) Mentions(ctx context.Context, limit int) ([]models.Message, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var msgs []models.Message
	if err := c.do(ctx, http.MethodGet, "/api/users/me/mentions?"+q.Encode(), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// InvalidateDirectory asks the server to drop its directory search cache.
func (c *Client) InvalidateDirectory(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/users/directory/invalidate", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%w: %s", statusError(resp.StatusCode), resp.Status)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("%w: %s", statusError(resp.StatusCode), msg)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// statusError maps an HTTP status back to the domain sentinel the server
// started from.
func statusError(status int) error {
	switch status {
	case http.StatusNotFound:
		return pkg.ErrNotFound
	case http.StatusUnauthorized:
		return pkg.ErrUnauthorized
	case http.StatusForbidden:
		return pkg.ErrForbidden
	case http.StatusConflict:
		return pkg.ErrAlreadyExists
	case http.StatusBadRequest:
		return pkg.ErrBadRequest
	case http.StatusTooManyRequests:
		return pkg.ErrTooManyRequests
	default:
		return pkg.ErrInternal
	}
}
