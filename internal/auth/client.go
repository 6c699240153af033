package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// User identifies the authenticated account behind a session.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Session is the validated session returned by the auth service.
type Session struct {
	User User `json:"user"`
}

// Client validates sessions against the external auth service by replaying
// the caller's credentials to its get-session endpoint.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SetTestTransport redirects the client at a test server.
func (c *Client) SetTestTransport(url string) {
	c.baseURL = url
}

// SessionFromRequest forwards the request's Cookie and Authorization headers
// to the auth service. A nil session with a nil error means the credentials
// did not resolve to a user.
func (c *Client) SessionFromRequest(ctx context.Context, r *http.Request) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/get-session", nil)
	if err != nil {
		return nil, fmt.Errorf("create session request: %w", err)
	}
	if cookie := r.Header.Get("Cookie"); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if authz := r.Header.Get("Authorization"); authz != "" {
		req.Header.Set("Authorization", authz)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read session response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth service status %d", resp.StatusCode)
	}

	// The service answers 200 with a JSON null body for anonymous callers.
	var session *Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if session == nil || session.User.ID == "" {
		return nil, nil
	}
	return session, nil
}
