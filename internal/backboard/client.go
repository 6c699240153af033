package backboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://app.backboard.io/api"

// MemoryMode controls whether a message send may also write new memories.
type MemoryMode string

const (
	MemoryAuto     MemoryMode = "auto"
	MemoryReadonly MemoryMode = "readonly"
	MemoryOff      MemoryMode = "off"
)

// Client talks to the backboard.io assistant/memory API.
type Client struct {
	apiKey   string
	baseURL  string
	provider string
	model    string
	client   *http.Client
}

func NewClient(apiKey, baseURL, provider, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:   apiKey,
		baseURL:  baseURL,
		provider: provider,
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// SetTestTransport redirects the client at a test server.
func (c *Client) SetTestTransport(url string) {
	c.baseURL = url
}

type Assistant struct {
	AssistantID string `json:"assistantId"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type Thread struct {
	ThreadID    string `json:"threadId"`
	AssistantID string `json:"assistantId,omitempty"`
}

type Memory struct {
	MemoryID string `json:"memoryId"`
}

type messageRequest struct {
	Content     string     `json:"content"`
	LLMProvider string     `json:"llm_provider,omitempty"`
	ModelName   string     `json:"model_name,omitempty"`
	Memory      MemoryMode `json:"memory,omitempty"`
}

type messageResponse struct {
	Content   string `json:"content"`
	MessageID string `json:"messageId,omitempty"`
}

// AssistantName derives the per-user assistant name used for idempotent
// provisioning.
func AssistantName(userID string) string {
	return "backboard-profile-" + userID
}

// EnsureAssistant returns the id of the user's assistant, creating it when
// none exists yet. Provisioning is idempotent, keyed by the derived name.
func (c *Client) EnsureAssistant(ctx context.Context, userID string) (string, error) {
	var assistants []Assistant
	if err := c.do(ctx, http.MethodGet, "/assistants", nil, &assistants); err != nil {
		return "", fmt.Errorf("list assistants: %w", err)
	}

	name := AssistantName(userID)
	for _, a := range assistants {
		if a.Name == name {
			return a.AssistantID, nil
		}
	}

	var created Assistant
	body := map[string]string{
		"name":        name,
		"description": "Voice profile assistant for user " + userID,
	}
	if err := c.do(ctx, http.MethodPost, "/assistants", body, &created); err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	return created.AssistantID, nil
}

// CreateThread opens a fresh conversation thread scoped to the assistant.
// Callers create one thread per repurposing run or editing session so
// context never bleeds between runs.
func (c *Client) CreateThread(ctx context.Context, assistantID string) (string, error) {
	var thread Thread
	path := "/assistants/" + assistantID + "/threads"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{}, &thread); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ThreadID, nil
}

// AddMemory stores a content chunk in the assistant's memory and returns
// its id for later cleanup.
func (c *Client) AddMemory(ctx context.Context, assistantID, content string, metadata map[string]any) (string, error) {
	var memory Memory
	path := "/assistants/" + assistantID + "/memories"
	body := map[string]any{"content": content}
	if metadata != nil {
		body["metadata"] = metadata
	}
	if err := c.do(ctx, http.MethodPost, path, body, &memory); err != nil {
		return "", fmt.Errorf("add memory: %w", err)
	}
	return memory.MemoryID, nil
}

func (c *Client) DeleteMemory(ctx context.Context, assistantID, memoryID string) error {
	path := "/assistants/" + assistantID + "/memories/" + memoryID
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete memory %s: %w", memoryID, err)
	}
	return nil
}

// SendMessage appends a message to the thread and returns the assistant's
// reply. The memory mode decides whether retrieval may also write new
// memories during the call.
func (c *Client) SendMessage(ctx context.Context, threadID, content string, mode MemoryMode) (string, error) {
	req := messageRequest{
		Content:     content,
		LLMProvider: c.provider,
		ModelName:   c.model,
		Memory:      mode,
	}

	var resp messageResponse
	path := "/threads/" + threadID + "/messages"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return resp.Content, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("api error %d: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
