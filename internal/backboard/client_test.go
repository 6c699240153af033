package backboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient("test-key", "", "openai", "gpt-4o")
	c.SetTestTransport(server.URL)
	return c
}

func TestEnsureAssistant_ReusesExisting(t *testing.T) {
	created := false
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/assistants":
			json.NewEncoder(w).Encode([]Assistant{
				{AssistantID: "asst-other", Name: "backboard-profile-bob"},
				{AssistantID: "asst-1", Name: "backboard-profile-user-42"},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/assistants":
			created = true
			json.NewEncoder(w).Encode(Assistant{AssistantID: "asst-new"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	id, err := c.EnsureAssistant(context.Background(), "user-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "asst-1" {
		t.Errorf("expected asst-1, got %q", id)
	}
	if created {
		t.Error("should not create an assistant when one exists")
	}
}

func TestEnsureAssistant_CreatesWhenMissing(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]Assistant{})
		case http.MethodPost:
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["name"] != "backboard-profile-user-7" {
				t.Errorf("assistant name = %q", body["name"])
			}
			json.NewEncoder(w).Encode(Assistant{AssistantID: "asst-new", Name: body["name"]})
		}
	}))

	id, err := c.EnsureAssistant(context.Background(), "user-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "asst-new" {
		t.Errorf("expected asst-new, got %q", id)
	}
}

func TestSendMessage_MemoryMode(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/threads/th-1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req messageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Memory != MemoryReadonly {
			t.Errorf("memory mode = %q", req.Memory)
		}
		if req.LLMProvider != "openai" || req.ModelName != "gpt-4o" {
			t.Errorf("provider/model = %q/%q", req.LLMProvider, req.ModelName)
		}
		json.NewEncoder(w).Encode(messageResponse{Content: "rewritten line"})
	}))

	reply, err := c.SendMessage(context.Background(), "th-1", "rewrite this", MemoryReadonly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "rewritten line" {
		t.Errorf("reply = %q", reply)
	}
}

func TestSendMessage_APIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
	}))

	_, err := c.SendMessage(context.Background(), "th-1", "hi", MemoryAuto)
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestAddAndDeleteMemory(t *testing.T) {
	var deleted []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if r.URL.Path != "/assistants/asst-1/memories" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["content"] != "chunk text" {
				t.Errorf("content = %v", body["content"])
			}
			meta, _ := body["metadata"].(map[string]any)
			if meta["section"] != "voiceStyle" {
				t.Errorf("metadata = %v", body["metadata"])
			}
			json.NewEncoder(w).Encode(Memory{MemoryID: "mem-1"})
		case http.MethodDelete:
			deleted = append(deleted, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	id, err := c.AddMemory(context.Background(), "asst-1", "chunk text", map[string]any{"section": "voiceStyle"})
	if err != nil {
		t.Fatalf("AddMemory: %v", err)
	}
	if id != "mem-1" {
		t.Errorf("memory id = %q", id)
	}

	if err := c.DeleteMemory(context.Background(), "asst-1", "mem-1"); err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "/assistants/asst-1/memories/mem-1" {
		t.Errorf("deleted = %v", deleted)
	}
}
