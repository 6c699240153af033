package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetProfile_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/backboard", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetProfile_ReturnsIndexState(t *testing.T) {
	env := newTestEnv(t)
	seedProfile(env, "asst-1", []string{"mem-1"})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/backboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Indexed {
		t.Error("indexed = false, want true")
	}
	if resp.AssistantID == nil || *resp.AssistantID != "asst-1" {
		t.Errorf("assistantId = %v", resp.AssistantID)
	}
	if resp.Answers.WhoYouAre == nil || resp.Answers.WhoYouAre.Bio != "Indie hacker" {
		t.Errorf("answers = %+v", resp.Answers)
	}
}

func TestSaveProfile_IndexesSynchronously(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"answers": map[string]any{
			"whoYouAre": map[string]any{"bio": "Solo founder"},
		},
	}
	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/backboard", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp profileResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Indexed {
		t.Error("indexed = false, want true")
	}
	if resp.AssistantID == nil || *resp.AssistantID != "asst-1" {
		t.Errorf("assistantId = %v", resp.AssistantID)
	}

	env.profiles.mu.Lock()
	defer env.profiles.mu.Unlock()
	if len(env.profiles.indexUpdates) != 1 {
		t.Fatalf("index updates = %d, want 1", len(env.profiles.indexUpdates))
	}
	if got := env.profiles.indexUpdates[0].memoryIDs; len(got) != 2 {
		t.Errorf("persisted memory ids = %v", got)
	}
}

func TestSaveProfile_ResavePassesStaleMemories(t *testing.T) {
	env := newTestEnv(t)
	seedProfile(env, "asst-1", []string{"mem-old-1", "mem-old-2"})

	body := map[string]any{
		"answers": map[string]any{
			"whoYouAre": map[string]any{"bio": "Updated bio"},
		},
	}
	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/backboard", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	env.indexer.mu.Lock()
	defer env.indexer.mu.Unlock()
	if len(env.indexer.gotStale) != 2 {
		t.Errorf("stale ids passed to indexer = %v, want the previous two", env.indexer.gotStale)
	}
}

func TestSaveProfile_IndexFailureStillSaves(t *testing.T) {
	env := newTestEnv(t)
	env.indexer.indexErr = errors.New("backboard down")

	body := map[string]any{
		"answers": map[string]any{
			"whoYouAre": map[string]any{"bio": "Solo founder"},
		},
	}
	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/backboard", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with degraded index, body %s", rec.Code, rec.Body.String())
	}

	var resp profileResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Indexed {
		t.Error("indexed = true after index failure")
	}
	if env.profiles.row == nil || env.profiles.row.Answers.WhoYouAre == nil {
		t.Error("answers not saved despite index failure")
	}
}

func TestSaveProfile_EmptyAnswersRejected(t *testing.T) {
	env := newTestEnv(t)
	seedProfile(env, "asst-1", []string{"mem-1", "mem-2"})

	for _, body := range []map[string]any{
		{},
		{"answers": map[string]any{}},
		{"answers": map[string]any{"whoYouAre": map[string]any{"bio": "   "}}},
	} {
		rec := env.do(jsonRequest(http.MethodPost, "/api/v1/backboard", body))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %v: status = %d, want 400", body, rec.Code)
		}
	}

	// The rejected save must not have touched the index.
	env.indexer.mu.Lock()
	if env.indexer.gotStale != nil {
		t.Error("indexer invoked for an empty save")
	}
	env.indexer.mu.Unlock()
	env.profiles.mu.Lock()
	defer env.profiles.mu.Unlock()
	if len(env.profiles.row.MemoryIDs) != 2 {
		t.Errorf("memory ids = %v, want untouched", env.profiles.row.MemoryIDs)
	}
}

func TestSaveProfile_MalformedSectionDegrades(t *testing.T) {
	env := newTestEnv(t)

	// whoYouAre is not an object; it must drop out rather than fail the save.
	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/backboard", map[string]any{
		"answers": map[string]any{
			"whoYouAre":  "not an object",
			"whyProduct": map[string]any{"experiences": "Years of slow editing"},
		},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp profileResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Answers.WhoYouAre != nil {
		t.Errorf("malformed section kept: %+v", resp.Answers.WhoYouAre)
	}
	if resp.Answers.WhyProduct == nil {
		t.Error("valid section dropped")
	}
}
