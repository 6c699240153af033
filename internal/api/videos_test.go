package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/recastlabs/recast/internal/profile"
	"github.com/recastlabs/recast/internal/store"
)

func jsonRequest(method, path string, body any) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, name, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		if err := mw.WriteField("name", name); err != nil {
			t.Fatalf("write name field: %v", err)
		}
	}
	part, err := mw.CreateFormFile("video", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("fake video bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func seedProfile(env *testEnv, assistantID string, memoryIDs []string) {
	answers := profile.Answers{
		WhoYouAre: &profile.WhoYouAre{Bio: "Indie hacker"},
	}
	row := &store.ProfileRow{
		ID:        uuid.New(),
		OwnerID:   testOwner,
		Answers:   answers,
		MemoryIDs: memoryIDs,
	}
	if assistantID != "" {
		row.AssistantID = &assistantID
	}
	env.profiles.row = row
}

func TestListVideos_OwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	script := "[0:05] Hello there"
	env.scripts.CreateScript(context.Background(), testOwner, "mine.mp4", &script, nil)
	env.scripts.CreateScript(context.Background(), "someone-else", "theirs.mp4", &script, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp []scriptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("got %d videos, want 1", len(resp))
	}
	if resp[0].Name != "mine.mp4" {
		t.Errorf("name = %q, want mine.mp4", resp[0].Name)
	}
}

func TestCreateVideo_UploadWithoutProfile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(uploadRequest(t, "", "demo.mp4"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var resp createVideoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Name != "demo.mp4" {
		t.Errorf("name = %q, want filename fallback", resp.Name)
	}
	if resp.Script == nil || *resp.Script != "[0:05] Hello there" {
		t.Errorf("script = %v, want transcript", resp.Script)
	}
	if resp.RepurposedScript != nil {
		t.Errorf("repurposedScript = %v, want null without profile", resp.RepurposedScript)
	}
	if env.repurposer.calls != 0 {
		t.Errorf("repurposer called %d times without a profile", env.repurposer.calls)
	}
}

func TestCreateVideo_UploadWithProfileRepurposes(t *testing.T) {
	env := newTestEnv(t)
	seedProfile(env, "asst-1", []string{"mem-old"})

	rec := env.do(uploadRequest(t, "My video", "demo.mp4"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp createVideoResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Name != "My video" {
		t.Errorf("name = %q, want explicit name", resp.Name)
	}
	if resp.RepurposedScript == nil || *resp.RepurposedScript != "[0:05] Hey, quick one for you" {
		t.Errorf("repurposedScript = %v", resp.RepurposedScript)
	}
	if env.repurposer.gotAssistant != "asst-1" {
		t.Errorf("assistant passed to repurposer = %q", env.repurposer.gotAssistant)
	}
}

func TestCreateVideo_TranscriptionFailureStillSaves(t *testing.T) {
	env := newTestEnv(t)
	env.transcriber.err = errors.New("whisper down")

	rec := env.do(uploadRequest(t, "", "demo.mp4"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp createVideoResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Script != nil {
		t.Errorf("script = %v, want null", resp.Script)
	}
	if resp.TranscriptionError == "" {
		t.Error("expected transcriptionError in response")
	}
	if len(env.scripts.rows) != 1 {
		t.Errorf("rows = %d, want the row saved anyway", len(env.scripts.rows))
	}
}

func TestCreateVideo_RepurposeFailureKeepsOriginal(t *testing.T) {
	env := newTestEnv(t)
	seedProfile(env, "asst-1", nil)
	env.repurposer.err = errors.New("llm down")

	rec := env.do(uploadRequest(t, "", "demo.mp4"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp createVideoResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Script == nil {
		t.Error("original script lost on repurpose failure")
	}
	if resp.RepurposedScript != nil {
		t.Errorf("repurposedScript = %v, want null on failure", resp.RepurposedScript)
	}
}

func TestCreateVideo_JSONBody(t *testing.T) {
	env := newTestEnv(t)
	script := "[0:05] Hello there"

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/videos", map[string]any{
		"name":   "pasted.mp4",
		"script": script,
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var resp scriptResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Script == nil || *resp.Script != script {
		t.Errorf("script = %v", resp.Script)
	}
}

func TestCreateVideo_JSONMissingName(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/videos", map[string]any{"script": "text"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateVideo_Rename(t *testing.T) {
	env := newTestEnv(t)
	script := "[0:05] Hello there"
	row, _ := env.scripts.CreateScript(context.Background(), testOwner, "old.mp4", &script, nil)

	rec := env.do(jsonRequest(http.MethodPatch, "/api/v1/videos/"+row.ID.String(), map[string]any{"name": "new.mp4"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp scriptResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Name != "new.mp4" {
		t.Errorf("name = %q, want new.mp4", resp.Name)
	}
	if resp.Script == nil || *resp.Script != script {
		t.Errorf("script changed by rename: %v", resp.Script)
	}
}

func TestUpdateVideo_EmptyNameRejected(t *testing.T) {
	env := newTestEnv(t)
	row, _ := env.scripts.CreateScript(context.Background(), testOwner, "old.mp4", nil, nil)

	rec := env.do(jsonRequest(http.MethodPatch, "/api/v1/videos/"+row.ID.String(), map[string]any{"name": "   "}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateVideo_NoFields(t *testing.T) {
	env := newTestEnv(t)
	row, _ := env.scripts.CreateScript(context.Background(), testOwner, "old.mp4", nil, nil)

	rec := env.do(jsonRequest(http.MethodPatch, "/api/v1/videos/"+row.ID.String(), map[string]any{}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateVideo_ForeignOwnerIs404(t *testing.T) {
	env := newTestEnv(t)
	row, _ := env.scripts.CreateScript(context.Background(), "someone-else", "theirs.mp4", nil, nil)

	rec := env.do(jsonRequest(http.MethodPatch, "/api/v1/videos/"+row.ID.String(), map[string]any{"name": "mine-now"}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateVideo_BadID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPatch, "/api/v1/videos/not-a-uuid", map[string]any{"name": "x"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteVideo(t *testing.T) {
	env := newTestEnv(t)
	row, _ := env.scripts.CreateScript(context.Background(), testOwner, "old.mp4", nil, nil)

	rec := env.do(httptest.NewRequest(http.MethodDelete, "/api/v1/videos/"+row.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(env.scripts.rows) != 0 {
		t.Errorf("rows = %d after delete, want 0", len(env.scripts.rows))
	}

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/v1/videos/"+row.ID.String(), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestRewriteSelection_ReturnsUpdatedText(t *testing.T) {
	env := newTestEnv(t)
	seedProfile(env, "asst-1", nil)
	script := "[0:05] Hello there"
	row, _ := env.scripts.CreateScript(context.Background(), testOwner, "demo.mp4", &script, nil)

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/videos/prompt", map[string]any{
		"scriptId":     row.ID.String(),
		"selectedText": "[0:05] Hello there",
		"prompt":       "make the hook punchier",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp promptRewriteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.UpdatedText != "[0:05] Rewritten selection" {
		t.Errorf("updatedText = %q", resp.UpdatedText)
	}

	env.repurposer.mu.Lock()
	if env.repurposer.gotAssistant != "asst-1" {
		t.Errorf("assistant = %q", env.repurposer.gotAssistant)
	}
	if env.repurposer.gotSelected != "[0:05] Hello there" {
		t.Errorf("selected text = %q", env.repurposer.gotSelected)
	}
	env.repurposer.mu.Unlock()

	// The prompt is stored as a memory off the request path.
	env.runner.Wait()
	env.indexer.mu.Lock()
	defer env.indexer.mu.Unlock()
	if len(env.indexer.prompts) != 1 {
		t.Fatalf("prompt stores = %d, want 1", len(env.indexer.prompts))
	}
	if !strings.Contains(env.indexer.prompts[0].prompt, "punchier") {
		t.Errorf("stored prompt = %q", env.indexer.prompts[0].prompt)
	}
}

func TestRewriteSelection_UnindexedProfileIs400(t *testing.T) {
	env := newTestEnv(t)
	script := "[0:05] Hello there"
	row, _ := env.scripts.CreateScript(context.Background(), testOwner, "demo.mp4", &script, nil)

	body := map[string]any{
		"scriptId":     row.ID.String(),
		"selectedText": "[0:05] Hello there",
		"prompt":       "make the hook punchier",
	}

	// No profile at all.
	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/videos/prompt", body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without a profile", rec.Code)
	}

	// Profile saved but never indexed.
	seedProfile(env, "", nil)
	rec = env.do(jsonRequest(http.MethodPost, "/api/v1/videos/prompt", body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unindexed profile", rec.Code)
	}
}

func TestRewriteSelection_UnknownScriptIs404(t *testing.T) {
	env := newTestEnv(t)
	seedProfile(env, "asst-1", nil)

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/videos/prompt", map[string]any{
		"scriptId":     uuid.NewString(),
		"selectedText": "text",
		"prompt":       "make it better",
	}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRewriteSelection_ForeignOwnerIs403(t *testing.T) {
	env := newTestEnv(t)
	seedProfile(env, "asst-1", nil)
	script := "[0:05] Theirs"
	row, _ := env.scripts.CreateScript(context.Background(), "someone-else", "theirs.mp4", &script, nil)

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/videos/prompt", map[string]any{
		"scriptId":     row.ID.String(),
		"selectedText": "[0:05] Theirs",
		"prompt":       "make it mine",
	}))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	env.indexer.mu.Lock()
	defer env.indexer.mu.Unlock()
	if len(env.indexer.prompts) != 0 {
		t.Error("prompt stored despite rejected request")
	}
}

func TestRewriteSelection_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/videos/prompt", map[string]any{"selectedText": "x"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRewriteSelection_UpstreamFailureIs500(t *testing.T) {
	env := newTestEnv(t)
	seedProfile(env, "asst-1", nil)
	env.repurposer.rewriteErr = errors.New("backboard down")
	script := "[0:05] Hello there"
	row, _ := env.scripts.CreateScript(context.Background(), testOwner, "demo.mp4", &script, nil)

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/videos/prompt", map[string]any{
		"scriptId":     row.ID.String(),
		"selectedText": "[0:05] Hello there",
		"prompt":       "make the hook punchier",
	}))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
