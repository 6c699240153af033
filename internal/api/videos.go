package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/recastlabs/recast/internal/auth"
	"github.com/recastlabs/recast/internal/events"
	"github.com/recastlabs/recast/internal/store"
)

const maxUploadBytes = 200 << 20

type scriptResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Script           *string   `json:"script"`
	RepurposedScript *string   `json:"repurposedScript"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func toScriptResponse(row store.ScriptRow) scriptResponse {
	return scriptResponse{
		ID:               row.ID.String(),
		Name:             row.Name,
		Script:           row.Script,
		RepurposedScript: row.RepurposedScript,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func ownerID(r *http.Request) string {
	return auth.SessionFrom(r.Context()).User.ID
}

func (s *Server) listVideos(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Scripts.ListScripts(r.Context(), ownerID(r))
	if err != nil {
		s.deps.Logger.Error("list scripts failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	resp := make([]scriptResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, toScriptResponse(row))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) createVideo(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.createFromUpload(w, r)
		return
	}
	s.createFromJSON(w, r)
}

type createVideoResponse struct {
	scriptResponse
	TranscriptionError string `json:"transcriptionError,omitempty"`
}

// createFromUpload transcribes the uploaded media and saves the script.
// A failed transcription still creates the row: the upload is the user's
// data, and losing it over a flaky upstream would be worse than a script
// they can retry later.
func (s *Server) createFromUpload(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing video file")
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = header.Filename
	}

	var script *string
	var transcriptionErr string
	text, err := s.deps.Transcriber.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		s.deps.Logger.Error("transcription failed", "name", name, "error", err)
		transcriptionErr = "transcription failed"
	} else {
		script = &text
	}

	repurposed := s.maybeRepurpose(r.Context(), owner, script)

	row, err := s.deps.Scripts.CreateScript(r.Context(), owner, name, script, repurposed)
	if err != nil {
		s.deps.Logger.Error("create script failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save video")
		return
	}

	s.publishScriptEvents(row)

	respondJSON(w, http.StatusCreated, createVideoResponse{
		scriptResponse:     toScriptResponse(row),
		TranscriptionError: transcriptionErr,
	})
}

type createVideoRequest struct {
	Name   string  `json:"name" validate:"required,notblank"`
	Script *string `json:"script"`
}

func (s *Server) createFromJSON(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	var req createVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	repurposed := s.maybeRepurpose(r.Context(), owner, req.Script)

	row, err := s.deps.Scripts.CreateScript(r.Context(), owner, strings.TrimSpace(req.Name), req.Script, repurposed)
	if err != nil {
		s.deps.Logger.Error("create script failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save video")
		return
	}

	s.publishScriptEvents(row)
	respondJSON(w, http.StatusCreated, toScriptResponse(row))
}

// maybeRepurpose rewrites the script in the owner's voice when they have a
// saved profile. Anything short of success leaves the repurposed column
// null; the original script is never at risk.
func (s *Server) maybeRepurpose(ctx context.Context, owner string, script *string) *string {
	if script == nil || s.deps.Repurposer == nil {
		return nil
	}

	prof, err := s.deps.Profiles.GetProfileByOwner(ctx, owner)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.deps.Logger.Warn("load profile for repurposing", "error", err)
		return nil
	}

	assistantID := ""
	if prof.AssistantID != nil {
		assistantID = *prof.AssistantID
	}
	out, err := s.deps.Repurposer.Repurpose(ctx, *script, prof.Answers, assistantID)
	if err != nil {
		s.deps.Logger.Warn("repurposing failed", "error", err)
		return nil
	}
	return &out
}

func (s *Server) publishScriptEvents(row store.ScriptRow) {
	event := events.ScriptEvent{
		ScriptID:   row.ID.String(),
		OwnerID:    row.OwnerID,
		Name:       row.Name,
		Repurposed: row.RepurposedScript != nil,
	}
	s.deps.Events.Publish(events.SubjectScriptCreated, event)
	if row.Script != nil {
		s.deps.Events.Publish(events.SubjectScriptTranscribed, event)
	}
}

type updateVideoRequest struct {
	Name             *string `json:"name"`
	Script           *string `json:"script"`
	RepurposedScript *string `json:"repurposedScript"`
}

func (s *Server) updateVideo(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid video id")
		return
	}

	var req updateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == nil && req.Script == nil && req.RepurposedScript == nil {
		respondError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}

	row, err := s.deps.Scripts.UpdateScript(r.Context(), ownerID(r), id, store.ScriptUpdate{
		Name:             req.Name,
		Script:           req.Script,
		RepurposedScript: req.RepurposedScript,
	})
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		s.deps.Logger.Error("update script failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update video")
		return
	}
	respondJSON(w, http.StatusOK, toScriptResponse(row))
}

func (s *Server) deleteVideo(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid video id")
		return
	}

	err = s.deps.Scripts.DeleteScript(r.Context(), ownerID(r), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		s.deps.Logger.Error("delete script failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete video")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type promptRequest struct {
	ScriptID     string `json:"scriptId" validate:"required"`
	SelectedText string `json:"selectedText" validate:"required,notblank"`
	Prompt       string `json:"prompt" validate:"required,notblank"`
}

type promptRewriteResponse struct {
	UpdatedText string `json:"updatedText"`
}

// rewriteSelection rewrites one selected passage of a script according to
// the user's instruction, via the assistant so retrieval matches their
// voice profile. The prompt itself is stored as assistant memory off the
// request path; the rewrite never waits on it.
func (s *Server) rewriteSelection(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "scriptId, selectedText, and prompt are required")
		return
	}
	scriptID, err := uuid.Parse(req.ScriptID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid script id")
		return
	}

	script, err := s.deps.Scripts.GetScriptByID(r.Context(), scriptID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "script not found")
		return
	}
	if err != nil {
		s.deps.Logger.Error("load script for prompt", "id", scriptID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load script")
		return
	}
	if script.OwnerID != owner {
		respondError(w, http.StatusForbidden, "you do not own this script")
		return
	}

	prof, err := s.deps.Profiles.GetProfileByOwner(r.Context(), owner)
	if errors.Is(err, store.ErrNotFound) || (err == nil && (prof.AssistantID == nil || *prof.AssistantID == "")) {
		respondError(w, http.StatusBadRequest, "profile not found or not indexed")
		return
	}
	if err != nil {
		s.deps.Logger.Error("load profile for prompt", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	assistantID := *prof.AssistantID

	updated, err := s.deps.Repurposer.RewriteSelection(r.Context(), assistantID, req.SelectedText, req.Prompt)
	if err != nil {
		s.deps.Logger.Error("selection rewrite failed", "script_id", scriptID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to process prompt")
		return
	}

	if s.deps.Indexer != nil {
		s.deps.Tasks.Go("store prompt memory", func(ctx context.Context) error {
			memoryID, err := s.deps.Indexer.StorePromptMemory(ctx, assistantID, req.Prompt, req.SelectedText)
			if err != nil {
				return err
			}
			if memoryID != "" {
				s.deps.Events.Publish(events.SubjectPromptStored, events.ProfileEvent{
					OwnerID:     owner,
					AssistantID: assistantID,
					MemoryCount: 1,
				})
			}
			return nil
		})
	}

	respondJSON(w, http.StatusOK, promptRewriteResponse{UpdatedText: updated})
}
