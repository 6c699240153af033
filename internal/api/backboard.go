package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/recastlabs/recast/internal/events"
	"github.com/recastlabs/recast/internal/profile"
	"github.com/recastlabs/recast/internal/store"
)

type profileResponse struct {
	Answers     profile.Answers `json:"answers"`
	AssistantID *string         `json:"assistantId"`
	Indexed     bool            `json:"indexed"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	row, err := s.deps.Profiles.GetProfileByOwner(r.Context(), ownerID(r))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		s.deps.Logger.Error("get profile failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	respondJSON(w, http.StatusOK, profileResponse{
		Answers:     row.Answers,
		AssistantID: row.AssistantID,
		Indexed:     len(row.MemoryIDs) > 0,
		UpdatedAt:   row.UpdatedAt,
	})
}

type saveProfileRequest struct {
	Answers profile.Answers `json:"answers"`
}

// saveProfile persists the onboarding answers, then re-indexes assistant
// memory: stale memories from the previous save are deleted before fresh
// chunks are written. A failed indexing run never loses the saved answers;
// the response reports indexed: false so the client can surface a retry.
func (s *Server) saveProfile(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	var req saveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	// An empty answers object must not reach the indexer: re-indexing
	// nothing deletes every stored memory.
	if req.Answers.Empty() {
		respondError(w, http.StatusBadRequest, "answers are required")
		return
	}

	row, err := s.deps.Profiles.UpsertProfile(r.Context(), owner, req.Answers)
	if err != nil {
		s.deps.Logger.Error("save profile failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	if s.deps.Indexer == nil {
		respondJSON(w, http.StatusOK, profileResponse{
			Answers:     row.Answers,
			AssistantID: row.AssistantID,
			Indexed:     false,
			UpdatedAt:   row.UpdatedAt,
		})
		return
	}

	assistantID := ""
	if row.AssistantID != nil {
		assistantID = *row.AssistantID
	}

	assistantID, memoryIDs, indexErr := s.deps.Indexer.IndexProfile(r.Context(), owner, row.Answers, assistantID, row.MemoryIDs)
	if indexErr != nil {
		s.deps.Logger.Error("profile indexing failed", "owner", owner, "error", indexErr)
	}
	if assistantID != "" {
		// Persist whatever was created, even after a partial failure, so
		// the next save can clean it up.
		if err := s.deps.Profiles.UpdateProfileIndex(r.Context(), owner, assistantID, memoryIDs); err != nil {
			s.deps.Logger.Error("persist index state failed", "owner", owner, "error", err)
		}
	}

	indexed := indexErr == nil && len(memoryIDs) > 0
	if indexed {
		s.deps.Events.Publish(events.SubjectProfileIndexed, events.ProfileEvent{
			OwnerID:     owner,
			AssistantID: assistantID,
			MemoryCount: len(memoryIDs),
		})
	}

	resp := profileResponse{
		Answers:   row.Answers,
		Indexed:   indexed,
		UpdatedAt: row.UpdatedAt,
	}
	if assistantID != "" {
		resp.AssistantID = &assistantID
	}
	respondJSON(w, http.StatusOK, resp)
}
