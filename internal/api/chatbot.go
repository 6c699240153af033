package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/recastlabs/recast/internal/store"
)

type initChatResponse struct {
	ThreadID    string `json:"threadId"`
	AssistantID string `json:"assistantId"`
}

// initChat opens an editing session. The thread is anchored to the user's
// profile assistant when one exists so retrieval sees their voice profile;
// otherwise a fresh assistant is provisioned on the fly.
func (s *Server) initChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.Relay == nil {
		respondError(w, http.StatusServiceUnavailable, "assistant backend not configured")
		return
	}
	owner := ownerID(r)

	assistantID := ""
	prof, err := s.deps.Profiles.GetProfileByOwner(r.Context(), owner)
	hasProfile := err == nil
	if hasProfile && prof.AssistantID != nil {
		assistantID = *prof.AssistantID
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.deps.Logger.Error("load profile for chat", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	threadID, resolvedID, err := s.deps.Relay.InitSession(r.Context(), owner, assistantID)
	if err != nil {
		s.deps.Logger.Error("init chat session failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to start chat session")
		return
	}

	// Remember a just-provisioned assistant on the profile so later saves
	// and sessions reuse it.
	if hasProfile && assistantID == "" {
		if err := s.deps.Profiles.UpdateProfileIndex(r.Context(), owner, resolvedID, prof.MemoryIDs); err != nil {
			s.deps.Logger.Warn("persist assistant id failed", "error", err)
		}
	}

	respondJSON(w, http.StatusOK, initChatResponse{ThreadID: threadID, AssistantID: resolvedID})
}

type chatMessageRequest struct {
	ThreadID string `json:"threadId" validate:"required"`
	Message  string `json:"message" validate:"required,notblank"`
	Script   string `json:"script" validate:"required"`
}

type chatMessageResponse struct {
	Reply         string `json:"reply"`
	SuggestedEdit string `json:"suggestedEdit,omitempty"`
}

func (s *Server) chatMessage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Relay == nil {
		respondError(w, http.StatusServiceUnavailable, "assistant backend not configured")
		return
	}

	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "threadId, message, and script are required")
		return
	}

	reply, err := s.deps.Relay.Converse(r.Context(), req.ThreadID, req.Message, req.Script)
	if err != nil {
		s.deps.Logger.Error("chat message failed", "thread_id", req.ThreadID, "error", err)
		respondError(w, http.StatusInternalServerError, "assistant request failed")
		return
	}

	respondJSON(w, http.StatusOK, chatMessageResponse{
		Reply:         reply.Text,
		SuggestedEdit: reply.SuggestedEdit,
	})
}
