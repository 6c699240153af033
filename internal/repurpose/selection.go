package repurpose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/recastlabs/recast/internal/backboard"
)

// ErrNoAssistant is returned when a selection rewrite is requested without
// a configured assistant backend.
var ErrNoAssistant = errors.New("assistant backend not configured")

const selectionPrompt = `The user has selected this text from their script:
"%s"

User's request: %s

Please modify the selected text according to the user's request. Use the creator's profile information (retrieved via RAG) to ensure the modification matches their voice and style. Return ONLY the modified text, nothing else.`

// RewriteSelection rewrites one selected passage according to the user's
// editing instruction, on a fresh thread scoped to their assistant so
// retrieval pulls their voice profile. An empty reply falls back to the
// selection unchanged.
func (s *Service) RewriteSelection(ctx context.Context, assistantID, selectedText, prompt string) (string, error) {
	if s.bb == nil || assistantID == "" {
		return "", ErrNoAssistant
	}

	threadID, err := s.bb.CreateThread(ctx, assistantID)
	if err != nil {
		return "", fmt.Errorf("open rewrite thread: %w", err)
	}

	reply, err := s.bb.SendMessage(ctx, threadID, fmt.Sprintf(selectionPrompt, selectedText, prompt), backboard.MemoryReadonly)
	if err != nil {
		return "", fmt.Errorf("rewrite selection: %w", err)
	}

	updated := strings.TrimSpace(reply)
	if updated == "" {
		return selectedText, nil
	}
	return updated, nil
}
