package backboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/recastlabs/recast/internal/profile"
)

// Indexer pushes a creator's profile answers into assistant memory as
// per-section semantic chunks.
type Indexer struct {
	client *Client
	logger *slog.Logger
}

func NewIndexer(client *Client, logger *slog.Logger) *Indexer {
	return &Indexer{client: client, logger: logger}
}

// IndexProfile ensures the user's assistant exists, deletes the stale
// memories left over from the previous save, and indexes the current
// answers. Stale deletions are best-effort: a memory that is already gone
// is logged and skipped. Returns the assistant id and the ids of every
// memory created; on error the returned ids cover what was created before
// the failure, so the caller can persist them for the next cleanup pass.
func (ix *Indexer) IndexProfile(ctx context.Context, userID string, answers profile.Answers, assistantID string, staleMemoryIDs []string) (string, []string, error) {
	if assistantID == "" {
		id, err := ix.client.EnsureAssistant(ctx, userID)
		if err != nil {
			return "", nil, fmt.Errorf("ensure assistant: %w", err)
		}
		assistantID = id
	}

	for _, memoryID := range staleMemoryIDs {
		if err := ix.client.DeleteMemory(ctx, assistantID, memoryID); err != nil {
			ix.logger.Warn("failed to delete stale memory",
				"assistant_id", assistantID,
				"memory_id", memoryID,
				"error", err,
			)
		}
	}

	var memoryIDs []string
	for _, chunk := range profile.BuildChunks(answers) {
		memoryID, err := ix.client.AddMemory(ctx, assistantID, chunk.Content, chunk.Metadata)
		if err != nil {
			return assistantID, memoryIDs, fmt.Errorf("index chunk %v: %w", chunk.Metadata["section"], err)
		}
		memoryIDs = append(memoryIDs, memoryID)
	}

	ix.logger.Info("profile indexed",
		"assistant_id", assistantID,
		"memories", len(memoryIDs),
		"stale_deleted", len(staleMemoryIDs),
	)
	return assistantID, memoryIDs, nil
}

// StorePromptMemory records a user's editing prompt as a future memory so
// recurring instructions shape later retrieval. Trivial prompts are not
// worth remembering and return without a call. Returns the memory id, or
// "" when the prompt was skipped.
func (ix *Indexer) StorePromptMemory(ctx context.Context, assistantID, prompt, selectedText string) (string, error) {
	if len(strings.Fields(prompt)) < 3 {
		return "", nil
	}

	content := fmt.Sprintf("EDITING INSTRUCTION the creator gave for their script:\n%s\n\nApplied to this passage:\n%s", prompt, selectedText)
	memoryID, err := ix.client.AddMemory(ctx, assistantID, content, map[string]any{"type": "user_prompt"})
	if err != nil {
		return "", fmt.Errorf("store prompt memory: %w", err)
	}
	return memoryID, nil
}
