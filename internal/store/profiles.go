package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/recastlabs/recast/internal/profile"
)

// ProfileRow is a user's onboarding profile plus its memory index state.
// MemoryIDs tracks the memories currently stored for the profile so a
// re-index can delete them before writing fresh ones.
type ProfileRow struct {
	ID          uuid.UUID
	OwnerID     string
	Answers     profile.Answers
	AssistantID *string
	MemoryIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GetProfileByOwner fetches the owner's profile. Each owner has at most one.
func (s *Store) GetProfileByOwner(ctx context.Context, ownerID string) (ProfileRow, error) {
	var row ProfileRow
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, answers, assistant_id, memory_ids, created_at, updated_at
		FROM backboard_profile
		WHERE owner_id = $1`,
		ownerID,
	).Scan(&row.ID, &row.OwnerID, &row.Answers, &row.AssistantID, &row.MemoryIDs, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProfileRow{}, ErrNotFound
	}
	if err != nil {
		return ProfileRow{}, fmt.Errorf("get profile: %w", err)
	}
	return row, nil
}

// UpsertProfile writes the owner's answers, creating the row on first save.
// Index state (assistant id, memory ids) is preserved; UpdateProfileIndex
// refreshes it after indexing completes.
func (s *Store) UpsertProfile(ctx context.Context, ownerID string, answers profile.Answers) (ProfileRow, error) {
	var row ProfileRow
	err := s.pool.QueryRow(ctx, `
		INSERT INTO backboard_profile (id, owner_id, answers, memory_ids, created_at, updated_at)
		VALUES ($1, $2, $3, '{}', now(), now())
		ON CONFLICT (owner_id)
		DO UPDATE SET answers = EXCLUDED.answers, updated_at = now()
		RETURNING id, owner_id, answers, assistant_id, memory_ids, created_at, updated_at`,
		uuid.New(), ownerID, answers,
	).Scan(&row.ID, &row.OwnerID, &row.Answers, &row.AssistantID, &row.MemoryIDs, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return ProfileRow{}, fmt.Errorf("upsert profile: %w", err)
	}
	return row, nil
}

// UpdateProfileIndex records the assistant and memory ids produced by an
// indexing run.
func (s *Store) UpdateProfileIndex(ctx context.Context, ownerID, assistantID string, memoryIDs []string) error {
	if memoryIDs == nil {
		memoryIDs = []string{}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE backboard_profile
		SET assistant_id = $2, memory_ids = $3, updated_at = now()
		WHERE owner_id = $1`,
		ownerID, assistantID, memoryIDs,
	)
	if err != nil {
		return fmt.Errorf("update profile index: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
