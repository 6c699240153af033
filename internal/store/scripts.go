package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ScriptRow is one video script. Script and RepurposedScript are nullable:
// a row exists from the moment of upload, before transcription finishes or
// repurposing runs.
type ScriptRow struct {
	ID               uuid.UUID
	Name             string
	Script           *string
	RepurposedScript *string
	OwnerID          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ListScripts returns the owner's scripts, newest first.
func (s *Store) ListScripts(ctx context.Context, ownerID string) ([]ScriptRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, script, repurposed_script, owner_id, created_at, updated_at
		FROM video_script
		WHERE owner_id = $1
		ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	defer rows.Close()

	var scripts []ScriptRow
	for rows.Next() {
		var row ScriptRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Script, &row.RepurposedScript, &row.OwnerID, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		scripts = append(scripts, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	return scripts, nil
}

// CreateScript inserts a new script row and returns it with the generated
// id and timestamps.
func (s *Store) CreateScript(ctx context.Context, ownerID, name string, script, repurposed *string) (ScriptRow, error) {
	row := ScriptRow{
		ID:               uuid.New(),
		Name:             name,
		Script:           script,
		RepurposedScript: repurposed,
		OwnerID:          ownerID,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO video_script (id, name, script, repurposed_script, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at`,
		row.ID, row.Name, row.Script, row.RepurposedScript, row.OwnerID,
	).Scan(&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return ScriptRow{}, fmt.Errorf("insert script: %w", err)
	}
	return row, nil
}

// GetScript fetches one script, scoped to its owner.
func (s *Store) GetScript(ctx context.Context, ownerID string, id uuid.UUID) (ScriptRow, error) {
	var row ScriptRow
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, script, repurposed_script, owner_id, created_at, updated_at
		FROM video_script
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&row.ID, &row.Name, &row.Script, &row.RepurposedScript, &row.OwnerID, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ScriptRow{}, ErrNotFound
	}
	if err != nil {
		return ScriptRow{}, fmt.Errorf("get script: %w", err)
	}
	return row, nil
}

// GetScriptByID fetches one script regardless of owner. Callers that must
// distinguish "missing" from "not yours" use this and compare OwnerID
// themselves; everything else goes through the owner-scoped GetScript.
func (s *Store) GetScriptByID(ctx context.Context, id uuid.UUID) (ScriptRow, error) {
	var row ScriptRow
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, script, repurposed_script, owner_id, created_at, updated_at
		FROM video_script
		WHERE id = $1`,
		id,
	).Scan(&row.ID, &row.Name, &row.Script, &row.RepurposedScript, &row.OwnerID, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ScriptRow{}, ErrNotFound
	}
	if err != nil {
		return ScriptRow{}, fmt.Errorf("get script: %w", err)
	}
	return row, nil
}

// ScriptUpdate carries the PATCH fields. Nil pointers leave the column
// untouched.
type ScriptUpdate struct {
	Name             *string
	Script           *string
	RepurposedScript *string
}

// UpdateScript applies a partial update, scoped to the owner, and returns
// the updated row.
func (s *Store) UpdateScript(ctx context.Context, ownerID string, id uuid.UUID, update ScriptUpdate) (ScriptRow, error) {
	var row ScriptRow
	err := s.pool.QueryRow(ctx, `
		UPDATE video_script
		SET name = COALESCE($3, name),
		    script = COALESCE($4, script),
		    repurposed_script = COALESCE($5, repurposed_script),
		    updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING id, name, script, repurposed_script, owner_id, created_at, updated_at`,
		id, ownerID, update.Name, update.Script, update.RepurposedScript,
	).Scan(&row.ID, &row.Name, &row.Script, &row.RepurposedScript, &row.OwnerID, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ScriptRow{}, ErrNotFound
	}
	if err != nil {
		return ScriptRow{}, fmt.Errorf("update script: %w", err)
	}
	return row, nil
}

// DeleteScript removes one script, scoped to the owner.
func (s *Store) DeleteScript(ctx context.Context, ownerID string, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM video_script
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete script: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
