package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/storage"
)

// CheckpointRepository implements storage.CheckpointRepository on PostgreSQL.
type CheckpointRepository struct {
	db    *sql.DB
	table string
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a checkpoint repository over db.
// It does not own db.
func NewCheckpointRepository(db *sql.DB, opts ...Option) (*CheckpointRepository, error) {
	if db == nil {
		return nil, ErrDBRequired
	}
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &CheckpointRepository{db: db, table: s.checkpointsTable}, nil
}

// SaveCheckpoint upserts the checkpoint for its source.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	checkpoint.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %s (source_key, next_sequence, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_key) DO UPDATE SET
			next_sequence = EXCLUDED.next_sequence,
			updated_at = EXCLUDED.updated_at
	`, r.table)

	if _, err := r.db.ExecContext(ctx, query, checkpoint.SourceKey, checkpoint.NextSequence, checkpoint.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns nil, nil when no checkpoint exists for sourceKey.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, sourceKey string) (*core.Checkpoint, error) {
	query := fmt.Sprintf(`SELECT source_key, next_sequence, updated_at FROM %s WHERE source_key = $1`, r.table)

	var checkpoint core.Checkpoint
	err := r.db.QueryRowContext(ctx, query, sourceKey).Scan(&checkpoint.SourceKey, &checkpoint.NextSequence, &checkpoint.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return &checkpoint, nil
}
