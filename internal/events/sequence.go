package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SequenceDB matches the single method the sequence repository needs from
// *pgxpool.Pool.
type SequenceDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type SequenceRepository interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type sequenceRepository struct {
	db SequenceDB
}

func NewSequenceRepository(db SequenceDB) SequenceRepository {
	return &sequenceRepository{db: db}
}

// NextSequence increments and returns the partition's counter. The upsert
// is a single statement, so concurrent publishers never hand out the same
// sequence number.
func (r *sequenceRepository) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, fmt.Errorf("partition key is required")
	}

	const query = `
INSERT INTO event_sequences (partition_key, last_sequence, updated_at)
VALUES ($1, 1, NOW())
ON CONFLICT (partition_key) DO UPDATE
SET last_sequence = event_sequences.last_sequence + 1,
    updated_at = NOW()
RETURNING last_sequence`

	var next int64
	if err := r.db.QueryRow(ctx, query, partitionKey).Scan(&next); err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}

	return next, nil
}
