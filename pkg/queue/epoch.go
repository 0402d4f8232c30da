package queue

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/model"
)

// The epochs table lives in the queue database even though it is
// populated by the epoch tracker and consumed by the reward attributor.

func migrateEpochs(ctx context.Context, q *Queue) error {
	_, err := q.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS epochs (
			epoch BIGINT PRIMARY KEY,
			first_slot BIGINT NOT NULL,
			last_slot BIGINT NOT NULL,
			first_block BIGINT,
			last_block BIGINT,
			first_block_raw TEXT,
			last_block_raw TEXT,
			first_block_json JSONB,
			last_block_json JSONB,
			rewards_parsing_status INT NOT NULL DEFAULT 0
		)
	`)
	return err
}

// UpsertEpochBounds records an epoch's (first_slot, last_slot).
func (q *Queue) UpsertEpochBounds(ctx context.Context, epoch, firstSlot, lastSlot uint64) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO epochs (epoch, first_slot, last_slot) VALUES ($1, $2, $3)
		ON CONFLICT (epoch) DO UPDATE SET first_slot = EXCLUDED.first_slot, last_slot = EXCLUDED.last_slot
	`, epoch, firstSlot, lastSlot)
	if err != nil {
		return &perrors.QueueError{Op: "UpsertEpochBounds", Cause: err}
	}
	return nil
}

// EpochsMissingFirstBlock returns epochs whose first_block is still NULL.
func (q *Queue) EpochsMissingFirstBlock(ctx context.Context) ([]model.Epoch, error) {
	return q.epochsWhere(ctx, `first_block IS NULL ORDER BY epoch ASC`)
}

// EpochsMissingLastBlock returns epochs whose last_block is still NULL,
// excluding the current (most recent) epoch, since its last_slot is not
// yet final.
func (q *Queue) EpochsMissingLastBlock(ctx context.Context, currentEpoch uint64) ([]model.Epoch, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT epoch, first_slot, last_slot, first_block, last_block, first_block_raw, first_block_json, last_block_raw, last_block_json, rewards_parsing_status
		FROM epochs WHERE last_block IS NULL AND epoch < $1 ORDER BY epoch ASC
	`, currentEpoch)
	if err != nil {
		return nil, &perrors.QueueError{Op: "EpochsMissingLastBlock", Cause: err}
	}
	defer rows.Close()
	return scanEpochs(rows)
}

func (q *Queue) epochsWhere(ctx context.Context, clause string) ([]model.Epoch, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT epoch, first_slot, last_slot, first_block, last_block, first_block_raw, first_block_json, last_block_raw, last_block_json, rewards_parsing_status
		FROM epochs WHERE `+clause)
	if err != nil {
		return nil, &perrors.QueueError{Op: "epochsWhere", Cause: err}
	}
	defer rows.Close()
	return scanEpochs(rows)
}

func scanEpochs(rows pgx.Rows) ([]model.Epoch, error) {
	var out []model.Epoch
	for rows.Next() {
		var e model.Epoch
		if err := rows.Scan(&e.Epoch, &e.FirstSlot, &e.LastSlot, &e.FirstBlock, &e.LastBlock,
			&e.FirstBlockRaw, &e.FirstBlockJSON, &e.LastBlockRaw, &e.LastBlockJSON, &e.RewardsParsingStatus); err != nil {
			return nil, &perrors.QueueError{Op: "scanEpochs", Cause: err}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetFirstBlock records an epoch's first-block data.
func (q *Queue) SetFirstBlock(ctx context.Context, epoch, slot uint64, raw, typedJSON string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE epochs SET first_block = $1, first_block_raw = $2, first_block_json = $3 WHERE epoch = $4
	`, slot, raw, typedJSON, epoch)
	if err != nil {
		return &perrors.QueueError{Op: "SetFirstBlock", Cause: err}
	}
	return nil
}

// SetLastBlock records an epoch's last-block data.
func (q *Queue) SetLastBlock(ctx context.Context, epoch, slot uint64, raw, typedJSON string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE epochs SET last_block = $1, last_block_raw = $2, last_block_json = $3 WHERE epoch = $4
	`, slot, raw, typedJSON, epoch)
	if err != nil {
		return &perrors.QueueError{Op: "SetLastBlock", Cause: err}
	}
	return nil
}

// OldestReadyEpoch returns the oldest epoch whose
// first_block_json is populated, whose rewards are unprocessed, and for
// which no pending signatures remain below its first_slot.
func (q *Queue) OldestReadyEpoch(ctx context.Context) (*model.Epoch, error) {
	rows, err := q.epochsWhere(ctx, `first_block_json IS NOT NULL AND rewards_parsing_status = 0 ORDER BY epoch ASC`)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		pending, err := q.PendingSignaturesBelowSlot(ctx, rows[i].FirstSlot)
		if err != nil {
			return nil, err
		}
		if !pending {
			return &rows[i], nil
		}
	}
	return nil, nil
}

// MarkRewardsProcessed sets rewards_parsing_status = 1 for epoch.
func (q *Queue) MarkRewardsProcessed(ctx context.Context, epoch uint64) error {
	_, err := q.pool.Exec(ctx, `UPDATE epochs SET rewards_parsing_status = 1 WHERE epoch = $1`, epoch)
	if err != nil {
		return &perrors.QueueError{Op: "MarkRewardsProcessed", Cause: err}
	}
	return nil
}

// CurrentEpoch returns the highest epoch number recorded so far, or 0 if
// none.
func (q *Queue) CurrentEpoch(ctx context.Context) (uint64, error) {
	var epoch uint64
	err := q.pool.QueryRow(ctx, `SELECT COALESCE(MAX(epoch), 0) FROM epochs`).Scan(&epoch)
	if err != nil {
		return 0, &perrors.QueueError{Op: "CurrentEpoch", Cause: err}
	}
	return epoch, nil
}
