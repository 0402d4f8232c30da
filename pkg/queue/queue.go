// Package queue implements the relational queue: signature lifecycle,
// encoded-transaction bodies, the opaque JSON resume cursor, and the
// stake→vote binding cache, all over a pgxpool-backed PostgreSQL pool.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/model"
)

// Queue wraps a pgx connection pool and implements the four relational
// tables: signatures, transactions, downloading_statuses,
// delegations.
type Queue struct {
	pool *pgxpool.Pool
}

func Connect(ctx context.Context, databaseURL string) (*Queue, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse queue database url: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create queue pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping queue: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		return nil, fmt.Errorf("migrate queue: %w", err)
	}
	q := &Queue{pool: pool}
	if err := migrateEpochs(ctx, q); err != nil {
		return nil, fmt.Errorf("migrate epochs: %w", err)
	}
	return q, nil
}

func (q *Queue) Close() { q.pool.Close() }

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signatures (
			program TEXT NOT NULL,
			signature TEXT NOT NULL,
			slot BIGINT NOT NULL,
			block_time BIGINT,
			err TEXT NOT NULL DEFAULT '',
			loading_status INT NOT NULL DEFAULT 0,
			potential_gap_start BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (program, signature)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signatures_status_slot ON signatures (loading_status, slot DESC)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			signature TEXT PRIMARY KEY,
			slot BIGINT NOT NULL,
			block_time BIGINT,
			encoded_tx TEXT NOT NULL,
			parsing_status INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS downloading_statuses (
			id SERIAL PRIMARY KEY,
			key TEXT UNIQUE NOT NULL,
			downloading_status TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS delegations (
			stake_acc TEXT PRIMARY KEY,
			vote_acc TEXT
		)`,
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSignatureBatch persists a batch of signature rows and the resume
// cursor atomically. The first row's gap marker is cleared
// and the last row's is set, overwriting any older marker.
func (q *Queue) UpsertSignatureBatch(ctx context.Context, program string, rows []model.Signature, cursorKey string, cursor model.ResumeCursor) error {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return &perrors.QueueError{Op: "UpsertSignatureBatch.Begin", Cause: err}
	}
	defer tx.Rollback(ctx)

	for i := range rows {
		rows[i].PotentialGapStart = i == len(rows)-1
		if i == 0 {
			rows[i].PotentialGapStart = false
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO signatures (program, signature, slot, block_time, err, loading_status, potential_gap_start)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (program, signature) DO UPDATE SET
				slot = EXCLUDED.slot, block_time = EXCLUDED.block_time, err = EXCLUDED.err,
				potential_gap_start = EXCLUDED.potential_gap_start
		`, rows[i].Program, rows[i].Signature, rows[i].Slot, rows[i].BlockTime, rows[i].Err,
			rows[i].LoadingStatus, rows[i].PotentialGapStart)
		if err != nil {
			return &perrors.QueueError{Op: "UpsertSignatureBatch.Insert", Cause: err}
		}
	}

	encoded, err := json.Marshal(cursor)
	if err != nil {
		return &perrors.QueueError{Op: "UpsertSignatureBatch.MarshalCursor", Cause: err}
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO downloading_statuses (key, downloading_status) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET downloading_status = EXCLUDED.downloading_status
	`, cursorKey, string(encoded)); err != nil {
		return &perrors.QueueError{Op: "UpsertSignatureBatch.Cursor", Cause: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &perrors.QueueError{Op: "UpsertSignatureBatch.Commit", Cause: err}
	}
	return nil
}

// LoadCursor returns the persisted resume cursor for key, or the zero value
// if none has been written yet.
func (q *Queue) LoadCursor(ctx context.Context, key string) (model.ResumeCursor, error) {
	var encoded string
	err := q.pool.QueryRow(ctx, `SELECT downloading_status FROM downloading_statuses WHERE key = $1`, key).Scan(&encoded)
	if err == pgx.ErrNoRows {
		return model.ResumeCursor{}, nil
	}
	if err != nil {
		return model.ResumeCursor{}, &perrors.QueueError{Op: "LoadCursor", Cause: err}
	}
	var cursor model.ResumeCursor
	if err := json.Unmarshal([]byte(encoded), &cursor); err != nil {
		return model.ResumeCursor{}, &perrors.QueueError{Op: "LoadCursor.Unmarshal", Cause: err}
	}
	return cursor, nil
}

// ClaimSignature atomically claims one pending signature, head-first.
func (q *Queue) ClaimSignature(ctx context.Context, onlySuccessful bool) (*model.Signature, error) {
	filter := ""
	if onlySuccessful {
		filter = "AND err = ''"
	}
	row := q.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE signatures SET loading_status = %d
		WHERE (program, signature) = (
			SELECT program, signature FROM signatures
			WHERE loading_status = %d %s
			ORDER BY slot DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING program, signature, slot, block_time, err, loading_status, potential_gap_start
	`, model.LoadingStatusClaimed, model.LoadingStatusPending, filter))

	var s model.Signature
	err := row.Scan(&s.Program, &s.Signature, &s.Slot, &s.BlockTime, &s.Err, &s.LoadingStatus, &s.PotentialGapStart)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &perrors.QueueError{Op: "ClaimSignature", Cause: err}
	}
	return &s, nil
}

// StoreTransaction persists the encoded transaction body and marks the
// signature fetched.
func (q *Queue) StoreTransaction(ctx context.Context, program string, row model.TransactionQueueRow) error {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return &perrors.QueueError{Op: "StoreTransaction.Begin", Cause: err}
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (signature, slot, block_time, encoded_tx, parsing_status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (signature) DO UPDATE SET encoded_tx = EXCLUDED.encoded_tx
	`, row.Signature, row.Slot, row.BlockTime, row.EncodedTx, row.ParsingStatus); err != nil {
		return &perrors.QueueError{Op: "StoreTransaction.Insert", Cause: err}
	}
	if _, err := tx.Exec(ctx, `UPDATE signatures SET loading_status = $1 WHERE program = $2 AND signature = $3`,
		model.LoadingStatusFetched, program, row.Signature); err != nil {
		return &perrors.QueueError{Op: "StoreTransaction.MarkFetched", Cause: err}
	}
	return tx.Commit(ctx)
}

// MarkFaulty marks a signature unrecoverable.
func (q *Queue) MarkFaulty(ctx context.Context, program, signature string) error {
	_, err := q.pool.Exec(ctx, `UPDATE signatures SET loading_status = $1 WHERE program = $2 AND signature = $3`,
		model.LoadingStatusFaulty, program, signature)
	if err != nil {
		return &perrors.QueueError{Op: "MarkFaulty", Cause: err}
	}
	return nil
}

// ResetFaulty re-enqueues faulty signatures; the janitor's periodic pass.
func (q *Queue) ResetFaulty(ctx context.Context) (int64, error) {
	tag, err := q.pool.Exec(ctx, `UPDATE signatures SET loading_status = $1 WHERE loading_status = $2`,
		model.LoadingStatusPending, model.LoadingStatusFaulty)
	if err != nil {
		return 0, &perrors.QueueError{Op: "ResetFaulty", Cause: err}
	}
	return tag.RowsAffected(), nil
}

// ResetClaimed resets claimed → pending on startup, recovering from a crash
// mid-claim.
func (q *Queue) ResetClaimed(ctx context.Context) (int64, error) {
	tag, err := q.pool.Exec(ctx, `UPDATE signatures SET loading_status = $1 WHERE loading_status = $2`,
		model.LoadingStatusPending, model.LoadingStatusClaimed)
	if err != nil {
		return 0, &perrors.QueueError{Op: "ResetClaimed", Cause: err}
	}
	return tag.RowsAffected(), nil
}

// ClaimUnparsedTransaction claims one unparsed transaction row for the
// parser to consume.
func (q *Queue) ClaimUnparsedTransaction(ctx context.Context) (*model.TransactionQueueRow, error) {
	row := q.pool.QueryRow(ctx, `
		UPDATE transactions SET parsing_status = $1
		WHERE signature = (
			SELECT signature FROM transactions WHERE parsing_status = $2
			ORDER BY slot DESC LIMIT 1 FOR UPDATE SKIP LOCKED
		)
		RETURNING signature, slot, block_time, encoded_tx, parsing_status
	`, model.ParsingStatusParsed, model.ParsingStatusUnparsed)

	var t model.TransactionQueueRow
	err := row.Scan(&t.Signature, &t.Slot, &t.BlockTime, &t.EncodedTx, &t.ParsingStatus)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &perrors.QueueError{Op: "ClaimUnparsedTransaction", Cause: err}
	}
	return &t, nil
}

// GetBinding looks up the current-best-known vote account for stakeAcc.
func (q *Queue) GetBinding(ctx context.Context, stakeAcc string) (*string, error) {
	var voteAcc *string
	err := q.pool.QueryRow(ctx, `SELECT vote_acc FROM delegations WHERE stake_acc = $1`, stakeAcc).Scan(&voteAcc)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &perrors.QueueError{Op: "GetBinding", Cause: err}
	}
	return voteAcc, nil
}

// GetBindings batch-looks-up the current-best-known vote account for each of
// stakeAccs, mirroring the original's batched get_delegations call used to
// seed the delegation analyzer's working map before it walks one
// transaction's instructions.
func (q *Queue) GetBindings(ctx context.Context, stakeAccs []string) (map[string]*string, error) {
	out := make(map[string]*string, len(stakeAccs))
	if len(stakeAccs) == 0 {
		return out, nil
	}
	rows, err := q.pool.Query(ctx, `SELECT stake_acc, vote_acc FROM delegations WHERE stake_acc = ANY($1)`, stakeAccs)
	if err != nil {
		return nil, &perrors.QueueError{Op: "GetBindings", Cause: err}
	}
	defer rows.Close()
	for rows.Next() {
		var stakeAcc string
		var voteAcc *string
		if err := rows.Scan(&stakeAcc, &voteAcc); err != nil {
			return nil, &perrors.QueueError{Op: "GetBindings.Scan", Cause: err}
		}
		out[stakeAcc] = voteAcc
	}
	if err := rows.Err(); err != nil {
		return nil, &perrors.QueueError{Op: "GetBindings.Rows", Cause: err}
	}
	return out, nil
}

// UpsertBindings replaces the vote_acc column only, on conflict.
func (q *Queue) UpsertBindings(ctx context.Context, bindings map[string]*string) error {
	if len(bindings) == 0 {
		return nil
	}
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return &perrors.QueueError{Op: "UpsertBindings.Begin", Cause: err}
	}
	defer tx.Rollback(ctx)

	for stakeAcc, voteAcc := range bindings {
		if _, err := tx.Exec(ctx, `
			INSERT INTO delegations (stake_acc, vote_acc) VALUES ($1, $2)
			ON CONFLICT (stake_acc) DO UPDATE SET vote_acc = EXCLUDED.vote_acc
		`, stakeAcc, voteAcc); err != nil {
			return &perrors.QueueError{Op: "UpsertBindings.Insert", Cause: err}
		}
	}
	return tx.Commit(ctx)
}

// PendingSignaturesBelowSlot reports whether any signature with slot below
// maxSlot is still outstanding (not fetched/faulty) — used by the reward
// attributor's gating invariant before it claims an epoch.
func (q *Queue) PendingSignaturesBelowSlot(ctx context.Context, maxSlot uint64) (bool, error) {
	var exists bool
	err := q.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM signatures
			WHERE slot < $1 AND loading_status NOT IN ($2, $3)
		)
	`, maxSlot, model.LoadingStatusFetched, model.LoadingStatusFaulty).Scan(&exists)
	if err != nil {
		return false, &perrors.QueueError{Op: "PendingSignaturesBelowSlot", Cause: err}
	}
	return exists, nil
}
