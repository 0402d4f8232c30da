// Package cursor implements the signature cursor: one independent task
// per watched program address, sweeping getSignaturesForAddress backward
// from the chain tip and persisting both the discovered signatures and the
// resume cursor atomically, grounded on
// original_source/signature_collector's before/until sweep logic.
package cursor

import (
	"context"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/gohnnyman/solindexer/internal/metrics"
	"github.com/gohnnyman/solindexer/internal/retry"
	"github.com/gohnnyman/solindexer/pkg/model"
	"github.com/gohnnyman/solindexer/pkg/solanarpc"
)

// minBatchSize is the floor on the configured batch limit, since the sweep
// needs at least a penultimate element to set cursor.before.
const minBatchSize = 2

// Store is the subset of pkg/queue.Queue the cursor needs.
type Store interface {
	UpsertSignatureBatch(ctx context.Context, program string, rows []model.Signature, cursorKey string, cursor model.ResumeCursor) error
	LoadCursor(ctx context.Context, key string) (model.ResumeCursor, error)
}

// Cursor sweeps one watched account's signature history.
type Cursor struct {
	log     *slog.Logger
	rpc     solanarpc.Fetcher
	store   Store
	account solana.PublicKey
	limit   int
}

// New constructs a Cursor for one watched account. limit is clamped up to
// minBatchSize.
func New(log *slog.Logger, rpc solanarpc.Fetcher, store Store, account solana.PublicKey, limit int) *Cursor {
	if limit < minBatchSize {
		limit = minBatchSize
	}
	return &Cursor{log: log, rpc: rpc, store: store, account: account, limit: limit}
}

// Run loops tick forever until ctx is cancelled.
func (c *Cursor) Run(ctx context.Context) {
	program := c.account.String()
	metrics.ActiveWorkersCount.WithLabelValues("signature_cursor").Inc()
	defer metrics.ActiveWorkersCount.WithLabelValues("signature_cursor").Dec()

	backoffRamp := retry.NewLinearRamp()
	for {
		start := time.Now()
		advanced, err := c.tick(ctx, program)
		if err != nil {
			c.log.Error("signature cursor tick failed", "program", program, "error", err)
		}
		metrics.LoopTime.WithLabelValues("signature_cursor").Observe(time.Since(start).Seconds())

		if !advanced {
			retry.Sleep(ctx, backoffRamp.Next())
		} else {
			backoffRamp.Reset()
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// tick performs one sweep iteration, returning whether a
// non-empty batch was processed (used to drive the empty-batch backoff).
func (c *Cursor) tick(ctx context.Context, program string) (bool, error) {
	cursor, err := c.store.LoadCursor(ctx, program)
	if err != nil {
		return false, err
	}

	var before solana.Signature
	if cursor.Before != "" {
		before, err = solana.SignatureFromBase58(cursor.Before)
		if err != nil {
			return false, err
		}
	}

	batch, err := c.rpc.GetSignaturesForAddress(ctx, c.account, before, solana.Signature{}, c.limit)
	if err != nil {
		return false, err
	}
	if len(batch) == 0 {
		return false, nil
	}

	rows := make([]model.Signature, len(batch))
	containsUntil := false
	for i, s := range batch {
		errStr := ""
		if s.Err != nil {
			errStr = "error"
		}
		rows[i] = model.Signature{
			Program:       program,
			Signature:     s.Signature.String(),
			Slot:          s.Slot,
			BlockTime:     blockTimeOf(s),
			Err:           errStr,
			LoadingStatus: model.LoadingStatusPending,
		}
		if cursor.Until != "" && s.Signature.String() == cursor.Until {
			containsUntil = true
		}
	}

	if cursor.NewestTransaction == "" {
		cursor.NewestTransaction = rows[0].Signature
	}
	if len(rows) >= minBatchSize {
		cursor.Before = rows[len(rows)-2].Signature
	} else {
		cursor.Before = rows[len(rows)-1].Signature
	}

	if containsUntil {
		cursor.Until = cursor.NewestTransaction
		cursor.Before = ""
		cursor.NewestTransaction = ""
	}

	if err := c.store.UpsertSignatureBatch(ctx, program, rows, program, cursor); err != nil {
		return false, err
	}
	return true, nil
}

func blockTimeOf(s *solrpc.TransactionSignature) *int64 {
	if s.BlockTime == nil {
		return nil
	}
	v := int64(*s.BlockTime)
	return &v
}
