// Package fetcherpool implements the transaction fetcher pool: N
// parallel workers claiming pending signatures, fetching their encoded
// transaction, and persisting the result, plus the janitor that resets
// stuck states, grounded on original_source/data_analyzer/src/actors/
// transactions_loader.rs's claim/fetch/store worker loop.
package fetcherpool

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/gohnnyman/solindexer/internal/metrics"
	"github.com/gohnnyman/solindexer/pkg/model"
	"github.com/gohnnyman/solindexer/pkg/solanarpc"
)

const (
	emptyQueueBackoff  = 2 * time.Second
	defaultJanitorTick = 5 * time.Minute
)

// Store is the subset of pkg/queue.Queue the pool needs.
type Store interface {
	ClaimSignature(ctx context.Context, onlySuccessful bool) (*model.Signature, error)
	StoreTransaction(ctx context.Context, program string, row model.TransactionQueueRow) error
	MarkFaulty(ctx context.Context, program, signature string) error
	ResetFaulty(ctx context.Context) (int64, error)
	ResetClaimed(ctx context.Context) (int64, error)
}

// Pool runs N fetcher workers plus a janitor goroutine.
type Pool struct {
	log            *slog.Logger
	rpc            solanarpc.Fetcher
	store          Store
	workers        int
	onlySuccessful bool
	janitorPeriod  time.Duration
}

func New(log *slog.Logger, rpc solanarpc.Fetcher, store Store, workers int, onlySuccessful bool, janitorPeriod time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	if janitorPeriod <= 0 {
		janitorPeriod = defaultJanitorTick
	}
	return &Pool{log: log, rpc: rpc, store: store, workers: workers, onlySuccessful: onlySuccessful, janitorPeriod: janitorPeriod}
}

// Run resets any signatures stuck claimed from a prior crash, then blocks
// running the worker pool and janitor until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) {
	if n, err := p.store.ResetClaimed(ctx); err != nil {
		p.log.Error("failed to reset claimed signatures on startup", "error", err)
	} else if n > 0 {
		p.log.Info("reset claimed signatures on startup", "count", n)
	}

	done := make(chan struct{}, p.workers+1)
	for i := 0; i < p.workers; i++ {
		go func(id int) { p.worker(ctx, id); done <- struct{}{} }(i)
	}
	go func() { p.janitor(ctx); done <- struct{}{} }()

	for i := 0; i < p.workers+1; i++ {
		<-done
	}
}

// worker claims, fetches, and stores one transaction per iteration, in a loop.
func (p *Pool) worker(ctx context.Context, id int) {
	metrics.ActiveWorkersCount.WithLabelValues("transaction_fetcher").Inc()
	defer metrics.ActiveWorkersCount.WithLabelValues("transaction_fetcher").Dec()

	for {
		start := time.Now()
		claimed, err := p.fetchOne(ctx)
		if err != nil {
			p.log.Error("fetcher worker iteration failed", "worker", id, "error", err)
		}
		metrics.LoopTime.WithLabelValues("transaction_fetcher").Observe(time.Since(start).Seconds())

		if !claimed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(emptyQueueBackoff):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (p *Pool) fetchOne(ctx context.Context) (bool, error) {
	sig, err := p.store.ClaimSignature(ctx, p.onlySuccessful)
	if err != nil {
		return false, err
	}
	if sig == nil {
		return false, nil
	}

	parsedSig, err := solana.SignatureFromBase58(sig.Signature)
	if err != nil {
		if markErr := p.store.MarkFaulty(ctx, sig.Program, sig.Signature); markErr != nil {
			return true, markErr
		}
		return true, err
	}

	tx, err := p.rpc.GetTransaction(ctx, parsedSig)
	if err != nil {
		if markErr := p.store.MarkFaulty(ctx, sig.Program, sig.Signature); markErr != nil {
			return true, markErr
		}
		return true, err
	}

	encoded, err := json.Marshal(tx)
	if err != nil {
		if markErr := p.store.MarkFaulty(ctx, sig.Program, sig.Signature); markErr != nil {
			return true, markErr
		}
		return true, err
	}

	err = p.store.StoreTransaction(ctx, sig.Program, model.TransactionQueueRow{
		Signature:     sig.Signature,
		Slot:          sig.Slot,
		BlockTime:     sig.BlockTime,
		EncodedTx:     string(encoded),
		ParsingStatus: model.ParsingStatusUnparsed,
	})
	return true, err
}

// janitor periodically re-enqueues faulty signatures, per the pool's closing
// paragraph.
func (p *Pool) janitor(ctx context.Context) {
	metrics.ActiveWorkersCount.WithLabelValues("fetcher_janitor").Inc()
	defer metrics.ActiveWorkersCount.WithLabelValues("fetcher_janitor").Dec()

	ticker := time.NewTicker(p.janitorPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := p.store.ResetFaulty(ctx); err != nil {
				p.log.Error("janitor failed to reset faulty signatures", "error", err)
			} else if n > 0 {
				p.log.Info("janitor reset faulty signatures", "count", n)
			}
		}
	}
}
