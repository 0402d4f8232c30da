// Package analyzer implements the top-level orchestrator: it claims one
// unparsed transaction at a time, runs it through pkg/parser and
// pkg/delegation, and fans the resulting rows out through a
// pkg/collector.Collector, grounded on
// original_source/data_analyzer/src/transactions_parsing_ctx.rs's
// transaction_worker loop.
package analyzer

import (
	"context"
	"log/slog"
	"time"

	"github.com/gohnnyman/solindexer/internal/metrics"
	"github.com/gohnnyman/solindexer/internal/retry"
	"github.com/gohnnyman/solindexer/pkg/delegation"
	"github.com/gohnnyman/solindexer/pkg/model"
	"github.com/gohnnyman/solindexer/pkg/parser"
)

// emptyQueueSleep mirrors the original worker's 5000ms sleep-on-empty.
const emptyQueueSleep = 5 * time.Second

// Store is the subset of pkg/queue.Queue the orchestrator needs.
type Store interface {
	ClaimUnparsedTransaction(ctx context.Context) (*model.TransactionQueueRow, error)
	delegation.BindingStore
}

// Collector is the subset of pkg/collector.Collector the orchestrator needs.
type Collector interface {
	SaveInstruction(model.Instruction)
	SaveBalance(model.Balance)
	SaveInstructionArgument(model.InstructionArgument)
	SaveDelegation(model.Delegation)
	SaveUndelegation(model.Delegation)
}

// ErroneousCollector is the subset of
// pkg/collector.ErroneousTransactionsCollector the orchestrator needs.
type ErroneousCollector interface {
	HandleError(signature string, slot uint64, encodedTx string, err error)
}

// Worker runs the claim/parse/analyze/save loop.
type Worker struct {
	log       *slog.Logger
	store     Store
	collector Collector
	erroneous ErroneousCollector
}

func New(log *slog.Logger, store Store, collector Collector, erroneous ErroneousCollector) *Worker {
	return &Worker{log: log, store: store, collector: collector, erroneous: erroneous}
}

// Run loops the worker forever until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	metrics.ActiveWorkersCount.WithLabelValues("transaction_worker").Inc()
	defer metrics.ActiveWorkersCount.WithLabelValues("transaction_worker").Dec()

	for {
		start := time.Now()
		claimed, err := w.tick(ctx)
		if err != nil {
			w.log.Error("transaction worker iteration failed", "error", err)
		}
		metrics.LoopTime.WithLabelValues("transaction_worker").Observe(time.Since(start).Seconds())

		if !claimed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(emptyQueueSleep):
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

// tick claims and processes one transaction, returning whether the queue had
// one to offer.
func (w *Worker) tick(ctx context.Context) (bool, error) {
	tx, err := w.store.ClaimUnparsedTransaction(ctx)
	if err != nil {
		return false, err
	}
	if tx == nil {
		return false, nil
	}

	result, parseErr := parser.Parse(tx.Signature, tx.EncodedTx)
	if parseErr != nil {
		w.erroneous.HandleError(tx.Signature, tx.Slot, tx.EncodedTx, parseErr)
		metrics.ErroneousTransactionsCount.Inc()
		return true, nil
	}

	preBalances := make(map[string]uint64, len(result.Balances))
	for _, b := range result.Balances {
		if b.Account == "" {
			continue
		}
		preBalances[b.Account] = b.PreLamports
	}

	delegationResult, err := retry.Forever(ctx, w.log, "parse_delegations", func() (*delegation.Result, error) {
		return delegation.Analyze(ctx, w.store, result.Instructions, preBalances)
	})
	if err != nil {
		return true, err
	}

	for _, ins := range result.Instructions {
		w.collector.SaveInstruction(ins)
	}
	for _, arg := range result.InstructionArguments {
		w.collector.SaveInstructionArgument(arg)
	}
	for _, b := range result.Balances {
		w.collector.SaveBalance(b)
	}
	for _, d := range delegationResult.Delegations {
		w.collector.SaveDelegation(d)
	}
	for _, d := range delegationResult.Undelegations {
		w.collector.SaveUndelegation(d)
	}

	return true, nil
}
