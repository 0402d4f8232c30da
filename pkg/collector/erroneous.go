package collector

import (
	"context"
	"log/slog"

	"github.com/gohnnyman/solindexer/internal/metrics"
	"github.com/gohnnyman/solindexer/pkg/mainstorage"
	"github.com/gohnnyman/solindexer/pkg/model"
)

// ErroneousTransactionsCollector is a dedicated, smaller-buffered actor for
// transactions that failed to parse, grounded on
// original_source/data_analyzer/src/actors/erroneous_transactions_collector.rs.
// It is kept separate from Collector because the original is a distinct
// actor with its own (much smaller) buffer size.
type ErroneousTransactionsCollector struct {
	actor *bufferedActor[model.ErroneousTransaction]
	log   *slog.Logger
}

func NewErroneousTransactionsCollector(ctx context.Context, log *slog.Logger, writer mainstorage.Writer) *ErroneousTransactionsCollector {
	actor := newBufferedActor("erroneous_transactions_collector", erroneousBufferSize, func(ctx context.Context, rows []model.ErroneousTransaction) error {
		return writer.StoreErroneousTransactionsBlock(ctx, rows)
	}, log)

	go actor.run(ctx)
	go runTicker(ctx, actor.ticks)

	metrics.ActiveHandleInstancesCount.WithLabelValues("erroneous_transactions_collector_handle").Inc()
	return &ErroneousTransactionsCollector{actor: actor, log: log}
}

// Save buffers one erroneous transaction row.
func (c *ErroneousTransactionsCollector) Save(e model.ErroneousTransaction) {
	c.actor.save(e)
}

// HandleError is the convenience wrapper mirroring the Rust handle's
// handle_error: it builds the row from the raw inputs, logs the failure,
// and buffers it for storage.
func (c *ErroneousTransactionsCollector) HandleError(signature string, slot uint64, encodedTx string, err error) {
	c.log.Warn("transaction failed to parse", "signature", signature, "slot", slot, "error", err)
	c.Save(model.ErroneousTransaction{
		Signature: signature,
		Slot:      slot,
		EncodedTx: encodedTx,
		Error:     err.Error(),
	})
}
