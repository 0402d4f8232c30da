// Package epochtracker implements the epoch tracker: an independent
// service that polls epoch boundaries and backfills the full first/last
// block records those boundaries straddle.
package epochtracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/gohnnyman/solindexer/internal/metrics"
	"github.com/gohnnyman/solindexer/pkg/model"
	"github.com/gohnnyman/solindexer/pkg/solanarpc"
)

const (
	pollInterval    = 5 * time.Second
	blockScanWindow = 100

	// emptyScanCacheTTL bounds how long a not-yet-produced scan window is
	// remembered, so the backfill loops don't re-issue getBlocks for an
	// epoch's still-empty window every single tick.
	emptyScanCacheTTL = 30 * time.Second
)

// QueueStore is the subset of pkg/queue.Queue the tracker needs.
type QueueStore interface {
	UpsertEpochBounds(ctx context.Context, epoch, firstSlot, lastSlot uint64) error
	EpochsMissingFirstBlock(ctx context.Context) ([]model.Epoch, error)
	EpochsMissingLastBlock(ctx context.Context, currentEpoch uint64) ([]model.Epoch, error)
	SetFirstBlock(ctx context.Context, epoch, slot uint64, raw, typedJSON string) error
	SetLastBlock(ctx context.Context, epoch, slot uint64, raw, typedJSON string) error
	CurrentEpoch(ctx context.Context) (uint64, error)
}

// Tracker runs the epoch-bounds poller plus the first-block and last-block
// backfill loops as three concurrent goroutines sharing one fetcher and
// store.
type Tracker struct {
	log          *slog.Logger
	rpc          solanarpc.Fetcher
	store        QueueStore
	emptyScanHit *ristretto.Cache
}

func New(log *slog.Logger, rpc solanarpc.Fetcher, store QueueStore) (*Tracker, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create empty-scan cache: %w", err)
	}
	return &Tracker{log: log, rpc: rpc, store: store, emptyScanHit: cache}, nil
}

func emptyScanKey(kind string, epoch uint64) string {
	return fmt.Sprintf("%s:%d", kind, epoch)
}

// Run blocks until ctx is cancelled, driving the poll loop and the two
// backfill loops concurrently.
func (t *Tracker) Run(ctx context.Context) {
	done := make(chan struct{}, 3)
	go func() { t.pollLoop(ctx); done <- struct{}{} }()
	go func() { t.firstBlockLoop(ctx); done <- struct{}{} }()
	go func() { t.lastBlockLoop(ctx); done <- struct{}{} }()
	<-done
	<-done
	<-done
}

// pollLoop calls getEpochInfo() every few seconds and upserts the epoch's
// slot bounds.
func (t *Tracker) pollLoop(ctx context.Context) {
	metrics.ActiveWorkersCount.WithLabelValues("epoch_poller").Inc()
	defer metrics.ActiveWorkersCount.WithLabelValues("epoch_poller").Dec()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		start := time.Now()
		info, err := t.rpc.GetEpochInfo(ctx)
		if err != nil {
			t.log.Error("failed to get epoch info", "error", err)
		} else {
			firstSlot := info.AbsoluteSlot - info.SlotIndex
			lastSlot := firstSlot + info.SlotsInEpoch - 1
			if err := t.store.UpsertEpochBounds(ctx, info.Epoch, firstSlot, lastSlot); err != nil {
				t.log.Error("failed to upsert epoch bounds", "epoch", info.Epoch, "error", err)
			}
		}
		metrics.LoopTime.WithLabelValues("epoch_poller").Observe(time.Since(start).Seconds())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// firstBlockLoop fills in first_block for every epoch that still lacks one.
func (t *Tracker) firstBlockLoop(ctx context.Context) {
	metrics.ActiveWorkersCount.WithLabelValues("epoch_first_block_loop").Inc()
	defer metrics.ActiveWorkersCount.WithLabelValues("epoch_first_block_loop").Dec()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		start := time.Now()
		epochs, err := t.store.EpochsMissingFirstBlock(ctx)
		if err != nil {
			t.log.Error("failed to list epochs missing first block", "error", err)
		}
		for _, e := range epochs {
			if err := t.fillFirstBlock(ctx, e); err != nil {
				t.log.Error("failed to fill first block", "epoch", e.Epoch, "error", err)
			}
		}
		metrics.LoopTime.WithLabelValues("epoch_first_block_loop").Observe(time.Since(start).Seconds())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *Tracker) fillFirstBlock(ctx context.Context, e model.Epoch) error {
	key := emptyScanKey("first", e.Epoch)
	if _, hit := t.emptyScanHit.Get(key); hit {
		return nil
	}
	slots, err := t.rpc.GetBlocks(ctx, e.FirstSlot, e.FirstSlot+blockScanWindow)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		t.emptyScanHit.SetWithTTL(key, true, 1, emptyScanCacheTTL)
		return nil
	}
	return t.storeBlock(ctx, e.Epoch, slots[0], t.store.SetFirstBlock)
}

// lastBlockLoop fills in last_block for every epoch except the current one,
// whose last_slot is not yet final.
func (t *Tracker) lastBlockLoop(ctx context.Context) {
	metrics.ActiveWorkersCount.WithLabelValues("epoch_last_block_loop").Inc()
	defer metrics.ActiveWorkersCount.WithLabelValues("epoch_last_block_loop").Dec()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		start := time.Now()
		current, err := t.store.CurrentEpoch(ctx)
		if err != nil {
			t.log.Error("failed to get current epoch", "error", err)
		} else {
			epochs, err := t.store.EpochsMissingLastBlock(ctx, current)
			if err != nil {
				t.log.Error("failed to list epochs missing last block", "error", err)
			}
			for _, e := range epochs {
				if err := t.fillLastBlock(ctx, e); err != nil {
					t.log.Error("failed to fill last block", "epoch", e.Epoch, "error", err)
				}
			}
		}
		metrics.LoopTime.WithLabelValues("epoch_last_block_loop").Observe(time.Since(start).Seconds())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *Tracker) fillLastBlock(ctx context.Context, e model.Epoch) error {
	key := emptyScanKey("last", e.Epoch)
	if _, hit := t.emptyScanHit.Get(key); hit {
		return nil
	}
	lo := e.LastSlot - blockScanWindow
	slots, err := t.rpc.GetBlocks(ctx, lo, e.LastSlot)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		t.emptyScanHit.SetWithTTL(key, true, 1, emptyScanCacheTTL)
		return nil
	}
	return t.storeBlock(ctx, e.Epoch, slots[len(slots)-1], t.store.SetLastBlock)
}

func (t *Tracker) storeBlock(ctx context.Context, epoch, slot uint64, set func(ctx context.Context, epoch, slot uint64, raw, typedJSON string) error) error {
	block, err := t.rpc.GetBlock(ctx, slot)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(block)
	if err != nil {
		return err
	}
	typed, err := json.Marshal(block)
	if err != nil {
		return err
	}
	return set(ctx, epoch, slot, string(raw), string(typed))
}

// SetupEpochs is the optional --setup-epochs one-shot backfill: it walks
// backward from the current epoch creating placeholder (epoch, first_slot,
// last_slot) rows for every prior epoch, using the fixed epoch-length
// relationship implied by the current epoch's slots_in_epoch (post-warmup
// epochs all share the same length on mainnet-beta).
func (t *Tracker) SetupEpochs(ctx context.Context, back uint64) error {
	info, err := t.rpc.GetEpochInfo(ctx)
	if err != nil {
		return err
	}
	firstSlot := info.AbsoluteSlot - info.SlotIndex
	slotsInEpoch := info.SlotsInEpoch
	epoch := info.Epoch

	for i := uint64(0); i < back && epoch > 0; i++ {
		epoch--
		firstSlot -= slotsInEpoch
		lastSlot := firstSlot + slotsInEpoch - 1
		if err := t.store.UpsertEpochBounds(ctx, epoch, firstSlot, lastSlot); err != nil {
			return err
		}
		t.log.Info("created placeholder epoch", "epoch", epoch, "first_slot", firstSlot, "last_slot", lastSlot)
	}
	return nil
}
