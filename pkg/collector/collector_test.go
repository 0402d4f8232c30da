package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gohnnyman/solindexer/pkg/model"
)

// fakeWriter is a no-op mainstorage.Writer sufficient to construct the
// collector handles under test; only Close is ever exercised indirectly.
type fakeWriter struct{}

func (fakeWriter) StoreInstructionsBlock(ctx context.Context, rows []model.Instruction) error {
	return nil
}
func (fakeWriter) StoreBalancesBlock(ctx context.Context, rows []model.Balance) error { return nil }
func (fakeWriter) StoreInstructionArgumentsBlock(ctx context.Context, rows []model.InstructionArgument) error {
	return nil
}
func (fakeWriter) StoreDelegationsBlock(ctx context.Context, rows []model.Delegation) error {
	return nil
}
func (fakeWriter) StoreUndelegationsBlock(ctx context.Context, rows []model.Delegation) error {
	return nil
}
func (fakeWriter) StoreErroneousTransactionsBlock(ctx context.Context, rows []model.ErroneousTransaction) error {
	return nil
}
func (fakeWriter) StoreRewardsBlock(ctx context.Context, rows []model.Reward) error { return nil }
func (fakeWriter) CleanUnfinished(ctx context.Context, epoch uint64) error          { return nil }
func (fakeWriter) LookupVoteAccount(ctx context.Context, stakeAcc string, atSlot uint64) (*string, error) {
	return nil, nil
}
func (fakeWriter) Close() error { return nil }

func newTestActor(t *testing.T, capacity int, flush func(ctx context.Context, rows []int) error) *bufferedActor[int] {
	t.Helper()
	return newBufferedActor("test_collector", capacity, flush, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBufferedActor_FlushBufferIsNoOpWhenEmpty(t *testing.T) {
	calls := 0
	a := newTestActor(t, 10, func(ctx context.Context, rows []int) error {
		calls++
		return nil
	})

	a.flushBuffer(context.Background(), "test")
	if calls != 0 {
		t.Fatalf("flush calls = %d, want 0 for an empty buffer", calls)
	}
}

func TestBufferedActor_FlushBufferClearsOnSuccess(t *testing.T) {
	var flushed []int
	a := newTestActor(t, 10, func(ctx context.Context, rows []int) error {
		flushed = append(flushed, rows...)
		return nil
	})
	a.buf = append(a.buf, 1, 2, 3)

	a.flushBuffer(context.Background(), "test")
	if len(flushed) != 3 {
		t.Fatalf("flushed = %v, want [1 2 3]", flushed)
	}
	if len(a.buf) != 0 {
		t.Fatalf("buf = %v, want cleared after success", a.buf)
	}
}

func TestBufferedActor_FlushBufferRetainsBufferOnError(t *testing.T) {
	a := newTestActor(t, 10, func(ctx context.Context, rows []int) error {
		return errors.New("store unavailable")
	})
	a.buf = append(a.buf, 1, 2)

	a.flushBuffer(context.Background(), "test")
	if len(a.buf) != 2 {
		t.Fatalf("buf = %v, want retained for retry on a failed flush", a.buf)
	}
}

func TestBufferedActor_RunFlushesAtCapacityThreshold(t *testing.T) {
	flushedBatches := make(chan []int, 1)
	a := newTestActor(t, 2, func(ctx context.Context, rows []int) error {
		cp := append([]int(nil), rows...)
		flushedBatches <- cp
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.run(ctx)

	a.save(1)
	a.save(2)

	// save blocks until the actor has processed the row, and the threshold
	// flush runs synchronously within that same inbox case before the
	// respond channel closes, so the flushed batch is already queued here.
	select {
	case batch := <-flushedBatches:
		if len(batch) != 2 {
			t.Fatalf("flushed batch = %v, want 2 rows", batch)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for threshold flush")
	}
}

func TestErroneousTransactionsCollector_HandleErrorBuffersRow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewErroneousTransactionsCollector(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), fakeWriter{})
	c.HandleError("sig1", 42, "{}", errors.New("boom"))

	if len(c.actor.buf) != 1 {
		t.Fatalf("buf = %d rows, want 1", len(c.actor.buf))
	}
	row := c.actor.buf[0]
	if row.Signature != "sig1" || row.Slot != 42 || row.Error != "boom" {
		t.Fatalf("row = %+v, unexpected fields", row)
	}
}
