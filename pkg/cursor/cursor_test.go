package cursor

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/gohnnyman/solindexer/pkg/model"
)

type fakeFetcher struct {
	batches [][]*solrpc.TransactionSignature
	calls   int
}

func (f *fakeFetcher) GetSignaturesForAddress(ctx context.Context, account solana.PublicKey, before, until solana.Signature, limit int) ([]*solrpc.TransactionSignature, error) {
	if f.calls >= len(f.batches) {
		return nil, nil
	}
	b := f.batches[f.calls]
	f.calls++
	return b, nil
}

func (f *fakeFetcher) GetTransaction(ctx context.Context, sig solana.Signature) (*solrpc.GetTransactionResult, error) {
	return nil, nil
}
func (f *fakeFetcher) GetEpochInfo(ctx context.Context) (*solrpc.GetEpochInfoResult, error) {
	return nil, nil
}
func (f *fakeFetcher) GetBlockTime(ctx context.Context, slot uint64) (*solana.UnixTimeSeconds, error) {
	return nil, nil
}
func (f *fakeFetcher) GetBlocks(ctx context.Context, startSlot, endSlot uint64) ([]uint64, error) {
	return nil, nil
}
func (f *fakeFetcher) GetBlock(ctx context.Context, slot uint64) (*solrpc.GetBlockResult, error) {
	return nil, nil
}

type fakeStore struct {
	cursor  model.ResumeCursor
	rows    []model.Signature
	upserts int
}

func (s *fakeStore) LoadCursor(ctx context.Context, key string) (model.ResumeCursor, error) {
	return s.cursor, nil
}

func (s *fakeStore) UpsertSignatureBatch(ctx context.Context, program string, rows []model.Signature, cursorKey string, cursor model.ResumeCursor) error {
	s.rows = append(s.rows, rows...)
	s.cursor = cursor
	s.upserts++
	return nil
}

func sig(n byte) solana.Signature {
	var s solana.Signature
	s[0] = n
	return s
}

func txSig(n byte, slot uint64) *solrpc.TransactionSignature {
	return &solrpc.TransactionSignature{Signature: sig(n), Slot: slot}
}

func TestTick_EmptyBatchReportsNoAdvance(t *testing.T) {
	rpc := &fakeFetcher{}
	store := &fakeStore{}
	account := solana.PublicKey{}
	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)), rpc, store, account, 5)

	advanced, err := c.tick(context.Background(), account.String())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if advanced {
		t.Fatalf("advanced = true, want false on empty batch")
	}
	if store.upserts != 0 {
		t.Fatalf("upserts = %d, want 0", store.upserts)
	}
}

func TestTick_SetsBeforeToPenultimateSignature(t *testing.T) {
	rpc := &fakeFetcher{batches: [][]*solrpc.TransactionSignature{
		{txSig(1, 100), txSig(2, 99), txSig(3, 98)},
	}}
	store := &fakeStore{}
	account := solana.PublicKey{}
	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)), rpc, store, account, 5)

	advanced, err := c.tick(context.Background(), account.String())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !advanced {
		t.Fatalf("advanced = false, want true")
	}
	if store.upserts != 1 {
		t.Fatalf("upserts = %d, want 1", store.upserts)
	}
	if len(store.rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(store.rows))
	}
	if store.cursor.Before != sig(2).String() {
		t.Fatalf("Before = %q, want penultimate signature", store.cursor.Before)
	}
	if store.cursor.NewestTransaction != sig(1).String() {
		t.Fatalf("NewestTransaction = %q, want first signature", store.cursor.NewestTransaction)
	}
}

func TestTick_SingleRowBatchUsesItAsBefore(t *testing.T) {
	rpc := &fakeFetcher{batches: [][]*solrpc.TransactionSignature{
		{txSig(1, 100)},
	}}
	store := &fakeStore{}
	account := solana.PublicKey{}
	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)), rpc, store, account, 5)

	if _, err := c.tick(context.Background(), account.String()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if store.cursor.Before != sig(1).String() {
		t.Fatalf("Before = %q, want the single row's signature", store.cursor.Before)
	}
}

func TestTick_ReachingUntilResetsCursorAndAdvancesPastTheGap(t *testing.T) {
	rpc := &fakeFetcher{batches: [][]*solrpc.TransactionSignature{
		{txSig(1, 100), txSig(2, 99)},
	}}
	store := &fakeStore{cursor: model.ResumeCursor{Until: sig(2).String()}}
	account := solana.PublicKey{}
	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)), rpc, store, account, 5)

	advanced, err := c.tick(context.Background(), account.String())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !advanced {
		t.Fatalf("advanced = false, want true")
	}
	if store.cursor.Before != "" || store.cursor.NewestTransaction != "" {
		t.Fatalf("cursor = %+v, want Before and NewestTransaction cleared", store.cursor)
	}
	if store.cursor.Until != sig(1).String() {
		t.Fatalf("Until = %q, want newest signature from this batch", store.cursor.Until)
	}
}

func TestNew_ClampsLimitToMinBatchSize(t *testing.T) {
	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)), &fakeFetcher{}, &fakeStore{}, solana.PublicKey{}, 1)
	if c.limit != minBatchSize {
		t.Fatalf("limit = %d, want clamped to %d", c.limit, minBatchSize)
	}
}
