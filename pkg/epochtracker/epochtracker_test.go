package epochtracker

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
	epochInfo *solrpc.GetEpochInfoResult
	blocks    []uint64
	blockErr  error
}

func (f *fakeFetcher) GetSignaturesForAddress(ctx context.Context, account solana.PublicKey, before, until solana.Signature, limit int) ([]*solrpc.TransactionSignature, error) {
	return nil, nil
}
func (f *fakeFetcher) GetTransaction(ctx context.Context, sig solana.Signature) (*solrpc.GetTransactionResult, error) {
	return nil, nil
}
func (f *fakeFetcher) GetEpochInfo(ctx context.Context) (*solrpc.GetEpochInfoResult, error) {
	return f.epochInfo, nil
}
func (f *fakeFetcher) GetBlockTime(ctx context.Context, slot uint64) (*solana.UnixTimeSeconds, error) {
	return nil, nil
}
func (f *fakeFetcher) GetBlocks(ctx context.Context, startSlot, endSlot uint64) ([]uint64, error) {
	return f.blocks, nil
}
func (f *fakeFetcher) GetBlock(ctx context.Context, slot uint64) (*solrpc.GetBlockResult, error) {
	if f.blockErr != nil {
		return nil, f.blockErr
	}
	return &solrpc.GetBlockResult{}, nil
}

type fakeStore struct {
	bounds        []model.Epoch
	firstBlockSet []uint64
	lastBlockSet  []uint64
	current       uint64
}

func (s *fakeStore) UpsertEpochBounds(ctx context.Context, epoch, firstSlot, lastSlot uint64) error {
	s.bounds = append(s.bounds, model.Epoch{Epoch: epoch, FirstSlot: firstSlot, LastSlot: lastSlot})
	return nil
}
func (s *fakeStore) EpochsMissingFirstBlock(ctx context.Context) ([]model.Epoch, error) {
	return nil, nil
}
func (s *fakeStore) EpochsMissingLastBlock(ctx context.Context, currentEpoch uint64) ([]model.Epoch, error) {
	return nil, nil
}
func (s *fakeStore) SetFirstBlock(ctx context.Context, epoch, slot uint64, raw, typedJSON string) error {
	s.firstBlockSet = append(s.firstBlockSet, slot)
	return nil
}
func (s *fakeStore) SetLastBlock(ctx context.Context, epoch, slot uint64, raw, typedJSON string) error {
	s.lastBlockSet = append(s.lastBlockSet, slot)
	return nil
}
func (s *fakeStore) CurrentEpoch(ctx context.Context) (uint64, error) { return s.current, nil }

func newTestTracker(t *testing.T, rpc *fakeFetcher, store *fakeStore) *Tracker {
	t.Helper()
	tr, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)), rpc, store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestFillFirstBlock_EmptyWindowCachesAndSkipsUntilTTLExpires(t *testing.T) {
	rpc := &fakeFetcher{blocks: nil}
	store := &fakeStore{}
	tr := newTestTracker(t, rpc, store)

	e := model.Epoch{Epoch: 5, FirstSlot: 1000}
	if err := tr.fillFirstBlock(context.Background(), e); err != nil {
		t.Fatalf("fillFirstBlock: %v", err)
	}
	if len(store.firstBlockSet) != 0 {
		t.Fatalf("firstBlockSet = %v, want none written for an empty window", store.firstBlockSet)
	}

	if _, hit := tr.emptyScanHit.Get(emptyScanKey("first", e.Epoch)); !hit {
		t.Fatalf("expected empty-scan cache entry after an empty window")
	}
}

func TestFillFirstBlock_NonEmptyWindowStoresFirstSlot(t *testing.T) {
	rpc := &fakeFetcher{blocks: []uint64{1005, 1006, 1009}}
	store := &fakeStore{}
	tr := newTestTracker(t, rpc, store)

	e := model.Epoch{Epoch: 5, FirstSlot: 1000}
	if err := tr.fillFirstBlock(context.Background(), e); err != nil {
		t.Fatalf("fillFirstBlock: %v", err)
	}
	if len(store.firstBlockSet) != 1 || store.firstBlockSet[0] != 1005 {
		t.Fatalf("firstBlockSet = %v, want [1005]", store.firstBlockSet)
	}
}

func TestFillLastBlock_NonEmptyWindowStoresLastSlot(t *testing.T) {
	rpc := &fakeFetcher{blocks: []uint64{1091, 1095, 1099}}
	store := &fakeStore{}
	tr := newTestTracker(t, rpc, store)

	e := model.Epoch{Epoch: 5, LastSlot: 1099}
	if err := tr.fillLastBlock(context.Background(), e); err != nil {
		t.Fatalf("fillLastBlock: %v", err)
	}
	if len(store.lastBlockSet) != 1 || store.lastBlockSet[0] != 1099 {
		t.Fatalf("lastBlockSet = %v, want [1099] (the last slot in the window)", store.lastBlockSet)
	}
}

func TestSetupEpochs_WalksBackwardByFixedEpochLength(t *testing.T) {
	rpc := &fakeFetcher{epochInfo: &solrpc.GetEpochInfoResult{
		Epoch:        10,
		AbsoluteSlot: 4000,
		SlotIndex:    100,
		SlotsInEpoch: 400,
	}}
	store := &fakeStore{}
	tr := newTestTracker(t, rpc, store)

	if err := tr.SetupEpochs(context.Background(), 3); err != nil {
		t.Fatalf("SetupEpochs: %v", err)
	}
	if len(store.bounds) != 3 {
		t.Fatalf("bounds = %d entries, want 3", len(store.bounds))
	}

	want := []model.Epoch{
		{Epoch: 9, FirstSlot: 3500, LastSlot: 3899},
		{Epoch: 8, FirstSlot: 3100, LastSlot: 3499},
		{Epoch: 7, FirstSlot: 2700, LastSlot: 3099},
	}
	for i, w := range want {
		got := store.bounds[i]
		if got.Epoch != w.Epoch || got.FirstSlot != w.FirstSlot || got.LastSlot != w.LastSlot {
			t.Fatalf("bounds[%d] = %+v, want %+v", i, got, w)
		}
	}
}

func TestSetupEpochs_StopsAtEpochZero(t *testing.T) {
	rpc := &fakeFetcher{epochInfo: &solrpc.GetEpochInfoResult{
		Epoch:        1,
		AbsoluteSlot: 400,
		SlotIndex:    0,
		SlotsInEpoch: 400,
	}}
	store := &fakeStore{}
	tr := newTestTracker(t, rpc, store)

	if err := tr.SetupEpochs(context.Background(), 10); err != nil {
		t.Fatalf("SetupEpochs: %v", err)
	}
	if len(store.bounds) != 1 {
		t.Fatalf("bounds = %d entries, want 1 (stopping once epoch reaches 0)", len(store.bounds))
	}
	if store.bounds[0].Epoch != 0 {
		t.Fatalf("bounds[0].Epoch = %d, want 0", store.bounds[0].Epoch)
	}
}
