package fetcherpool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/gohnnyman/solindexer/pkg/model"
)

type fakeStore struct {
	claimQueue   []*model.Signature
	faulty       []string
	stored       []model.TransactionQueueRow
	resetClaimed int64
	resetFaulty  int64
}

func (s *fakeStore) ClaimSignature(ctx context.Context, onlySuccessful bool) (*model.Signature, error) {
	if len(s.claimQueue) == 0 {
		return nil, nil
	}
	sig := s.claimQueue[0]
	s.claimQueue = s.claimQueue[1:]
	return sig, nil
}

func (s *fakeStore) StoreTransaction(ctx context.Context, program string, row model.TransactionQueueRow) error {
	s.stored = append(s.stored, row)
	return nil
}

func (s *fakeStore) MarkFaulty(ctx context.Context, program, signature string) error {
	s.faulty = append(s.faulty, signature)
	return nil
}

func (s *fakeStore) ResetFaulty(ctx context.Context) (int64, error) { return s.resetFaulty, nil }
func (s *fakeStore) ResetClaimed(ctx context.Context) (int64, error) {
	return s.resetClaimed, nil
}

type fakeFetcher struct {
	tx  *solrpc.GetTransactionResult
	err error
}

func (f *fakeFetcher) GetSignaturesForAddress(ctx context.Context, account solana.PublicKey, before, until solana.Signature, limit int) ([]*solrpc.TransactionSignature, error) {
	return nil, nil
}
func (f *fakeFetcher) GetTransaction(ctx context.Context, sig solana.Signature) (*solrpc.GetTransactionResult, error) {
	return f.tx, f.err
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

func testPool(store Store, rpc *fakeFetcher) *Pool {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), rpc, store, 1, false, time.Minute)
}

func validSig() string {
	var s solana.Signature
	s[0] = 7
	return s.String()
}

func TestFetchOne_EmptyQueueReportsNotClaimed(t *testing.T) {
	store := &fakeStore{}
	p := testPool(store, &fakeFetcher{})

	claimed, err := p.fetchOne(context.Background())
	if err != nil {
		t.Fatalf("fetchOne: %v", err)
	}
	if claimed {
		t.Fatalf("claimed = true, want false")
	}
}

func TestFetchOne_InvalidSignatureMarksFaultyAndReturnsClaimedTrue(t *testing.T) {
	store := &fakeStore{claimQueue: []*model.Signature{{Program: "p", Signature: "not-base58!!"}}}
	p := testPool(store, &fakeFetcher{})

	claimed, err := p.fetchOne(context.Background())
	if !claimed {
		t.Fatalf("claimed = false, want true even on failure")
	}
	if err == nil {
		t.Fatalf("expected error for invalid signature")
	}
	if len(store.faulty) != 1 || store.faulty[0] != "not-base58!!" {
		t.Fatalf("faulty = %v, want the invalid signature recorded", store.faulty)
	}
	if len(store.stored) != 0 {
		t.Fatalf("stored = %v, want nothing stored", store.stored)
	}
}

func TestFetchOne_RPCErrorMarksFaulty(t *testing.T) {
	store := &fakeStore{claimQueue: []*model.Signature{{Program: "p", Signature: validSig()}}}
	p := testPool(store, &fakeFetcher{err: errors.New("rpc boom")})

	claimed, err := p.fetchOne(context.Background())
	if !claimed || err == nil {
		t.Fatalf("claimed=%v err=%v, want true and an error", claimed, err)
	}
	if len(store.faulty) != 1 {
		t.Fatalf("faulty = %v, want one entry", store.faulty)
	}
}

func TestFetchOne_SuccessStoresEncodedTransaction(t *testing.T) {
	slot := uint64(123)
	store := &fakeStore{claimQueue: []*model.Signature{{Program: "p", Signature: validSig(), Slot: slot}}}
	p := testPool(store, &fakeFetcher{tx: &solrpc.GetTransactionResult{}})

	claimed, err := p.fetchOne(context.Background())
	if err != nil {
		t.Fatalf("fetchOne: %v", err)
	}
	if !claimed {
		t.Fatalf("claimed = false, want true")
	}
	if len(store.stored) != 1 {
		t.Fatalf("stored = %d rows, want 1", len(store.stored))
	}
	if store.stored[0].Signature != validSig() {
		t.Fatalf("stored signature = %q, want %q", store.stored[0].Signature, validSig())
	}
	if store.stored[0].ParsingStatus != model.ParsingStatusUnparsed {
		t.Fatalf("ParsingStatus = %v, want Unparsed", store.stored[0].ParsingStatus)
	}
	if len(store.faulty) != 0 {
		t.Fatalf("faulty = %v, want none on success", store.faulty)
	}
}

func TestNew_ClampsWorkersAndJanitorPeriod(t *testing.T) {
	p := New(slog.New(slog.NewTextHandler(io.Discard, nil)), &fakeFetcher{}, &fakeStore{}, 0, false, 0)
	if p.workers != 1 {
		t.Fatalf("workers = %d, want clamped to 1", p.workers)
	}
	if p.janitorPeriod != defaultJanitorTick {
		t.Fatalf("janitorPeriod = %v, want default %v", p.janitorPeriod, defaultJanitorTick)
	}
}
