package analyzer

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/gohnnyman/solindexer/pkg/model"
)

type fakeStore struct {
	queue    []*model.TransactionQueueRow
	bindings map[string]*string
}

func (f *fakeStore) ClaimUnparsedTransaction(ctx context.Context) (*model.TransactionQueueRow, error) {
	if len(f.queue) == 0 {
		return nil, nil
	}
	tx := f.queue[0]
	f.queue = f.queue[1:]
	return tx, nil
}

func (f *fakeStore) GetBindings(ctx context.Context, stakeAccs []string) (map[string]*string, error) {
	out := make(map[string]*string, len(stakeAccs))
	for _, s := range stakeAccs {
		if v, ok := f.bindings[s]; ok {
			out[s] = v
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertBindings(ctx context.Context, bindings map[string]*string) error {
	return nil
}

type fakeCollector struct {
	instructions []model.Instruction
	balances     []model.Balance
	args         []model.InstructionArgument
	delegations  []model.Delegation
}

func (f *fakeCollector) SaveInstruction(i model.Instruction)                 { f.instructions = append(f.instructions, i) }
func (f *fakeCollector) SaveBalance(b model.Balance)                        { f.balances = append(f.balances, b) }
func (f *fakeCollector) SaveInstructionArgument(a model.InstructionArgument) { f.args = append(f.args, a) }
func (f *fakeCollector) SaveDelegation(d model.Delegation)                  { f.delegations = append(f.delegations, d) }
func (f *fakeCollector) SaveUndelegation(d model.Delegation)                {}

type fakeErroneous struct {
	calls int
}

func (f *fakeErroneous) HandleError(signature string, slot uint64, encodedTx string, err error) {
	f.calls++
}

func rawTx(t *testing.T) string {
	t.Helper()
	payload := map[string]any{
		"slot":      uint64(42),
		"blockTime": int64(1000),
		"transaction": map[string]any{
			"message": map[string]any{
				"accountKeys":  []string{"A", "B"},
				"instructions": []any{},
			},
		},
		"meta": map[string]any{
			"err":               nil,
			"preBalances":       []uint64{1, 2},
			"postBalances":      []uint64{1, 2},
			"innerInstructions": []any{},
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestWorker_TickProcessesParseableTransaction(t *testing.T) {
	store := &fakeStore{
		queue: []*model.TransactionQueueRow{{
			Signature: "sig1",
			Slot:      42,
			EncodedTx: rawTx(t),
		}},
		bindings: map[string]*string{},
	}
	collector := &fakeCollector{}
	erroneous := &fakeErroneous{}
	w := New(slog.Default(), store, collector, erroneous)

	claimed, err := w.tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !claimed {
		t.Fatal("want claimed = true")
	}
	if len(collector.balances) == 0 {
		t.Error("want balance rows saved")
	}
	if erroneous.calls != 0 {
		t.Errorf("want 0 erroneous calls, got %d", erroneous.calls)
	}
}

func TestWorker_TickRoutesParseFailureToErroneousCollector(t *testing.T) {
	store := &fakeStore{
		queue: []*model.TransactionQueueRow{{
			Signature: "sig2",
			Slot:      43,
			EncodedTx: "not json",
		}},
		bindings: map[string]*string{},
	}
	collector := &fakeCollector{}
	erroneous := &fakeErroneous{}
	w := New(slog.Default(), store, collector, erroneous)

	claimed, err := w.tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !claimed {
		t.Fatal("want claimed = true")
	}
	if erroneous.calls != 1 {
		t.Errorf("want 1 erroneous call, got %d", erroneous.calls)
	}
	if len(collector.instructions) != 0 {
		t.Errorf("want no instructions saved on parse failure, got %d", len(collector.instructions))
	}
}

func TestWorker_TickReturnsFalseOnEmptyQueue(t *testing.T) {
	store := &fakeStore{bindings: map[string]*string{}}
	w := New(slog.Default(), store, &fakeCollector{}, &fakeErroneous{})

	claimed, err := w.tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if claimed {
		t.Fatal("want claimed = false on empty queue")
	}
}
