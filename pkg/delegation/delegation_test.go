package delegation

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"

	"github.com/gohnnyman/solindexer/pkg/decode"
	"github.com/gohnnyman/solindexer/pkg/model"
)

// stakeTag builds the base58 instruction payload for a StakeInstruction
// variant carrying no fields (tag only), matching decodeStakeInstruction's
// leading u32 LE variant tag convention.
func stakeTag(tag uint32) string {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, tag)
	return base58.Encode(buf)
}

type fakeStore struct {
	bindings map[string]*string
	upserts  map[string]*string
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
	f.upserts = bindings
	return nil
}

func accountsOf(keys ...string) [model.ACCOUNTS_ARRAY_SIZE]*string {
	var out [model.ACCOUNTS_ARRAY_SIZE]*string
	for i, k := range keys {
		v := k
		out[i] = &v
	}
	return out
}

func TestAnalyze_DelegateStakeProducesDelegationAndBinding(t *testing.T) {
	stakeAcc := "Stake1111111111111111111111111111111111111"
	voteAcc := "Vote11111111111111111111111111111111111111"

	ins := model.Instruction{
		Program:         decode.ProgramStake,
		TxSignature:     "sig1",
		Slot:            10,
		InstructionName: "DelegateStake",
		InstructionIdx:  0,
		Accounts:        accountsOf(stakeAcc, voteAcc),
		Data:            stakeTag(2),
	}

	preBalances := map[string]uint64{stakeAcc: model.STAKE_ACC_RENT_EXEMPTION + 5_000_000}

	store := &fakeStore{bindings: map[string]*string{}}
	result, err := Analyze(context.Background(), store, []model.Instruction{ins}, preBalances)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.Delegations) != 1 {
		t.Fatalf("want 1 delegation, got %d", len(result.Delegations))
	}
	d := result.Delegations[0]
	if d.StakeAcc != stakeAcc || d.VoteAcc == nil || *d.VoteAcc != voteAcc {
		t.Errorf("delegation accounts = %q/%v, want %q/%q", d.StakeAcc, d.VoteAcc, stakeAcc, voteAcc)
	}
	if d.Amount != 5_000_000 {
		t.Errorf("amount = %d, want 5000000", d.Amount)
	}
	if store.upserts[stakeAcc] == nil || *store.upserts[stakeAcc] != voteAcc {
		t.Errorf("binding not upserted: %+v", store.upserts)
	}
}

func TestAnalyze_DeactivateUsesSeededBinding(t *testing.T) {
	stakeAcc := "Stake2222222222222222222222222222222222222"
	voteAcc := "Vote22222222222222222222222222222222222222"

	ins := model.Instruction{
		Program:         decode.ProgramStake,
		TxSignature:     "sig2",
		Slot:            11,
		InstructionName: "Deactivate",
		InstructionIdx:  0,
		Accounts:        accountsOf(stakeAcc, "Clock11111111111111111111111111111111111"),
	}

	preBalances := map[string]uint64{stakeAcc: model.STAKE_ACC_RENT_EXEMPTION + 1_000}

	store := &fakeStore{bindings: map[string]*string{stakeAcc: &voteAcc}}
	result, err := Analyze(context.Background(), store, []model.Instruction{ins}, preBalances)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.Undelegations) != 1 {
		t.Fatalf("want 1 undelegation, got %d", len(result.Undelegations))
	}
	u := result.Undelegations[0]
	if u.VoteAcc == nil || *u.VoteAcc != voteAcc {
		t.Errorf("undelegation vote_acc = %v, want %q", u.VoteAcc, voteAcc)
	}
	if u.Amount != 1_000 {
		t.Errorf("amount = %d, want 1000", u.Amount)
	}
}

func TestAnalyze_NonWhitelistedInstructionIsSkipped(t *testing.T) {
	ins := model.Instruction{
		Program:         decode.ProgramStake,
		InstructionName: "SetLockup",
		Accounts:        accountsOf("A", "B"),
	}
	store := &fakeStore{bindings: map[string]*string{}}
	result, err := Analyze(context.Background(), store, []model.Instruction{ins}, map[string]uint64{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.Delegations) != 0 || len(result.Undelegations) != 0 {
		t.Errorf("expected no events, got %+v", result)
	}
}

func TestSaturatingSub(t *testing.T) {
	if got := saturatingSub(5, 10); got != 0 {
		t.Errorf("saturatingSub(5, 10) = %d, want 0", got)
	}
	if got := saturatingSub(10, 5); got != 5 {
		t.Errorf("saturatingSub(10, 5) = %d, want 5", got)
	}
}
