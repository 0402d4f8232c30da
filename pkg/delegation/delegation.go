// Package delegation implements the delegation analyzer: it walks one
// transaction's already-decoded instructions, reconstructs the lamport
// balance of every stake account touched, and emits delegation/undelegation
// events while updating the persistent stake→vote binding table, grounded
// on original_source/data_analyzer/src/actors/transaction_parser/parse_delegations.rs.
package delegation

import (
	"context"
	"fmt"

	"github.com/gohnnyman/solindexer/pkg/decode"
	"github.com/gohnnyman/solindexer/pkg/model"
)

const rentExemption = model.STAKE_ACC_RENT_EXEMPTION

// whitelist is the fixed set of Stake-program instruction names the
// analyzer inspects; anything else is skipped before the program-address
// check even runs.
var whitelist = map[string]bool{
	"Withdraw":              true,
	"Merge":                 true,
	"Split":                 true,
	"Deactivate":            true,
	"DelegateStake":         true,
	"CreateAccount":         true,
	"CreateAccountWithSeed": true,
	"Transfer":              true,
}

// BindingStore is the subset of pkg/queue.Queue the analyzer needs to seed
// and persist the stake→vote binding table.
type BindingStore interface {
	GetBindings(ctx context.Context, stakeAccs []string) (map[string]*string, error)
	UpsertBindings(ctx context.Context, bindings map[string]*string) error
}

// Result holds the two event lists produced by one transaction's analysis.
type Result struct {
	Delegations   []model.Delegation
	Undelegations []model.Delegation
}

// Analyze walks one transaction's instruction list and returns the
// delegation and undelegation events it produces.
// preBalances maps account pubkey to its pre-instruction lamport balance,
// taken from the transaction's balance rows.
func Analyze(ctx context.Context, store BindingStore, instructions []model.Instruction, preBalances map[string]uint64) (*Result, error) {
	candidates := make([]string, 0, len(instructions)*2)
	for _, ins := range instructions {
		for i := 0; i < 2 && i < len(ins.Accounts); i++ {
			if ins.Accounts[i] != nil {
				candidates = append(candidates, *ins.Accounts[i])
			}
		}
	}

	voteAccounts, err := store.GetBindings(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if voteAccounts == nil {
		voteAccounts = make(map[string]*string)
	}

	runningBalance := make(map[string]uint64)
	result := &Result{}

	for _, ins := range instructions {
		if ins.Program != decode.ProgramStake || !whitelist[ins.InstructionName] {
			continue
		}
		if len(ins.Accounts) < 2 || ins.Accounts[0] == nil || ins.Accounts[1] == nil {
			panic(fmt.Sprintf("delegation analyzer: whitelisted instruction %q missing required accounts[0..2]", ins.InstructionName))
		}
		a := *ins.Accounts[0]
		b := *ins.Accounts[1]

		if _, ok := runningBalance[a]; !ok {
			runningBalance[a] = preBalances[a]
		}
		if _, ok := runningBalance[b]; !ok {
			runningBalance[b] = preBalances[b]
		}

		idx := rawInstructionIdx(ins)

		switch ins.InstructionName {
		case "DelegateStake":
			voteAcc := b
			result.Delegations = append(result.Delegations, model.Delegation{
				Slot: ins.Slot, BlockTime: ins.BlockTime, StakeAcc: a, VoteAcc: &voteAcc,
				TxSignature: ins.TxSignature, Amount: saturatingSub(runningBalance[a], rentExemption),
				RawInstructionIdx: idx,
			})
			voteAccounts[a] = &voteAcc

		case "Deactivate":
			result.Undelegations = append(result.Undelegations, model.Delegation{
				Slot: ins.Slot, BlockTime: ins.BlockTime, StakeAcc: a, VoteAcc: voteAccounts[a],
				TxSignature: ins.TxSignature, Amount: saturatingSub(runningBalance[a], rentExemption),
				RawInstructionIdx: idx,
			})
			voteAccounts[a] = nil

		case "CreateAccount":
			args, err := decodeArgs[decode.CreateAccount](ins)
			if err != nil {
				return nil, err
			}
			runningBalance[b] += args.Lamports

		case "CreateAccountWithSeed":
			args, err := decodeArgs[decode.CreateAccountWithSeed](ins)
			if err != nil {
				return nil, err
			}
			runningBalance[b] += args.Lamports

		case "Withdraw":
			args, err := decodeArgs[decode.Withdraw](ins)
			if err != nil {
				return nil, err
			}
			runningBalance[a] = saturatingSub(runningBalance[a], args.Lamports)
			runningBalance[b] += args.Lamports

		case "Transfer":
			args, err := decodeArgs[decode.Transfer](ins)
			if err != nil {
				return nil, err
			}
			runningBalance[a] = saturatingSub(runningBalance[a], args.Lamports)
			runningBalance[b] += args.Lamports

		case "Split":
			args, err := decodeArgs[decode.Split](ins)
			if err != nil {
				return nil, err
			}
			amount := args.Lamports
			v := voteAccounts[a]

			result.Undelegations = append(result.Undelegations, model.Delegation{
				Slot: ins.Slot, BlockTime: ins.BlockTime, StakeAcc: a, VoteAcc: v,
				TxSignature: ins.TxSignature, Amount: amount, RawInstructionIdx: idx,
			})
			result.Delegations = append(result.Delegations, model.Delegation{
				Slot: ins.Slot, BlockTime: ins.BlockTime, StakeAcc: b, VoteAcc: v,
				TxSignature: ins.TxSignature, Amount: saturatingSub(amount, rentExemption),
				RawInstructionIdx: idx,
			})
			voteAccounts[b] = v

			runningBalance[a] = saturatingSub(runningBalance[a], amount)
			runningBalance[b] += amount
			if runningBalance[a] < rentExemption {
				voteAccounts[a] = nil
			}

		case "Merge":
			v := voteAccounts[a]
			result.Delegations = append(result.Delegations, model.Delegation{
				Slot: ins.Slot, BlockTime: ins.BlockTime, StakeAcc: a, VoteAcc: v,
				TxSignature: ins.TxSignature, Amount: saturatingSub(runningBalance[b], rentExemption),
				RawInstructionIdx: idx,
			})
			result.Undelegations = append(result.Undelegations, model.Delegation{
				Slot: ins.Slot, BlockTime: ins.BlockTime, StakeAcc: b, VoteAcc: v,
				TxSignature: ins.TxSignature, Amount: saturatingSub(runningBalance[b], rentExemption),
				RawInstructionIdx: idx,
			})
			voteAccounts[a] = nil
			runningBalance[a] += runningBalance[b]
			runningBalance[b] = 0
			delete(voteAccounts, b)

		default:
			panic(fmt.Sprintf("delegation analyzer: unreachable instruction name %q reached the whitelisted switch", ins.InstructionName))
		}
	}

	if err := store.UpsertBindings(ctx, voteAccounts); err != nil {
		return nil, err
	}
	return result, nil
}

// decodeArgs re-decodes one whitelisted instruction's raw payload into its
// typed argument struct. The parser stores the raw base58 payload verbatim
// on every instruction row, so re-decoding here (rather than threading a
// second, decoded-args channel out of pkg/parser) keeps the instruction row
// shape a plain "raw payload string" per spec, at the cost of one cheap,
// pure re-decode per whitelisted instruction.
func decodeArgs[T any](ins model.Instruction) (T, error) {
	var zero T
	decoded, err := decode.Decode(ins.Program, ins.Data)
	if err != nil {
		return zero, err
	}
	args, ok := decoded.Args.(T)
	if !ok {
		return zero, fmt.Errorf("delegation analyzer: instruction %q decoded to unexpected args type %T", ins.InstructionName, decoded.Args)
	}
	return args, nil
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func rawInstructionIdx(ins model.Instruction) int {
	if ins.InnerInstructionsSet == nil {
		return model.RawInstructionIdx(ins.InstructionIdx, nil)
	}
	j := ins.InstructionIdx
	return model.RawInstructionIdx(*ins.InnerInstructionsSet, &j)
}
