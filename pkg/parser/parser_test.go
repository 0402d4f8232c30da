package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/decode"
)

func accountKeysOf(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = "Key" + string(rune('A'+i%26)) + "11111111111111111111111111111"
	}
	return keys
}

func encodeRawTx(t *testing.T, tx rawTransaction) string {
	t.Helper()
	b, err := json.Marshal(tx)
	require.NoError(t, err)
	return string(b)
}

// An accountKeys list (including loaded addresses) longer than the fixed
// accounts-column width must fail with InvalidLength rather than silently
// truncating.
func TestParse_AccountKeysOverflowIsInvalidLength(t *testing.T) {
	tx := rawTransaction{
		Slot:        1,
		Transaction: &rawTxEnvelope{Message: &rawMessage{AccountKeys: accountKeysOf(300)}},
		Meta:        &rawMeta{},
	}

	_, err := Parse("sig", encodeRawTx(t, tx))
	require.Error(t, err)
	pe, ok := err.(*perrors.ParseInstructionError)
	require.True(t, ok, "want *perrors.ParseInstructionError, got %T", err)
	assert.Equal(t, perrors.KindInvalidLength, pe.Kind)
}

// The same overflow must also be caught after loaded addresses are appended
// to a base accountKeys list that was within bounds on its own.
func TestParse_LoadedAddressesOverflowIsInvalidLength(t *testing.T) {
	tx := rawTransaction{
		Slot:        1,
		Transaction: &rawTxEnvelope{Message: &rawMessage{AccountKeys: accountKeysOf(200)}},
		Meta: &rawMeta{
			LoadedAddresses: &rawLoadedAddresses{Writable: accountKeysOf(57)},
		},
	}

	_, err := Parse("sig", encodeRawTx(t, tx))
	require.Error(t, err)
	pe, ok := err.(*perrors.ParseInstructionError)
	require.True(t, ok, "want *perrors.ParseInstructionError, got %T", err)
	assert.Equal(t, perrors.KindInvalidLength, pe.Kind)
}

// A five-outer-instruction transaction where outer instructions 1 and 3
// each carry a two-row inner group produces 5 outer + 4 inner = 9
// instruction rows; this exercises raw_instruction_idx ordering and the
// inner_instructions_set/transaction_instruction_idx fields across multiple
// groups in one transaction, not just the single-group case above.
func TestParse_MultipleInnerInstructionGroupsOrderingAndCount(t *testing.T) {
	keys := accountKeysOf(3)
	outer := make([]rawInstruction, 5)
	for i := range outer {
		outer[i] = rawInstruction{ProgramIDIndex: 0, Accounts: []int{1}}
	}
	tx := rawTransaction{
		Slot: 1,
		Transaction: &rawTxEnvelope{Message: &rawMessage{
			AccountKeys:  keys,
			Instructions: outer,
		}},
		Meta: &rawMeta{
			InnerInstructions: []rawInnerInstructionsGroup{
				{Index: 1, Instructions: []rawInstruction{
					{ProgramIDIndex: 0, Accounts: []int{1}},
					{ProgramIDIndex: 0, Accounts: []int{2}},
				}},
				{Index: 3, Instructions: []rawInstruction{
					{ProgramIDIndex: 0, Accounts: []int{1}},
					{ProgramIDIndex: 0, Accounts: []int{2}},
				}},
			},
		},
	}

	result, err := Parse("sig", encodeRawTx(t, tx))
	require.NoError(t, err)
	require.Len(t, result.Instructions, 9)

	one := uint8(1)
	three := uint8(3)
	wantInstructionIdx := []uint8{0, 1, 0, 1, 2, 3, 0, 1, 4}
	wantGroup := []*uint8{nil, nil, &one, &one, nil, nil, &three, &three, nil}

	for i, row := range result.Instructions {
		assert.EqualValuesf(t, wantInstructionIdx[i], row.InstructionIdx, "row %d instruction_idx", i)
		if wantGroup[i] == nil {
			assert.Nilf(t, row.InnerInstructionsSet, "row %d inner_instructions_set", i)
		} else {
			require.NotNilf(t, row.InnerInstructionsSet, "row %d inner_instructions_set", i)
			assert.EqualValuesf(t, *wantGroup[i], *row.InnerInstructionsSet, "row %d inner_instructions_set", i)
		}
	}
}

// Scenario 2: a postTokenBalances entry whose accountIndex exceeds the
// account-keys list must fail with InvalidIndex{site=post_token_balance}.
func TestParse_PostTokenBalanceIndexOverflow(t *testing.T) {
	tx := rawTransaction{
		Slot:        1,
		Transaction: &rawTxEnvelope{Message: &rawMessage{AccountKeys: accountKeysOf(21)}},
		Meta: &rawMeta{
			PostTokenBalances: []rawTokenBalance{{AccountIndex: 37}},
		},
	}

	_, err := Parse("sig", encodeRawTx(t, tx))
	require.Error(t, err)
	pe, ok := err.(*perrors.ParseInstructionError)
	require.True(t, ok, "want *perrors.ParseInstructionError, got %T", err)
	assert.Equal(t, perrors.KindInvalidIndex, pe.Kind)
}

// Scenario 4: instruction data containing a base58-alphabet violation (the
// digit '0') must fail with DeserializeFromBase58Error.
func TestParse_BadBase58Data(t *testing.T) {
	keys := append([]string{decode.ProgramSystem}, accountKeysOf(2)...)
	tx := rawTransaction{
		Slot: 1,
		Transaction: &rawTxEnvelope{Message: &rawMessage{
			AccountKeys: keys,
			Instructions: []rawInstruction{
				{ProgramIDIndex: 0, Accounts: []int{1}, Data: "ERROR IS HERE"},
			},
		}},
		Meta: &rawMeta{},
	}

	_, err := Parse("sig", encodeRawTx(t, tx))
	require.Error(t, err)
	pe, ok := err.(*perrors.ParseInstructionError)
	require.True(t, ok, "want *perrors.ParseInstructionError, got %T", err)
	assert.Equal(t, perrors.KindDeserializeFromBase58Error, pe.Kind)
}

// Scenario 5: an instruction whose program address is not in the dispatch
// table decodes to an opaque row: no error, empty instruction_name, and the
// raw base58 payload preserved verbatim.
func TestParse_UnknownProgramYieldsOpaqueRow(t *testing.T) {
	keys := []string{"9XQJeiCUAN4oZyBrG8x6kAHi4cszz6L4kjnGZGR2fsWs", "Signer1111111111111111111111111111111111111"}
	tx := rawTransaction{
		Slot: 1,
		Transaction: &rawTxEnvelope{Message: &rawMessage{
			AccountKeys: keys,
			Instructions: []rawInstruction{
				{ProgramIDIndex: 0, Accounts: []int{1}, Data: "111114XtYk9gGfZoo"},
			},
		}},
		Meta: &rawMeta{},
	}

	result, err := Parse("sig", encodeRawTx(t, tx))
	require.NoError(t, err)
	require.Len(t, result.Instructions, 1)
	row := result.Instructions[0]
	assert.Equal(t, "", row.InstructionName)
	assert.Equal(t, "111114XtYk9gGfZoo", row.Data)
	assert.Empty(t, result.InstructionArguments)
}

// Ordering invariant for raw_instruction_idx: one outer instruction with
// two inner instructions beneath it must be emitted outer-then-inner, with
// inner rows carrying their own position as instruction_idx and the outer
// index for both inner_instructions_set and transaction_instruction_idx.
func TestParse_OuterInnerOrderingAndFieldSemantics(t *testing.T) {
	keys := accountKeysOf(3)
	tx := rawTransaction{
		Slot: 1,
		Transaction: &rawTxEnvelope{Message: &rawMessage{
			AccountKeys: keys,
			Instructions: []rawInstruction{
				{ProgramIDIndex: 0, Accounts: []int{1, 2}},
			},
		}},
		Meta: &rawMeta{
			InnerInstructions: []rawInnerInstructionsGroup{
				{Index: 0, Instructions: []rawInstruction{
					{ProgramIDIndex: 0, Accounts: []int{1}},
					{ProgramIDIndex: 0, Accounts: []int{2}},
				}},
			},
		},
	}

	result, err := Parse("sig", encodeRawTx(t, tx))
	require.NoError(t, err)
	require.Len(t, result.Instructions, 3)

	outer := result.Instructions[0]
	assert.EqualValues(t, 0, outer.InstructionIdx)
	assert.Nil(t, outer.InnerInstructionsSet)
	assert.Nil(t, outer.TransactionInstructionIdx)

	inner0 := result.Instructions[1]
	assert.EqualValues(t, 0, inner0.InstructionIdx)
	require.NotNil(t, inner0.InnerInstructionsSet)
	assert.EqualValues(t, 0, *inner0.InnerInstructionsSet)
	require.NotNil(t, inner0.TransactionInstructionIdx)
	assert.EqualValues(t, 0, *inner0.TransactionInstructionIdx)

	inner1 := result.Instructions[2]
	assert.EqualValues(t, 1, inner1.InstructionIdx)
	require.NotNil(t, inner1.InnerInstructionsSet)
	assert.EqualValues(t, 0, *inner1.InnerInstructionsSet)
}
