// Package parser implements the transaction parser: it turns one encoded
// transaction (stored as the raw, non-pre-parsed JSON message form) into
// the instructions/balances/instruction_arguments row triple, or a typed
// parse error, grounded on the decode conventions of
// original_source/data_analyzer/src/instructions/*.rs.
package parser

import (
	"encoding/json"
	"strconv"

	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/decode"
	"github.com/gohnnyman/solindexer/pkg/model"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// rawTransaction mirrors the JSON shape of getTransaction's response when
// requested in raw (non-parsed, non-base64) message encoding.
type rawTransaction struct {
	Slot        uint64          `json:"slot"`
	BlockTime   *int64          `json:"blockTime"`
	Transaction *rawTxEnvelope  `json:"transaction"`
	Meta        *rawMeta        `json:"meta"`
}

type rawTxEnvelope struct {
	Message *rawMessage `json:"message"`
}

type rawMessage struct {
	AccountKeys  []string         `json:"accountKeys"`
	Instructions []rawInstruction `json:"instructions"`
}

type rawInstruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"`
}

type rawInnerInstructionsGroup struct {
	Index        uint8            `json:"index"`
	Instructions []rawInstruction `json:"instructions"`
}

type rawTokenBalance struct {
	AccountIndex  uint16 `json:"accountIndex"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	ProgramID     string `json:"programId"`
	UiTokenAmount struct {
		Amount string `json:"amount"`
	} `json:"uiTokenAmount"`
}

type rawLoadedAddresses struct {
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}

type rawMeta struct {
	Err               json.RawMessage             `json:"err"`
	PreBalances       []uint64                    `json:"preBalances"`
	PostBalances      []uint64                    `json:"postBalances"`
	PreTokenBalances  []rawTokenBalance           `json:"preTokenBalances"`
	PostTokenBalances []rawTokenBalance           `json:"postTokenBalances"`
	InnerInstructions []rawInnerInstructionsGroup `json:"innerInstructions"`
	LoadedAddresses   *rawLoadedAddresses         `json:"loadedAddresses"`
}

// Result is the parser's output for one transaction.
type Result struct {
	Instructions         []model.Instruction
	Balances             []model.Balance
	InstructionArguments []model.InstructionArgument
}

// Parse decodes one raw transaction into its instruction, balance, and
// instruction-argument rows.
func Parse(signature string, encodedTx string) (*Result, error) {
	var tx rawTransaction
	if err := json.Unmarshal([]byte(encodedTx), &tx); err != nil {
		return nil, perrors.ErrUnsupported("transaction is not valid JSON")
	}
	if tx.Transaction == nil || tx.Transaction.Message == nil || tx.Meta == nil {
		return nil, perrors.ErrUnsupported("transaction is not in raw JSON-message form")
	}

	accountKeys := tx.Transaction.Message.AccountKeys
	if len(accountKeys) > model.ACCOUNTS_ARRAY_SIZE {
		return nil, perrors.ErrInvalidLength("accounts", len(accountKeys), model.ACCOUNTS_ARRAY_SIZE)
	}
	if tx.Meta.LoadedAddresses != nil {
		accountKeys = append(append([]string{}, accountKeys...), tx.Meta.LoadedAddresses.Writable...)
		accountKeys = append(accountKeys, tx.Meta.LoadedAddresses.Readonly...)
	}
	if len(accountKeys) > model.ACCOUNTS_ARRAY_SIZE {
		return nil, perrors.ErrInvalidLength("accounts", len(accountKeys), model.ACCOUNTS_ARRAY_SIZE)
	}

	txStatus := model.TxStatusSuccess
	if len(tx.Meta.Err) > 0 && string(tx.Meta.Err) != "null" {
		txStatus = model.TxStatusFailed
	}

	balances, err := buildBalances(signature, accountKeys, tx.Meta)
	if err != nil {
		return nil, err
	}

	innerGroups := make(map[uint8][]rawInstruction, len(tx.Meta.InnerInstructions))
	for _, group := range tx.Meta.InnerInstructions {
		innerGroups[group.Index] = group.Instructions
	}

	var instructions []model.Instruction
	var args []model.InstructionArgument

	// Emit each outer instruction immediately followed by its inner group
	// (if any), so instructions come out already ordered by
	// raw_instruction_idx = i*256 [+ j+1].
	for i, ins := range tx.Transaction.Message.Instructions {
		outerIdx := uint8(i)
		row, rowArgs, err := decodeOneInstruction(signature, txStatus, tx.Slot, tx.BlockTime, accountKeys, ins, outerIdx, nil)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, row)
		args = append(args, rowArgs...)

		for j, innerIns := range innerGroups[outerIdx] {
			innerRow, innerArgs, err := decodeOneInstruction(signature, txStatus, tx.Slot, tx.BlockTime, accountKeys, innerIns, uint8(j), &outerIdx)
			if err != nil {
				return nil, err
			}
			instructions = append(instructions, innerRow)
			args = append(args, innerArgs...)
		}
	}

	return &Result{Instructions: instructions, Balances: balances, InstructionArguments: args}, nil
}

func buildBalances(signature string, accountKeys []string, meta *rawMeta) ([]model.Balance, error) {
	preToken := make([]*model.TokenBalance, model.ACCOUNTS_ARRAY_SIZE)
	postToken := make([]*model.TokenBalance, model.ACCOUNTS_ARRAY_SIZE)

	for _, tb := range meta.PreTokenBalances {
		if int(tb.AccountIndex) >= model.ACCOUNTS_ARRAY_SIZE {
			return nil, perrors.ErrInvalidIndex("pre_token_balance", int(tb.AccountIndex), model.ACCOUNTS_ARRAY_SIZE)
		}
		preToken[tb.AccountIndex] = tokenBalanceOf(tb)
	}
	for _, tb := range meta.PostTokenBalances {
		if int(tb.AccountIndex) >= model.ACCOUNTS_ARRAY_SIZE {
			return nil, perrors.ErrInvalidIndex("post_token_balance", int(tb.AccountIndex), model.ACCOUNTS_ARRAY_SIZE)
		}
		postToken[tb.AccountIndex] = tokenBalanceOf(tb)
	}

	balances := make([]model.Balance, model.ACCOUNTS_ARRAY_SIZE)
	for i := 0; i < model.ACCOUNTS_ARRAY_SIZE; i++ {
		account := ""
		if i < len(accountKeys) {
			account = accountKeys[i]
		}
		var pre, post uint64
		if i < len(meta.PreBalances) {
			pre = meta.PreBalances[i]
		}
		if i < len(meta.PostBalances) {
			post = meta.PostBalances[i]
		}
		balances[i] = model.Balance{
			TxSignature:  signature,
			AccountIdx:   uint16(i),
			Account:      account,
			PreLamports:  pre,
			PostLamports: post,
			PreToken:     preToken[i],
			PostToken:    postToken[i],
		}
	}
	return balances, nil
}

func tokenBalanceOf(tb rawTokenBalance) *model.TokenBalance {
	amount, _ := parseUint(tb.UiTokenAmount.Amount)
	return &model.TokenBalance{
		Mint:      tb.Mint,
		Owner:     tb.Owner,
		Amount:    amount,
		ProgramID: tb.ProgramID,
	}
}

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// decodeOneInstruction builds one instruction row (and its argument rows).
//
// idx is the row's own instruction_idx: the outer position i for an outer
// instruction, or the inner position j within its group for an inner
// instruction. outerGroup is nil for an outer instruction; for an inner
// instruction it holds the index i of the outer instruction whose
// innerInstructions group this row belongs to, and is used verbatim for
// both inner_instructions_set and transaction_instruction_idx.
func decodeOneInstruction(signature string, txStatus model.TxStatus, slot uint64, blockTime *int64, accountKeys []string, ins rawInstruction, idx uint8, outerGroup *uint8) (model.Instruction, []model.InstructionArgument, error) {
	if ins.ProgramIDIndex < 0 || ins.ProgramIDIndex >= len(accountKeys) {
		return model.Instruction{}, nil, perrors.ErrInvalidIndex("instruction", ins.ProgramIDIndex, len(accountKeys))
	}
	program := accountKeys[ins.ProgramIDIndex]

	var accounts [model.ACCOUNTS_ARRAY_SIZE]*string
	for i, accIdx := range ins.Accounts {
		if i >= model.ACCOUNTS_ARRAY_SIZE {
			break
		}
		if accIdx < 0 || accIdx >= len(accountKeys) {
			site := "instruction"
			if outerGroup != nil {
				site = "inner_instruction"
			}
			return model.Instruction{}, nil, perrors.ErrInvalidIndex(site, accIdx, len(accountKeys))
		}
		key := accountKeys[accIdx]
		accounts[i] = &key
	}

	decoded, derr := decode.Decode(program, ins.Data)
	name := ""
	data := ins.Data
	var leaves []pathtree.Leaf
	if derr != nil {
		if !perrors.IsProgramAddressMatchError(derr) {
			return model.Instruction{}, nil, derr
		}
		// Opaque fallback: empty instruction name, the raw base58 payload,
		// no argument rows.
	} else {
		name = decoded.Name
		leaves = pathtree.Flatten(decoded.Tree)
	}

	row := model.Instruction{
		Program:                   program,
		TxSignature:               signature,
		TxStatus:                  txStatus,
		Slot:                      slot,
		BlockTime:                 blockTime,
		InstructionIdx:            idx,
		InnerInstructionsSet:      outerGroup,
		TransactionInstructionIdx: outerGroup,
		InstructionName:           name,
		Accounts:                  accounts,
		Data:                      data,
	}

	args := make([]model.InstructionArgument, len(leaves))
	for i, leaf := range leaves {
		args[i] = instructionArgumentOf(signature, row, leaf)
	}
	return row, args, nil
}

func instructionArgumentOf(signature string, row model.Instruction, leaf pathtree.Leaf) model.InstructionArgument {
	arg := model.InstructionArgument{
		TxSignature:          signature,
		InstructionIdx:       row.InstructionIdx,
		InnerInstructionsSet: row.InnerInstructionsSet,
		Program:              row.Program,
		ArgIdx:               leaf.ArgIdx,
		ArgPath:              leaf.ArgPath,
	}
	switch leaf.Kind {
	case pathtree.KindInt:
		v := leaf.Int
		arg.IntValue = &v
	case pathtree.KindUnsigned:
		v := leaf.Unsigned
		arg.UnsignedValue = &v
	case pathtree.KindFloat:
		v := leaf.Float
		arg.FloatValue = &v
	case pathtree.KindString:
		v := leaf.Str
		arg.StringValue = &v
	}
	return arg
}
