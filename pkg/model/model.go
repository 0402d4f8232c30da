// Package model defines the row shapes shared across the pipeline's
// relational queue and columnar store.
package model

// ACCOUNTS_ARRAY_SIZE is the fixed width of an instruction row's accounts
// column, matching the columnar schema exactly.
const ACCOUNTS_ARRAY_SIZE = 256

// STAKE_ACC_RENT_EXEMPTION is the minimum lamport balance below which a
// stake account is not considered principal.
const STAKE_ACC_RENT_EXEMPTION = 2_282_880

// LoadingStatus is the signature row lifecycle state.
type LoadingStatus int

const (
	LoadingStatusPending LoadingStatus = 0
	LoadingStatusClaimed LoadingStatus = 1
	LoadingStatusFetched LoadingStatus = 2
	LoadingStatusFaulty  LoadingStatus = 99
)

// TxStatus is a transaction's execution outcome.
type TxStatus int

const (
	TxStatusFailed    TxStatus = 0
	TxStatusSuccess   TxStatus = 1
	TxStatusUndefined TxStatus = 2
)

// ParsingStatus tracks whether a queued transaction has been parsed yet.
type ParsingStatus int

const (
	ParsingStatusUnparsed ParsingStatus = 0
	ParsingStatusParsed   ParsingStatus = 1
)

// RewardsParsingStatus tracks whether an epoch's rewards have been
// attributed yet.
type RewardsParsingStatus int

const (
	RewardsParsingStatusUnprocessed RewardsParsingStatus = 0
	RewardsParsingStatusProcessed   RewardsParsingStatus = 1
)

// RewardType classifies a reward row.
type RewardType string

const (
	RewardTypeFee     RewardType = "fee"
	RewardTypeRent    RewardType = "rent"
	RewardTypeStaking RewardType = "staking"
	RewardTypeVoting  RewardType = "voting"
)

// Signature is one row per (program, signature).
type Signature struct {
	Program           string        `db:"program" ch:"program"`
	Signature         string        `db:"signature" ch:"signature"`
	Slot              uint64        `db:"slot" ch:"slot"`
	BlockTime         *int64        `db:"block_time" ch:"block_time"`
	Err               string        `db:"err" ch:"err"`
	LoadingStatus     LoadingStatus `db:"loading_status" ch:"loading_status"`
	PotentialGapStart bool          `db:"potential_gap_start" ch:"potential_gap_start"`
}

// ResumeCursor is the per-account, per-program sweep state persisted as
// opaque JSON keyed by program pubkey.
type ResumeCursor struct {
	NewestTransaction string `json:"newest_transaction,omitempty"`
	Before            string `json:"before,omitempty"`
	Until             string `json:"until,omitempty"`
}

// TransactionQueueRow is the transaction-fetching queue's payload row.
type TransactionQueueRow struct {
	Signature     string        `db:"signature"`
	Slot          uint64        `db:"slot"`
	BlockTime     *int64        `db:"block_time"`
	EncodedTx     string        `db:"encoded_tx"`
	ParsingStatus ParsingStatus `db:"parsing_status"`
}

// Instruction is one ordered row keyed by (slot, raw_instruction_idx).
type Instruction struct {
	Program                string                           `ch:"program"`
	TxSignature             string                           `ch:"tx_signature"`
	TxStatus                TxStatus                         `ch:"tx_status"`
	Slot                    uint64                           `ch:"slot"`
	BlockTime               *int64                           `ch:"block_time"`
	InstructionIdx          uint8                            `ch:"instruction_idx"`
	InnerInstructionsSet    *uint8                           `ch:"inner_instructions_set"`
	TransactionInstructionIdx *uint8                         `ch:"transaction_instruction_idx"`
	InstructionName         string                           `ch:"instruction_name"`
	Accounts                [ACCOUNTS_ARRAY_SIZE]*string     `ch:"accounts"`
	Data                    string                           `ch:"data"`
}

// RawInstructionIdx returns the composite ordering key: an outer
// instruction i sorts at i*256; an inner instruction j under outer i sorts
// at i*256 + j + 1.
func RawInstructionIdx(outerIdx uint8, innerIdx *uint8) int {
	if innerIdx == nil {
		return int(outerIdx) * 256
	}
	return int(outerIdx)*256 + int(*innerIdx) + 1
}

// TokenBalance carries one side (pre or post) of a token-balance change.
type TokenBalance struct {
	Mint      string
	Owner     string
	Amount    uint64
	ProgramID string
}

// Balance is per (tx_signature, account).
type Balance struct {
	TxSignature   string        `ch:"tx_signature"`
	AccountIdx    uint16        `ch:"account_idx"`
	Account       string        `ch:"account"`
	PreLamports   uint64        `ch:"pre_lamports"`
	PostLamports  uint64        `ch:"post_lamports"`
	PreToken      *TokenBalance `ch:"pre_token"`
	PostToken     *TokenBalance `ch:"post_token"`
}

// InstructionArgument is a single flattened leaf of a decoded instruction's
// PathTree.
type InstructionArgument struct {
	TxSignature          string  `ch:"tx_signature"`
	InstructionIdx        uint8  `ch:"instruction_idx"`
	InnerInstructionsSet  *uint8 `ch:"inner_instructions_set"`
	Program               string `ch:"program"`
	ArgIdx                int    `ch:"arg_idx"`
	ArgPath                string `ch:"arg_path"`
	IntValue               *int64  `ch:"int_value"`
	UnsignedValue          *uint64 `ch:"unsigned_value"`
	FloatValue             *float64 `ch:"float_value"`
	StringValue            *string `ch:"string_value"`
}

// Delegation is a delegation or undelegation event; the same shape is used
// for both.
type Delegation struct {
	Slot              uint64 `ch:"slot"`
	BlockTime         *int64 `ch:"block_time"`
	StakeAcc          string `ch:"stake_acc"`
	VoteAcc           *string `ch:"vote_acc"`
	TxSignature       string `ch:"tx_signature"`
	Amount            uint64 `ch:"amount"`
	RawInstructionIdx int    `ch:"raw_instruction_idx"`
}

// StakeVoteBinding is the current-best-known stake→vote binding, not
// history; history is reconstructed from the delegation/undelegation logs.
type StakeVoteBinding struct {
	StakeAcc string  `db:"stake_acc"`
	VoteAcc  *string `db:"vote_acc"`
}

// Epoch is one epoch record.
type Epoch struct {
	Epoch                 uint64               `db:"epoch"`
	FirstSlot             uint64               `db:"first_slot"`
	LastSlot              uint64               `db:"last_slot"`
	FirstBlock            *uint64              `db:"first_block"`
	LastBlock             *uint64              `db:"last_block"`
	FirstBlockRaw         *string              `db:"first_block_raw"`
	FirstBlockJSON        *string              `db:"first_block_json"`
	LastBlockRaw          *string              `db:"last_block_raw"`
	LastBlockJSON         *string              `db:"last_block_json"`
	RewardsParsingStatus  RewardsParsingStatus `db:"rewards_parsing_status"`
}

// Reward is one epoch-boundary reward row.
type Reward struct {
	VoteAccount    *string    `ch:"vote_account"`
	Epoch          uint64     `ch:"epoch"`
	Pubkey         string     `ch:"pubkey"`
	Lamports       int64      `ch:"lamports"`
	PostBalance    uint64     `ch:"post_balance"`
	RewardType     RewardType `ch:"reward_type"`
	Commission     *uint8     `ch:"commission"`
	FirstBlockSlot *uint64    `ch:"first_block_slot"`
	BlockTime      *int64     `ch:"block_time"`
}

// ErroneousTransaction records a transaction that failed to parse.
type ErroneousTransaction struct {
	Signature string `ch:"signature"`
	Slot      uint64 `ch:"slot"`
	EncodedTx string `ch:"encoded_tx"`
	Error     string `ch:"error"`
}
