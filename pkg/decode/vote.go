package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// VoteInstruction variants. The delegation analyzer never inspects the
// Vote program; these round out the dispatch table,
// grounded on original_source/data_analyzer/src/instructions/vote_instruction.rs.

type VoteInit struct {
	NodePubkey          string
	AuthorizedVoter     string
	AuthorizedWithdrawer string
	Commission          uint8
}

type VoteAuthorize uint32

const (
	VoteAuthorizeVoter VoteAuthorize = iota
	VoteAuthorizeWithdrawer
)

func (a VoteAuthorize) Name() string {
	if a == VoteAuthorizeWithdrawer {
		return "Withdrawer"
	}
	return "Voter"
}

type VoteAuthorizeInstr struct {
	Pubkey         string
	VoteAuthorize  VoteAuthorize
}

type Lockout struct {
	Slot             uint64
	ConfirmationCount uint32
}

type Vote struct {
	Slots     []uint64
	Hash      string
	Timestamp *int64
}

type VoteWithdraw struct {
	Lamports uint64
}

type VoteUpdateCommission struct {
	Commission uint8
}

func decodeVoteInstruction(data []byte) (*DecodedInstruction, error) {
	c := newCursor(data)
	tag, err := c.u32()
	if err != nil {
		return nil, perrors.New(perrors.KindLimDeserializeInInstructionError, "missing VoteInstruction tag", err)
	}

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindLimDeserializeInInstructionError, "VoteInstruction payload", err).WithContext("instruction", "VoteInstruction")
	}

	switch tag {
	case 0: // InitializeAccount
		node, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		voter, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		withdrawer, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		commission, err := c.u8()
		if err != nil {
			return fail(err)
		}
		v := VoteInit{NodePubkey: node, AuthorizedVoter: voter, AuthorizedWithdrawer: withdrawer, Commission: commission}
		return &DecodedInstruction{Name: "InitializeAccount", Args: v, Tree: pathtree.Named(
			pathtree.E("node_pubkey", pathtree.String(v.NodePubkey)),
			pathtree.E("authorized_voter", pathtree.String(v.AuthorizedVoter)),
			pathtree.E("authorized_withdrawer", pathtree.String(v.AuthorizedWithdrawer)),
			pathtree.E("commission", pathtree.Unsigned(uint64(v.Commission))),
		)}, nil

	case 1: // Authorize
		pubkey, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		authTag, err := c.u32()
		if err != nil {
			return fail(err)
		}
		v := VoteAuthorizeInstr{Pubkey: pubkey, VoteAuthorize: VoteAuthorize(authTag)}
		return &DecodedInstruction{Name: "Authorize", Args: v, Tree: pathtree.Positional(
			pathtree.String(v.Pubkey),
			pathtree.Variant(v.VoteAuthorize.Name(), pathtree.PathOf()),
		)}, nil

	case 2: // Vote
		n, err := c.u64()
		if err != nil {
			return fail(err)
		}
		slots := make([]uint64, n)
		for i := range slots {
			slots[i], err = c.u64()
			if err != nil {
				return fail(err)
			}
		}
		hash, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		hasTimestamp, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var ts *int64
		if hasTimestamp {
			v, err := c.i64()
			if err != nil {
				return fail(err)
			}
			ts = &v
		}
		v := Vote{Slots: slots, Hash: hash, Timestamp: ts}
		tsNode := pathtree.Node(pathtree.Unit())
		if ts != nil {
			tsNode = pathtree.Int(*ts)
		}
		return &DecodedInstruction{Name: "Vote", Args: v, Tree: pathtree.Named(
			pathtree.E("slots", vecU64Node(v.Slots)),
			pathtree.E("hash", pathtree.String(v.Hash)),
			pathtree.E("timestamp", tsNode),
		)}, nil

	case 3: // Withdraw
		lamports, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := VoteWithdraw{Lamports: lamports}
		return &DecodedInstruction{Name: "Withdraw", Args: v, Tree: pathtree.Positional(pathtree.Unsigned(v.Lamports))}, nil

	case 4: // UpdateValidatorIdentity (unit)
		return &DecodedInstruction{Name: "UpdateValidatorIdentity", Args: nil, Tree: pathtree.PathOf()}, nil

	case 5: // UpdateCommission
		commission, err := c.u8()
		if err != nil {
			return fail(err)
		}
		v := VoteUpdateCommission{Commission: commission}
		return &DecodedInstruction{Name: "UpdateCommission", Args: v, Tree: pathtree.Positional(pathtree.Unsigned(uint64(v.Commission)))}, nil

	default:
		return fail(perrors.New(perrors.KindLimDeserializeInInstructionError, "unknown or unimplemented VoteInstruction tag", nil))
	}
}
