package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// StakeInstruction variants. DelegateStake, Deactivate, Split, Merge, and
// Withdraw are the ones the delegation analyzer's whitelist actually
// inspects; Initialize/Authorize/SetLockup round out the dispatch table.

type Authorized struct {
	Staker     string
	Withdrawer string
}

type Lockup struct {
	UnixTimestamp int64
	Epoch         uint64
	Custodian     string
}

type Initialize struct {
	Authorized Authorized
	Lockup     Lockup
}

type StakeAuthorize uint32

const (
	StakeAuthorizeStaker StakeAuthorize = iota
	StakeAuthorizeWithdrawer
)

func (a StakeAuthorize) Name() string {
	if a == StakeAuthorizeWithdrawer {
		return "Withdrawer"
	}
	return "Staker"
}

type Authorize struct {
	NewAuthority   string
	StakeAuthorize StakeAuthorize
}

// DelegateStake carries no instruction data: the vote account comes from
// the instruction's account list (accounts[1]), not its payload.
type DelegateStake struct{}

// Split carries the lamport amount to move into the new split account.
type Split struct {
	Lamports uint64
}

// Withdraw carries the lamport amount to withdraw.
type Withdraw struct {
	Lamports uint64
}

// Deactivate carries no instruction data.
type Deactivate struct{}

type LockupArgs struct {
	UnixTimestamp *int64
	Epoch         *uint64
	Custodian     *string
}

// Merge carries no instruction data.
type Merge struct{}

func decodeStakeInstruction(data []byte) (*DecodedInstruction, error) {
	c := newCursor(data)
	tag, err := c.u32()
	if err != nil {
		return nil, perrors.New(perrors.KindLimDeserializeInInstructionError, "missing StakeInstruction tag", err)
	}

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindLimDeserializeInInstructionError, "StakeInstruction payload", err).WithContext("instruction", "StakeInstruction")
	}

	switch tag {
	case 0: // Initialize
		staker, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		withdrawer, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		unixTs, err := c.i64()
		if err != nil {
			return fail(err)
		}
		epoch, err := c.u64()
		if err != nil {
			return fail(err)
		}
		custodian, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		v := Initialize{
			Authorized: Authorized{Staker: staker, Withdrawer: withdrawer},
			Lockup:     Lockup{UnixTimestamp: unixTs, Epoch: epoch, Custodian: custodian},
		}
		return &DecodedInstruction{Name: "Initialize", Args: v, Tree: pathtree.Named(
			pathtree.E("authorized", pathtree.Named(
				pathtree.E("staker", pathtree.String(v.Authorized.Staker)),
				pathtree.E("withdrawer", pathtree.String(v.Authorized.Withdrawer)),
			)),
			pathtree.E("lockup", pathtree.Named(
				pathtree.E("unix_timestamp", pathtree.Int(v.Lockup.UnixTimestamp)),
				pathtree.E("epoch", pathtree.Unsigned(v.Lockup.Epoch)),
				pathtree.E("custodian", pathtree.String(v.Lockup.Custodian)),
			)),
		)}, nil

	case 1: // Authorize
		newAuthority, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		authTag, err := c.u32()
		if err != nil {
			return fail(err)
		}
		v := Authorize{NewAuthority: newAuthority, StakeAuthorize: StakeAuthorize(authTag)}
		return &DecodedInstruction{Name: "Authorize", Args: v, Tree: pathtree.Positional(
			pathtree.String(v.NewAuthority),
			pathtree.Variant(v.StakeAuthorize.Name(), pathtree.PathOf()),
		)}, nil

	case 2: // DelegateStake (unit: vote account is accounts[1], not data)
		return &DecodedInstruction{Name: "DelegateStake", Args: DelegateStake{}, Tree: pathtree.PathOf()}, nil

	case 3: // Split
		lamports, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := Split{Lamports: lamports}
		return &DecodedInstruction{Name: "Split", Args: v, Tree: pathtree.Positional(pathtree.Unsigned(v.Lamports))}, nil

	case 4: // Withdraw
		lamports, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := Withdraw{Lamports: lamports}
		return &DecodedInstruction{Name: "Withdraw", Args: v, Tree: pathtree.Positional(pathtree.Unsigned(v.Lamports))}, nil

	case 5: // Deactivate (unit)
		return &DecodedInstruction{Name: "Deactivate", Args: Deactivate{}, Tree: pathtree.PathOf()}, nil

	case 6: // SetLockup
		hasTs, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var ts *int64
		if hasTs {
			v, err := c.i64()
			if err != nil {
				return fail(err)
			}
			ts = &v
		}
		hasEpoch, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var epoch *uint64
		if hasEpoch {
			v, err := c.u64()
			if err != nil {
				return fail(err)
			}
			epoch = &v
		}
		hasCustodian, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var custodian *string
		if hasCustodian {
			v, err := c.pubkey()
			if err != nil {
				return fail(err)
			}
			custodian = &v
		}
		v := LockupArgs{UnixTimestamp: ts, Epoch: epoch, Custodian: custodian}
		tsNode := pathtree.Unit()
		if v.UnixTimestamp != nil {
			tsNode = pathtree.Int(*v.UnixTimestamp)
		}
		epochNode := pathtree.Unit()
		if v.Epoch != nil {
			epochNode = pathtree.Unsigned(*v.Epoch)
		}
		custodianNode := pathtree.Unit()
		if v.Custodian != nil {
			custodianNode = pathtree.String(*v.Custodian)
		}
		return &DecodedInstruction{Name: "SetLockup", Args: v, Tree: pathtree.Named(
			pathtree.E("unix_timestamp", tsNode),
			pathtree.E("epoch", epochNode),
			pathtree.E("custodian", custodianNode),
		)}, nil

	case 7: // Merge (unit)
		return &DecodedInstruction{Name: "Merge", Args: Merge{}, Tree: pathtree.PathOf()}, nil

	default:
		return fail(perrors.New(perrors.KindLimDeserializeInInstructionError, "unknown StakeInstruction tag", nil))
	}
}
