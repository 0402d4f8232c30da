package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// SystemInstruction variants decoded with full field fidelity. The delegation
// analyzer only accepts instructions whose program is the Stake program, so
// CreateAccount, CreateAccountWithSeed, and Transfer here never actually
// reach its transition table despite sharing field names with their Stake
// counterparts. The remaining variants round out the dispatch table for
// callers that want full System program decoding.

type CreateAccount struct {
	Lamports uint64
	Space    uint64
	Owner    string
}

type Assign struct {
	Owner string
}

type Transfer struct {
	Lamports uint64
}

type CreateAccountWithSeed struct {
	Base     string
	Seed     string
	Lamports uint64
	Space    uint64
	Owner    string
}

type Allocate struct {
	Space uint64
}

type AllocateWithSeed struct {
	Base  string
	Seed  string
	Space uint64
	Owner string
}

type AssignWithSeed struct {
	Base  string
	Seed  string
	Owner string
}

type TransferWithSeed struct {
	Lamports  uint64
	FromSeed  string
	FromOwner string
}

type WithdrawNonceAccount struct {
	Lamports uint64
}

type InitializeNonceAccount struct {
	Authority string
}

type AuthorizeNonceAccount struct {
	Authority string
}

func decodeSystemInstruction(data []byte) (*DecodedInstruction, error) {
	c := newCursor(data)
	tag, err := c.u32()
	if err != nil {
		return nil, perrors.New(perrors.KindLimDeserializeInInstructionError, "missing SystemInstruction tag", err)
	}

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindLimDeserializeInInstructionError, "SystemInstruction payload", err).WithContext("instruction", "SystemInstruction")
	}

	switch tag {
	case 0: // CreateAccount
		lamports, err := c.u64()
		if err != nil {
			return fail(err)
		}
		space, err := c.u64()
		if err != nil {
			return fail(err)
		}
		owner, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		v := CreateAccount{Lamports: lamports, Space: space, Owner: owner}
		return &DecodedInstruction{Name: "CreateAccount", Args: v, Tree: pathtree.Named(
			pathtree.E("lamports", pathtree.Unsigned(v.Lamports)),
			pathtree.E("space", pathtree.Unsigned(v.Space)),
			pathtree.E("owner", pathtree.String(v.Owner)),
		)}, nil

	case 1: // Assign
		owner, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		v := Assign{Owner: owner}
		return &DecodedInstruction{Name: "Assign", Args: v, Tree: pathtree.Named(pathtree.E("owner", pathtree.String(v.Owner)))}, nil

	case 2: // Transfer
		lamports, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := Transfer{Lamports: lamports}
		return &DecodedInstruction{Name: "Transfer", Args: v, Tree: pathtree.Named(pathtree.E("lamports", pathtree.Unsigned(v.Lamports)))}, nil

	case 3: // CreateAccountWithSeed
		base, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		seed, err := c.bincodeString()
		if err != nil {
			return fail(err)
		}
		lamports, err := c.u64()
		if err != nil {
			return fail(err)
		}
		space, err := c.u64()
		if err != nil {
			return fail(err)
		}
		owner, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		v := CreateAccountWithSeed{Base: base, Seed: seed, Lamports: lamports, Space: space, Owner: owner}
		return &DecodedInstruction{Name: "CreateAccountWithSeed", Args: v, Tree: pathtree.Named(
			pathtree.E("base", pathtree.String(v.Base)),
			pathtree.E("seed", pathtree.String(v.Seed)),
			pathtree.E("lamports", pathtree.Unsigned(v.Lamports)),
			pathtree.E("space", pathtree.Unsigned(v.Space)),
			pathtree.E("owner", pathtree.String(v.Owner)),
		)}, nil

	case 4: // AdvanceNonceAccount (unit)
		return &DecodedInstruction{Name: "AdvanceNonceAccount", Args: nil, Tree: pathtree.PathOf()}, nil

	case 5: // WithdrawNonceAccount
		lamports, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := WithdrawNonceAccount{Lamports: lamports}
		return &DecodedInstruction{Name: "WithdrawNonceAccount", Args: v, Tree: pathtree.Named(pathtree.E("lamports", pathtree.Unsigned(v.Lamports)))}, nil

	case 6: // InitializeNonceAccount
		authority, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		v := InitializeNonceAccount{Authority: authority}
		return &DecodedInstruction{Name: "InitializeNonceAccount", Args: v, Tree: pathtree.Named(pathtree.E("authority", pathtree.String(v.Authority)))}, nil

	case 7: // AuthorizeNonceAccount
		authority, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		v := AuthorizeNonceAccount{Authority: authority}
		return &DecodedInstruction{Name: "AuthorizeNonceAccount", Args: v, Tree: pathtree.Named(pathtree.E("authority", pathtree.String(v.Authority)))}, nil

	case 8: // Allocate
		space, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := Allocate{Space: space}
		return &DecodedInstruction{Name: "Allocate", Args: v, Tree: pathtree.Named(pathtree.E("space", pathtree.Unsigned(v.Space)))}, nil

	case 9: // AllocateWithSeed
		base, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		seed, err := c.bincodeString()
		if err != nil {
			return fail(err)
		}
		space, err := c.u64()
		if err != nil {
			return fail(err)
		}
		owner, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		v := AllocateWithSeed{Base: base, Seed: seed, Space: space, Owner: owner}
		return &DecodedInstruction{Name: "AllocateWithSeed", Args: v, Tree: pathtree.Named(
			pathtree.E("base", pathtree.String(v.Base)),
			pathtree.E("seed", pathtree.String(v.Seed)),
			pathtree.E("space", pathtree.Unsigned(v.Space)),
			pathtree.E("owner", pathtree.String(v.Owner)),
		)}, nil

	case 10: // AssignWithSeed
		base, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		seed, err := c.bincodeString()
		if err != nil {
			return fail(err)
		}
		owner, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		v := AssignWithSeed{Base: base, Seed: seed, Owner: owner}
		return &DecodedInstruction{Name: "AssignWithSeed", Args: v, Tree: pathtree.Named(
			pathtree.E("base", pathtree.String(v.Base)),
			pathtree.E("seed", pathtree.String(v.Seed)),
			pathtree.E("owner", pathtree.String(v.Owner)),
		)}, nil

	case 11: // TransferWithSeed
		lamports, err := c.u64()
		if err != nil {
			return fail(err)
		}
		fromSeed, err := c.bincodeString()
		if err != nil {
			return fail(err)
		}
		fromOwner, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		v := TransferWithSeed{Lamports: lamports, FromSeed: fromSeed, FromOwner: fromOwner}
		return &DecodedInstruction{Name: "TransferWithSeed", Args: v, Tree: pathtree.Named(
			pathtree.E("lamports", pathtree.Unsigned(v.Lamports)),
			pathtree.E("from_seed", pathtree.String(v.FromSeed)),
			pathtree.E("from_owner", pathtree.String(v.FromOwner)),
		)}, nil

	case 12: // UpgradeNonceAccount (unit)
		return &DecodedInstruction{Name: "UpgradeNonceAccount", Args: nil, Tree: pathtree.PathOf()}, nil

	default:
		return fail(perrors.New(perrors.KindLimDeserializeInInstructionError, "unknown SystemInstruction tag", nil))
	}
}
