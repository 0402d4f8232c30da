package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// TokenVault instruction variants, length-prefixed convention.

type InitVault struct {
	AllowFurtherShareCreation bool
}

type AmountArgs struct {
	Amount uint64
}

type NumberOfShareArgs struct {
	NumberOfShares uint64
}

func decodeTokenVaultInstruction(data []byte) (*DecodedInstruction, error) {
	c := newCursor(data)
	tag, err := c.u8()
	if err != nil {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "missing TokenVault tag", err)
	}

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "TokenVault payload", err).WithContext("instruction", "TokenVault")
	}

	switch tag {
	case 0: // InitVault
		allow, err := c.bool()
		if err != nil {
			return fail(err)
		}
		v := InitVault{AllowFurtherShareCreation: allow}
		return &DecodedInstruction{Name: "InitVault", Args: v, Tree: pathtree.Named(
			pathtree.E("allow_further_share_creation", pathtree.Bool(v.AllowFurtherShareCreation)),
		)}, nil

	case 1: // AddTokenToInactiveVault
		amount, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := AmountArgs{Amount: amount}
		return &DecodedInstruction{Name: "AddTokenToInactiveVault", Args: v, Tree: pathtree.Named(
			pathtree.E("amount", pathtree.Unsigned(v.Amount)),
		)}, nil

	case 2: // ActivateVault
		numberOfShares, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := NumberOfShareArgs{NumberOfShares: numberOfShares}
		return &DecodedInstruction{Name: "ActivateVault", Args: v, Tree: pathtree.Named(
			pathtree.E("number_of_shares", pathtree.Unsigned(v.NumberOfShares)),
		)}, nil

	case 3: // CombineVault (unit)
		return &DecodedInstruction{Name: "CombineVault", Args: nil, Tree: pathtree.PathOf()}, nil

	case 4: // RedeemShares (unit)
		return &DecodedInstruction{Name: "RedeemShares", Args: nil, Tree: pathtree.PathOf()}, nil

	case 5: // WithdrawTokenFromSafetyDepositBox
		amount, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := AmountArgs{Amount: amount}
		return &DecodedInstruction{Name: "WithdrawTokenFromSafetyDepositBox", Args: v, Tree: pathtree.Named(
			pathtree.E("amount", pathtree.Unsigned(v.Amount)),
		)}, nil

	case 6: // MintFractionalShares (unit)
		return &DecodedInstruction{Name: "MintFractionalShares", Args: nil, Tree: pathtree.PathOf()}, nil

	case 7: // WithdrawSharesFromTreasury
		numberOfShares, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := NumberOfShareArgs{NumberOfShares: numberOfShares}
		return &DecodedInstruction{Name: "WithdrawSharesFromTreasury", Args: v, Tree: pathtree.Named(
			pathtree.E("number_of_shares", pathtree.Unsigned(v.NumberOfShares)),
		)}, nil

	case 8: // AddSharesToTreasury
		numberOfShares, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := NumberOfShareArgs{NumberOfShares: numberOfShares}
		return &DecodedInstruction{Name: "AddSharesToTreasury", Args: v, Tree: pathtree.Named(
			pathtree.E("number_of_shares", pathtree.Unsigned(v.NumberOfShares)),
		)}, nil

	case 9: // UpdateTokenVaultAccounts (unit)
		return &DecodedInstruction{Name: "UpdateTokenVaultAccounts", Args: nil, Tree: pathtree.PathOf()}, nil

	default:
		return fail(perrors.New(perrors.KindDeserializeInInstructionError, "unknown or unimplemented TokenVault tag", nil))
	}
}
