package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// Metaplex (auction manager) instruction variants, length-prefixed
// convention.

type WinningConfigType uint8

const (
	WinningConfigFullRightsTransfer WinningConfigType = iota
	WinningConfigTokenOnlyTransfer
	WinningConfigPrintingV1
	WinningConfigPrintingV2
	WinningConfigParticipation
)

func (t WinningConfigType) Name() string {
	switch t {
	case WinningConfigTokenOnlyTransfer:
		return "TokenOnlyTransfer"
	case WinningConfigPrintingV1:
		return "PrintingV1"
	case WinningConfigPrintingV2:
		return "PrintingV2"
	case WinningConfigParticipation:
		return "Participation"
	default:
		return "FullRightsTransfer"
	}
}

type InitAuctionManagerV2Args struct {
	AmountType          WinningConfigType
	LengthType          WinningConfigType
	MaxRanges           uint8
}

type ValidateSafetyDepositBoxV2Args struct {
	SafetyDepositConfig WinningConfigType
}

type RedeemBidArgs struct{}

type RedeemFullRightsTransferBidArgs struct{}

type DecommissionAuctionManagerArgs struct{}

func decodeMetaplexInstruction(data []byte) (*DecodedInstruction, error) {
	c := newCursor(data)
	tag, err := c.u8()
	if err != nil {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "missing Metaplex tag", err)
	}

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "Metaplex payload", err).WithContext("instruction", "Metaplex")
	}

	switch tag {
	case 0: // InitAuctionManagerV2
		amountType, err := c.u8()
		if err != nil {
			return fail(err)
		}
		lengthType, err := c.u8()
		if err != nil {
			return fail(err)
		}
		maxRanges, err := c.u8()
		if err != nil {
			return fail(err)
		}
		v := InitAuctionManagerV2Args{
			AmountType: WinningConfigType(amountType),
			LengthType: WinningConfigType(lengthType),
			MaxRanges:  maxRanges,
		}
		return &DecodedInstruction{Name: "InitAuctionManagerV2", Args: v, Tree: pathtree.Named(
			pathtree.E("amount_type", pathtree.Variant(v.AmountType.Name(), pathtree.PathOf())),
			pathtree.E("length_type", pathtree.Variant(v.LengthType.Name(), pathtree.PathOf())),
			pathtree.E("max_ranges", pathtree.Unsigned(uint64(v.MaxRanges))),
		)}, nil

	case 1: // ValidateSafetyDepositBoxV2
		config, err := c.u8()
		if err != nil {
			return fail(err)
		}
		v := ValidateSafetyDepositBoxV2Args{SafetyDepositConfig: WinningConfigType(config)}
		return &DecodedInstruction{Name: "ValidateSafetyDepositBoxV2", Args: v, Tree: pathtree.Named(
			pathtree.E("safety_deposit_config", pathtree.Variant(v.SafetyDepositConfig.Name(), pathtree.PathOf())),
		)}, nil

	case 2: // RedeemBid (unit)
		return &DecodedInstruction{Name: "RedeemBid", Args: RedeemBidArgs{}, Tree: pathtree.PathOf()}, nil

	case 3: // RedeemFullRightsTransferBid (unit)
		return &DecodedInstruction{Name: "RedeemFullRightsTransferBid", Args: RedeemFullRightsTransferBidArgs{}, Tree: pathtree.PathOf()}, nil

	case 4: // StartAuction (unit)
		return &DecodedInstruction{Name: "StartAuction", Args: nil, Tree: pathtree.PathOf()}, nil

	case 5: // ClaimBidderPot (unit)
		return &DecodedInstruction{Name: "ClaimBidderPot", Args: nil, Tree: pathtree.PathOf()}, nil

	case 6: // EmptyPaymentAccount (unit)
		return &DecodedInstruction{Name: "EmptyPaymentAccount", Args: nil, Tree: pathtree.PathOf()}, nil

	case 7: // SetStore (unit)
		return &DecodedInstruction{Name: "SetStore", Args: nil, Tree: pathtree.PathOf()}, nil

	case 8: // SetWhitelistedCreator (unit)
		return &DecodedInstruction{Name: "SetWhitelistedCreator", Args: nil, Tree: pathtree.PathOf()}, nil

	case 9: // DecommissionAuctionManager (unit)
		return &DecodedInstruction{Name: "DecommissionAuctionManager", Args: DecommissionAuctionManagerArgs{}, Tree: pathtree.PathOf()}, nil

	default:
		return fail(perrors.New(perrors.KindDeserializeInInstructionError, "unknown or unimplemented Metaplex tag", nil))
	}
}
