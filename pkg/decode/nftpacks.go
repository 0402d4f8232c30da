package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// NFTPacksInstruction variants, length-prefixed convention (u8 tag, u32
// length-prefixed Vec/String), grounded on
// original_source/data_analyzer/src/instructions/nft_packs_instruction.rs.
// ClaimPack is tag 6 — the instruction exercised by the test suite's golden
// 5-outer/2-inner-groups transaction.

type PackDistributionType uint8

const (
	PackDistributionMaxSupply PackDistributionType = iota
	PackDistributionFixed
	PackDistributionUnlimited
)

func (d PackDistributionType) Name() string {
	switch d {
	case PackDistributionFixed:
		return "Fixed"
	case PackDistributionUnlimited:
		return "Unlimited"
	default:
		return "MaxSupply"
	}
}

type InitPackSetArgs struct {
	Name                  [32]byte
	Description           string
	URI                   string
	Mutable               bool
	DistributionType      PackDistributionType
	AllowedAmountToRedeem uint32
	RedeemStartDate       *uint64
	RedeemEndDate         *uint64
}

type AddCardToPackArgs struct {
	MaxSupply uint32
	Weight    uint16
	Index     uint32
}

type EditPackSetArgs struct {
	Name        *[32]byte
	Description *string
	URI         *string
	Mutable     *bool
}

// ClaimPackArgs is the payload of the ClaimPack variant.
type ClaimPackArgs struct {
	Index uint32
}

type RequestCardToRedeemArgs struct {
	Index uint32
}

func decodeNFTPacksInstruction(data []byte) (*DecodedInstruction, error) {
	c := newCursor(data)
	tag, err := c.u8()
	if err != nil {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "missing NFTPacksInstruction tag", err)
	}

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "NFTPacksInstruction payload", err).WithContext("instruction", "NFTPacksInstruction")
	}

	switch tag {
	case 0: // InitPack
		name, err := c.fixedBytes(32)
		if err != nil {
			return fail(err)
		}
		description, err := c.borshString()
		if err != nil {
			return fail(err)
		}
		uri, err := c.borshString()
		if err != nil {
			return fail(err)
		}
		mutable, err := c.bool()
		if err != nil {
			return fail(err)
		}
		distTag, err := c.u8()
		if err != nil {
			return fail(err)
		}
		allowed, err := c.u32()
		if err != nil {
			return fail(err)
		}
		hasStart, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var start *uint64
		if hasStart {
			v, err := c.u64()
			if err != nil {
				return fail(err)
			}
			start = &v
		}
		hasEnd, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var end *uint64
		if hasEnd {
			v, err := c.u64()
			if err != nil {
				return fail(err)
			}
			end = &v
		}
		var nameArr [32]byte
		copy(nameArr[:], name)
		v := InitPackSetArgs{
			Name: nameArr, Description: description, URI: uri, Mutable: mutable,
			DistributionType: PackDistributionType(distTag), AllowedAmountToRedeem: allowed,
			RedeemStartDate: start, RedeemEndDate: end,
		}
		return &DecodedInstruction{Name: "InitPack", Args: v, Tree: pathtree.Named(
			pathtree.E("name", byteArrayNode(name)),
			pathtree.E("description", pathtree.String(v.Description)),
			pathtree.E("uri", pathtree.String(v.URI)),
			pathtree.E("mutable", pathtree.Bool(v.Mutable)),
			pathtree.E("distribution_type", pathtree.Variant(v.DistributionType.Name(), pathtree.PathOf())),
			pathtree.E("allowed_amount_to_redeem", pathtree.Unsigned(uint64(v.AllowedAmountToRedeem))),
			pathtree.E("redeem_start_date", optionU64Node(v.RedeemStartDate)),
			pathtree.E("redeem_end_date", optionU64Node(v.RedeemEndDate)),
		)}, nil

	case 1: // AddCardToPack
		maxSupply, err := c.u32()
		if err != nil {
			return fail(err)
		}
		weight, err := c.u16()
		if err != nil {
			return fail(err)
		}
		index, err := c.u32()
		if err != nil {
			return fail(err)
		}
		v := AddCardToPackArgs{MaxSupply: maxSupply, Weight: weight, Index: index}
		return &DecodedInstruction{Name: "AddCardToPack", Args: v, Tree: pathtree.Named(
			pathtree.E("max_supply", pathtree.Unsigned(uint64(v.MaxSupply))),
			pathtree.E("weight", pathtree.Unsigned(uint64(v.Weight))),
			pathtree.E("index", pathtree.Unsigned(uint64(v.Index))),
		)}, nil

	case 2: // AddVoucherToPack (unit)
		return &DecodedInstruction{Name: "AddVoucherToPack", Args: nil, Tree: pathtree.PathOf()}, nil

	case 3: // Activate (unit)
		return &DecodedInstruction{Name: "Activate", Args: nil, Tree: pathtree.PathOf()}, nil

	case 4: // Deactivate (unit)
		return &DecodedInstruction{Name: "Deactivate", Args: nil, Tree: pathtree.PathOf()}, nil

	case 5: // ClosePack (unit)
		return &DecodedInstruction{Name: "ClosePack", Args: nil, Tree: pathtree.PathOf()}, nil

	case 6: // ClaimPack
		index, err := c.u32()
		if err != nil {
			return fail(err)
		}
		v := ClaimPackArgs{Index: index}
		return &DecodedInstruction{Name: "ClaimPack", Args: v, Tree: pathtree.Named(
			pathtree.E("index", pathtree.Unsigned(uint64(v.Index))),
		)}, nil

	case 7: // RequestCardToRedeem
		index, err := c.u32()
		if err != nil {
			return fail(err)
		}
		v := RequestCardToRedeemArgs{Index: index}
		return &DecodedInstruction{Name: "RequestCardToRedeem", Args: v, Tree: pathtree.Named(
			pathtree.E("index", pathtree.Unsigned(uint64(v.Index))),
		)}, nil

	default:
		return fail(perrors.New(perrors.KindDeserializeInInstructionError, "unknown or unimplemented NFTPacksInstruction tag", nil))
	}
}
