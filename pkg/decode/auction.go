package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// Auction instruction variants, length-prefixed convention.

type WinnerLimitType uint8

const (
	WinnerLimitUnlimited WinnerLimitType = iota
	WinnerLimitCapped
)

func (t WinnerLimitType) Name() string {
	if t == WinnerLimitCapped {
		return "Capped"
	}
	return "Unlimited"
}

type PriceFloorType uint8

const (
	PriceFloorNone PriceFloorType = iota
	PriceFloorMinimum
	PriceFloorBlindedPrice
)

func (t PriceFloorType) Name() string {
	switch t {
	case PriceFloorMinimum:
		return "MinimumPrice"
	case PriceFloorBlindedPrice:
		return "BlindedPrice"
	default:
		return "None"
	}
}

type CreateAuctionArgs struct {
	WinnerLimitType    WinnerLimitType
	WinnerLimitCapped  *uint64
	EndAuctionAt       *int64
	AuctionGap         *int64
	PriceFloorType     PriceFloorType
	TickSize           *uint64
	GapTickSizePercent *uint8
	Resource           string
}

type PlaceBidArgs struct {
	Amount   uint64
	Resource string
}

func decodeAuctionInstruction(data []byte) (*DecodedInstruction, error) {
	c := newCursor(data)
	tag, err := c.u8()
	if err != nil {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "missing Auction tag", err)
	}

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "Auction payload", err).WithContext("instruction", "Auction")
	}

	switch tag {
	case 0: // CreateAuction
		limitTag, err := c.u8()
		if err != nil {
			return fail(err)
		}
		var capped *uint64
		if WinnerLimitType(limitTag) == WinnerLimitCapped {
			v, err := c.u64()
			if err != nil {
				return fail(err)
			}
			capped = &v
		}
		hasEnd, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var end *int64
		if hasEnd {
			v, err := c.i64()
			if err != nil {
				return fail(err)
			}
			end = &v
		}
		hasGap, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var gap *int64
		if hasGap {
			v, err := c.i64()
			if err != nil {
				return fail(err)
			}
			gap = &v
		}
		floorTag, err := c.u8()
		if err != nil {
			return fail(err)
		}
		var tickSize *uint64
		if PriceFloorType(floorTag) == PriceFloorMinimum {
			v, err := c.u64()
			if err != nil {
				return fail(err)
			}
			tickSize = &v
		}
		hasGapPercent, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var gapPercent *uint8
		if hasGapPercent {
			v, err := c.u8()
			if err != nil {
				return fail(err)
			}
			gapPercent = &v
		}
		resource, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		v := CreateAuctionArgs{
			WinnerLimitType: WinnerLimitType(limitTag), WinnerLimitCapped: capped,
			EndAuctionAt: end, AuctionGap: gap, PriceFloorType: PriceFloorType(floorTag),
			TickSize: tickSize, GapTickSizePercent: gapPercent, Resource: resource,
		}
		var endNode pathtree.Node = pathtree.Unit()
		if end != nil {
			endNode = pathtree.Int(*end)
		}
		var gapNode pathtree.Node = pathtree.Unit()
		if gap != nil {
			gapNode = pathtree.Int(*gap)
		}
		return &DecodedInstruction{Name: "CreateAuction", Args: v, Tree: pathtree.Named(
			pathtree.E("winner_limit", pathtree.Variant(v.WinnerLimitType.Name(), pathtree.PathOf(
				pathtree.E("n", optionU64Node(v.WinnerLimitCapped)),
			))),
			pathtree.E("end_auction_at", endNode),
			pathtree.E("auction_gap", gapNode),
			pathtree.E("price_floor", pathtree.Variant(v.PriceFloorType.Name(), pathtree.PathOf(
				pathtree.E("price", optionU64Node(v.TickSize)),
			))),
			pathtree.E("gap_tick_size_percent", pathtree.Option(gapPercent != nil, func() pathtree.Node {
				if gapPercent == nil {
					return pathtree.Unit()
				}
				return pathtree.Unsigned(uint64(*gapPercent))
			}())),
			pathtree.E("resource", pathtree.String(v.Resource)),
		)}, nil

	case 1: // PlaceBid
		amount, err := c.u64()
		if err != nil {
			return fail(err)
		}
		resource, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		v := PlaceBidArgs{Amount: amount, Resource: resource}
		return &DecodedInstruction{Name: "PlaceBid", Args: v, Tree: pathtree.Named(
			pathtree.E("amount", pathtree.Unsigned(v.Amount)),
			pathtree.E("resource", pathtree.String(v.Resource)),
		)}, nil

	case 2: // CancelBid (unit)
		return &DecodedInstruction{Name: "CancelBid", Args: nil, Tree: pathtree.PathOf()}, nil

	case 3: // ClaimBid (unit)
		return &DecodedInstruction{Name: "ClaimBid", Args: nil, Tree: pathtree.PathOf()}, nil

	case 4: // StartAuction (unit)
		return &DecodedInstruction{Name: "StartAuction", Args: nil, Tree: pathtree.PathOf()}, nil

	case 5: // EndAuction (unit)
		return &DecodedInstruction{Name: "EndAuction", Args: nil, Tree: pathtree.PathOf()}, nil

	default:
		return fail(perrors.New(perrors.KindDeserializeInInstructionError, "unknown or unimplemented Auction tag", nil))
	}
}
