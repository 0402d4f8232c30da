package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// AuctionHouse instruction variants, 8-byte-discriminator (Anchor sighash)
// convention.

var auctionHouseSighashes = map[[8]byte]string{
	{0x7b, 0xeb, 0x40, 0x17, 0x6e, 0x6f, 0x63, 0x6b}: "Buy",
	{0x8c, 0x1f, 0x0e, 0x4c, 0x0a, 0xe4, 0x05, 0x08}: "PublicBuy",
	{0xda, 0xea, 0xa1, 0xd2, 0x6d, 0xf4, 0xda, 0xda}: "Sell",
	{0x0e, 0x9c, 0x3e, 0xa1, 0x0f, 0xc9, 0x27, 0xa8}: "Cancel",
	{0x5e, 0x59, 0x2e, 0x6d, 0xc4, 0x22, 0xce, 0x27}: "Execute",
	{0x1a, 0xf0, 0xcc, 0xbb, 0xff, 0xe7, 0xf6, 0x21}: "Withdraw",
	{0xfd, 0x76, 0x5c, 0x75, 0x95, 0x8b, 0x0f, 0x5e}: "Deposit",
}

type PriceAmountArgs struct {
	Price           uint64
	BuyerPrice      uint64
	TokenSize       uint64
}

func decodeAuctionHouseInstruction(data []byte) (*DecodedInstruction, error) {
	name, rest, err := sighash(data, "AuctionHouse", auctionHouseSighashes)
	if err != nil {
		return nil, err
	}
	c := newCursor(rest)

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "AuctionHouse payload", err).WithContext("instruction", name)
	}

	switch name {
	case "Buy", "PublicBuy", "Sell":
		buyerPrice, err := c.u64()
		if err != nil {
			return fail(err)
		}
		tokenSize, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := PriceAmountArgs{BuyerPrice: buyerPrice, TokenSize: tokenSize}
		return &DecodedInstruction{Name: name, Args: v, Tree: pathtree.Named(
			pathtree.E("buyer_price", pathtree.Unsigned(v.BuyerPrice)),
			pathtree.E("token_size", pathtree.Unsigned(v.TokenSize)),
		)}, nil

	case "Execute":
		buyerPrice, err := c.u64()
		if err != nil {
			return fail(err)
		}
		tokenSize, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := PriceAmountArgs{BuyerPrice: buyerPrice, TokenSize: tokenSize}
		return &DecodedInstruction{Name: "Execute", Args: v, Tree: pathtree.Named(
			pathtree.E("buyer_price", pathtree.Unsigned(v.BuyerPrice)),
			pathtree.E("token_size", pathtree.Unsigned(v.TokenSize)),
		)}, nil

	case "Cancel":
		buyerPrice, err := c.u64()
		if err != nil {
			return fail(err)
		}
		tokenSize, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := PriceAmountArgs{BuyerPrice: buyerPrice, TokenSize: tokenSize}
		return &DecodedInstruction{Name: "Cancel", Args: v, Tree: pathtree.Named(
			pathtree.E("buyer_price", pathtree.Unsigned(v.BuyerPrice)),
			pathtree.E("token_size", pathtree.Unsigned(v.TokenSize)),
		)}, nil

	case "Withdraw", "Deposit":
		amount, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := AmountArgs{Amount: amount}
		return &DecodedInstruction{Name: name, Args: v, Tree: pathtree.Named(
			pathtree.E("amount", pathtree.Unsigned(v.Amount)),
		)}, nil

	default:
		return fail(perrors.New(perrors.KindDeserializeInInstructionError, "unimplemented AuctionHouse variant "+name, nil))
	}
}
