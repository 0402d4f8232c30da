package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// FixedPriceSale instruction variants, 8-byte-discriminator convention.

var fixedPriceSaleSighashes = map[[8]byte]string{
	{0x11, 0xa9, 0x5f, 0xca, 0x1c, 0x87, 0x60, 0x20}: "InitSellingResource",
	{0x47, 0x32, 0x8f, 0xe1, 0x2d, 0xc0, 0xde, 0x97}: "CreateMarket",
	{0x4a, 0xc1, 0x1e, 0xea, 0xc0, 0x7b, 0x4a, 0xe1}: "Buy",
	{0x33, 0x9c, 0xf9, 0x3d, 0x6a, 0x2f, 0xa9, 0x4a}: "ClaimResource",
	{0xf9, 0xd0, 0xcc, 0x53, 0xd8, 0x85, 0x2b, 0x6a}: "ChangeMarket",
	{0x05, 0xc6, 0xa6, 0x83, 0xd6, 0x4c, 0xce, 0xb1}: "SuspendMarket",
	{0x2c, 0x8c, 0xf1, 0x0a, 0xbe, 0x6f, 0x2f, 0x7b}: "ResumeMarket",
}

type CreateMarketArgs struct {
	Name            string
	StartDate       int64
	EndDate         *int64
	MutableMetadata bool
	PricePerToken   uint64
	PiecesInOneWallet *uint64
}

type BuyArgs struct {
	TradeHistoryBump uint8
	VaultOwnerBump   uint8
}

func decodeFixedPriceSaleInstruction(data []byte) (*DecodedInstruction, error) {
	name, rest, err := sighash(data, "FixedPriceSale", fixedPriceSaleSighashes)
	if err != nil {
		return nil, err
	}
	c := newCursor(rest)

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "FixedPriceSale payload", err).WithContext("instruction", name)
	}

	switch name {
	case "InitSellingResource":
		maxSupply, err := c.u64()
		if err != nil {
			return fail(err)
		}
		return &DecodedInstruction{Name: "InitSellingResource", Args: maxSupply, Tree: pathtree.Named(
			pathtree.E("max_supply", pathtree.Unsigned(maxSupply)),
		)}, nil

	case "CreateMarket":
		mname, err := c.borshString()
		if err != nil {
			return fail(err)
		}
		start, err := c.i64()
		if err != nil {
			return fail(err)
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
		mutable, err := c.bool()
		if err != nil {
			return fail(err)
		}
		price, err := c.u64()
		if err != nil {
			return fail(err)
		}
		hasPieces, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var pieces *uint64
		if hasPieces {
			v, err := c.u64()
			if err != nil {
				return fail(err)
			}
			pieces = &v
		}
		v := CreateMarketArgs{Name: mname, StartDate: start, EndDate: end, MutableMetadata: mutable, PricePerToken: price, PiecesInOneWallet: pieces}
		var endNode pathtree.Node = pathtree.Unit()
		if end != nil {
			endNode = pathtree.Int(*end)
		}
		return &DecodedInstruction{Name: "CreateMarket", Args: v, Tree: pathtree.Named(
			pathtree.E("name", pathtree.String(v.Name)),
			pathtree.E("start_date", pathtree.Int(v.StartDate)),
			pathtree.E("end_date", endNode),
			pathtree.E("mutable_metadata", pathtree.Bool(v.MutableMetadata)),
			pathtree.E("price_per_token", pathtree.Unsigned(v.PricePerToken)),
			pathtree.E("pieces_in_one_wallet", optionU64Node(v.PiecesInOneWallet)),
		)}, nil

	case "Buy":
		tradeBump, err := c.u8()
		if err != nil {
			return fail(err)
		}
		vaultBump, err := c.u8()
		if err != nil {
			return fail(err)
		}
		v := BuyArgs{TradeHistoryBump: tradeBump, VaultOwnerBump: vaultBump}
		return &DecodedInstruction{Name: "Buy", Args: v, Tree: pathtree.Named(
			pathtree.E("trade_history_bump", pathtree.Unsigned(uint64(v.TradeHistoryBump))),
			pathtree.E("vault_owner_bump", pathtree.Unsigned(uint64(v.VaultOwnerBump))),
		)}, nil

	case "ClaimResource", "SuspendMarket", "ResumeMarket":
		return &DecodedInstruction{Name: name, Args: nil, Tree: pathtree.PathOf()}, nil

	case "ChangeMarket":
		price, err := c.u64()
		if err != nil {
			return fail(err)
		}
		v := AmountArgs{Amount: price}
		return &DecodedInstruction{Name: "ChangeMarket", Args: v, Tree: pathtree.Named(
			pathtree.E("new_price", pathtree.Unsigned(v.Amount)),
		)}, nil

	default:
		return fail(perrors.New(perrors.KindDeserializeInInstructionError, "unimplemented FixedPriceSale variant "+name, nil))
	}
}
