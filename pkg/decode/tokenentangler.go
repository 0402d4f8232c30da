package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// TokenEntangler instruction variants, 8-byte-discriminator convention.

var tokenEntanglerSighashes = map[[8]byte]string{
	{0x60, 0x91, 0xf6, 0x0b, 0x23, 0x3b, 0x18, 0xc6}: "CreateEntangledPair",
	{0xa5, 0xbf, 0x0e, 0x2e, 0xaa, 0xfd, 0x43, 0x30}: "UpdateEntangledPair",
	{0x5e, 0x9a, 0x6c, 0x02, 0xee, 0xf5, 0xf6, 0x8c}: "Swap",
}

type CreateEntangledPairArgs struct {
	Price                uint64
	PaysEveryTime        bool
	ReverseAPaysB        bool
}

func decodeTokenEntanglerInstruction(data []byte) (*DecodedInstruction, error) {
	name, rest, err := sighash(data, "TokenEntangler", tokenEntanglerSighashes)
	if err != nil {
		return nil, err
	}
	c := newCursor(rest)

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "TokenEntangler payload", err).WithContext("instruction", name)
	}

	switch name {
	case "CreateEntangledPair", "UpdateEntangledPair":
		price, err := c.u64()
		if err != nil {
			return fail(err)
		}
		paysEveryTime, err := c.bool()
		if err != nil {
			return fail(err)
		}
		reverse, err := c.bool()
		if err != nil {
			return fail(err)
		}
		v := CreateEntangledPairArgs{Price: price, PaysEveryTime: paysEveryTime, ReverseAPaysB: reverse}
		return &DecodedInstruction{Name: name, Args: v, Tree: pathtree.Named(
			pathtree.E("price", pathtree.Unsigned(v.Price)),
			pathtree.E("pays_every_time", pathtree.Bool(v.PaysEveryTime)),
			pathtree.E("reverse_a_pays_b", pathtree.Bool(v.ReverseAPaysB)),
		)}, nil

	case "Swap":
		return &DecodedInstruction{Name: "Swap", Args: nil, Tree: pathtree.PathOf()}, nil

	default:
		return fail(perrors.New(perrors.KindDeserializeInInstructionError, "unimplemented TokenEntangler variant "+name, nil))
	}
}
