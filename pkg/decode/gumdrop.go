package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// Gumdrop instruction variants, 8-byte-discriminator convention.

var gumdropSighashes = map[[8]byte]string{
	{0xd2, 0x4b, 0x04, 0xc4, 0x4e, 0x9c, 0x27, 0xb2}: "CreateDistributor",
	{0xb7, 0x02, 0x16, 0x79, 0x8d, 0x63, 0x05, 0xaa}: "Claim",
	{0x4e, 0x94, 0xe1, 0x71, 0xe6, 0x6b, 0x5d, 0xd7}: "CloseDistributor",
}

type CreateDistributorArgs struct {
	Root          [32]byte
	TemporalSigner string
}

type ClaimArgs struct {
	Index  uint64
	Amount uint64
	Proof  [][32]byte
}

func decodeGumdropInstruction(data []byte) (*DecodedInstruction, error) {
	name, rest, err := sighash(data, "Gumdrop", gumdropSighashes)
	if err != nil {
		return nil, err
	}
	c := newCursor(rest)

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "Gumdrop payload", err).WithContext("instruction", name)
	}

	switch name {
	case "CreateDistributor":
		root, err := c.fixedBytes(32)
		if err != nil {
			return fail(err)
		}
		signer, err := c.pubkey()
		if err != nil {
			return fail(err)
		}
		var rootArr [32]byte
		copy(rootArr[:], root)
		v := CreateDistributorArgs{Root: rootArr, TemporalSigner: signer}
		return &DecodedInstruction{Name: "CreateDistributor", Args: v, Tree: pathtree.Named(
			pathtree.E("root", byteArrayNode(root)),
			pathtree.E("temporal_signer", pathtree.String(v.TemporalSigner)),
		)}, nil

	case "Claim":
		index, err := c.u64()
		if err != nil {
			return fail(err)
		}
		amount, err := c.u64()
		if err != nil {
			return fail(err)
		}
		n, err := c.u32()
		if err != nil {
			return fail(err)
		}
		proof := make([][32]byte, n)
		proofNodes := make([]pathtree.Node, n)
		for i := range proof {
			b, err := c.fixedBytes(32)
			if err != nil {
				return fail(err)
			}
			copy(proof[i][:], b)
			proofNodes[i] = byteArrayNode(b)
		}
		v := ClaimArgs{Index: index, Amount: amount, Proof: proof}
		return &DecodedInstruction{Name: "Claim", Args: v, Tree: pathtree.Named(
			pathtree.E("index", pathtree.Unsigned(v.Index)),
			pathtree.E("amount", pathtree.Unsigned(v.Amount)),
			pathtree.E("proof", pathtree.Positional(proofNodes...)),
		)}, nil

	case "CloseDistributor":
		return &DecodedInstruction{Name: "CloseDistributor", Args: nil, Tree: pathtree.PathOf()}, nil

	default:
		return fail(perrors.New(perrors.KindDeserializeInInstructionError, "unimplemented Gumdrop variant "+name, nil))
	}
}
