package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// CandyMachine instruction variants, 8-byte-discriminator convention.

var candyMachineSighashes = map[[8]byte]string{
	{0xaf, 0xaf, 0x6d, 0x1f, 0x0d, 0x98, 0x9b, 0xed}: "MintNFT",
	{0xa9, 0xa4, 0x78, 0xcf, 0xce, 0x82, 0xa0, 0xe2}: "InitializeCandyMachine",
	{0xdf, 0x73, 0x8d, 0x1c, 0xea, 0x0b, 0x8b, 0xf7}: "UpdateCandyMachine",
	{0x2b, 0x4a, 0x4c, 0xbe, 0x6b, 0x42, 0x5b, 0xf4}: "AddConfigLines",
	{0xf4, 0xf9, 0x3f, 0x29, 0x18, 0xfb, 0x7d, 0x0c}: "SetCollection",
}

type CandyMachineData struct {
	UUID          string
	Price         uint64
	ItemsAvailable uint64
	GoLiveDate    *int64
}

func decodeCandyMachineInstruction(data []byte) (*DecodedInstruction, error) {
	name, rest, err := sighash(data, "CandyMachine", candyMachineSighashes)
	if err != nil {
		return nil, err
	}
	c := newCursor(rest)

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "CandyMachine payload", err).WithContext("instruction", name)
	}

	switch name {
	case "MintNFT": // creator bump u8
		bump, err := c.u8()
		if err != nil {
			return fail(err)
		}
		return &DecodedInstruction{Name: "MintNFT", Args: bump, Tree: pathtree.Named(
			pathtree.E("creator_bump", pathtree.Unsigned(uint64(bump))),
		)}, nil

	case "InitializeCandyMachine", "UpdateCandyMachine":
		uuid, err := c.borshString()
		if err != nil {
			return fail(err)
		}
		price, err := c.u64()
		if err != nil {
			return fail(err)
		}
		itemsAvailable, err := c.u64()
		if err != nil {
			return fail(err)
		}
		hasGoLive, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var goLive *int64
		if hasGoLive {
			v, err := c.i64()
			if err != nil {
				return fail(err)
			}
			goLive = &v
		}
		v := CandyMachineData{UUID: uuid, Price: price, ItemsAvailable: itemsAvailable, GoLiveDate: goLive}
		var goLiveNode pathtree.Node = pathtree.Unit()
		if goLive != nil {
			goLiveNode = pathtree.Int(*goLive)
		}
		return &DecodedInstruction{Name: name, Args: v, Tree: pathtree.Named(
			pathtree.E("uuid", pathtree.String(v.UUID)),
			pathtree.E("price", pathtree.Unsigned(v.Price)),
			pathtree.E("items_available", pathtree.Unsigned(v.ItemsAvailable)),
			pathtree.E("go_live_date", goLiveNode),
		)}, nil

	case "AddConfigLines":
		index, err := c.u32()
		if err != nil {
			return fail(err)
		}
		n, err := c.u32()
		if err != nil {
			return fail(err)
		}
		names := make([]string, n)
		for i := range names {
			names[i], err = c.borshString()
			if err != nil {
				return fail(err)
			}
		}
		nodes := make([]pathtree.Node, len(names))
		for i, nm := range names {
			nodes[i] = pathtree.String(nm)
		}
		return &DecodedInstruction{Name: "AddConfigLines", Args: names, Tree: pathtree.Named(
			pathtree.E("index", pathtree.Unsigned(uint64(index))),
			pathtree.E("config_lines", pathtree.Positional(nodes...)),
		)}, nil

	case "SetCollection": // unit
		return &DecodedInstruction{Name: "SetCollection", Args: nil, Tree: pathtree.PathOf()}, nil

	default:
		return fail(perrors.New(perrors.KindDeserializeInInstructionError, "unimplemented CandyMachine variant "+name, nil))
	}
}
