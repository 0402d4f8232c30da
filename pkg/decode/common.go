package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// sighash reads the leading 8-byte discriminator used by the
// Anchor-style programs (AuctionHouse, CandyMachine, FixedPriceSale,
// Gumdrop, TokenEntangler) and looks it up in table, returning the
// matched instruction name and the remaining payload bytes. An unmatched
// discriminator yields SighashMatchError.
func sighash(data []byte, program string, table map[[8]byte]string) (string, []byte, error) {
	c := newCursor(data)
	raw, err := c.fixedBytes(8)
	if err != nil {
		return "", nil, perrors.New(perrors.KindDeserializeInInstructionError, "missing instruction discriminator", err)
	}
	var key [8]byte
	copy(key[:], raw)
	name, ok := table[key]
	if !ok {
		return "", nil, perrors.ErrSighashMatch(program)
	}
	return name, data[8:], nil
}

// byteArrayNode maps a fixed-size [u8; N] array to a Path of positional
// Unsigned leaves, one per byte, named by index.
func byteArrayNode(b []byte) pathtree.Node {
	nodes := make([]pathtree.Node, len(b))
	for i, v := range b {
		nodes[i] = pathtree.Unsigned(uint64(v))
	}
	return pathtree.Positional(nodes...)
}

// optionU64Node maps an Option<u64> to the Some(v)/None PathTree rule.
func optionU64Node(v *uint64) pathtree.Node {
	if v == nil {
		return pathtree.Unit()
	}
	return pathtree.Unsigned(*v)
}

// optionStringNode maps an Option<String> to the Some(v)/None rule.
func optionStringNode(v *string) pathtree.Node {
	if v == nil {
		return pathtree.Unit()
	}
	return pathtree.String(*v)
}

// optionBoolNode maps an Option<bool> to the Some(v)/None rule; booleans
// encode as Int(0|1).
func optionBoolNode(v *bool) pathtree.Node {
	if v == nil {
		return pathtree.Unit()
	}
	return pathtree.Bool(*v)
}

// vecU64Node maps a Vec<u64> (or Vec<Slot>) to a Path with positional index
// names, per the same fixed-size-array/Vec rule.
func vecU64Node(vs []uint64) pathtree.Node {
	nodes := make([]pathtree.Node, len(vs))
	for i, v := range vs {
		nodes[i] = pathtree.Unsigned(v)
	}
	return pathtree.Positional(nodes...)
}
