package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// TokenMetadata instruction variants, length-prefixed convention.

type Creator struct {
	Address  string
	Verified bool
	Share    uint8
}

type MetadataData struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
}

type CreateMetadataAccount struct {
	Data        MetadataData
	IsMutable   bool
}

type UpdateMetadataAccount struct {
	Data                *MetadataData
	UpdateAuthority     *string
	PrimarySaleHappened *bool
}

func decodeMetadataData(c *cursor) (MetadataData, error) {
	var d MetadataData
	name, err := c.borshString()
	if err != nil {
		return d, err
	}
	symbol, err := c.borshString()
	if err != nil {
		return d, err
	}
	uri, err := c.borshString()
	if err != nil {
		return d, err
	}
	sfbp, err := c.u16()
	if err != nil {
		return d, err
	}
	hasCreators, err := c.bincodeOptionPresent()
	if err != nil {
		return d, err
	}
	var creators []Creator
	if hasCreators {
		n, err := c.u32()
		if err != nil {
			return d, err
		}
		creators = make([]Creator, n)
		for i := range creators {
			addr, err := c.pubkey()
			if err != nil {
				return d, err
			}
			verified, err := c.bool()
			if err != nil {
				return d, err
			}
			share, err := c.u8()
			if err != nil {
				return d, err
			}
			creators[i] = Creator{Address: addr, Verified: verified, Share: share}
		}
	}
	d = MetadataData{Name: name, Symbol: symbol, URI: uri, SellerFeeBasisPoints: sfbp, Creators: creators}
	return d, nil
}

func metadataDataNode(d MetadataData) pathtree.Node {
	creatorNodes := make([]pathtree.Node, len(d.Creators))
	for i, cr := range d.Creators {
		creatorNodes[i] = pathtree.Named(
			pathtree.E("address", pathtree.String(cr.Address)),
			pathtree.E("verified", pathtree.Bool(cr.Verified)),
			pathtree.E("share", pathtree.Unsigned(uint64(cr.Share))),
		)
	}
	return pathtree.Named(
		pathtree.E("name", pathtree.String(d.Name)),
		pathtree.E("symbol", pathtree.String(d.Symbol)),
		pathtree.E("uri", pathtree.String(d.URI)),
		pathtree.E("seller_fee_basis_points", pathtree.Unsigned(uint64(d.SellerFeeBasisPoints))),
		pathtree.E("creators", pathtree.Option(d.Creators != nil, pathtree.Positional(creatorNodes...))),
	)
}

func decodeTokenMetadataInstruction(data []byte) (*DecodedInstruction, error) {
	c := newCursor(data)
	tag, err := c.u8()
	if err != nil {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "missing TokenMetadata tag", err)
	}

	fail := func(err error) (*DecodedInstruction, error) {
		return nil, perrors.New(perrors.KindDeserializeInInstructionError, "TokenMetadata payload", err).WithContext("instruction", "TokenMetadata")
	}

	switch tag {
	case 0: // CreateMetadataAccount
		d, err := decodeMetadataData(c)
		if err != nil {
			return fail(err)
		}
		isMutable, err := c.bool()
		if err != nil {
			return fail(err)
		}
		v := CreateMetadataAccount{Data: d, IsMutable: isMutable}
		return &DecodedInstruction{Name: "CreateMetadataAccount", Args: v, Tree: pathtree.Named(
			pathtree.E("data", metadataDataNode(v.Data)),
			pathtree.E("is_mutable", pathtree.Bool(v.IsMutable)),
		)}, nil

	case 1: // UpdateMetadataAccount
		hasData, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var dataNode pathtree.Node = pathtree.Unit()
		var dataPtr *MetadataData
		if hasData {
			d, err := decodeMetadataData(c)
			if err != nil {
				return fail(err)
			}
			dataPtr = &d
			dataNode = metadataDataNode(d)
		}
		hasAuthority, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var authority *string
		if hasAuthority {
			a, err := c.pubkey()
			if err != nil {
				return fail(err)
			}
			authority = &a
		}
		hasPrimary, err := c.bincodeOptionPresent()
		if err != nil {
			return fail(err)
		}
		var primary *bool
		if hasPrimary {
			p, err := c.bool()
			if err != nil {
				return fail(err)
			}
			primary = &p
		}
		v := UpdateMetadataAccount{Data: dataPtr, UpdateAuthority: authority, PrimarySaleHappened: primary}
		return &DecodedInstruction{Name: "UpdateMetadataAccount", Args: v, Tree: pathtree.Named(
			pathtree.E("data", dataNode),
			pathtree.E("update_authority", optionStringNode(v.UpdateAuthority)),
			pathtree.E("primary_sale_happened", optionBoolNode(v.PrimarySaleHappened)),
		)}, nil

	default:
		return fail(perrors.New(perrors.KindDeserializeInInstructionError, "unknown or unimplemented TokenMetadata tag", nil))
	}
}
