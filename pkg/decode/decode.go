// Package decode implements program-dispatched typed decoding of one
// instruction's raw byte payload into a DecodedInstruction, which supplies
// both the instruction's public name and its root-context PathTree used to
// flatten typed arguments into rows.
package decode

import (
	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

// Program addresses recognized by the dispatch table below.
const (
	ProgramSystem          = "11111111111111111111111111111111"
	ProgramStake           = "Stake11111111111111111111111111111111111111"
	ProgramVote            = "Vote111111111111111111111111111111111111111"
	ProgramTokenMetadata   = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	ProgramTokenVault      = "vau1zxA2LbssAUEF7Gpw91zMM1LvXrvpzJtmZ58rPsn"
	ProgramMetaplex        = "p1exdMJcjVao65QdewkaZRUnU6VPSXhus9n2GzWfh98"
	ProgramAuction         = "auctxRXPeJoc4817jDhf4HbjnhEcr1cCXenosMhK5R8"
	ProgramNFTPacks        = "packFeFNZzMfD9aVWL7QbGz1WcU7R9zpf6pvNsw2BLu"
	ProgramAuctionHouse    = "hausS13jsjafwWwGqZTUQRmWyvyxn9EQpqMwV1PBBmk"
	ProgramCandyMachine    = "cndy3Z4yapfJBmL3ShUp5exZKqR3z33thTzeNMm2gRZ"
	ProgramFixedPriceSale  = "SaLeTjyUa5wXHnGuewUSyJ5JWZaHwz3TxqUntCE9czo"
	ProgramGumdrop         = "gdrpGjVffourzkdDRrQmySw4aTHr8a3xmQzzxSwFD1a"
	ProgramTokenEntangler  = "qntmGodpGkrM42mN68VCZHXnKqDCT8rdY23wFcXCLPd"
)

// DecodedInstruction is the result of decoding one instruction's payload:
// its public variant name, the decoded value for domain consumers that need
// typed field access (the delegation analyzer), and the root-context
// PathTree used to produce argument rows.
type DecodedInstruction struct {
	Name string
	Args any
	Tree pathtree.Node
}

type decoderFunc func(data []byte) (*DecodedInstruction, error)

var dispatch = map[string]decoderFunc{
	ProgramSystem:         decodeSystemInstruction,
	ProgramStake:          decodeStakeInstruction,
	ProgramVote:           decodeVoteInstruction,
	ProgramTokenMetadata:  decodeTokenMetadataInstruction,
	ProgramTokenVault:     decodeTokenVaultInstruction,
	ProgramMetaplex:       decodeMetaplexInstruction,
	ProgramAuction:        decodeAuctionInstruction,
	ProgramNFTPacks:       decodeNFTPacksInstruction,
	ProgramAuctionHouse:   decodeAuctionHouseInstruction,
	ProgramCandyMachine:   decodeCandyMachineInstruction,
	ProgramFixedPriceSale: decodeFixedPriceSaleInstruction,
	ProgramGumdrop:        decodeGumdropInstruction,
	ProgramTokenEntangler: decodeTokenEntanglerInstruction,
}

// Decode resolves programAddress in the dispatch table and decodes dataB58
// accordingly. An unknown program address yields ErrProgramAddressMatch,
// which the caller (pkg/parser) downgrades to an opaque base58 payload with
// an empty instruction name and no argument rows — this is the one
// non-fatal error in the taxonomy.
func Decode(programAddress string, dataB58 string) (*DecodedInstruction, error) {
	fn, ok := dispatch[programAddress]
	if !ok {
		return nil, perrors.ErrProgramAddressMatch(programAddress)
	}

	data, err := decodeBase58(dataB58)
	if err != nil {
		return nil, perrors.New(perrors.KindDeserializeFromBase58Error, "instruction data is not valid base58", err)
	}

	return fn(data)
}
