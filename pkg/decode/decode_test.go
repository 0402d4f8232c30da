package decode

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mr-tron/base58"

	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/pathtree"
)

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestDecode_UnknownProgramAddress(t *testing.T) {
	_, err := Decode("not-a-known-program", "11111111111111111111111111111111")
	if !perrors.IsProgramAddressMatchError(err) {
		t.Fatalf("got %v (%T), want ErrProgramAddressMatch", err, err)
	}
}

func TestDecode_SystemCreateAccount(t *testing.T) {
	owner := make([]byte, 32)
	for i := range owner {
		owner[i] = byte(i)
	}

	payload := append(u32le(0), u64le(1_000_000)...)
	payload = append(payload, u64le(200)...)
	payload = append(payload, owner...)

	got, err := Decode(ProgramSystem, base58.Encode(payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Name != "CreateAccount" {
		t.Fatalf("Name = %q, want CreateAccount", got.Name)
	}

	ownerStr := base58.Encode(owner)
	want := CreateAccount{Lamports: 1_000_000, Space: 200, Owner: ownerStr}
	if diff := cmp.Diff(want, got.Args); diff != "" {
		t.Fatalf("Args mismatch (-want +got):\n%s", diff)
	}

	wantTree := pathtree.Named(
		pathtree.E("lamports", pathtree.Unsigned(1_000_000)),
		pathtree.E("space", pathtree.Unsigned(200)),
		pathtree.E("owner", pathtree.String(ownerStr)),
	)
	if diff := cmp.Diff(wantTree, got.Tree); diff != "" {
		t.Fatalf("Tree mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_StakeSplit(t *testing.T) {
	payload := append(u32le(3), u64le(42)...)

	got, err := Decode(ProgramStake, base58.Encode(payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Name != "Split" {
		t.Fatalf("Name = %q, want Split", got.Name)
	}
	if diff := cmp.Diff(Split{Lamports: 42}, got.Args); diff != "" {
		t.Fatalf("Args mismatch (-want +got):\n%s", diff)
	}
	wantTree := pathtree.Positional(pathtree.Unsigned(42))
	if diff := cmp.Diff(wantTree, got.Tree); diff != "" {
		t.Fatalf("Tree mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_StakeDelegateStakeIsUnit(t *testing.T) {
	got, err := Decode(ProgramStake, base58.Encode(u32le(2)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Name != "DelegateStake" {
		t.Fatalf("Name = %q, want DelegateStake", got.Name)
	}
	if diff := cmp.Diff(DelegateStake{}, got.Args); diff != "" {
		t.Fatalf("Args mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_BadBase58IsDeserializeError(t *testing.T) {
	_, err := Decode(ProgramSystem, "ERROR IS HERE")
	pe, ok := err.(*perrors.ParseInstructionError)
	if !ok {
		t.Fatalf("got %T, want *perrors.ParseInstructionError", err)
	}
	if pe.Kind != perrors.KindDeserializeFromBase58Error {
		t.Fatalf("Kind = %v, want KindDeserializeFromBase58Error", pe.Kind)
	}
}

func TestDecode_TruncatedPayloadIsLimDeserializeError(t *testing.T) {
	_, err := Decode(ProgramStake, base58.Encode(u32le(3)))
	pe, ok := err.(*perrors.ParseInstructionError)
	if !ok {
		t.Fatalf("got %T, want *perrors.ParseInstructionError", err)
	}
	if pe.Kind != perrors.KindLimDeserializeInInstructionError {
		t.Fatalf("Kind = %v, want KindLimDeserializeInInstructionError", pe.Kind)
	}
}
