package decode

import (
	"encoding/binary"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/mr-tron/base58"
)

// decodeBase58 decodes an instruction's raw payload. A base58
// alphabet violation (e.g. the literal digit '0') yields
// DeserializeFromBase58Error via the caller.
func decodeBase58(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// cursor is a minimal little-endian byte reader used for the bincode-tagged
// native-program decoding convention (leading u32 LE variant tag; u64
// length-prefixed Vec/String fields, matching true bincode's default
// configuration — distinct from Borsh's u32-length prefix).
type cursor struct {
	buf []byte
	pos int
}

func newCursor(b []byte) *cursor { return &cursor{buf: b} }

func (c *cursor) remaining() int { return len(c.buf) - c.pos }

func (c *cursor) take(n int) ([]byte, error) {
	if c.remaining() < n {
		return nil, fmt.Errorf("cursor: need %d bytes, have %d", n, c.remaining())
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) u8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) bool() (bool, error) {
	v, err := c.u8()
	return v != 0, err
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) u64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *cursor) i64() (int64, error) {
	v, err := c.u64()
	return int64(v), err
}

func (c *cursor) f64() (float64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (c *cursor) pubkey() (string, error) {
	b, err := c.take(32)
	if err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

// bincodeString reads a bincode-encoded String: a u64 length prefix
// followed by that many UTF-8 bytes.
func (c *cursor) bincodeString() (string, error) {
	n, err := c.u64()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// bincodeOption reads the presence tag for an Option<T>: a single byte,
// 0 = None, 1 = Some. The same single-byte tag is used by both the
// bincode-tagged and length-prefixed (Borsh) conventions, so this helper
// serves both.
func (c *cursor) bincodeOptionPresent() (bool, error) {
	return c.bool()
}

func (c *cursor) u16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// borshString reads the length-prefixed convention's String: a u32 length
// prefix followed by that many UTF-8 bytes. The actual decode is delegated
// to gagliardetto/binary's Borsh decoder, the same library the sibling
// geolocation/telemetry account SDKs use for this wire format; the cursor
// only needs the decoded length back to advance its own position.
func (c *cursor) borshString() (string, error) {
	var s string
	if err := bin.NewBorshDecoder(c.buf[c.pos:]).Decode(&s); err != nil {
		return "", err
	}
	if err := c.skip(4 + len(s)); err != nil {
		return "", err
	}
	return s, nil
}

// borshBytes reads a u32-length-prefixed raw byte Vec, via the same
// gagliardetto/binary Borsh decoder as borshString.
func (c *cursor) borshBytes() ([]byte, error) {
	var b []byte
	if err := bin.NewBorshDecoder(c.buf[c.pos:]).Decode(&b); err != nil {
		return nil, err
	}
	if err := c.skip(4 + len(b)); err != nil {
		return nil, err
	}
	return b, nil
}

// skip advances the cursor by n bytes already consumed by a sub-decoder,
// bounds-checked the same way take is.
func (c *cursor) skip(n int) error {
	if c.remaining() < n {
		return fmt.Errorf("cursor: need %d bytes, have %d", n, c.remaining())
	}
	c.pos += n
	return nil
}

// fixedBytes reads exactly n raw bytes, used for fixed-size arrays like
// [u8; 32] name fields.
func (c *cursor) fixedBytes(n int) ([]byte, error) {
	return c.take(n)
}

