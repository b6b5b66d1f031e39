// Package fhe defines the encrypted-value model shared by every encryption backend:
// bounded plaintexts, fixed-size ciphertext envelopes and proofs, the error taxonomy,
// and the provider/evaluator interfaces that backends implement.
//
// Ciphertexts are 32-byte envelopes:
//
//	[0]     scheme      (SchemeTest, SchemeRelayer)
//	[1]     value type  (EUint32)
//	[2:6]   key id      big-endian uint32
//	[6:32]  body        scheme specific
//
// The envelope header can be checked without any key material, so transports and
// ledgers can reject malformed input before it reaches a backend.
package fhe

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

const (
	// CiphertextSize is the length of every ciphertext envelope.
	CiphertextSize = 32
	// ProofSize is the length of every proof.
	ProofSize = 64
	// BodySize is the scheme-specific part of a ciphertext.
	BodySize = CiphertextSize - headerSize

	// PlaintextBits is the width of the plaintext domain.
	PlaintextBits = 32
	// MaxPlaintext is the largest representable plaintext.
	MaxPlaintext = math.MaxUint32

	headerSize = 6
)

// Plaintext is a value in the domain [0, 2^32).
type Plaintext uint32

// NewPlaintext checks that v lies in the plaintext domain.
func NewPlaintext(v int64) (Plaintext, error) {
	if v < 0 || v > MaxPlaintext {
		return 0, fmt.Errorf("%w: %d not in [0, 2^%d)", ErrOutOfRange, v, PlaintextBits)
	}
	return Plaintext(v), nil
}

// Uint64 widens the plaintext.
func (p Plaintext) Uint64() uint64 {
	return uint64(p)
}

// Scheme identifies the backend that produced a ciphertext.
type Scheme byte

const (
	SchemeTest    Scheme = 0x01
	SchemeRelayer Scheme = 0x02
)

func (s Scheme) String() string {
	switch s {
	case SchemeTest:
		return "test"
	case SchemeRelayer:
		return "relayer"
	default:
		return fmt.Sprintf("scheme(0x%02x)", byte(s))
	}
}

func (s Scheme) known() bool {
	return s == SchemeTest || s == SchemeRelayer
}

// ValueType tags the encrypted integer width.
type ValueType byte

// EUint32 is the only value type in the plaintext domain.
const EUint32 ValueType = 0x04

// Ciphertext is an opaque 32-byte envelope. It is a value type: operations never
// mutate a ciphertext in place.
type Ciphertext [CiphertextSize]byte

// NewCiphertext assembles an envelope from its header fields and body.
func NewCiphertext(scheme Scheme, keyID uint32, body [BodySize]byte) Ciphertext {
	var c Ciphertext
	c[0] = byte(scheme)
	c[1] = byte(EUint32)
	binary.BigEndian.PutUint32(c[2:6], keyID)
	copy(c[headerSize:], body[:])
	return c
}

// ParseCiphertext copies b into a Ciphertext after checking its length and header.
func ParseCiphertext(b []byte) (Ciphertext, error) {
	var c Ciphertext
	if len(b) != CiphertextSize {
		return c, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedCiphertext, len(b), CiphertextSize)
	}
	copy(c[:], b)
	if err := c.Validate(); err != nil {
		return Ciphertext{}, err
	}
	return c, nil
}

// ParseCiphertextHex decodes a hex string (optional 0x prefix) into a Ciphertext.
func ParseCiphertextHex(s string) (Ciphertext, error) {
	b, err := decodeHex(s)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return ParseCiphertext(b)
}

// Validate checks the envelope header.
func (c Ciphertext) Validate() error {
	if !c.Scheme().known() {
		return fmt.Errorf("%w: unknown scheme 0x%02x", ErrMalformedCiphertext, c[0])
	}
	if c.ValueType() != EUint32 {
		return fmt.Errorf("%w: unsupported value type 0x%02x", ErrMalformedCiphertext, c[1])
	}
	return nil
}

func (c Ciphertext) Scheme() Scheme       { return Scheme(c[0]) }
func (c Ciphertext) ValueType() ValueType { return ValueType(c[1]) }
func (c Ciphertext) KeyID() uint32        { return binary.BigEndian.Uint32(c[2:6]) }

// Body returns a copy of the scheme-specific bytes.
func (c Ciphertext) Body() [BodySize]byte {
	var body [BodySize]byte
	copy(body[:], c[headerSize:])
	return body
}

// Bytes returns a copy of the envelope.
func (c Ciphertext) Bytes() []byte {
	out := make([]byte, CiphertextSize)
	copy(out, c[:])
	return out
}

// Hex returns the 0x-prefixed hex encoding.
func (c Ciphertext) Hex() string {
	return "0x" + hex.EncodeToString(c[:])
}

// IsZero reports whether c is the zero envelope.
func (c Ciphertext) IsZero() bool {
	return c == Ciphertext{}
}

// Proof is an opaque 64-byte attestation bound to one ciphertext.
type Proof [ProofSize]byte

// ParseProof copies b into a Proof after checking its length.
func ParseProof(b []byte) (Proof, error) {
	var p Proof
	if len(b) != ProofSize {
		return p, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedProof, len(b), ProofSize)
	}
	copy(p[:], b)
	return p, nil
}

// ParseProofHex decodes a hex string (optional 0x prefix) into a Proof.
func ParseProofHex(s string) (Proof, error) {
	b, err := decodeHex(s)
	if err != nil {
		return Proof{}, fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}
	return ParseProof(b)
}

// Bytes returns a copy of the proof.
func (p Proof) Bytes() []byte {
	out := make([]byte, ProofSize)
	copy(out, p[:])
	return out
}

// Hex returns the 0x-prefixed hex encoding.
func (p Proof) Hex() string {
	return "0x" + hex.EncodeToString(p[:])
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

// Op is a homomorphic operation.
type Op string

const (
	OpAdd Op = "add"
	OpSub Op = "sub"
	OpMul Op = "mul"
)

// ParseOp validates an operation name.
func ParseOp(s string) (Op, error) {
	switch op := Op(strings.ToLower(strings.TrimSpace(s))); op {
	case OpAdd, OpSub, OpMul:
		return op, nil
	default:
		return "", fmt.Errorf("unsupported operation %q", s)
	}
}

// Apply computes the plaintext result an evaluation of op must decrypt to.
// Addition and multiplication wrap modulo 2^32; subtraction saturates at zero.
func (op Op) Apply(a, b Plaintext) (Plaintext, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		if b > a {
			return 0, nil
		}
		return a - b, nil
	case OpMul:
		return a * b, nil
	default:
		return 0, fmt.Errorf("unsupported operation %q", string(op))
	}
}
