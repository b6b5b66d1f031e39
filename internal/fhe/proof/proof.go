// Package proof issues and checks 64-byte input proofs bound to one ciphertext.
//
// A proof is an Ed25519 signature over a domain-separated SHA3-256 transcript of
// the ciphertext envelope. Only the signer can produce proofs; anyone with the
// public key can verify them.
package proof

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"

	"titlechain/internal/fhe"
)

const (
	// SeedSize is the length of a signing key seed.
	SeedSize = ed25519.SeedSize

	transcriptDomain = "titlechain/input-proof/v1"
)

// Service generates and verifies proofs.
type Service struct {
	priv ed25519.PrivateKey
	*Verifier
}

// New derives a service from a 32-byte seed.
func New(seed []byte) (*Service, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("proof seed: got %d bytes, want %d", len(seed), SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Service{
		priv:     priv,
		Verifier: &Verifier{pub: priv.Public().(ed25519.PublicKey)},
	}, nil
}

// NewFromHex derives a service from a hex-encoded seed.
func NewFromHex(s string) (*Service, error) {
	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("proof seed: invalid hex: %w", err)
	}
	return New(seed)
}

// GenerateSeed draws a new signing seed.
func GenerateSeed() ([]byte, error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, fmt.Errorf("generate proof seed: %w", err)
	}
	return seed, nil
}

// GenerateProof binds a proof to c.
func (s *Service) GenerateProof(c fhe.Ciphertext) (fhe.Proof, error) {
	if err := c.Validate(); err != nil {
		return fhe.Proof{}, err
	}
	digest := transcript(c)
	var p fhe.Proof
	copy(p[:], ed25519.Sign(s.priv, digest[:]))
	return p, nil
}

// Verifier checks proofs with the public key only.
type Verifier struct {
	pub ed25519.PublicKey
}

// NewVerifier wraps a 32-byte Ed25519 public key.
func NewVerifier(pub []byte) (*Verifier, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("proof public key: got %d bytes, want %d", len(pub), ed25519.PublicKeySize)
	}
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, pub)
	return &Verifier{pub: key}, nil
}

// PublicKey returns a copy of the verification key.
func (v *Verifier) PublicKey() []byte {
	out := make([]byte, len(v.pub))
	copy(out, v.pub)
	return out
}

// VerifyProof reports whether p was issued for c. It returns an error only when
// verification cannot run.
func (v *Verifier) VerifyProof(p fhe.Proof, c fhe.Ciphertext) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}
	digest := transcript(c)
	return ed25519.Verify(v.pub, digest[:], p[:]), nil
}

// VerifyBytes is VerifyProof over untyped input, with length checks.
func (v *Verifier) VerifyBytes(proof, ciphertext []byte) (bool, error) {
	p, err := fhe.ParseProof(proof)
	if err != nil {
		return false, err
	}
	c, err := fhe.ParseCiphertext(ciphertext)
	if err != nil {
		return false, err
	}
	return v.VerifyProof(p, c)
}

func transcript(c fhe.Ciphertext) [32]byte {
	h := sha3.New256()
	_, _ = h.Write([]byte(transcriptDomain))
	_, _ = h.Write(c[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
