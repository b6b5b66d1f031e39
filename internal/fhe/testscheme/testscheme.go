// Package testscheme is a local development backend with the same envelope, API and
// arithmetic semantics as the remote coprocessor.
//
// It is NOT confidential: anyone holding the evaluation key, which is public, can
// unmask values. Selecting it in production requires an explicit opt-in.
//
// Body layout (26 bytes):
//
//	[0:16]   nonce
//	[16:20]  value XOR SHAKE256(mask domain, evaluation key, nonce)
//	[20:26]  SHAKE256(tag domain, evaluation key, header, nonce, masked value)
package testscheme

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"

	"titlechain/internal/fhe"
)

const (
	nonceSize  = 16
	maskedSize = 4
	tagSize    = fhe.BodySize - nonceSize - maskedSize

	// KeySize is the length of secret and evaluation keys.
	KeySize = 32

	domainEvalKey = "titlechain/testscheme/evaluation-key/v1"
	domainKeyID   = "titlechain/testscheme/key-id/v1"
	domainMask    = "titlechain/testscheme/mask/v1"
	domainTag     = "titlechain/testscheme/tag/v1"
)

// SecretKey grants decryption.
type SecretKey [KeySize]byte

// EvaluationKey is derived from a SecretKey and is enough to encrypt and evaluate.
type EvaluationKey [KeySize]byte

// GenerateSecretKey draws a fresh key from crypto/rand.
func GenerateSecretKey() (SecretKey, error) {
	var sk SecretKey
	if _, err := io.ReadFull(rand.Reader, sk[:]); err != nil {
		return SecretKey{}, fmt.Errorf("generate secret key: %w", err)
	}
	return sk, nil
}

// ParseSecretKey decodes a 64-character hex key.
func ParseSecretKey(s string) (SecretKey, error) {
	var sk SecretKey
	if err := decodeKey(s, sk[:]); err != nil {
		return SecretKey{}, fmt.Errorf("secret key: %w", err)
	}
	return sk, nil
}

// ParseEvaluationKey decodes a 64-character hex key.
func ParseEvaluationKey(s string) (EvaluationKey, error) {
	var ek EvaluationKey
	if err := decodeKey(s, ek[:]); err != nil {
		return EvaluationKey{}, fmt.Errorf("evaluation key: %w", err)
	}
	return ek, nil
}

func decodeKey(s string, dst []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("got %d bytes, want %d", len(b), len(dst))
	}
	copy(dst, b)
	return nil
}

// EvaluationKey derives the public evaluation key.
func (sk SecretKey) EvaluationKey() EvaluationKey {
	var ek EvaluationKey
	shake(ek[:], domainEvalKey, sk[:])
	return ek
}

func (sk SecretKey) String() string { return "testscheme.SecretKey(redacted)" }

// Hex encodes the secret key for storage in configuration.
func (sk SecretKey) Hex() string { return hex.EncodeToString(sk[:]) }

// Hex encodes the evaluation key.
func (ek EvaluationKey) Hex() string { return hex.EncodeToString(ek[:]) }

// KeyID identifies the key set inside ciphertext envelopes.
func (ek EvaluationKey) KeyID() uint32 {
	var id [4]byte
	shake(id[:], domainKeyID, ek[:])
	return binary.BigEndian.Uint32(id[:])
}

func shake(out []byte, domain string, parts ...[]byte) {
	h := sha3.NewShake256()
	_, _ = h.Write([]byte(domain))
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	_, _ = h.Read(out)
}

// codec holds the evaluation key shared by encryption, evaluation and decryption.
type codec struct {
	ek    EvaluationKey
	keyID uint32
	rand  io.Reader
}

func newCodec(ek EvaluationKey, r io.Reader) codec {
	if r == nil {
		r = rand.Reader
	}
	return codec{ek: ek, keyID: ek.KeyID(), rand: r}
}

func (c codec) seal(v fhe.Plaintext) (fhe.Ciphertext, error) {
	var body [fhe.BodySize]byte
	nonce := body[:nonceSize]
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return fhe.Ciphertext{}, fmt.Errorf("draw nonce: %w", err)
	}

	var mask [maskedSize]byte
	shake(mask[:], domainMask, c.ek[:], nonce)
	binary.BigEndian.PutUint32(body[nonceSize:nonceSize+maskedSize], uint32(v)^binary.BigEndian.Uint32(mask[:]))

	ct := fhe.NewCiphertext(fhe.SchemeTest, c.keyID, body)
	tag := c.tag(ct)
	copy(ct[fhe.CiphertextSize-tagSize:], tag[:])
	return ct, nil
}

func (c codec) open(ct fhe.Ciphertext) (fhe.Plaintext, error) {
	if err := c.check(ct); err != nil {
		return 0, err
	}
	body := ct.Body()
	var mask [maskedSize]byte
	shake(mask[:], domainMask, c.ek[:], body[:nonceSize])
	masked := binary.BigEndian.Uint32(body[nonceSize : nonceSize+maskedSize])
	return fhe.Plaintext(masked ^ binary.BigEndian.Uint32(mask[:])), nil
}

// check validates the header, key id and integrity tag.
func (c codec) check(ct fhe.Ciphertext) error {
	if err := ct.Validate(); err != nil {
		return err
	}
	if ct.Scheme() != fhe.SchemeTest {
		return fmt.Errorf("%w: scheme %s is not handled by the test backend", fhe.ErrMalformedCiphertext, ct.Scheme())
	}
	if ct.KeyID() != c.keyID {
		return fmt.Errorf("%w: key id %08x, backend holds %08x", fhe.ErrMalformedCiphertext, ct.KeyID(), c.keyID)
	}
	want := c.tag(ct)
	if subtle.ConstantTimeCompare(want[:], ct[fhe.CiphertextSize-tagSize:]) != 1 {
		return fmt.Errorf("%w: integrity check failed", fhe.ErrMalformedCiphertext)
	}
	return nil
}

func (c codec) tag(ct fhe.Ciphertext) [tagSize]byte {
	var tag [tagSize]byte
	shake(tag[:], domainTag, c.ek[:], ct[:fhe.CiphertextSize-tagSize])
	return tag
}

// Encryptor encrypts under an evaluation key.
type Encryptor struct {
	codec
}

// NewEncryptor returns an encryptor; a nil reader means crypto/rand.
func NewEncryptor(ek EvaluationKey, r io.Reader) *Encryptor {
	return &Encryptor{codec: newCodec(ek, r)}
}

func (e *Encryptor) Encrypt(ctx context.Context, v fhe.Plaintext) (fhe.Ciphertext, error) {
	if err := ctx.Err(); err != nil {
		return fhe.Ciphertext{}, err
	}
	return e.seal(v)
}

// Evaluator computes on ciphertexts with the evaluation key only.
type Evaluator struct {
	codec
}

// NewEvaluator returns an evaluator; a nil reader means crypto/rand.
func NewEvaluator(ek EvaluationKey, r io.Reader) *Evaluator {
	return &Evaluator{codec: newCodec(ek, r)}
}

func (e *Evaluator) Evaluate(ctx context.Context, op fhe.Op, a, b fhe.Ciphertext) (fhe.Ciphertext, error) {
	if err := ctx.Err(); err != nil {
		return fhe.Ciphertext{}, err
	}
	x, err := e.open(a)
	if err != nil {
		return fhe.Ciphertext{}, fmt.Errorf("lhs: %w", err)
	}
	y, err := e.open(b)
	if err != nil {
		return fhe.Ciphertext{}, fmt.Errorf("rhs: %w", err)
	}
	out, err := op.Apply(x, y)
	if err != nil {
		return fhe.Ciphertext{}, err
	}
	return e.seal(out)
}

// Decryptor decrypts ciphertexts of its own key set.
type Decryptor struct {
	codec
}

// NewDecryptor binds decryption to a secret key.
func NewDecryptor(sk SecretKey) *Decryptor {
	return &Decryptor{codec: newCodec(sk.EvaluationKey(), nil)}
}

// Decrypt returns ErrUnauthorized for ciphertexts of another key set.
func (d *Decryptor) Decrypt(ctx context.Context, ct fhe.Ciphertext) (fhe.Plaintext, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := ct.Validate(); err != nil {
		return 0, err
	}
	if ct.Scheme() == fhe.SchemeTest && ct.KeyID() != d.keyID {
		return 0, fmt.Errorf("%w: ciphertext key id %08x", fhe.ErrUnauthorized, ct.KeyID())
	}
	return d.open(ct)
}
