package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

// SignatureSize is the length of a personal_sign signature: r || s || v.
const SignatureSize = 65

// ErrMalformedSignature is returned for signatures that cannot be decoded or
// recovered.
var ErrMalformedSignature = errors.New("malformed signature")

// PersonalSignHash returns the EIP-191 digest that wallets sign for
// personal_sign.
func PersonalSignHash(message string) []byte {
	h := sha3.NewLegacyKeccak256()
	fmt.Fprintf(h, "\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return h.Sum(nil)
}

// AddressOf derives the lower-cased EVM address of a public key.
func AddressOf(pub *secp256k1.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	return "0x" + hex.EncodeToString(h.Sum(nil)[12:])
}

// ParseSignature decodes a 0x-prefixed hex signature.
func ParseSignature(raw string) ([]byte, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil || len(sig) != SignatureSize {
		return nil, ErrMalformedSignature
	}
	return sig, nil
}

// RecoverAddress returns the address whose key signed message with
// personal_sign. v may be 0/1 or 27/28.
func RecoverAddress(message string, sig []byte) (string, error) {
	if len(sig) != SignatureSize {
		return "", ErrMalformedSignature
	}
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", ErrMalformedSignature
	}

	// decred's compact form puts the recovery code first.
	compact := make([]byte, SignatureSize)
	compact[0] = 27 + v
	copy(compact[1:], sig[:64])
	pub, _, err := ecdsa.RecoverCompact(compact, PersonalSignHash(message))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return AddressOf(pub), nil
}

// SignPersonal signs message the way a wallet answers personal_sign and
// returns r || s || v with v in {27, 28}.
func SignPersonal(key *secp256k1.PrivateKey, message string) []byte {
	compact := ecdsa.SignCompact(key, PersonalSignHash(message), false)
	sig := make([]byte, SignatureSize)
	copy(sig, compact[1:])
	sig[64] = compact[0]
	return sig
}
