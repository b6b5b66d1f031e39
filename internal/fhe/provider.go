package fhe

import "context"

// Encryptor turns plaintexts into ciphertexts. Encryption may be randomized, so
// two encryptions of one value are not expected to be equal.
type Encryptor interface {
	Encrypt(ctx context.Context, v Plaintext) (Ciphertext, error)
}

// Decryptor recovers plaintexts. Implementations without the decryption capability
// return ErrUnauthorized.
type Decryptor interface {
	Decrypt(ctx context.Context, c Ciphertext) (Plaintext, error)
}

// Evaluator combines ciphertexts without decrypting them. Evaluators never hold
// the decryption capability.
type Evaluator interface {
	Evaluate(ctx context.Context, op Op, a, b Ciphertext) (Ciphertext, error)
}

// Provider is an encryption context bound to one key set.
type Provider interface {
	Encryptor
	Decryptor
	Info() Info
	Close() error
}

// Backend is a provider together with its evaluator.
type Backend interface {
	Provider
	Evaluator
}

// Info describes a backend for diagnostics and the /fhe/info endpoint.
type Info struct {
	Scheme     Scheme
	KeyID      uint32
	CanDecrypt bool
	// Insecure marks development schemes that give no confidentiality.
	Insecure bool
}
