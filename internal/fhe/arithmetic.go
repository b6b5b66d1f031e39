package fhe

import (
	"context"
	"errors"
	"fmt"
)

// Arithmetic evaluates homomorphic operations over ciphertexts from one key set.
// It only sees ciphertext envelopes and never decrypts.
type Arithmetic struct {
	eval Evaluator
}

// NewArithmetic binds arithmetic to an evaluator.
func NewArithmetic(eval Evaluator) *Arithmetic {
	return &Arithmetic{eval: eval}
}

// Add returns a ciphertext of (a + b) mod 2^32.
func (a *Arithmetic) Add(ctx context.Context, x, y Ciphertext) (Ciphertext, error) {
	return a.apply(ctx, OpAdd, x, y)
}

// Subtract returns a ciphertext of max(a - b, 0).
func (a *Arithmetic) Subtract(ctx context.Context, x, y Ciphertext) (Ciphertext, error) {
	return a.apply(ctx, OpSub, x, y)
}

// Multiply returns a ciphertext of (a * b) mod 2^32.
func (a *Arithmetic) Multiply(ctx context.Context, x, y Ciphertext) (Ciphertext, error) {
	return a.apply(ctx, OpMul, x, y)
}

// Apply evaluates any supported op.
func (a *Arithmetic) Apply(ctx context.Context, op Op, x, y Ciphertext) (Ciphertext, error) {
	if _, err := ParseOp(string(op)); err != nil {
		return Ciphertext{}, err
	}
	return a.apply(ctx, op, x, y)
}

// Sum folds Add over cts. At least one ciphertext is required.
func (a *Arithmetic) Sum(ctx context.Context, cts ...Ciphertext) (Ciphertext, error) {
	if len(cts) == 0 {
		return Ciphertext{}, errors.New("sum requires at least one ciphertext")
	}
	acc := cts[0]
	if err := acc.Validate(); err != nil {
		return Ciphertext{}, err
	}
	for _, c := range cts[1:] {
		var err error
		acc, err = a.apply(ctx, OpAdd, acc, c)
		if err != nil {
			return Ciphertext{}, err
		}
	}
	return acc, nil
}

func (a *Arithmetic) apply(ctx context.Context, op Op, x, y Ciphertext) (Ciphertext, error) {
	if err := Compatible(x, y); err != nil {
		return Ciphertext{}, err
	}
	out, err := a.eval.Evaluate(ctx, op, x, y)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("evaluate %s: %w", op, err)
	}
	if err := out.Validate(); err != nil {
		return Ciphertext{}, fmt.Errorf("evaluate %s: result: %w", op, err)
	}
	return out, nil
}

// Compatible checks that both envelopes are well formed and share a scheme and key id.
func Compatible(x, y Ciphertext) error {
	if err := x.Validate(); err != nil {
		return fmt.Errorf("lhs: %w", err)
	}
	if err := y.Validate(); err != nil {
		return fmt.Errorf("rhs: %w", err)
	}
	if x.Scheme() != y.Scheme() || x.KeyID() != y.KeyID() {
		return fmt.Errorf("%w: incompatible key sets %s/%08x and %s/%08x",
			ErrMalformedCiphertext, x.Scheme(), x.KeyID(), y.Scheme(), y.KeyID())
	}
	return nil
}

// EncryptInt64 checks the plaintext domain before encrypting.
func EncryptInt64(ctx context.Context, enc Encryptor, v int64) (Ciphertext, error) {
	p, err := NewPlaintext(v)
	if err != nil {
		return Ciphertext{}, err
	}
	return enc.Encrypt(ctx, p)
}
