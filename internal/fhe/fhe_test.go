package fhe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainEvaluator stores the plaintext in the body so arithmetic can be checked
// without a real scheme.
type plainEvaluator struct {
	calls int
	err   error
}

func seal(v Plaintext, keyID uint32) Ciphertext {
	var body [BodySize]byte
	binary.BigEndian.PutUint32(body[:4], uint32(v))
	return NewCiphertext(SchemeTest, keyID, body)
}

func open(c Ciphertext) Plaintext {
	body := c.Body()
	return Plaintext(binary.BigEndian.Uint32(body[:4]))
}

func (e *plainEvaluator) Evaluate(_ context.Context, op Op, a, b Ciphertext) (Ciphertext, error) {
	e.calls++
	if e.err != nil {
		return Ciphertext{}, e.err
	}
	out, err := op.Apply(open(a), open(b))
	if err != nil {
		return Ciphertext{}, err
	}
	return seal(out, a.KeyID()), nil
}

func TestNewPlaintext(t *testing.T) {
	tests := []struct {
		name    string
		in      int64
		want    Plaintext
		wantErr bool
	}{
		{name: "zero", in: 0, want: 0},
		{name: "max", in: MaxPlaintext, want: MaxPlaintext},
		{name: "negative", in: -1, wantErr: true},
		{name: "two to the 32", in: 1 << 32, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPlaintext(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrOutOfRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCiphertext(t *testing.T) {
	valid := seal(7, 0xdeadbeef)

	t.Run("valid envelope", func(t *testing.T) {
		got, err := ParseCiphertext(valid.Bytes())
		require.NoError(t, err)
		assert.Equal(t, valid, got)
		assert.Equal(t, SchemeTest, got.Scheme())
		assert.Equal(t, EUint32, got.ValueType())
		assert.Equal(t, uint32(0xdeadbeef), got.KeyID())
	})

	t.Run("hex round trip", func(t *testing.T) {
		got, err := ParseCiphertextHex(valid.Hex())
		require.NoError(t, err)
		assert.Equal(t, valid, got)
	})

	malformed := map[string][]byte{
		"empty":              nil,
		"31 bytes":           make([]byte, 31),
		"33 bytes":           append(valid.Bytes(), 0x00),
		"unknown scheme":     func() []byte { b := valid.Bytes(); b[0] = 0x7f; return b }(),
		"unknown value type": func() []byte { b := valid.Bytes(); b[1] = 0x08; return b }(),
		"all zero":           make([]byte, CiphertextSize),
	}
	for name, in := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCiphertext(in)
			assert.ErrorIs(t, err, ErrMalformedCiphertext)
		})
	}

	t.Run("bad hex", func(t *testing.T) {
		_, err := ParseCiphertextHex("0xzz")
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})
}

func TestParseProof(t *testing.T) {
	_, err := ParseProof(make([]byte, ProofSize-1))
	assert.ErrorIs(t, err, ErrMalformedProof)

	_, err = ParseProofHex("not hex")
	assert.ErrorIs(t, err, ErrMalformedProof)

	var p Proof
	p[0], p[63] = 0xaa, 0xbb
	got, err := ParseProofHex(p.Hex())
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestCiphertextIsValue(t *testing.T) {
	c := seal(5, 1)
	b := c.Bytes()
	b[10] = 0xff
	assert.NotEqual(t, b[10], c[10], "Bytes must return a copy")

	body := c.Body()
	body[0] = 0xff
	assert.Equal(t, Plaintext(5), open(c))
}

func TestOpApply(t *testing.T) {
	tests := []struct {
		op   Op
		a, b Plaintext
		want Plaintext
	}{
		{OpAdd, 2, 3, 5},
		{OpAdd, MaxPlaintext, 1, 0},
		{OpAdd, MaxPlaintext, MaxPlaintext, MaxPlaintext - 1},
		{OpSub, 10, 3, 7},
		{OpSub, 3, 10, 0},
		{OpSub, 0, MaxPlaintext, 0},
		{OpMul, 6, 7, 42},
		{OpMul, 1 << 16, 1 << 16, 0},
		{OpMul, MaxPlaintext, 2, MaxPlaintext - 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %d %d", tt.op, tt.a, tt.b), func(t *testing.T) {
			got, err := tt.op.Apply(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Op("div").Apply(1, 1)
	assert.Error(t, err)
}

func TestParseOp(t *testing.T) {
	op, err := ParseOp(" MUL ")
	require.NoError(t, err)
	assert.Equal(t, OpMul, op)

	_, err = ParseOp("xor")
	assert.Error(t, err)
}

func TestArithmetic(t *testing.T) {
	ctx := context.Background()

	t.Run("add subtract multiply", func(t *testing.T) {
		arith := NewArithmetic(&plainEvaluator{})

		sum, err := arith.Add(ctx, seal(2, 1), seal(3, 1))
		require.NoError(t, err)
		assert.Equal(t, Plaintext(5), open(sum))

		diff, err := arith.Subtract(ctx, seal(3, 1), seal(10, 1))
		require.NoError(t, err)
		assert.Equal(t, Plaintext(0), open(diff))

		prod, err := arith.Multiply(ctx, seal(6, 1), seal(7, 1))
		require.NoError(t, err)
		assert.Equal(t, Plaintext(42), open(prod))
	})

	t.Run("mismatched key ids are rejected before evaluation", func(t *testing.T) {
		eval := &plainEvaluator{}
		arith := NewArithmetic(eval)

		_, err := arith.Add(ctx, seal(1, 1), seal(1, 2))
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
		assert.Zero(t, eval.calls)
	})

	t.Run("malformed operand", func(t *testing.T) {
		arith := NewArithmetic(&plainEvaluator{})
		_, err := arith.Multiply(ctx, Ciphertext{}, seal(1, 1))
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})

	t.Run("evaluator errors propagate", func(t *testing.T) {
		arith := NewArithmetic(&plainEvaluator{err: ErrProviderUnavailable})
		_, err := arith.Add(ctx, seal(1, 1), seal(1, 1))
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("unsupported op", func(t *testing.T) {
		arith := NewArithmetic(&plainEvaluator{})
		_, err := arith.Apply(ctx, Op("pow"), seal(1, 1), seal(1, 1))
		assert.Error(t, err)
	})

	t.Run("sum", func(t *testing.T) {
		eval := &plainEvaluator{}
		arith := NewArithmetic(eval)

		total, err := arith.Sum(ctx, seal(1, 9), seal(2, 9), seal(3, 9))
		require.NoError(t, err)
		assert.Equal(t, Plaintext(6), open(total))
		assert.Equal(t, 2, eval.calls)

		single, err := arith.Sum(ctx, seal(4, 9))
		require.NoError(t, err)
		assert.Equal(t, Plaintext(4), open(single))

		_, err = arith.Sum(ctx)
		assert.Error(t, err)
	})
}

func TestEncryptInt64(t *testing.T) {
	enc := encryptorFunc(func(_ context.Context, v Plaintext) (Ciphertext, error) {
		return seal(v, 1), nil
	})

	c, err := EncryptInt64(context.Background(), enc, 9)
	require.NoError(t, err)
	assert.Equal(t, Plaintext(9), open(c))

	_, err = EncryptInt64(context.Background(), enc, -1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = EncryptInt64(context.Background(), enc, 1<<32)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

type encryptorFunc func(context.Context, Plaintext) (Ciphertext, error)

func (f encryptorFunc) Encrypt(ctx context.Context, v Plaintext) (Ciphertext, error) {
	return f(ctx, v)
}

func TestProviderError(t *testing.T) {
	cause := context.DeadlineExceeded

	tests := []struct {
		category    ErrorCategory
		sentinel    error
		retryable   bool
		unavailable bool
	}{
		{ErrorTimeout, ErrProviderUnavailable, true, true},
		{ErrorProviderOutage, ErrProviderUnavailable, true, true},
		{ErrorRateLimited, ErrProviderUnavailable, true, true},
		{ErrorBadData, ErrProviderUnavailable, false, true},
		{ErrorAuthentication, ErrUnauthorized, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := fmt.Errorf("encrypt: %w", NewProviderError(tt.category, "relayer", "call failed", cause))

			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrProviderUnavailable))
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, tt.category, CategoryOf(err))
		})
	}

	rejected := NewProviderError(ErrorRejected, "relayer", "bad input", ErrOverflow)
	assert.ErrorIs(t, rejected, ErrOverflow)
	assert.NotErrorIs(t, rejected, ErrProviderUnavailable)
	assert.Contains(t, rejected.Error(), "relayer")

	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Equal(t, ErrorCategory(""), CategoryOf(nil))
}
