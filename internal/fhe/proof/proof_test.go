package proof

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titlechain/internal/fhe"
	"titlechain/internal/fhe/testscheme"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	seed, err := GenerateSeed()
	require.NoError(t, err)
	svc, err := New(seed)
	require.NoError(t, err)
	return svc
}

func encrypt(t *testing.T, p *testscheme.Provider, v fhe.Plaintext) fhe.Ciphertext {
	t.Helper()
	c, err := p.Encrypt(context.Background(), v)
	require.NoError(t, err)
	return c
}

func TestProofValidity(t *testing.T) {
	svc := newTestService(t)
	sk, err := testscheme.GenerateSecretKey()
	require.NoError(t, err)
	backend := testscheme.NewWithSecret(sk)

	c := encrypt(t, backend, 1234)
	p, err := svc.GenerateProof(c)
	require.NoError(t, err)

	ok, err := svc.VerifyProof(p, c)
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("different ciphertext of the same value", func(t *testing.T) {
		other := encrypt(t, backend, 1234)
		ok, err := svc.VerifyProof(p, other)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("flipped proof bit", func(t *testing.T) {
		forged := p
		forged[17] ^= 0x80
		ok, err := svc.VerifyProof(forged, c)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other signer", func(t *testing.T) {
		ok, err := newTestService(t).VerifyProof(p, c)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("public verifier", func(t *testing.T) {
		v, err := NewVerifier(svc.PublicKey())
		require.NoError(t, err)
		ok, err := v.VerifyProof(p, c)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestMalformedInput(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GenerateProof(fhe.Ciphertext{})
	assert.ErrorIs(t, err, fhe.ErrMalformedCiphertext)

	_, err = svc.VerifyProof(fhe.Proof{}, fhe.Ciphertext{})
	assert.ErrorIs(t, err, fhe.ErrMalformedCiphertext)

	_, err = svc.VerifyBytes(make([]byte, 63), make([]byte, fhe.CiphertextSize))
	assert.ErrorIs(t, err, fhe.ErrMalformedProof)

	_, err = svc.VerifyBytes(make([]byte, fhe.ProofSize), make([]byte, 31))
	assert.ErrorIs(t, err, fhe.ErrMalformedCiphertext)
}

func TestVerifyBytes(t *testing.T) {
	svc := newTestService(t)
	var body [fhe.BodySize]byte
	body[3] = 9
	c := fhe.NewCiphertext(fhe.SchemeRelayer, 4, body)

	p, err := svc.GenerateProof(c)
	require.NoError(t, err)

	ok, err := svc.VerifyBytes(p.Bytes(), c.Bytes())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKeys(t *testing.T) {
	_, err := New(make([]byte, 31))
	assert.Error(t, err)

	_, err = NewFromHex("xyz")
	assert.Error(t, err)

	_, err = NewVerifier([]byte{1, 2})
	assert.Error(t, err)

	seed := make([]byte, SeedSize)
	a, err := New(seed)
	require.NoError(t, err)
	b, err := NewFromHex("0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, a.PublicKey(), b.PublicKey())
}
