package testscheme

import (
	"context"
	"fmt"
	"io"

	"titlechain/internal/fhe"
)

// Provider bundles the test scheme into an fhe.Backend.
type Provider struct {
	*Evaluator
	enc *Encryptor
	dec *Decryptor
	ek  EvaluationKey
}

// Option configures a Provider.
type Option func(*options)

type options struct {
	rand io.Reader
}

// WithRandom overrides the nonce source, for deterministic tests.
func WithRandom(r io.Reader) Option {
	return func(o *options) {
		o.rand = r
	}
}

// New returns a provider that can encrypt and evaluate but not decrypt.
func New(ek EvaluationKey, opts ...Option) *Provider {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &Provider{
		Evaluator: NewEvaluator(ek, o.rand),
		enc:       NewEncryptor(ek, o.rand),
		ek:        ek,
	}
}

// NewWithSecret returns a provider holding the decryption capability.
func NewWithSecret(sk SecretKey, opts ...Option) *Provider {
	p := New(sk.EvaluationKey(), opts...)
	p.dec = NewDecryptor(sk)
	return p
}

func (p *Provider) Encrypt(ctx context.Context, v fhe.Plaintext) (fhe.Ciphertext, error) {
	return p.enc.Encrypt(ctx, v)
}

func (p *Provider) Decrypt(ctx context.Context, ct fhe.Ciphertext) (fhe.Plaintext, error) {
	if p.dec == nil {
		return 0, fmt.Errorf("%w: test backend was configured without a secret key", fhe.ErrUnauthorized)
	}
	return p.dec.Decrypt(ctx, ct)
}

func (p *Provider) Info() fhe.Info {
	return fhe.Info{
		Scheme:     fhe.SchemeTest,
		KeyID:      p.ek.KeyID(),
		CanDecrypt: p.dec != nil,
		Insecure:   true,
	}
}

// EvaluationKey returns the public evaluation key.
func (p *Provider) EvaluationKey() EvaluationKey {
	return p.ek
}

func (p *Provider) Close() error { return nil }

var _ fhe.Backend = (*Provider)(nil)
