// Package backend resolves the configured encryption backend at startup.
// Selection is explicit: there is no default and no runtime fallback.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"titlechain/internal/fhe"
	"titlechain/internal/fhe/metrics"
	"titlechain/internal/fhe/relayer"
	"titlechain/internal/fhe/testscheme"
)

// Kind names a backend.
type Kind string

const (
	KindTest    Kind = "test"
	KindRelayer Kind = "relayer"
)

// ParseKind validates a backend name. Empty input is an error.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindTest, KindRelayer:
		return k, nil
	case "":
		return "", errors.New("FHE_BACKEND is required (test or relayer)")
	default:
		return "", fmt.Errorf("unknown FHE_BACKEND %q (want test or relayer)", s)
	}
}

// Config selects and configures a backend.
type Config struct {
	Kind Kind
	// Production marks a production deployment.
	Production bool
	// AllowInsecure permits the test scheme in production.
	AllowInsecure bool

	// TestSecretKey enables decryption for the test scheme (hex).
	TestSecretKey string
	// TestEvaluationKey is used when no secret key is configured (hex).
	TestEvaluationKey string

	Relayer relayer.Config
}

// Validate checks the selection rules without opening anything.
func (c Config) Validate() error {
	if _, err := ParseKind(string(c.Kind)); err != nil {
		return err
	}
	if c.Kind == KindTest {
		if c.Production && !c.AllowInsecure {
			return errors.New("the test backend is insecure; set FHE_ALLOW_INSECURE=true to use it in production")
		}
		if c.TestSecretKey == "" && c.TestEvaluationKey == "" {
			return errors.New("test backend needs FHE_TEST_SECRET_KEY or FHE_TEST_EVALUATION_KEY")
		}
	}
	if c.Kind == KindRelayer && c.Relayer.BaseURL == "" {
		return errors.New("relayer backend needs FHE_RELAYER_URL")
	}
	return nil
}

// Option configures Open.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	relay   []relayer.Option
}

// WithLogger sets the logger passed to the backend.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics passed to the backend.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithRelayerOptions forwards extra options to the relayer client.
func WithRelayerOptions(opts ...relayer.Option) Option {
	return func(o *options) {
		o.relay = append(o.relay, opts...)
	}
}

// Open validates cfg and constructs the backend. The relayer is probed once so a
// misconfigured deployment fails at startup. Callers own Close.
func Open(ctx context.Context, cfg Config, opts ...Option) (fhe.Backend, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindTest:
		return openTest(ctx, cfg, o)
	case KindRelayer:
		return openRelayer(ctx, cfg, o)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Kind)
}

func openTest(ctx context.Context, cfg Config, o options) (fhe.Backend, error) {
	var p *testscheme.Provider
	if cfg.TestSecretKey != "" {
		sk, err := testscheme.ParseSecretKey(cfg.TestSecretKey)
		if err != nil {
			return nil, err
		}
		p = testscheme.NewWithSecret(sk)
	} else {
		ek, err := testscheme.ParseEvaluationKey(cfg.TestEvaluationKey)
		if err != nil {
			return nil, err
		}
		p = testscheme.New(ek)
	}

	o.logger.WarnContext(ctx, "using insecure test encryption backend",
		"backend", KindTest,
		"key_id", fmt.Sprintf("%08x", p.Info().KeyID),
		"can_decrypt", p.Info().CanDecrypt,
		"production", cfg.Production,
	)
	return p, nil
}

func openRelayer(ctx context.Context, cfg Config, o options) (fhe.Backend, error) {
	ropts := append([]relayer.Option{relayer.WithLogger(o.logger)}, o.relay...)
	if o.metrics != nil {
		ropts = append(ropts, relayer.WithMetrics(o.metrics))
	}
	client, err := relayer.New(cfg.Relayer, ropts...)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to coprocessor: %w", err)
	}
	return client, nil
}
