// Package service is the transport-facing facade over the encryption backend,
// arithmetic and proofs. It adds tracing, metrics and logging, and translates the
// core error taxonomy into domain error codes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"titlechain/internal/fhe"
	"titlechain/internal/fhe/metrics"
	dErrors "titlechain/pkg/domain-errors"
	"titlechain/pkg/platform/audit"
	"titlechain/pkg/requestcontext"
)

// Prover issues and checks input proofs.
type Prover interface {
	GenerateProof(c fhe.Ciphertext) (fhe.Proof, error)
	VerifyProof(p fhe.Proof, c fhe.Ciphertext) (bool, error)
}

// Service coordinates encryption, evaluation and proofs.
type Service struct {
	backend fhe.Backend
	arith   *fhe.Arithmetic
	prover  Prover
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	auditor audit.Publisher
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithAuditPublisher records decrypt requests and rejected proofs.
func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// New builds the facade. The backend is owned by the caller.
func New(backend fhe.Backend, prover Prover, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		arith:   fhe.NewArithmetic(backend),
		prover:  prover,
		logger:  slog.Default(),
		tracer:  otel.Tracer("titlechain/fhe"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Info describes the active backend.
func (s *Service) Info() fhe.Info {
	return s.backend.Info()
}

// Encrypt checks the plaintext domain and encrypts.
func (s *Service) Encrypt(ctx context.Context, value int64) (fhe.Ciphertext, error) {
	var out fhe.Ciphertext
	err := s.run(ctx, "encrypt", func(ctx context.Context) error {
		var err error
		out, err = fhe.EncryptInt64(ctx, s.backend, value)
		return err
	})
	return out, err
}

// EncryptWithProof encrypts and binds an input proof to the result.
func (s *Service) EncryptWithProof(ctx context.Context, value int64) (fhe.Ciphertext, fhe.Proof, error) {
	c, err := s.Encrypt(ctx, value)
	if err != nil {
		return fhe.Ciphertext{}, fhe.Proof{}, err
	}
	p, err := s.GenerateProof(ctx, c)
	if err != nil {
		return fhe.Ciphertext{}, fhe.Proof{}, err
	}
	return c, p, nil
}

// Decrypt requires the backend to hold the decryption capability.
func (s *Service) Decrypt(ctx context.Context, c fhe.Ciphertext) (fhe.Plaintext, error) {
	var out fhe.Plaintext
	err := s.run(ctx, "decrypt", func(ctx context.Context) error {
		var err error
		out, err = s.backend.Decrypt(ctx, c)
		return err
	})
	switch {
	case err == nil:
		s.emit(ctx, audit.Event{Action: audit.EventDecryptRequested, Subject: c.Hex(), Decision: "granted"})
	case dErrors.HasCode(err, dErrors.CodeForbidden):
		s.emit(ctx, audit.Event{Action: audit.EventDecryptDenied, Subject: c.Hex(), Decision: "denied", Reason: "no_decryption_capability"})
	}
	return out, err
}

// Evaluate applies op to two ciphertexts.
func (s *Service) Evaluate(ctx context.Context, op fhe.Op, a, b fhe.Ciphertext) (fhe.Ciphertext, error) {
	var out fhe.Ciphertext
	err := s.run(ctx, "evaluate_"+string(op), func(ctx context.Context) error {
		var err error
		out, err = s.arith.Apply(ctx, op, a, b)
		return err
	})
	return out, err
}

// Sum adds all ciphertexts. An empty input yields an encryption of zero.
func (s *Service) Sum(ctx context.Context, cts []fhe.Ciphertext) (fhe.Ciphertext, error) {
	if len(cts) == 0 {
		return s.Encrypt(ctx, 0)
	}
	var out fhe.Ciphertext
	err := s.run(ctx, "sum", func(ctx context.Context) error {
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("fhe.operands", len(cts)))
		var err error
		out, err = s.arith.Sum(ctx, cts...)
		return err
	})
	return out, err
}

// GenerateProof binds a proof to c.
func (s *Service) GenerateProof(ctx context.Context, c fhe.Ciphertext) (fhe.Proof, error) {
	var out fhe.Proof
	err := s.run(ctx, "generate_proof", func(context.Context) error {
		var err error
		out, err = s.prover.GenerateProof(c)
		return err
	})
	return out, err
}

// VerifyProof reports whether p belongs to c.
func (s *Service) VerifyProof(ctx context.Context, p fhe.Proof, c fhe.Ciphertext) (bool, error) {
	var ok bool
	err := s.run(ctx, "verify_proof", func(context.Context) error {
		var err error
		ok, err = s.prover.VerifyProof(p, c)
		return err
	})
	if s.metrics != nil {
		switch {
		case err != nil:
			s.metrics.IncrementProofVerification("error")
		case ok:
			s.metrics.IncrementProofVerification("valid")
		default:
			s.metrics.IncrementProofVerification("invalid")
		}
	}
	if err == nil && !ok {
		s.emit(ctx, audit.Event{Action: audit.EventProofRejected, Subject: c.Hex(), Decision: "rejected", Reason: "proof_mismatch"})
	}
	return ok, err
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "fhe."+op,
		trace.WithAttributes(attribute.String("fhe.scheme", s.backend.Info().Scheme.String())),
	)
	defer span.End()

	err := fn(ctx)
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, start, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		s.logFailure(ctx, op, err)
		return translate(err)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.Wallet = requestcontext.WalletAddress(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.Timestamp = requestcontext.Now(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(event.Action), "error", err)
	}
}

func (s *Service) logFailure(ctx context.Context, op string, err error) {
	attrs := []any{
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	}
	if category := fhe.CategoryOf(err); category != "" {
		attrs = append(attrs, "provider_category", string(category))
	}
	if errors.Is(err, fhe.ErrProviderUnavailable) {
		s.logger.ErrorContext(ctx, "encryption backend unavailable", attrs...)
		return
	}
	s.logger.WarnContext(ctx, "encrypted value operation rejected", attrs...)
}

// translate maps the core taxonomy onto domain error codes. The original error stays
// in the chain for errors.Is. Unavailability is checked first since a provider
// failure may also wrap a parse error.
func translate(err error) error {
	switch {
	case errors.Is(err, fhe.ErrProviderUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "encryption backend unavailable")
	case errors.Is(err, fhe.ErrOutOfRange):
		return dErrors.Wrap(err, dErrors.CodeValidation, "value must be in [0, 2^32)")
	case errors.Is(err, fhe.ErrMalformedCiphertext):
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed ciphertext")
	case errors.Is(err, fhe.ErrMalformedProof):
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed proof")
	case errors.Is(err, fhe.ErrOverflow):
		return dErrors.Wrap(err, dErrors.CodeValidation, "arithmetic overflow")
	case errors.Is(err, fhe.ErrUnauthorized):
		return dErrors.Wrap(err, dErrors.CodeForbidden, "decryption capability required")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled or timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "encryption operation failed")
	}
}
