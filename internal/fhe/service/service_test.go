package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"titlechain/internal/fhe"
	"titlechain/internal/fhe/metrics"
	"titlechain/internal/fhe/proof"
	"titlechain/internal/fhe/testscheme"
	dErrors "titlechain/pkg/domain-errors"
	"titlechain/pkg/platform/audit"
	auditmemory "titlechain/pkg/platform/audit/store/memory"
	"titlechain/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	backend *testscheme.Provider
	metrics *metrics.Metrics
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	sk, err := testscheme.GenerateSecretKey()
	s.Require().NoError(err)
	seed, err := proof.GenerateSeed()
	s.Require().NoError(err)
	prover, err := proof.New(seed)
	s.Require().NoError(err)

	s.backend = testscheme.NewWithSecret(sk)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.service = New(s.backend, prover,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
}

// =============================================================================
// Pipeline
// =============================================================================

func (s *ServiceSuite) TestEncryptDecrypt() {
	c, err := s.service.Encrypt(s.ctx, 500_000)
	s.Require().NoError(err)

	v, err := s.service.Decrypt(s.ctx, c)
	s.Require().NoError(err)
	s.Equal(fhe.Plaintext(500_000), v)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Operations.WithLabelValues("encrypt", "ok")))
}

func (s *ServiceSuite) TestEvaluate() {
	a, err := s.service.Encrypt(s.ctx, 6)
	s.Require().NoError(err)
	b, err := s.service.Encrypt(s.ctx, 7)
	s.Require().NoError(err)

	for op, want := range map[fhe.Op]fhe.Plaintext{fhe.OpAdd: 13, fhe.OpSub: 0, fhe.OpMul: 42} {
		out, err := s.service.Evaluate(s.ctx, op, a, b)
		s.Require().NoError(err)
		v, err := s.service.Decrypt(s.ctx, out)
		s.Require().NoError(err)
		s.Equal(want, v, string(op))
	}
}

func (s *ServiceSuite) TestSum() {
	var cts []fhe.Ciphertext
	for _, v := range []int64{100, 250, 650} {
		c, err := s.service.Encrypt(s.ctx, v)
		s.Require().NoError(err)
		cts = append(cts, c)
	}

	total, err := s.service.Sum(s.ctx, cts)
	s.Require().NoError(err)
	v, err := s.service.Decrypt(s.ctx, total)
	s.Require().NoError(err)
	s.Equal(fhe.Plaintext(1000), v)

	empty, err := s.service.Sum(s.ctx, nil)
	s.Require().NoError(err)
	v, err = s.service.Decrypt(s.ctx, empty)
	s.Require().NoError(err)
	s.Equal(fhe.Plaintext(0), v)
}

func (s *ServiceSuite) TestProofs() {
	c, p, err := s.service.EncryptWithProof(s.ctx, 77)
	s.Require().NoError(err)

	ok, err := s.service.VerifyProof(s.ctx, p, c)
	s.Require().NoError(err)
	s.True(ok)

	other, err := s.service.Encrypt(s.ctx, 77)
	s.Require().NoError(err)
	ok, err = s.service.VerifyProof(s.ctx, p, other)
	s.Require().NoError(err)
	s.False(ok)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.ProofVerifications.WithLabelValues("valid")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ProofVerifications.WithLabelValues("invalid")))
}

// =============================================================================
// Error translation
// =============================================================================

func (s *ServiceSuite) TestOutOfRangeIsValidation() {
	_, err := s.service.Encrypt(s.ctx, -1)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.ErrorIs(err, fhe.ErrOutOfRange)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Operations.WithLabelValues("encrypt", "error")))
}

func (s *ServiceSuite) TestMalformedIsBadRequest() {
	_, err := s.service.Decrypt(s.ctx, fhe.Ciphertext{})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.ErrorIs(err, fhe.ErrMalformedCiphertext)

	_, err = s.service.VerifyProof(s.ctx, fhe.Proof{}, fhe.Ciphertext{})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ProofVerifications.WithLabelValues("error")))
}

func (s *ServiceSuite) TestMissingCapabilityIsForbidden() {
	seed, err := proof.GenerateSeed()
	s.Require().NoError(err)
	prover, err := proof.New(seed)
	s.Require().NoError(err)
	public := New(testscheme.New(s.backend.EvaluationKey()), prover)

	c, err := public.Encrypt(s.ctx, 1)
	s.Require().NoError(err)
	_, err = public.Decrypt(s.ctx, c)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.ErrorIs(err, fhe.ErrUnauthorized)
}

func (s *ServiceSuite) TestUnavailableBackend() {
	prover, err := proof.New(make([]byte, proof.SeedSize))
	s.Require().NoError(err)
	down := New(unavailableBackend{s.backend}, prover)

	_, err = down.Encrypt(s.ctx, 1)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.ErrorIs(err, fhe.ErrProviderUnavailable)
}

func (s *ServiceSuite) TestTranslateOrder() {
	err := translate(fhe.NewProviderError(fhe.ErrorBadData, "relayer", "garbage", fhe.ErrMalformedCiphertext))
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	err = translate(context.DeadlineExceeded)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))

	err = translate(io.ErrUnexpectedEOF)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// =============================================================================
// Audit
// =============================================================================

func (s *ServiceSuite) TestAuditTrail() {
	store := auditmemory.NewInMemoryStore()
	prover, err := proof.New(make([]byte, proof.SeedSize))
	s.Require().NoError(err)
	svc := New(s.backend, prover, WithAuditPublisher(recordingPublisher{store}))
	public := New(testscheme.New(s.backend.EvaluationKey()), prover, WithAuditPublisher(recordingPublisher{store}))
	ctx := requestcontext.WithWallet(s.ctx, "sess-1", "0x00000000000000000000000000000000000000aa")

	c, err := svc.Encrypt(ctx, 7)
	s.Require().NoError(err)
	_, err = svc.Decrypt(ctx, c)
	s.Require().NoError(err)
	_, err = public.Decrypt(ctx, c)
	s.Require().Error(err)

	other, err := svc.Encrypt(ctx, 8)
	s.Require().NoError(err)
	p, err := svc.GenerateProof(ctx, c)
	s.Require().NoError(err)
	ok, err := svc.VerifyProof(ctx, p, other)
	s.Require().NoError(err)
	s.False(ok)

	events, err := store.ListByWallet(ctx, "0x00000000000000000000000000000000000000aa")
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal(audit.EventDecryptRequested, events[0].Action)
	s.Equal(audit.EventDecryptDenied, events[1].Action)
	s.Equal(audit.EventProofRejected, events[2].Action)
	s.Equal(other.Hex(), events[2].Subject)
}

type recordingPublisher struct {
	store audit.Store
}

func (p recordingPublisher) Emit(ctx context.Context, event audit.Event) error {
	return p.store.Append(ctx, event)
}

type unavailableBackend struct {
	fhe.Backend
}

func (unavailableBackend) Encrypt(context.Context, fhe.Plaintext) (fhe.Ciphertext, error) {
	return fhe.Ciphertext{}, fhe.NewProviderError(fhe.ErrorProviderOutage, "relayer", "down", nil)
}
