package wallet_test

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"titlechain/internal/wallet"
	"titlechain/internal/wallet/metrics"
	"titlechain/internal/wallet/store"
	dErrors "titlechain/pkg/domain-errors"
	"titlechain/pkg/platform/audit"
	auditmemory "titlechain/pkg/platform/audit/store/memory"
	"titlechain/pkg/requestcontext"
)

const signingKey = "test-signing-key-with-enough-entropy"

func keyFrom(b byte) *secp256k1.PrivateKey {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = b
	}
	return secp256k1.PrivKeyFromBytes(raw)
}

type WalletServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   *store.InMemoryStore
	audit   *auditmemory.InMemoryStore
	metrics *metrics.Metrics
	service *wallet.Service
	alice   *secp256k1.PrivateKey
	mallory *secp256k1.PrivateKey
}

func TestWalletServiceSuite(t *testing.T) {
	suite.Run(t, new(WalletServiceSuite))
}

func (s *WalletServiceSuite) SetupTest() {
	s.now = time.Now().UTC().Truncate(time.Second)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.alice = keyFrom(0x11)
	s.mallory = keyFrom(0x22)
	s.store = store.New()
	s.audit = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = wallet.NewService(s.store, wallet.NewTokenService(signingKey), time.Hour,
		wallet.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		wallet.WithMetrics(s.metrics),
		wallet.WithAuditPublisher(auditSink{s.audit}),
	)
}

func (s *WalletServiceSuite) addressOf(key *secp256k1.PrivateKey) string {
	return wallet.AddressOf(key.PubKey())
}

// signedBy answers a fresh challenge for address with key's signature.
func (s *WalletServiceSuite) signedBy(svc *wallet.Service, address string, key *secp256k1.PrivateKey) wallet.SignIn {
	challenge, err := svc.Challenge(s.ctx, address)
	s.Require().NoError(err)
	return wallet.SignIn{
		Address:   address,
		Nonce:     challenge.Nonce,
		Signature: "0x" + hex.EncodeToString(wallet.SignPersonal(key, challenge.Message())),
	}
}

func (s *WalletServiceSuite) connect(key *secp256k1.PrivateKey) (*wallet.Session, string) {
	session, token, err := s.service.Connect(s.ctx, s.signedBy(s.service, s.addressOf(key), key))
	s.Require().NoError(err)
	return session, token
}

func (s *WalletServiceSuite) requireRejected(err error, reason string) {
	s.T().Helper()
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "err: %v", err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SignInRejects.WithLabelValues(reason)))
	s.Zero(testutil.ToFloat64(s.metrics.Connects))
}

// =============================================================================
// Challenge
// =============================================================================

func (s *WalletServiceSuite) TestChallenge() {
	challenge, err := s.service.Challenge(s.ctx, strings.ToUpper(s.addressOf(s.alice)[2:]))
	s.Require().Error(err, "missing 0x prefix")
	s.Nil(challenge)

	challenge, err = s.service.Challenge(s.ctx, "0x"+strings.ToUpper(s.addressOf(s.alice)[2:]))
	s.Require().NoError(err)
	s.Equal(s.addressOf(s.alice), challenge.Address)
	s.Equal(s.now.Add(wallet.DefaultChallengeTTL), challenge.ExpiresAt)
	s.Contains(challenge.Message(), challenge.Nonce)
	s.Contains(challenge.Message(), challenge.Address)

	other, err := s.service.Challenge(s.ctx, s.addressOf(s.alice))
	s.Require().NoError(err)
	s.NotEqual(challenge.Nonce, other.Nonce)
}

// =============================================================================
// Connect
// =============================================================================

func (s *WalletServiceSuite) TestConnect() {
	in := s.signedBy(s.service, s.addressOf(s.alice), s.alice)
	in.UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	session, token, err := s.service.Connect(s.ctx, in)
	s.Require().NoError(err)

	s.NotEmpty(token)
	s.True(session.Connected)
	s.Equal(s.addressOf(s.alice), session.Address)
	s.Equal(s.now.Add(time.Hour), session.ExpiresAt)
	s.Contains(session.Device, "Firefox")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Connects))

	events, err := s.audit.ListByWallet(s.ctx, session.Address)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.EventWalletConnected, events[0].Action)
}

func (s *WalletServiceSuite) TestConnectAcceptsMixedCaseAddress() {
	addr := "0x" + strings.ToUpper(s.addressOf(s.alice)[2:])
	session, _, err := s.service.Connect(s.ctx, s.signedBy(s.service, addr, s.alice))
	s.Require().NoError(err)
	s.Equal(s.addressOf(s.alice), session.Address)
}

func (s *WalletServiceSuite) TestConnectRejectsBadAddress() {
	for _, addr := range []string{"", "0x123", "00000000000000000000000000000000000000aaaa", "0xzz000000000000000000000000000000000000aa"} {
		_, _, err := s.service.Connect(s.ctx, wallet.SignIn{Address: addr, Nonce: "n", Signature: "0x00"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), addr)
	}
}

func (s *WalletServiceSuite) TestConnectRequiresNonceAndSignature() {
	in := s.signedBy(s.service, s.addressOf(s.alice), s.alice)
	_, _, err := s.service.Connect(s.ctx, wallet.SignIn{Address: in.Address, Signature: in.Signature})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, _, err = s.service.Connect(s.ctx, wallet.SignIn{Address: in.Address, Nonce: in.Nonce})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// Justification: without proof of key control any caller could claim any
// address and read its owner's decrypted values.
func (s *WalletServiceSuite) TestConnectRejectsForgedSignature() {
	victim := s.addressOf(s.alice)
	_, _, err := s.service.Connect(s.ctx, s.signedBy(s.service, victim, s.mallory))
	s.requireRejected(err, "bad_signature")

	events, err := s.audit.ListByWallet(s.ctx, victim)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.EventSignInRejected, events[0].Action)
}

func (s *WalletServiceSuite) TestConnectRejectsReplayedNonce() {
	in := s.signedBy(s.service, s.addressOf(s.alice), s.alice)
	_, _, err := s.service.Connect(s.ctx, in)
	s.Require().NoError(err)

	_, _, err = s.service.Connect(s.ctx, in)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SignInRejects.WithLabelValues("unknown_nonce")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Connects))
}

func (s *WalletServiceSuite) TestFailedConnectBurnsNonce() {
	in := s.signedBy(s.service, s.addressOf(s.alice), s.alice)
	forged := in
	forged.Signature = "0x" + hex.EncodeToString(wallet.SignPersonal(s.mallory, "anything"))
	_, _, err := s.service.Connect(s.ctx, forged)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, _, err = s.service.Connect(s.ctx, in)
	s.requireRejected(err, "unknown_nonce")
}

func (s *WalletServiceSuite) TestConnectRejectsChallengeForAnotherAddress() {
	in := s.signedBy(s.service, s.addressOf(s.mallory), s.mallory)
	in.Address = s.addressOf(s.alice)
	_, _, err := s.service.Connect(s.ctx, in)
	s.requireRejected(err, "address_mismatch")
}

func (s *WalletServiceSuite) TestConnectRejectsExpiredChallenge() {
	in := s.signedBy(s.service, s.addressOf(s.alice), s.alice)
	late := requestcontext.WithTime(context.Background(), s.now.Add(wallet.DefaultChallengeTTL))
	_, _, err := s.service.Connect(late, in)
	s.requireRejected(err, "expired")
}

func (s *WalletServiceSuite) TestConnectRejectsMalformedSignature() {
	for _, sig := range []string{"0x1234", "not-hex", "0x" + strings.Repeat("ab", 64) + "05"} {
		in := s.signedBy(s.service, s.addressOf(s.alice), s.alice)
		in.Signature = sig
		_, _, err := s.service.Connect(s.ctx, in)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), sig)
	}
}

// =============================================================================
// Resolve
// =============================================================================

func (s *WalletServiceSuite) TestResolveConnected() {
	session, token := s.connect(s.alice)

	resolved, err := s.service.Resolve(s.ctx, token)
	s.Require().NoError(err)
	s.True(resolved.Connected)
	s.Equal(session.ID, resolved.ID)
}

func (s *WalletServiceSuite) TestResolveAfterDisconnect() {
	session, token := s.connect(s.alice)
	s.Require().NoError(s.service.Disconnect(s.ctx, session.ID))

	resolved, err := s.service.Resolve(s.ctx, token)
	s.Require().NoError(err)
	s.False(resolved.Connected)
}

func (s *WalletServiceSuite) TestResolveUnknownSession() {
	tokens := wallet.NewTokenService(signingKey)
	token, err := tokens.Issue(&wallet.Session{
		ID:          uuid.New(),
		Address:     "0x00000000000000000000000000000000000000aa",
		ConnectedAt: time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	s.Require().NoError(err)

	resolved, err := s.service.Resolve(s.ctx, token)
	s.Require().NoError(err)
	s.False(resolved.Connected)
}

func (s *WalletServiceSuite) TestResolveForgedToken() {
	other := wallet.NewService(store.New(), wallet.NewTokenService("another-key"), time.Hour)
	_, token, err := other.Connect(s.ctx, s.signedBy(other, s.addressOf(s.alice), s.alice))
	s.Require().NoError(err)

	_, err = s.service.Resolve(s.ctx, token)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ResolveResults.WithLabelValues("invalid")))
}

// =============================================================================
// Disconnect
// =============================================================================

func (s *WalletServiceSuite) TestDisconnectIsIdempotent() {
	session, _ := s.connect(s.alice)

	s.Require().NoError(s.service.Disconnect(s.ctx, session.ID))
	s.Require().NoError(s.service.Disconnect(s.ctx, session.ID))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Disconnects))
}

func (s *WalletServiceSuite) TestDisconnectUnknown() {
	err := s.service.Disconnect(s.ctx, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

type auditSink struct {
	store audit.Store
}

func (a auditSink) Emit(ctx context.Context, event audit.Event) error {
	return a.store.Append(ctx, event)
}
