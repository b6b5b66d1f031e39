package wallet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"titlechain/internal/wallet/metrics"
	dErrors "titlechain/pkg/domain-errors"
	"titlechain/pkg/platform/audit"
	"titlechain/pkg/platform/sentinel"
	"titlechain/pkg/requestcontext"
)

// DefaultChallengeTTL bounds how long a sign-in nonce can be answered.
const DefaultChallengeTTL = 5 * time.Minute

// Store persists wallet sessions and outstanding sign-in challenges.
// ConsumeChallenge must return a challenge at most once.
type Store interface {
	Save(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)
	MarkDisconnected(ctx context.Context, id uuid.UUID, at time.Time) error
	SaveChallenge(ctx context.Context, challenge *Challenge) error
	ConsumeChallenge(ctx context.Context, nonce string) (*Challenge, error)
}

// Service connects, resolves and disconnects wallet sessions.
type Service struct {
	store    Store
	tokens   *TokenService
	ttl      time.Duration
	nonceTTL time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  audit.Publisher
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithChallengeTTL overrides DefaultChallengeTTL.
func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.nonceTTL = ttl
		}
	}
}

// WithAuditPublisher records connect and disconnect events.
func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// NewService builds the session service. ttl bounds both the stored session and
// the token.
func NewService(store Store, tokens *TokenService, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		ttl:      ttl,
		nonceTTL: DefaultChallengeTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Challenge issues a single-use nonce that address must sign to connect.
func (s *Service) Challenge(ctx context.Context, address string) (*Challenge, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	challenge := &Challenge{
		Nonce:     uuid.NewString(),
		Address:   addr,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.nonceTTL),
	}
	if err := s.store.SaveChallenge(ctx, challenge); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save challenge")
	}
	return challenge, nil
}

// Connect verifies a signed challenge and opens a session for the signer.
// The nonce is consumed before the signature is checked, so a failed attempt
// cannot be retried with the same nonce.
func (s *Service) Connect(ctx context.Context, in SignIn) (*Session, string, error) {
	addr, err := NormalizeAddress(in.Address)
	if err != nil {
		return nil, "", err
	}
	if in.Nonce == "" || in.Signature == "" {
		return nil, "", dErrors.New(dErrors.CodeValidation, "nonce and signature are required")
	}

	challenge, err := s.store.ConsumeChallenge(ctx, in.Nonce)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, "", s.reject(ctx, addr, "unknown_nonce", "challenge not found or already used")
	}
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable")
	}
	now := requestcontext.Now(ctx)
	if challenge.Address != addr {
		return nil, "", s.reject(ctx, addr, "address_mismatch", "challenge was issued to another address")
	}
	if challenge.Expired(now) {
		return nil, "", s.reject(ctx, addr, "expired", "challenge expired")
	}

	sig, err := ParseSignature(in.Signature)
	if err != nil {
		return nil, "", s.reject(ctx, addr, "malformed_signature", "signature must be 65 hex-encoded bytes")
	}
	signer, err := RecoverAddress(challenge.Message(), sig)
	if err != nil || signer != addr {
		return nil, "", s.reject(ctx, addr, "bad_signature", "signature does not match address")
	}

	session := &Session{
		ID:          uuid.New(),
		Address:     addr,
		Connected:   true,
		Device:      DeviceLabel(in.UserAgent),
		ConnectedAt: now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
	}

	token, err := s.tokens.Issue(session)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}

	if s.metrics != nil {
		s.metrics.IncrementConnects()
	}
	s.logger.InfoContext(ctx, "wallet connected",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", session.ID,
		"address", addr,
		"device", session.Device,
	)
	s.emit(ctx, audit.Event{
		Action:  audit.EventWalletConnected,
		Wallet:  addr,
		Subject: session.ID.String(),
	})
	return session, token, nil
}

// Resolve maps a bearer token to its session. Unknown, revoked or expired
// sessions resolve to a disconnected session. Only malformed or forged tokens
// are errors.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		s.observeResolve("invalid")
		return nil, err
	}
	id, err := uuid.Parse(claims.SessionID)
	if err != nil {
		s.observeResolve("invalid")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	session, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.observeResolve("disconnected")
		return Disconnected(), nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable")
	}
	if session.Address != claims.Address || !session.Active(requestcontext.Now(ctx)) {
		s.observeResolve("disconnected")
		return Disconnected(), nil
	}
	s.observeResolve("connected")
	return session, nil
}

// Disconnect ends the session. Disconnecting twice is a no-op.
func (s *Service) Disconnect(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.store.FindByID(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable")
	}
	if !session.Connected {
		return nil
	}

	if err := s.store.MarkDisconnected(ctx, sessionID, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to disconnect session")
	}

	if s.metrics != nil {
		s.metrics.IncrementDisconnects()
	}
	s.logger.InfoContext(ctx, "wallet disconnected",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID,
		"address", session.Address,
	)
	s.emit(ctx, audit.Event{
		Action:  audit.EventWalletDisconnected,
		Wallet:  session.Address,
		Subject: sessionID.String(),
	})
	return nil
}

func (s *Service) reject(ctx context.Context, addr, reason, msg string) error {
	if s.metrics != nil {
		s.metrics.IncrementSignInRejected(reason)
	}
	s.logger.WarnContext(ctx, "wallet sign-in rejected",
		"request_id", requestcontext.RequestID(ctx),
		"address", addr,
		"reason", reason,
	)
	s.emit(ctx, audit.Event{
		Action:  audit.EventSignInRejected,
		Wallet:  addr,
		Subject: reason,
	})
	return dErrors.New(dErrors.CodeUnauthorized, msg)
}

func (s *Service) observeResolve(result string) {
	if s.metrics != nil {
		s.metrics.IncrementResolve(result)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.Timestamp = requestcontext.Now(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(event.Action), "error", err)
	}
}
