// Package relayer is the client for a remote FHE coprocessor. Ciphertexts it
// returns are handles owned by the coprocessor; the key material never leaves it.
//
// Every call is bounded by the configured timeout and guarded by a circuit
// breaker. Availability failures surface as fhe.ErrProviderUnavailable and are
// never retried or served by another backend.
package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"titlechain/internal/fhe"
	"titlechain/internal/fhe/metrics"
	"titlechain/pkg/platform/circuit"
)

// ProviderID labels errors, logs and metrics from this client.
const ProviderID = "relayer"

const (
	defaultTimeout          = 5 * time.Second
	defaultFailureThreshold = 5
	defaultCooldown         = 10 * time.Second
	maxResponseBytes        = 64 << 10
)

// Config holds connection settings for the coprocessor.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// DecryptToken authorizes /v1/decrypt. Empty means no decryption capability.
	DecryptToken     string
	FailureThreshold int
	Cooldown         time.Duration
}

// Client talks to the coprocessor over HTTP JSON.
type Client struct {
	baseURL *url.URL
	timeout time.Duration
	token   string
	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics

	keyID    atomic.Uint32
	keyKnown atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBreaker replaces the breaker built from Config.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// New validates cfg and builds a client. It does not contact the coprocessor;
// call Connect for that.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("relayer base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("relayer base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("relayer base URL: unsupported scheme %q", u.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}

	c := &Client{
		baseURL: u,
		timeout: cfg.Timeout,
		token:   cfg.DecryptToken,
		http:    &http.Client{},
		logger:  slog.Default(),
		breaker: circuit.New(ProviderID,
			circuit.WithFailureThreshold(cfg.FailureThreshold),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(cfg.Cooldown),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type healthResponse struct {
	Status string `json:"status"`
	Scheme string `json:"scheme"`
	KeyID  uint32 `json:"key_id"`
}

// Connect checks the coprocessor and learns its key id.
func (c *Client) Connect(ctx context.Context) error {
	var resp healthResponse
	if err := c.call(ctx, "health", http.MethodGet, "/v1/health", nil, &resp, false); err != nil {
		return err
	}
	if resp.Scheme != fhe.SchemeRelayer.String() {
		return fhe.NewProviderError(fhe.ErrorBadData, ProviderID,
			fmt.Sprintf("coprocessor reports scheme %q", resp.Scheme), nil)
	}
	c.keyID.Store(resp.KeyID)
	c.keyKnown.Store(true)
	c.logger.InfoContext(ctx, "connected to coprocessor",
		"provider", ProviderID,
		"key_id", fmt.Sprintf("%08x", resp.KeyID),
	)
	return nil
}

type encryptRequest struct {
	Value uint32 `json:"value"`
}

type ciphertextResponse struct {
	Ciphertext string `json:"ciphertext"`
}

func (c *Client) Encrypt(ctx context.Context, v fhe.Plaintext) (fhe.Ciphertext, error) {
	var resp ciphertextResponse
	if err := c.call(ctx, "encrypt", http.MethodPost, "/v1/encrypt", encryptRequest{Value: uint32(v)}, &resp, false); err != nil {
		return fhe.Ciphertext{}, err
	}
	return c.parseHandle(resp.Ciphertext)
}

type decryptRequest struct {
	Ciphertext string `json:"ciphertext"`
}

type decryptResponse struct {
	Value *int64 `json:"value"`
}

func (c *Client) Decrypt(ctx context.Context, ct fhe.Ciphertext) (fhe.Plaintext, error) {
	if c.token == "" {
		return 0, fmt.Errorf("%w: no decryption token configured", fhe.ErrUnauthorized)
	}
	if err := c.checkHandle(ct); err != nil {
		return 0, err
	}
	if c.keyKnown.Load() && ct.KeyID() != c.keyID.Load() {
		return 0, fmt.Errorf("%w: ciphertext key id %08x", fhe.ErrUnauthorized, ct.KeyID())
	}

	var resp decryptResponse
	if err := c.call(ctx, "decrypt", http.MethodPost, "/v1/decrypt", decryptRequest{Ciphertext: ct.Hex()}, &resp, true); err != nil {
		return 0, err
	}
	if resp.Value == nil {
		return 0, fhe.NewProviderError(fhe.ErrorBadData, ProviderID, "decrypt response has no value", nil)
	}
	p, err := fhe.NewPlaintext(*resp.Value)
	if err != nil {
		return 0, fhe.NewProviderError(fhe.ErrorBadData, ProviderID, "decrypt response out of domain", err)
	}
	return p, nil
}

type evaluateRequest struct {
	Op  string `json:"op"`
	LHS string `json:"lhs"`
	RHS string `json:"rhs"`
}

func (c *Client) Evaluate(ctx context.Context, op fhe.Op, a, b fhe.Ciphertext) (fhe.Ciphertext, error) {
	if err := c.checkHandle(a); err != nil {
		return fhe.Ciphertext{}, fmt.Errorf("lhs: %w", err)
	}
	if err := c.checkHandle(b); err != nil {
		return fhe.Ciphertext{}, fmt.Errorf("rhs: %w", err)
	}
	var resp ciphertextResponse
	req := evaluateRequest{Op: string(op), LHS: a.Hex(), RHS: b.Hex()}
	if err := c.call(ctx, "evaluate", http.MethodPost, "/v1/evaluate", req, &resp, false); err != nil {
		return fhe.Ciphertext{}, err
	}
	return c.parseHandle(resp.Ciphertext)
}

func (c *Client) Info() fhe.Info {
	return fhe.Info{
		Scheme:     fhe.SchemeRelayer,
		KeyID:      c.keyID.Load(),
		CanDecrypt: c.token != "",
	}
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() circuit.State {
	return c.breaker.State()
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) checkHandle(ct fhe.Ciphertext) error {
	if err := ct.Validate(); err != nil {
		return err
	}
	if ct.Scheme() != fhe.SchemeRelayer {
		return fmt.Errorf("%w: scheme %s is not handled by the coprocessor", fhe.ErrMalformedCiphertext, ct.Scheme())
	}
	return nil
}

func (c *Client) parseHandle(s string) (fhe.Ciphertext, error) {
	ct, err := fhe.ParseCiphertextHex(s)
	if err != nil {
		return fhe.Ciphertext{}, fhe.NewProviderError(fhe.ErrorBadData, ProviderID, "unreadable ciphertext in response", err)
	}
	if ct.Scheme() != fhe.SchemeRelayer {
		return fhe.Ciphertext{}, fhe.NewProviderError(fhe.ErrorBadData, ProviderID,
			fmt.Sprintf("response ciphertext has scheme %s", ct.Scheme()), nil)
	}
	if c.keyKnown.Load() && ct.KeyID() != c.keyID.Load() {
		return fhe.Ciphertext{}, fhe.NewProviderError(fhe.ErrorBadData, ProviderID,
			fmt.Sprintf("response ciphertext has key id %08x", ct.KeyID()), nil)
	}
	return ct, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, endpoint, method, path string, in, out any, auth bool) error {
	if !c.breaker.Allow() {
		c.observe(endpoint, "circuit_open")
		return fhe.NewProviderError(fhe.ErrorProviderOutage, ProviderID, "circuit open", nil)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(payload)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			c.observe(endpoint, "canceled")
			return fmt.Errorf("%s: %w", endpoint, ctx.Err())
		}
		c.observe(endpoint, "transport")
		c.recordFailure(ctx, endpoint)
		return fhe.NewProviderError(transportCategory(err), ProviderID, endpoint+" request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.observe(endpoint, "transport")
		c.recordFailure(ctx, endpoint)
		return fhe.NewProviderError(transportCategory(err), ProviderID, endpoint+" response read failed", err)
	}

	status := resp.StatusCode
	c.observe(endpoint, statusClass(status))

	switch {
	case status >= 200 && status < 300:
		if err := json.Unmarshal(raw, out); err != nil {
			c.recordFailure(ctx, endpoint)
			return fhe.NewProviderError(fhe.ErrorBadData, ProviderID, endpoint+" response is not valid JSON", err)
		}
		c.recordSuccess(ctx)
		return nil
	case status == http.StatusTooManyRequests:
		c.recordFailure(ctx, endpoint)
		return fhe.NewProviderError(fhe.ErrorRateLimited, ProviderID, endpoint+" rate limited", nil)
	case status >= 500:
		c.recordFailure(ctx, endpoint)
		return fhe.NewProviderError(fhe.ErrorProviderOutage, ProviderID,
			endpoint+" returned status "+strconv.Itoa(status), nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.recordSuccess(ctx)
		return fhe.NewProviderError(fhe.ErrorAuthentication, ProviderID, endpoint+" refused credentials", nil)
	default:
		c.recordSuccess(ctx)
		return rejection(endpoint, status, raw)
	}
}

// rejection maps a coprocessor 4xx onto the core taxonomy.
func rejection(endpoint string, status int, raw []byte) error {
	var body errorResponse
	_ = json.Unmarshal(raw, &body)
	msg := body.Message
	if msg == "" {
		msg = fmt.Sprintf("%s returned status %d", endpoint, status)
	}

	var cause error
	switch body.Error {
	case "malformed_ciphertext":
		cause = fhe.ErrMalformedCiphertext
	case "out_of_range":
		cause = fhe.ErrOutOfRange
	case "overflow":
		cause = fhe.ErrOverflow
	case "malformed_proof":
		cause = fhe.ErrMalformedProof
	}
	return fhe.NewProviderError(fhe.ErrorRejected, ProviderID, msg, cause)
}

func transportCategory(err error) fhe.ErrorCategory {
	if errors.Is(err, context.DeadlineExceeded) {
		return fhe.ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fhe.ErrorTimeout
	}
	return fhe.ErrorProviderOutage
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

func (c *Client) recordFailure(ctx context.Context, endpoint string) {
	_, change := c.breaker.RecordFailure()
	if change.Opened {
		c.logger.WarnContext(ctx, "coprocessor circuit opened",
			"provider", ProviderID,
			"endpoint", endpoint,
		)
		if c.metrics != nil {
			c.metrics.SetRelayerBreakerOpen(true)
		}
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	_, change := c.breaker.RecordSuccess()
	if change.Closed {
		c.logger.InfoContext(ctx, "coprocessor circuit closed", "provider", ProviderID)
		if c.metrics != nil {
			c.metrics.SetRelayerBreakerOpen(false)
		}
	}
}

func (c *Client) observe(endpoint, status string) {
	if c.metrics != nil {
		c.metrics.IncrementRelayerRequest(endpoint, status)
	}
}

var _ fhe.Backend = (*Client)(nil)
