package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"titlechain/internal/ratelimit"
	"titlechain/internal/ratelimit/metrics"
	"titlechain/pkg/platform/httputil"
	"titlechain/pkg/requestcontext"
)

type Middleware struct {
	store    ratelimit.BucketStore
	policies map[ratelimit.EndpointClass]ratelimit.Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (local development).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// WithPolicy overrides the limit for one class.
func WithPolicy(class ratelimit.EndpointClass, p ratelimit.Policy) Option {
	return func(m *Middleware) {
		if p.Limit > 0 && p.Window > 0 {
			m.policies[class] = p
		}
	}
}

func New(store ratelimit.BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:    store,
		policies: ratelimit.DefaultPolicies(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit limits requests of class per connected wallet, or per client IP when
// no wallet is connected. Store failures fail open.
func (m *Middleware) RateLimit(class ratelimit.EndpointClass) func(http.Handler) http.Handler {
	if _, ok := m.policies[class]; !ok {
		panic("ratelimit: no policy for endpoint class " + string(class))
	}
	return m.Classify(func(*http.Request) (ratelimit.EndpointClass, bool) {
		return class, true
	})
}

// Classify limits each request by the class classify assigns to it. Requests
// classify rejects pass through unlimited.
func (m *Middleware) Classify(classify func(r *http.Request) (ratelimit.EndpointClass, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}
			class, ok := classify(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			policy, ok := m.policies[class]
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key, byWallet := bucketKey(r, class)

			result, err := m.store.AllowN(ctx, key, 1, policy.Limit, policy.Window)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"request_id", requestcontext.RequestID(ctx),
					"class", string(class),
					"error", err,
				)
				if m.metrics != nil {
					m.metrics.IncrementStoreErrors()
				}
				next.ServeHTTP(w, r)
				return
			}
			if m.metrics != nil {
				m.metrics.ObserveDecision(string(class), result.Allowed)
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"class", string(class),
					"by_wallet", byWallet,
				)
				writeRateLimitExceeded(w, result, byWallet)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bucketKey(r *http.Request, class ratelimit.EndpointClass) (string, bool) {
	ctx := r.Context()
	if addr := requestcontext.WalletAddress(ctx); addr != "" {
		return string(class) + ":wallet:" + addr, true
	}
	ip := requestcontext.ClientIP(ctx)
	if ip == "" {
		ip = "unknown"
	}
	return string(class) + ":ip:" + ip, false
}

func addRateLimitHeaders(w http.ResponseWriter, result *ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *ratelimit.Result, byWallet bool) {
	msg := "Too many requests from this IP address. Please try again later."
	if byWallet {
		msg = "Too many requests from this wallet. Please try again later."
	}
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &ratelimit.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    msg,
		RetryAfter: result.RetryAfter,
	})
}
