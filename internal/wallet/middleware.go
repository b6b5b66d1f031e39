package wallet

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "titlechain/pkg/domain-errors"
	"titlechain/pkg/platform/httputil"
	"titlechain/pkg/requestcontext"
)

// Resolver maps a bearer token to a session.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Session, error)
}

// LoadSession attaches the caller's wallet session to the request context when a
// valid bearer token is present. Requests without one continue unauthenticated;
// a present but invalid token is rejected.
func LoadSession(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			session, err := resolver.Resolve(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "rejected session token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			if session.Connected {
				ctx = requestcontext.WithWallet(ctx, session.ID.String(), session.Address)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireWallet rejects requests without a connected wallet.
func RequireWallet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requestcontext.IsConnected(r.Context()) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "wallet connection required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
