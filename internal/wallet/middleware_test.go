package wallet

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	dErrors "titlechain/pkg/domain-errors"
	"titlechain/pkg/requestcontext"
)

type resolverFunc func(ctx context.Context, token string) (*Session, error)

func (f resolverFunc) Resolve(ctx context.Context, token string) (*Session, error) {
	return f(ctx, token)
}

func TestLoadSession(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessionID := uuid.New()
	resolver := resolverFunc(func(_ context.Context, token string) (*Session, error) {
		switch token {
		case "good":
			return &Session{ID: sessionID, Address: "0xaa", Connected: true}, nil
		case "revoked":
			return Disconnected(), nil
		default:
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
		}
	})

	var address string
	h := LoadSession(resolver, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address = requestcontext.WalletAddress(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantAddr   string
	}{
		{name: "no header", wantStatus: http.StatusOK},
		{name: "connected", header: "Bearer good", wantStatus: http.StatusOK, wantAddr: "0xaa"},
		{name: "lower-case scheme", header: "bearer good", wantStatus: http.StatusOK, wantAddr: "0xaa"},
		{name: "revoked", header: "Bearer revoked", wantStatus: http.StatusOK},
		{name: "invalid", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
		{name: "basic auth ignored", header: "Basic Zm9vOmJhcg==", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			address = ""
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAddr, address)
		})
	}
}

func TestRequireWallet(t *testing.T) {
	h := RequireWallet(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r = r.WithContext(requestcontext.WithWallet(r.Context(), "s1", "0xaa"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
