package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titlechain/pkg/requestcontext"
)

func mustTrust(t *testing.T, entries ...string) TrustedProxies {
	t.Helper()
	trusted, err := ParseTrustedProxies(entries)
	require.NoError(t, err)
	return trusted
}

func TestParseTrustedProxies(t *testing.T) {
	trusted := mustTrust(t, "10.0.0.0/8", " 192.0.2.1 ", "", "fd00::/8")
	assert.Len(t, trusted, 3)

	for _, bad := range []string{"10.0.0.0/33", "proxy.internal", "300.1.1.1"} {
		_, err := ParseTrustedProxies([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestClientIPFromRequest(t *testing.T) {
	proxies := mustTrust(t, "10.0.0.0/8")

	tests := []struct {
		name    string
		trusted TrustedProxies
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "ipv4 remote", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "ipv6 remote", remote: "[::1]:5555", want: "::1"},
		{name: "no address", want: "unknown"},
		{
			name:    "forwarded header from an untrusted peer is ignored",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7"},
			remote:  "198.51.100.9:443",
			trusted: proxies,
			want:    "198.51.100.9",
		},
		{
			name:    "real ip from an untrusted peer is ignored",
			headers: map[string]string{"X-Real-IP": "203.0.113.7"},
			remote:  "198.51.100.9:443",
			want:    "198.51.100.9",
		},
		{
			name:    "trusted proxy forwards the client",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7"},
			remote:  "10.1.2.3:443",
			trusted: proxies,
			want:    "203.0.113.7",
		},
		{
			name:    "spoofed leading entries are skipped",
			headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 203.0.113.7, 10.0.0.2"},
			remote:  "10.1.2.3:443",
			trusted: proxies,
			want:    "203.0.113.7",
		},
		{
			name:    "chain of only proxies yields the first hop",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.5, 10.0.0.2"},
			remote:  "10.1.2.3:443",
			trusted: proxies,
			want:    "10.0.0.5",
		},
		{
			name:    "garbage entry stops the walk",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, not-an-ip"},
			remote:  "10.1.2.3:443",
			trusted: proxies,
			want:    "10.1.2.3",
		},
		{
			name:    "trusted proxy real ip",
			headers: map[string]string{"X-Real-IP": " 198.51.100.2 "},
			remote:  "10.1.2.3:443",
			trusted: proxies,
			want:    "198.51.100.2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(r, tt.trusted))
		})
	}
}

// Justification: the client IP keys the rate limiter and audit trail, so a
// header from an arbitrary client must not be able to change it.
func TestClientMetadata(t *testing.T) {
	var ip, ua string
	h := ClientMetadata(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.9:1234"
	r.Header.Set("User-Agent", "Mozilla/5.0")
	r.Header.Set("X-Forwarded-For", "203.0.113.50")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "192.0.2.9", ip)
	assert.Equal(t, "Mozilla/5.0", ua)
}
