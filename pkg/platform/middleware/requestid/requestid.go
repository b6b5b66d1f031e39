// Package requestid assigns a correlation ID to every request.
package requestid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"titlechain/pkg/requestcontext"
)

// Header carries the request ID in both directions.
const Header = "X-Request-ID"

var acceptable = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Middleware reuses a well-formed inbound X-Request-ID or generates a UUID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !acceptable.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}
