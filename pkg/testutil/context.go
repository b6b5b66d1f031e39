package testutil

import (
	"net/http"

	"titlechain/pkg/requestcontext"
)

// WithWallet attaches a connected wallet session to the request, as
// wallet.LoadSession does for a valid bearer token.
func WithWallet(req *http.Request, sessionID, address string) *http.Request {
	return req.WithContext(requestcontext.WithWallet(req.Context(), sessionID, address))
}
