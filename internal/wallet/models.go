// Package wallet manages wallet sessions: connecting an address, resolving a
// bearer token back to its session, and disconnecting.
package wallet

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "titlechain/pkg/domain-errors"
)

// Session is one wallet connection.
type Session struct {
	ID             uuid.UUID  `json:"id"`
	Address        string     `json:"address"`
	Connected      bool       `json:"connected"`
	Device         string     `json:"device"`
	ConnectedAt    time.Time  `json:"connected_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// Active reports whether the session is connected and unexpired at now.
func (s *Session) Active(now time.Time) bool {
	return s != nil && s.Connected && now.Before(s.ExpiresAt)
}

// Disconnected is the zero session returned for unknown or revoked tokens.
func Disconnected() *Session {
	return &Session{Connected: false}
}

// NormalizeAddress validates an EVM address (0x followed by 40 hex digits) and
// returns it lower-cased.
func NormalizeAddress(raw string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return "", dErrors.New(dErrors.CodeValidation, "address must be 0x followed by 40 hex characters")
	}
	for _, c := range addr[2:] {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return "", dErrors.New(dErrors.CodeValidation, "address must be 0x followed by 40 hex characters")
		}
	}
	return addr, nil
}

// Challenge is a single-use sign-in nonce issued to one address.
type Challenge struct {
	Nonce     string    `json:"nonce"`
	Address   string    `json:"address"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Message is the text the wallet signs with personal_sign.
func (c *Challenge) Message() string {
	return "Sign in to titlechain\n" +
		"Address: " + c.Address + "\n" +
		"Nonce: " + c.Nonce + "\n" +
		"Issued At: " + c.IssuedAt.UTC().Format(time.RFC3339)
}

// Expired reports whether the challenge can no longer be answered at now.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// SignIn is a signed answer to a challenge.
type SignIn struct {
	Address   string
	Nonce     string
	Signature string
	UserAgent string
}
