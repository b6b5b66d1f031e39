package handler

import (
	"time"

	"titlechain/internal/wallet"
)

// SessionResponse is the wire shape of a wallet session.
type SessionResponse struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	IsConnected bool      `json:"is_connected"`
	Device      string    `json:"device"`
	ConnectedAt time.Time `json:"connected_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func FromSession(s *wallet.Session) *SessionResponse {
	return &SessionResponse{
		ID:          s.ID.String(),
		Address:     s.Address,
		IsConnected: s.Connected,
		Device:      s.Device,
		ConnectedAt: s.ConnectedAt,
		ExpiresAt:   s.ExpiresAt,
	}
}

// ChallengeResponse is what the wallet must sign to connect.
type ChallengeResponse struct {
	Nonce     string    `json:"nonce"`
	Address   string    `json:"address"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

func FromChallenge(c *wallet.Challenge) *ChallengeResponse {
	return &ChallengeResponse{
		Nonce:     c.Nonce,
		Address:   c.Address,
		Message:   c.Message(),
		ExpiresAt: c.ExpiresAt,
	}
}

// ConnectResponse carries the bearer token for subsequent requests.
type ConnectResponse struct {
	Token   string           `json:"token"`
	Session *SessionResponse `json:"session"`
}

// MeResponse describes the caller's wallet.
type MeResponse struct {
	Address     string `json:"address"`
	SessionID   string `json:"session_id"`
	IsConnected bool   `json:"is_connected"`
}
