package handler

import (
	"strings"

	dErrors "titlechain/pkg/domain-errors"
)

// ChallengeRequest is the body for POST /wallet/challenge.
type ChallengeRequest struct {
	Address string `json:"address"`
}

func (r *ChallengeRequest) Normalize() {
	r.Address = strings.TrimSpace(r.Address)
}

// Validate checks presence only; the service validates the address format.
func (r *ChallengeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Address == "" {
		return dErrors.New(dErrors.CodeValidation, "address is required")
	}
	return nil
}

// ConnectRequest is the body for POST /wallet/connect: the challenge nonce
// and its personal_sign signature.
type ConnectRequest struct {
	Address   string `json:"address"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

func (r *ConnectRequest) Normalize() {
	r.Address = strings.TrimSpace(r.Address)
	r.Nonce = strings.TrimSpace(r.Nonce)
	r.Signature = strings.TrimSpace(r.Signature)
}

func (r *ConnectRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Address == "" {
		return dErrors.New(dErrors.CodeValidation, "address is required")
	}
	if r.Nonce == "" || r.Signature == "" {
		return dErrors.New(dErrors.CodeValidation, "nonce and signature are required")
	}
	return nil
}
