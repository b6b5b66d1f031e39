package handler

import "titlechain/internal/fhe"

// InfoResponse describes the active backend.
type InfoResponse struct {
	Scheme     string `json:"scheme"`
	KeyID      uint32 `json:"key_id"`
	CanDecrypt bool   `json:"can_decrypt"`
	Insecure   bool   `json:"insecure"`
}

// FromInfo converts backend info to the wire shape.
func FromInfo(info fhe.Info) *InfoResponse {
	return &InfoResponse{
		Scheme:     info.Scheme.String(),
		KeyID:      info.KeyID,
		CanDecrypt: info.CanDecrypt,
		Insecure:   info.Insecure,
	}
}

// CiphertextResponse carries an opaque ciphertext and, optionally, its input proof.
type CiphertextResponse struct {
	Ciphertext string  `json:"ciphertext"`
	Proof      *string `json:"proof,omitempty"`
}

// DecryptResponse carries a decrypted plaintext.
type DecryptResponse struct {
	Value uint32 `json:"value"`
}

// ProofResponse carries a generated proof.
type ProofResponse struct {
	Proof string `json:"proof"`
}

// VerifyProofResponse reports the verification outcome.
type VerifyProofResponse struct {
	Valid bool `json:"valid"`
}
