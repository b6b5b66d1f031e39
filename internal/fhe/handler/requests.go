package handler

import (
	"titlechain/internal/fhe"
	dErrors "titlechain/pkg/domain-errors"
)

// maxHexField bounds hex fields before decoding. Proofs are the longest at 2+128.
const maxHexField = 256

// EncryptRequest is the body for POST /fhe/encrypt.
type EncryptRequest struct {
	Value     int64 `json:"value"`
	WithProof bool  `json:"with_proof"`
}

// Validate checks the plaintext domain before it reaches the backend.
func (r *EncryptRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if _, err := fhe.NewPlaintext(r.Value); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "value must be in [0, 2^32)")
	}
	return nil
}

// DecryptRequest is the body for POST /fhe/decrypt.
type DecryptRequest struct {
	Ciphertext string `json:"ciphertext"`

	parsed fhe.Ciphertext
}

// Validate parses the ciphertext.
func (r *DecryptRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	c, err := parseCiphertext("ciphertext", r.Ciphertext)
	if err != nil {
		return err
	}
	r.parsed = c
	return nil
}

// ParsedCiphertext returns the validated ciphertext.
func (r *DecryptRequest) ParsedCiphertext() fhe.Ciphertext {
	return r.parsed
}

// EvaluateRequest is the body for POST /fhe/evaluate.
type EvaluateRequest struct {
	Op  string `json:"op"`
	LHS string `json:"lhs"`
	RHS string `json:"rhs"`

	parsedOp  fhe.Op
	parsedLHS fhe.Ciphertext
	parsedRHS fhe.Ciphertext
}

// Validate parses the operation and both operands.
func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	op, err := fhe.ParseOp(r.Op)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "op must be one of add, sub, mul")
	}
	lhs, err := parseCiphertext("lhs", r.LHS)
	if err != nil {
		return err
	}
	rhs, err := parseCiphertext("rhs", r.RHS)
	if err != nil {
		return err
	}
	r.parsedOp, r.parsedLHS, r.parsedRHS = op, lhs, rhs
	return nil
}

func (r *EvaluateRequest) ParsedOp() fhe.Op          { return r.parsedOp }
func (r *EvaluateRequest) ParsedLHS() fhe.Ciphertext { return r.parsedLHS }
func (r *EvaluateRequest) ParsedRHS() fhe.Ciphertext { return r.parsedRHS }

// ProofRequest is the body for POST /fhe/proofs.
type ProofRequest struct {
	Ciphertext string `json:"ciphertext"`

	parsed fhe.Ciphertext
}

// Validate parses the ciphertext.
func (r *ProofRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	c, err := parseCiphertext("ciphertext", r.Ciphertext)
	if err != nil {
		return err
	}
	r.parsed = c
	return nil
}

// ParsedCiphertext returns the validated ciphertext.
func (r *ProofRequest) ParsedCiphertext() fhe.Ciphertext {
	return r.parsed
}

// VerifyProofRequest is the body for POST /fhe/proofs/verify.
type VerifyProofRequest struct {
	Proof      string `json:"proof"`
	Ciphertext string `json:"ciphertext"`

	parsedProof      fhe.Proof
	parsedCiphertext fhe.Ciphertext
}

// Validate parses the proof and ciphertext.
func (r *VerifyProofRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Proof == "" {
		return dErrors.New(dErrors.CodeValidation, "proof is required")
	}
	if len(r.Proof) > maxHexField {
		return dErrors.New(dErrors.CodeBadRequest, "malformed proof")
	}
	p, err := fhe.ParseProofHex(r.Proof)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed proof")
	}
	c, err := parseCiphertext("ciphertext", r.Ciphertext)
	if err != nil {
		return err
	}
	r.parsedProof, r.parsedCiphertext = p, c
	return nil
}

func (r *VerifyProofRequest) ParsedProof() fhe.Proof           { return r.parsedProof }
func (r *VerifyProofRequest) ParsedCiphertext() fhe.Ciphertext { return r.parsedCiphertext }

func parseCiphertext(field, s string) (fhe.Ciphertext, error) {
	if s == "" {
		return fhe.Ciphertext{}, dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if len(s) > maxHexField {
		return fhe.Ciphertext{}, dErrors.New(dErrors.CodeBadRequest, "malformed "+field)
	}
	c, err := fhe.ParseCiphertextHex(s)
	if err != nil {
		return fhe.Ciphertext{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed "+field)
	}
	return c, nil
}
