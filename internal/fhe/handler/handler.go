package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"titlechain/internal/fhe"
	"titlechain/internal/wallet"
	dErrors "titlechain/pkg/domain-errors"
	"titlechain/pkg/platform/httputil"
	"titlechain/pkg/requestcontext"
)

// Service is the encrypted-value pipeline the handler exposes.
type Service interface {
	Info() fhe.Info
	Encrypt(ctx context.Context, value int64) (fhe.Ciphertext, error)
	EncryptWithProof(ctx context.Context, value int64) (fhe.Ciphertext, fhe.Proof, error)
	Decrypt(ctx context.Context, c fhe.Ciphertext) (fhe.Plaintext, error)
	Evaluate(ctx context.Context, op fhe.Op, a, b fhe.Ciphertext) (fhe.Ciphertext, error)
	GenerateProof(ctx context.Context, c fhe.Ciphertext) (fhe.Proof, error)
	VerifyProof(ctx context.Context, p fhe.Proof, c fhe.Ciphertext) (bool, error)
}

// DecryptPolicy decides whether the caller in ctx may see the plaintext of c.
type DecryptPolicy interface {
	AuthorizeDecrypt(ctx context.Context, c fhe.Ciphertext) error
}

// Handler serves the /fhe endpoints. Plaintexts only leave the service on
// decrypt, and only for ciphertexts the decrypt policy admits.
type Handler struct {
	service Service
	policy  DecryptPolicy
	logger  *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithDecryptPolicy enables POST /fhe/decrypt. Without a policy every decrypt
// request is refused.
func WithDecryptPolicy(p DecryptPolicy) Option {
	return func(h *Handler) {
		h.policy = p
	}
}

// New constructs an fhe handler.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the pipeline endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/fhe/info", h.HandleInfo)
	r.Post("/fhe/encrypt", h.HandleEncrypt)
	r.With(wallet.RequireWallet).Post("/fhe/decrypt", h.HandleDecrypt)
	r.Post("/fhe/evaluate", h.HandleEvaluate)
	r.Post("/fhe/proofs", h.HandleGenerateProof)
	r.Post("/fhe/proofs/verify", h.HandleVerifyProof)
}

// HandleInfo handles GET /fhe/info.
func (h *Handler) HandleInfo(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromInfo(h.service.Info()))
}

// HandleEncrypt handles POST /fhe/encrypt.
func (h *Handler) HandleEncrypt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[EncryptRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if req.WithProof {
		c, p, err := h.service.EncryptWithProof(ctx, req.Value)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		proofHex := p.Hex()
		httputil.WriteJSON(w, http.StatusOK, &CiphertextResponse{Ciphertext: c.Hex(), Proof: &proofHex})
		return
	}

	c, err := h.service.Encrypt(ctx, req.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &CiphertextResponse{Ciphertext: c.Hex()})
}

// HandleDecrypt handles POST /fhe/decrypt.
func (h *Handler) HandleDecrypt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DecryptRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c := req.ParsedCiphertext()
	if err := h.authorizeDecrypt(ctx, c); err != nil {
		h.logger.WarnContext(ctx, "decrypt refused",
			"request_id", requestID,
			"wallet", requestcontext.WalletAddress(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	v, err := h.service.Decrypt(ctx, c)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "ciphertext decrypted",
		"request_id", requestID,
		"wallet", requestcontext.WalletAddress(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, &DecryptResponse{Value: uint32(v)})
}

func (h *Handler) authorizeDecrypt(ctx context.Context, c fhe.Ciphertext) error {
	if h.policy == nil {
		return dErrors.New(dErrors.CodeForbidden, "decryption is not enabled")
	}
	return h.policy.AuthorizeDecrypt(ctx, c)
}

// HandleEvaluate handles POST /fhe/evaluate.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Evaluate(ctx, req.ParsedOp(), req.ParsedLHS(), req.ParsedRHS())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &CiphertextResponse{Ciphertext: c.Hex()})
}

// HandleGenerateProof handles POST /fhe/proofs.
func (h *Handler) HandleGenerateProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ProofRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.GenerateProof(ctx, req.ParsedCiphertext())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ProofResponse{Proof: p.Hex()})
}

// HandleVerifyProof handles POST /fhe/proofs/verify. A mismatched proof is a
// successful call with valid=false.
func (h *Handler) HandleVerifyProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyProofRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	valid, err := h.service.VerifyProof(ctx, req.ParsedProof(), req.ParsedCiphertext())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &VerifyProofResponse{Valid: valid})
}
