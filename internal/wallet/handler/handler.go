package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"titlechain/internal/wallet"
	dErrors "titlechain/pkg/domain-errors"
	"titlechain/pkg/platform/httputil"
	"titlechain/pkg/requestcontext"
)

// Service defines the wallet session operations.
type Service interface {
	Challenge(ctx context.Context, address string) (*wallet.Challenge, error)
	Connect(ctx context.Context, in wallet.SignIn) (*wallet.Session, string, error)
	Disconnect(ctx context.Context, sessionID uuid.UUID) error
}

// Handler serves the /wallet endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a wallet handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the wallet endpoints. Disconnect and me need a session loaded
// by wallet.LoadSession further up the chain.
func (h *Handler) Register(r chi.Router) {
	r.Post("/wallet/challenge", h.HandleChallenge)
	r.Post("/wallet/connect", h.HandleConnect)
	r.With(wallet.RequireWallet).Post("/wallet/disconnect", h.HandleDisconnect)
	r.With(wallet.RequireWallet).Get("/wallet/me", h.HandleMe)
}

// HandleChallenge handles POST /wallet/challenge.
func (h *Handler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ChallengeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	challenge, err := h.service.Challenge(ctx, req.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromChallenge(challenge))
}

// HandleConnect handles POST /wallet/connect.
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ConnectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, token, err := h.service.Connect(ctx, wallet.SignIn{
		Address:   req.Address,
		Nonce:     req.Nonce,
		Signature: req.Signature,
		UserAgent: requestcontext.UserAgent(ctx),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "wallet connect failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &ConnectResponse{
		Token:   token,
		Session: FromSession(session),
	})
}

// HandleDisconnect handles POST /wallet/disconnect.
func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, err := uuid.Parse(requestcontext.SessionID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "wallet connection required"))
		return
	}
	if err := h.service.Disconnect(ctx, sessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /wallet/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	httputil.WriteJSON(w, http.StatusOK, &MeResponse{
		Address:     requestcontext.WalletAddress(ctx),
		SessionID:   requestcontext.SessionID(ctx),
		IsConnected: requestcontext.IsConnected(ctx),
	})
}
