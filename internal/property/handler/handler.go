package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"titlechain/internal/ledger"
	"titlechain/internal/property"
	"titlechain/internal/wallet"
	"titlechain/pkg/platform/httputil"
	"titlechain/pkg/requestcontext"
)

// Service is the registry surface the handler exposes.
type Service interface {
	Register(ctx context.Context, in property.RegisterInput) (*property.Registration, error)
	Transfer(ctx context.Context, in property.TransferInput) (*ledger.Receipt, error)
	Get(ctx context.Context, rawID string) (*ledger.Record, error)
	Search(ctx context.Context, term string) ([]*ledger.Record, error)
	Portfolio(ctx context.Context) (*property.Portfolio, error)
	Reveal(ctx context.Context, rawID string) (*property.Disclosure, error)
	PortfolioValue(ctx context.Context) (*property.PortfolioValuation, error)
}

// Handler serves the /properties endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a property handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/properties", h.HandleRegister)
	r.Get("/properties", h.HandleSearch)
	r.Get("/properties/portfolio", h.HandlePortfolio)
	r.With(wallet.RequireWallet).Post("/properties/portfolio/decrypt", h.HandlePortfolioValue)
	r.Get("/properties/{id}", h.HandleGet)
	r.Post("/properties/{id}/transfer", h.HandleTransfer)
	r.With(wallet.RequireWallet).Post("/properties/{id}/decrypt", h.HandleReveal)
}

// HandleRegister handles POST /properties.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reg, err := h.service.Register(ctx, req.Input())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "property registered",
		"request_id", requestID,
		"property_id", reg.Receipt.PropertyID.Dec(),
		"tx_hash", reg.Receipt.TxHash,
	)
	httputil.WriteJSON(w, http.StatusCreated, &RegisterResponse{
		TxHash:   reg.Receipt.TxHash,
		Property: FromRecord(reg.Record),
	})
}

// HandleTransfer handles POST /properties/{id}/transfer.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	receipt, err := h.service.Transfer(ctx, property.TransferInput{
		PropertyID: chi.URLParam(r, "id"),
		To:         req.To,
		Value:      req.Value,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "property transferred",
		"request_id", requestID,
		"property_id", receipt.PropertyID.Dec(),
		"tx_hash", receipt.TxHash,
	)
	httputil.WriteJSON(w, http.StatusOK, FromReceipt(receipt))
}

// HandleGet handles GET /properties/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(record))
}

// HandleSearch handles GET /properties?q=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecords(records))
}

// HandlePortfolio handles GET /properties/portfolio.
func (h *Handler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Portfolio(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &PortfolioResponse{
		Owner:      p.Owner,
		Properties: p.Properties,
		TotalValue: p.TotalValue.Hex(),
	})
}

// HandleReveal handles POST /properties/{id}/decrypt.
func (h *Handler) HandleReveal(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Reveal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDisclosure(d))
}

// HandlePortfolioValue handles POST /properties/portfolio/decrypt.
func (h *Handler) HandlePortfolioValue(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.PortfolioValue(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &PortfolioValueResponse{
		Owner:      v.Owner,
		Properties: v.Properties,
		TotalValue: uint32(v.TotalValue),
	})
}
