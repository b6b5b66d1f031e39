package handler

import (
	"time"

	"titlechain/internal/fhe"
	"titlechain/internal/ledger"
	"titlechain/internal/property"
)

// PropertyResponse is a property as shown to clients. Sensitive fields stay
// encrypted and are rendered as hex.
type PropertyResponse struct {
	ID                string     `json:"id"`
	Address           string     `json:"address"`
	Description       string     `json:"description"`
	Value             string     `json:"value"`
	Area              string     `json:"area"`
	YearBuilt         string     `json:"year_built"`
	InputProof        string     `json:"input_proof,omitempty"`
	IsActive          bool       `json:"is_active"`
	IsVerified        bool       `json:"is_verified"`
	Badge             string     `json:"badge"`
	Owner             string     `json:"owner"`
	PreviousOwner     string     `json:"previous_owner,omitempty"`
	RegisteredAt      time.Time  `json:"registered_at"`
	LastTransferredAt *time.Time `json:"last_transferred_at,omitempty"`
	LastTxHash        string     `json:"last_tx_hash,omitempty"`
}

// FromRecord converts a ledger record to the wire shape.
func FromRecord(r *ledger.Record) *PropertyResponse {
	resp := &PropertyResponse{
		ID:                r.ID.Dec(),
		Address:           r.Address,
		Description:       r.Description,
		Value:             r.Value.Hex(),
		Area:              r.Area.Hex(),
		YearBuilt:         r.YearBuilt.Hex(),
		IsActive:          r.IsActive,
		IsVerified:        r.IsVerified,
		Badge:             string(property.BadgeFor(r)),
		Owner:             r.Owner,
		PreviousOwner:     r.PreviousOwner,
		RegisteredAt:      r.RegisteredAt,
		LastTransferredAt: r.LastTransferredAt,
		LastTxHash:        r.LastTxHash,
	}
	if r.InputProof != (fhe.Proof{}) {
		resp.InputProof = r.InputProof.Hex()
	}
	return resp
}

// SearchResponse lists matching properties.
type SearchResponse struct {
	Results []*PropertyResponse `json:"results"`
	Count   int                 `json:"count"`
}

func FromRecords(records []*ledger.Record) *SearchResponse {
	out := make([]*PropertyResponse, 0, len(records))
	for _, r := range records {
		out = append(out, FromRecord(r))
	}
	return &SearchResponse{Results: out, Count: len(out)}
}

// RegisterResponse is returned after a registration is recorded.
type RegisterResponse struct {
	TxHash   string            `json:"tx_hash"`
	Property *PropertyResponse `json:"property"`
}

// ReceiptResponse is returned after a transfer.
type ReceiptResponse struct {
	TxHash     string    `json:"tx_hash"`
	PropertyID string    `json:"property_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func FromReceipt(r *ledger.Receipt) *ReceiptResponse {
	return &ReceiptResponse{
		TxHash:     r.TxHash,
		PropertyID: r.PropertyID.Dec(),
		Timestamp:  r.Timestamp,
	}
}

// PortfolioResponse carries the encrypted total value of a wallet's properties.
type PortfolioResponse struct {
	Owner      string `json:"owner"`
	Properties int    `json:"properties"`
	TotalValue string `json:"total_value"`
}

// DisclosureResponse carries the decrypted fields of one property.
type DisclosureResponse struct {
	ID        string `json:"id"`
	Value     uint32 `json:"value"`
	Area      uint32 `json:"area"`
	YearBuilt uint32 `json:"year_built"`
}

func FromDisclosure(d *property.Disclosure) *DisclosureResponse {
	return &DisclosureResponse{
		ID:        d.Record.ID.Dec(),
		Value:     uint32(d.Value),
		Area:      uint32(d.Area),
		YearBuilt: uint32(d.YearBuilt),
	}
}

// PortfolioValueResponse carries a decrypted portfolio total.
type PortfolioValueResponse struct {
	Owner      string `json:"owner"`
	Properties int    `json:"properties"`
	TotalValue uint32 `json:"total_value"`
}
