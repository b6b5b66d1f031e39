package handler

import (
	"strings"

	"titlechain/internal/property"
	dErrors "titlechain/pkg/domain-errors"
)

// RegisterRequest is the body for POST /properties. Numeric fields are plaintext
// here and are encrypted before anything is recorded.
type RegisterRequest struct {
	Address     string `json:"address"`
	Description string `json:"description"`
	Value       int64  `json:"value"`
	Area        int64  `json:"area"`
	YearBuilt   int64  `json:"year_built"`
}

func (r *RegisterRequest) Normalize() {
	r.Address = strings.TrimSpace(r.Address)
	r.Description = strings.TrimSpace(r.Description)
}

// Validate checks presence. Ranges are checked by the service against request time.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Address == "" {
		return dErrors.New(dErrors.CodeValidation, "address is required")
	}
	if r.Description == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}
	return nil
}

// Input converts the request to a service input.
func (r *RegisterRequest) Input() property.RegisterInput {
	return property.RegisterInput{
		Address:     r.Address,
		Description: r.Description,
		Value:       r.Value,
		Area:        r.Area,
		YearBuilt:   r.YearBuilt,
	}
}

// TransferRequest is the body for POST /properties/{id}/transfer.
type TransferRequest struct {
	To    string `json:"to"`
	Value int64  `json:"value"`
}

func (r *TransferRequest) Normalize() {
	r.To = strings.TrimSpace(r.To)
}

func (r *TransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.To == "" {
		return dErrors.New(dErrors.CodeValidation, "to is required")
	}
	return nil
}
