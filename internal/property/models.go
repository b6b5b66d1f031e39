// Package property is the registry application service: registration, transfer,
// lookup and encrypted portfolio valuation on top of the ledger client.
package property

import (
	"strings"
	"time"
	"unicode/utf8"

	"titlechain/internal/fhe"
	"titlechain/internal/ledger"
	dErrors "titlechain/pkg/domain-errors"
)

const (
	maxAddressLength     = 200
	maxDescriptionLength = 2000
	minYearBuilt         = 1000
	maxSearchResults     = 50
)

// Badge is the status shown next to a property.
type Badge string

const (
	BadgeVerifiedEncrypted Badge = "verified_encrypted"
	BadgeEncrypted         Badge = "encrypted"
	BadgePending           Badge = "pending"
)

// BadgeFor derives the status badge of a record.
func BadgeFor(r *ledger.Record) Badge {
	switch {
	case !r.IsActive:
		return BadgePending
	case r.IsVerified:
		return BadgeVerifiedEncrypted
	default:
		return BadgeEncrypted
	}
}

// RegisterInput is a registration request in plaintext, before encryption.
type RegisterInput struct {
	Address     string
	Description string
	Value       int64
	Area        int64
	YearBuilt   int64
}

// Normalize trims free text fields.
func (in *RegisterInput) Normalize() {
	in.Address = strings.TrimSpace(in.Address)
	in.Description = strings.TrimSpace(in.Description)
}

// Validate checks field presence, lengths and numeric domains at now.
func (in *RegisterInput) Validate(now time.Time) error {
	switch {
	case in.Address == "":
		return dErrors.New(dErrors.CodeValidation, "address is required")
	case utf8.RuneCountInString(in.Address) > maxAddressLength:
		return dErrors.New(dErrors.CodeValidation, "address is too long")
	case in.Description == "":
		return dErrors.New(dErrors.CodeValidation, "description is required")
	case utf8.RuneCountInString(in.Description) > maxDescriptionLength:
		return dErrors.New(dErrors.CodeValidation, "description is too long")
	case in.Value <= 0 || in.Value > fhe.MaxPlaintext:
		return dErrors.New(dErrors.CodeValidation, "value must be between 1 and 4294967295")
	case in.Area <= 0 || in.Area > fhe.MaxPlaintext:
		return dErrors.New(dErrors.CodeValidation, "area must be between 1 and 4294967295")
	case in.YearBuilt < minYearBuilt || in.YearBuilt > int64(now.Year()):
		return dErrors.New(dErrors.CodeValidation, "year_built must be a past year")
	}
	return nil
}

// TransferInput is a transfer request before encryption.
type TransferInput struct {
	PropertyID string
	To         string
	Value      int64
}

// Registration is the outcome of a successful registration.
type Registration struct {
	Record  *ledger.Record
	Receipt *ledger.Receipt
}

// Portfolio is the encrypted sum of the values of every property a wallet owns.
type Portfolio struct {
	Owner      string
	Properties int
	TotalValue fhe.Ciphertext
}

// Disclosure is the decrypted numeric fields of one property.
type Disclosure struct {
	Record    *ledger.Record
	Value     fhe.Plaintext
	Area      fhe.Plaintext
	YearBuilt fhe.Plaintext
}

// PortfolioValuation is a decrypted portfolio total.
type PortfolioValuation struct {
	Owner      string
	Properties int
	TotalValue fhe.Plaintext
}
