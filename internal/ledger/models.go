// Package ledger is the registry contract client: registering and transferring
// properties whose sensitive fields are ciphertexts, and reading them back.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"titlechain/internal/fhe"
)

var (
	// ErrInvalidProof means the input proof does not belong to its ciphertext.
	ErrInvalidProof = errors.New("ledger: input proof rejected")
	// ErrNotOwner means the caller does not own the property.
	ErrNotOwner = errors.New("ledger: caller is not the property owner")
	// ErrInactive means the property cannot currently be transferred.
	ErrInactive = errors.New("ledger: property is not active")
	// ErrSelfTransfer means the recipient already owns the property.
	ErrSelfTransfer = errors.New("ledger: recipient already owns the property")
)

// ParsePropertyID parses a decimal or 0x-prefixed hex property id.
func ParsePropertyID(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	var (
		id  *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		id, err = uint256.FromHex(s)
	} else {
		id, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid property id %q: %w", s, err)
	}
	if id.IsZero() {
		return nil, fmt.Errorf("invalid property id %q: ids start at 1", s)
	}
	return id, nil
}

// Record is the on-ledger state of one property.
type Record struct {
	ID                *uint256.Int
	Address           string
	Description       string
	Value             fhe.Ciphertext
	Area              fhe.Ciphertext
	YearBuilt         fhe.Ciphertext
	InputProof        fhe.Proof
	IsActive          bool
	IsVerified        bool
	Owner             string
	PreviousOwner     string
	RegisteredAt      time.Time
	LastTransferredAt *time.Time
	LastTxHash        string
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := *r
	if r.ID != nil {
		c.ID = r.ID.Clone()
	}
	if r.LastTransferredAt != nil {
		t := *r.LastTransferredAt
		c.LastTransferredAt = &t
	}
	return &c
}

// Transfer is one ownership change.
type Transfer struct {
	TxHash        string
	PropertyID    *uint256.Int
	From          string
	To            string
	TransferValue fhe.Ciphertext
	InputProof    fhe.Proof
	TransferredAt time.Time
}

// RegisterCall carries registerProperty arguments.
type RegisterCall struct {
	Owner       string
	Address     string
	Description string
	Value       fhe.Ciphertext
	Area        fhe.Ciphertext
	YearBuilt   fhe.Ciphertext
	// InputProof binds Value. A zero proof registers the record unverified.
	InputProof fhe.Proof
}

// TransferCall carries transferProperty arguments.
type TransferCall struct {
	PropertyID    *uint256.Int
	From          string
	To            string
	TransferValue fhe.Ciphertext
	InputProof    fhe.Proof
}

// Receipt is the result of a state-changing call.
type Receipt struct {
	TxHash     string
	PropertyID *uint256.Int
	Timestamp  time.Time
}
