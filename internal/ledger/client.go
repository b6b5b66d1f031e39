package ledger

import (
	"context"

	"github.com/holiman/uint256"

	"titlechain/internal/fhe"
)

// Client is the registry contract surface the application depends on.
type Client interface {
	RegisterProperty(ctx context.Context, call RegisterCall) (*Receipt, error)
	TransferProperty(ctx context.Context, call TransferCall) (*Receipt, error)
	PropertyInfo(ctx context.Context, id *uint256.Int) (*Record, error)
	Search(ctx context.Context, term string, limit int) ([]*Record, error)
	ListByOwner(ctx context.Context, owner string) ([]*Record, error)
}

// Store persists registry state. Mutations observe a unit of work carried in ctx.
type Store interface {
	NextID(ctx context.Context) (*uint256.Int, error)
	Insert(ctx context.Context, record *Record) error
	Get(ctx context.Context, id *uint256.Int) (*Record, error)
	// ApplyTransfer moves ownership only when the current owner is t.From.
	ApplyTransfer(ctx context.Context, t *Transfer) error
	Search(ctx context.Context, term string, limit int) ([]*Record, error)
	ListByOwner(ctx context.Context, owner string) ([]*Record, error)
	Transfers(ctx context.Context, id *uint256.Int) ([]*Transfer, error)
}

// Verifier checks input proofs.
type Verifier interface {
	VerifyProof(p fhe.Proof, c fhe.Ciphertext) (bool, error)
}
