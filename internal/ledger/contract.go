package ledger

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"titlechain/internal/fhe"
	"titlechain/pkg/requestcontext"
)

// Contract simulates the registry contract in process. It enforces what the
// contract would: input proofs bind their ciphertexts, only owners transfer,
// and every state change gets a transaction hash.
type Contract struct {
	store    Store
	verifier Verifier
	logger   *slog.Logger
	nonce    atomic.Uint64
}

// ContractOption configures a Contract.
type ContractOption func(*Contract)

func WithLogger(logger *slog.Logger) ContractOption {
	return func(c *Contract) {
		c.logger = logger
	}
}

// NewContract builds a simulated contract over store.
func NewContract(store Store, verifier Verifier, opts ...ContractOption) *Contract {
	c := &Contract{
		store:    store,
		verifier: verifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterProperty records a new property owned by call.Owner.
func (c *Contract) RegisterProperty(ctx context.Context, call RegisterCall) (*Receipt, error) {
	for _, ct := range []fhe.Ciphertext{call.Value, call.Area, call.YearBuilt} {
		if err := ct.Validate(); err != nil {
			return nil, err
		}
	}
	verified, err := c.checkProof(call.InputProof, call.Value)
	if err != nil {
		return nil, err
	}

	id, err := c.store.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate property id: %w", err)
	}
	now := requestcontext.Now(ctx).UTC()
	txHash := c.txHash("registerProperty", now,
		id.Bytes(), []byte(call.Owner), []byte(call.Address), []byte(call.Description),
		call.Value.Bytes(), call.Area.Bytes(), call.YearBuilt.Bytes(), call.InputProof.Bytes(),
	)

	record := &Record{
		ID:           id,
		Address:      call.Address,
		Description:  call.Description,
		Value:        call.Value,
		Area:         call.Area,
		YearBuilt:    call.YearBuilt,
		InputProof:   call.InputProof,
		IsActive:     true,
		IsVerified:   verified,
		Owner:        call.Owner,
		RegisteredAt: now,
		LastTxHash:   txHash,
	}
	if err := c.store.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("store property: %w", err)
	}

	c.logger.InfoContext(ctx, "property registered",
		"request_id", requestcontext.RequestID(ctx),
		"property_id", id.Dec(),
		"owner", call.Owner,
		"verified", verified,
		"tx_hash", txHash,
	)
	return &Receipt{TxHash: txHash, PropertyID: id, Timestamp: now}, nil
}

// TransferProperty moves ownership from call.From to call.To. The transfer value
// must carry a valid proof.
func (c *Contract) TransferProperty(ctx context.Context, call TransferCall) (*Receipt, error) {
	if err := call.TransferValue.Validate(); err != nil {
		return nil, err
	}
	if call.From == call.To {
		return nil, ErrSelfTransfer
	}
	ok, err := c.verifier.VerifyProof(call.InputProof, call.TransferValue)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidProof
	}

	record, err := c.store.Get(ctx, call.PropertyID)
	if err != nil {
		return nil, err
	}
	if !record.IsActive {
		return nil, ErrInactive
	}
	if record.Owner != call.From {
		return nil, ErrNotOwner
	}

	now := requestcontext.Now(ctx).UTC()
	transfer := &Transfer{
		PropertyID:    call.PropertyID,
		From:          call.From,
		To:            call.To,
		TransferValue: call.TransferValue,
		InputProof:    call.InputProof,
		TransferredAt: now,
	}
	transfer.TxHash = c.txHash("transferProperty", now,
		call.PropertyID.Bytes(), []byte(call.From), []byte(call.To),
		call.TransferValue.Bytes(), call.InputProof.Bytes(),
	)
	if err := c.store.ApplyTransfer(ctx, transfer); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "property transferred",
		"request_id", requestcontext.RequestID(ctx),
		"property_id", call.PropertyID.Dec(),
		"from", call.From,
		"to", call.To,
		"tx_hash", transfer.TxHash,
	)
	return &Receipt{TxHash: transfer.TxHash, PropertyID: call.PropertyID, Timestamp: now}, nil
}

func (c *Contract) PropertyInfo(ctx context.Context, id *uint256.Int) (*Record, error) {
	return c.store.Get(ctx, id)
}

func (c *Contract) Search(ctx context.Context, term string, limit int) ([]*Record, error) {
	return c.store.Search(ctx, term, limit)
}

func (c *Contract) ListByOwner(ctx context.Context, owner string) ([]*Record, error) {
	return c.store.ListByOwner(ctx, owner)
}

// checkProof returns false for an absent proof and ErrInvalidProof for a wrong one.
func (c *Contract) checkProof(p fhe.Proof, ct fhe.Ciphertext) (bool, error) {
	if p == (fhe.Proof{}) {
		return false, nil
	}
	ok, err := c.verifier.VerifyProof(p, ct)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrInvalidProof
	}
	return true, nil
}

// txHash is Keccak-256 over the method name, a per-contract nonce, the block
// time and the length-prefixed arguments.
func (c *Contract) txHash(method string, at time.Time, args ...[]byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(method))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], c.nonce.Add(1))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(at.UnixNano()))
	h.Write(buf[:])
	for _, arg := range args {
		binary.BigEndian.PutUint64(buf[:], uint64(len(arg)))
		h.Write(buf[:])
		h.Write(arg)
	}
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
