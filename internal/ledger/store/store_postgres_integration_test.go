//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/suite"

	"titlechain/internal/fhe"
	"titlechain/internal/ledger"
	"titlechain/internal/ledger/store"
	"titlechain/pkg/platform/audit"
	auditpg "titlechain/pkg/platform/audit/store/postgres"
	"titlechain/pkg/platform/sentinel"
	txcontext "titlechain/pkg/platform/tx"
	"titlechain/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background()))
}

func ciphertext(b byte) fhe.Ciphertext {
	var body [fhe.BodySize]byte
	body[0] = b
	return fhe.NewCiphertext(fhe.SchemeTest, 1, body)
}

func (s *PostgresStoreSuite) record(owner, address string) *ledger.Record {
	ctx := context.Background()
	id, err := s.store.NextID(ctx)
	s.Require().NoError(err)
	var p fhe.Proof
	p[0] = 9
	return &ledger.Record{
		ID:           id,
		Address:      address,
		Description:  "desc",
		Value:        ciphertext(1),
		Area:         ciphertext(2),
		YearBuilt:    ciphertext(3),
		InputProof:   p,
		IsActive:     true,
		IsVerified:   true,
		Owner:        owner,
		RegisteredAt: time.Now().UTC().Truncate(time.Microsecond),
		LastTxHash:   "0xabc",
	}
}

func (s *PostgresStoreSuite) TestInsertAndGet() {
	ctx := context.Background()
	r := s.record("0xaa", "1 Main St")
	s.Require().NoError(s.store.Insert(ctx, r))

	got, err := s.store.Get(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(r, got)

	s.ErrorIs(s.store.Insert(ctx, r), sentinel.ErrConflict)

	_, err = s.store.Get(ctx, uint256.NewInt(999_999))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// Justification: NUMERIC(78,0) must hold the full uint256 range.
func (s *PostgresStoreSuite) TestMaxPropertyID() {
	ctx := context.Background()
	r := s.record("0xaa", "max")
	r.ID = new(uint256.Int).SetAllOne()
	s.Require().NoError(s.store.Insert(ctx, r))

	got, err := s.store.Get(ctx, r.ID)
	s.Require().NoError(err)
	s.True(r.ID.Eq(got.ID))
}

func (s *PostgresStoreSuite) TestApplyTransfer() {
	ctx := context.Background()
	r := s.record("0xaa", "1 Main St")
	s.Require().NoError(s.store.Insert(ctx, r))

	transfer := &ledger.Transfer{
		TxHash:        "0xdef",
		PropertyID:    r.ID,
		From:          "0xaa",
		To:            "0xbb",
		TransferValue: ciphertext(4),
		InputProof:    r.InputProof,
		TransferredAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.ApplyTransfer(ctx, transfer))

	got, err := s.store.Get(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal("0xbb", got.Owner)
	s.Equal("0xaa", got.PreviousOwner)
	s.Equal("0xdef", got.LastTxHash)

	transfers, err := s.store.Transfers(ctx, r.ID)
	s.Require().NoError(err)
	s.Require().Len(transfers, 1)
	s.Equal(transfer.TransferValue, transfers[0].TransferValue)

	transfer.TxHash = "0xfff"
	s.ErrorIs(s.store.ApplyTransfer(ctx, transfer), ledger.ErrNotOwner)
}

func (s *PostgresStoreSuite) TestSearch() {
	ctx := context.Background()
	a := s.record("0xaa", "100% Harbour_Street")
	b := s.record("0xbb", "Elm Road")
	s.Require().NoError(s.store.Insert(ctx, a))
	s.Require().NoError(s.store.Insert(ctx, b))

	found, err := s.store.Search(ctx, "harbour_", 10)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("0xaa", found[0].Owner)

	found, err = s.store.Search(ctx, "%", 10)
	s.Require().NoError(err)
	s.Len(found, 1)

	found, err = s.store.Search(ctx, b.ID.Dec(), 10)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("0xbb", found[0].Owner)

	owned, err := s.store.ListByOwner(ctx, "0xaa")
	s.Require().NoError(err)
	s.Len(owned, 1)
}

// Justification: a failing audit write must roll back the registry write made in
// the same unit of work.
func (s *PostgresStoreSuite) TestRollbackWithOutbox() {
	ctx := context.Background()
	runner := txcontext.NewSQLRunner(s.pg.DB)
	outbox := auditpg.New(s.pg.DB)
	r := s.record("0xaa", "1 Main St")

	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Insert(ctx, r); err != nil {
			return err
		}
		if err := outbox.Append(ctx, audit.Event{Action: audit.EventPropertyRegistered, Wallet: "0xaa"}); err != nil {
			return err
		}
		return sentinel.ErrUnavailable
	})
	s.ErrorIs(err, sentinel.ErrUnavailable)

	_, err = s.store.Get(ctx, r.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	pending, err := outbox.Pending(ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}
