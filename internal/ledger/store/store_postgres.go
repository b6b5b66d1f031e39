package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/lib/pq"

	"titlechain/internal/fhe"
	"titlechain/internal/ledger"
	"titlechain/pkg/platform/sentinel"
	txcontext "titlechain/pkg/platform/tx"
)

// PostgresStore persists registry state in PostgreSQL. Property ids are
// NUMERIC(78,0) so the full uint256 range round-trips.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) queryer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const recordColumns = `id::text, address, description, value_ct, area_ct, year_built_ct, input_proof,
	is_active, is_verified, owner, previous_owner, registered_at, last_transferred_at, last_tx_hash`

func (s *PostgresStore) NextID(ctx context.Context) (*uint256.Int, error) {
	var next int64
	if err := s.q(ctx).QueryRowContext(ctx, `SELECT nextval('property_id_seq')`).Scan(&next); err != nil {
		return nil, fmt.Errorf("next property id: %w", err)
	}
	return uint256.NewInt(uint64(next)), nil
}

func (s *PostgresStore) Insert(ctx context.Context, r *ledger.Record) error {
	query := `
		INSERT INTO properties (id, address, description, value_ct, area_ct, year_built_ct, input_proof,
			is_active, is_verified, owner, previous_owner, registered_at, last_transferred_at, last_tx_hash)
		VALUES ($1::numeric, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		r.ID.Dec(), r.Address, r.Description,
		r.Value.Bytes(), r.Area.Bytes(), r.YearBuilt.Bytes(), r.InputProof.Bytes(),
		r.IsActive, r.IsVerified, r.Owner, r.PreviousOwner,
		r.RegisteredAt, r.LastTransferredAt, r.LastTxHash,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert property: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id *uint256.Int) (*ledger.Record, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM properties WHERE id = $1::numeric`, id.Dec())
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return r, err
}

// ApplyTransfer updates the owner with a compare-and-set on the previous owner and
// records the transfer row in the same unit of work.
func (s *PostgresStore) ApplyTransfer(ctx context.Context, t *ledger.Transfer) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE properties
		SET previous_owner = owner, owner = $2, last_transferred_at = $3, last_tx_hash = $4
		WHERE id = $1::numeric AND owner = $5
	`, t.PropertyID.Dec(), t.To, t.TransferredAt, t.TxHash, t.From)
	if err != nil {
		return fmt.Errorf("update owner: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update owner: %w", err)
	}
	if n == 0 {
		if _, getErr := s.Get(ctx, t.PropertyID); getErr != nil {
			return getErr
		}
		return ledger.ErrNotOwner
	}

	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO property_transfers (tx_hash, property_id, from_owner, to_owner, transfer_value, input_proof, transferred_at)
		VALUES ($1, $2::numeric, $3, $4, $5, $6, $7)
	`, t.TxHash, t.PropertyID.Dec(), t.From, t.To, t.TransferValue.Bytes(), t.InputProof.Bytes(), t.TransferredAt)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, term string, limit int) ([]*ledger.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	term = strings.ToLower(strings.TrimSpace(term))
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM properties
		WHERE $1 = '' OR id::text = $1 OR lower(address) LIKE '%' || $2 || '%' ESCAPE '\'
		ORDER BY id
		LIMIT $3
	`, term, escapeLike(term), limit)
	if err != nil {
		return nil, fmt.Errorf("search properties: %w", err)
	}
	return collect(rows)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner string) ([]*ledger.Record, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+recordColumns+` FROM properties WHERE owner = $1 ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list properties by owner: %w", err)
	}
	return collect(rows)
}

func (s *PostgresStore) Transfers(ctx context.Context, id *uint256.Int) ([]*ledger.Transfer, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT tx_hash, property_id::text, from_owner, to_owner, transfer_value, input_proof, transferred_at
		FROM property_transfers WHERE property_id = $1::numeric ORDER BY transferred_at
	`, id.Dec())
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []*ledger.Transfer
	for rows.Next() {
		var (
			t            ledger.Transfer
			idText       string
			value, proof []byte
		)
		if err := rows.Scan(&t.TxHash, &idText, &t.From, &t.To, &value, &proof, &t.TransferredAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		if t.PropertyID, err = uint256.FromDecimal(idText); err != nil {
			return nil, fmt.Errorf("decode property id: %w", err)
		}
		if t.TransferValue, err = fhe.ParseCiphertext(value); err != nil {
			return nil, fmt.Errorf("decode transfer value: %w", err)
		}
		if t.InputProof, err = fhe.ParseProof(proof); err != nil {
			return nil, fmt.Errorf("decode transfer proof: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*ledger.Record, error) {
	var (
		r                             ledger.Record
		idText                        string
		value, area, yearBuilt, proof []byte
		lastTransferred               sql.NullTime
	)
	err := row.Scan(&idText, &r.Address, &r.Description, &value, &area, &yearBuilt, &proof,
		&r.IsActive, &r.IsVerified, &r.Owner, &r.PreviousOwner, &r.RegisteredAt, &lastTransferred, &r.LastTxHash)
	if err != nil {
		return nil, err
	}
	if r.ID, err = uint256.FromDecimal(idText); err != nil {
		return nil, fmt.Errorf("decode property id: %w", err)
	}
	if r.Value, err = fhe.ParseCiphertext(value); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	if r.Area, err = fhe.ParseCiphertext(area); err != nil {
		return nil, fmt.Errorf("decode area: %w", err)
	}
	if r.YearBuilt, err = fhe.ParseCiphertext(yearBuilt); err != nil {
		return nil, fmt.Errorf("decode year built: %w", err)
	}
	if r.InputProof, err = fhe.ParseProof(proof); err != nil {
		return nil, fmt.Errorf("decode input proof: %w", err)
	}
	if lastTransferred.Valid {
		t := lastTransferred.Time.UTC()
		r.LastTransferredAt = &t
	}
	r.RegisteredAt = r.RegisteredAt.UTC()
	return &r, nil
}

func collect(rows *sql.Rows) ([]*ledger.Record, error) {
	defer rows.Close()
	var out []*ledger.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

