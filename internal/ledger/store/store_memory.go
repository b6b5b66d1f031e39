// Package store holds the registry state stores.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/holiman/uint256"

	"titlechain/internal/ledger"
	"titlechain/pkg/platform/sentinel"
)

// InMemoryStore keeps registry state in maps. Records are cloned on the way in
// and out.
type InMemoryStore struct {
	mu        sync.RWMutex
	lastID    uint64
	records   map[string]*ledger.Record
	transfers map[string][]*ledger.Transfer
}

func New() *InMemoryStore {
	return &InMemoryStore{
		records:   make(map[string]*ledger.Record),
		transfers: make(map[string][]*ledger.Transfer),
	}
}

func (s *InMemoryStore) NextID(_ context.Context) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return uint256.NewInt(s.lastID), nil
}

func (s *InMemoryStore) Insert(_ context.Context, record *ledger.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := record.ID.Dec()
	if _, exists := s.records[key]; exists {
		return sentinel.ErrConflict
	}
	s.records[key] = record.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id *uint256.Int) (*ledger.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id.Dec()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemoryStore) ApplyTransfer(_ context.Context, t *ledger.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := t.PropertyID.Dec()
	record, ok := s.records[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if record.Owner != t.From {
		return ledger.ErrNotOwner
	}
	at := t.TransferredAt
	record.PreviousOwner = record.Owner
	record.Owner = t.To
	record.LastTransferredAt = &at
	record.LastTxHash = t.TxHash

	stored := *t
	stored.PropertyID = t.PropertyID.Clone()
	s.transfers[key] = append(s.transfers[key], &stored)
	return nil
}

// Search matches the id exactly or the street address case-insensitively.
func (s *InMemoryStore) Search(_ context.Context, term string, limit int) ([]*ledger.Record, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Record
	for key, record := range s.records {
		if term == "" || key == term || strings.Contains(strings.ToLower(record.Address), term) {
			out = append(out, record.Clone())
		}
	}
	sortByID(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, owner string) ([]*ledger.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ledger.Record
	for _, record := range s.records {
		if record.Owner == owner {
			out = append(out, record.Clone())
		}
	}
	sortByID(out)
	return out, nil
}

func (s *InMemoryStore) Transfers(_ context.Context, id *uint256.Int) ([]*ledger.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.transfers[id.Dec()]
	out := make([]*ledger.Transfer, len(src))
	for i, t := range src {
		c := *t
		out[i] = &c
	}
	return out, nil
}

func sortByID(records []*ledger.Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID.Lt(records[j].ID)
	})
}
