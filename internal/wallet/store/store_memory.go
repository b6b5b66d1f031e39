// Package store holds wallet session stores.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"titlechain/internal/wallet"
	"titlechain/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions and challenges in maps. Values are copied on
// the way in and out.
type InMemoryStore struct {
	mu         sync.RWMutex
	sessions   map[uuid.UUID]wallet.Session
	challenges map[string]wallet.Challenge
}

func New() *InMemoryStore {
	return &InMemoryStore{
		sessions:   make(map[uuid.UUID]wallet.Session),
		challenges: make(map[string]wallet.Challenge),
	}
}

func (s *InMemoryStore) Save(_ context.Context, session *wallet.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*wallet.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &session, nil
}

// MarkDisconnected returns sentinel.ErrInvalidState when already disconnected.
func (s *InMemoryStore) MarkDisconnected(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !session.Connected {
		return sentinel.ErrInvalidState
	}
	session.Connected = false
	session.DisconnectedAt = &at
	s.sessions[id] = session
	return nil
}

// SaveChallenge also drops challenges that expired before this one was issued.
func (s *InMemoryStore) SaveChallenge(_ context.Context, challenge *wallet.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for nonce, c := range s.challenges {
		if c.Expired(challenge.IssuedAt) {
			delete(s.challenges, nonce)
		}
	}
	s.challenges[challenge.Nonce] = *challenge
	return nil
}

// ConsumeChallenge removes the challenge as it returns it.
func (s *InMemoryStore) ConsumeChallenge(_ context.Context, nonce string) (*wallet.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[nonce]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(s.challenges, nonce)
	return &challenge, nil
}
