package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"titlechain/internal/wallet"
	"titlechain/pkg/platform/sentinel"
)

const (
	keyPrefix          = "titlechain:wallet:session:"
	challengeKeyPrefix = "titlechain:wallet:challenge:"
)

// RedisStore keeps sessions and challenges as JSON values that expire with
// them.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(id uuid.UUID) string {
	return keyPrefix + id.String()
}

func (s *RedisStore) Save(ctx context.Context, session *wallet.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: save session: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id uuid.UUID) (*wallet.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %v", sentinel.ErrUnavailable, err)
	}
	var session wallet.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// MarkDisconnected updates the session under WATCH so concurrent disconnects
// succeed exactly once. Losers get redis.TxFailedErr or sentinel.ErrInvalidState.
func (s *RedisStore) MarkDisconnected(ctx context.Context, id uuid.UUID, at time.Time) error {
	key := sessionKey(id)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var session wallet.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if !session.Connected {
			return sentinel.ErrInvalidState
		}
		session.Connected = false
		session.DisconnectedAt = &at

		updated, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) SaveChallenge(ctx context.Context, challenge *wallet.Challenge) error {
	raw, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, challengeKeyPrefix+challenge.Nonce, raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: save challenge: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

// ConsumeChallenge uses GETDEL so only one caller ever sees a nonce.
func (s *RedisStore) ConsumeChallenge(ctx context.Context, nonce string) (*wallet.Challenge, error) {
	raw, err := s.client.GetDel(ctx, challengeKeyPrefix+nonce).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: consume challenge: %v", sentinel.ErrUnavailable, err)
	}
	var challenge wallet.Challenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	return &challenge, nil
}
