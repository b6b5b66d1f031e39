//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"titlechain/internal/wallet"
	"titlechain/internal/wallet/store"
	"titlechain/pkg/platform/sentinel"
	"titlechain/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func makeSession() *wallet.Session {
	now := time.Now()
	return &wallet.Session{
		ID:          uuid.New(),
		Address:     "0x00000000000000000000000000000000000000bb",
		Connected:   true,
		Device:      "Firefox on Linux",
		ConnectedAt: now,
		ExpiresAt:   now.Add(time.Hour),
	}
}

func (s *RedisStoreSuite) TestRoundTripKeepsTTL() {
	ctx := context.Background()
	session := makeSession()
	s.Require().NoError(s.store.Save(ctx, session))

	found, err := s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session.Address, found.Address)
	s.Equal(session.Device, found.Device)

	s.Require().NoError(s.store.MarkDisconnected(ctx, session.ID, time.Now()))
	ttl, err := s.redis.Client.TTL(ctx, "titlechain:wallet:session:"+session.ID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisStoreSuite) TestMissingSession() {
	_, err := s.store.FindByID(context.Background(), uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// Justification: the WATCH transaction is what keeps concurrent disconnects from
// double-counting; only a real Redis exercises it.
func (s *RedisStoreSuite) TestConcurrentDisconnectSucceedsOnce() {
	ctx := context.Background()
	session := makeSession()
	s.Require().NoError(s.store.Save(ctx, session))

	const goroutines = 20
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.MarkDisconnected(ctx, session.ID, time.Now()); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), succeeded.Load())
}

// Justification: GETDEL is what makes a nonce single-use across server
// replicas; only a real Redis exercises it.
func (s *RedisStoreSuite) TestChallengeConsumedOnce() {
	ctx := context.Background()
	now := time.Now()
	challenge := &wallet.Challenge{
		Nonce:     uuid.NewString(),
		Address:   "0x00000000000000000000000000000000000000bb",
		IssuedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	s.Require().NoError(s.store.SaveChallenge(ctx, challenge))

	ttl, err := s.redis.Client.TTL(ctx, "titlechain:wallet:challenge:"+challenge.Nonce).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))

	var wg sync.WaitGroup
	var won atomic.Int32
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if found, err := s.store.ConsumeChallenge(ctx, challenge.Nonce); err == nil && found.Address == challenge.Address {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), won.Load())

	_, err = s.store.ConsumeChallenge(ctx, challenge.Nonce)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
