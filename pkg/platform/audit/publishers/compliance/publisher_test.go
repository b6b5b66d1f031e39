package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "titlechain/pkg/platform/audit"
	"titlechain/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

func TestEmit(t *testing.T) {
	ctx := context.Background()
	wallet := "0x00000000000000000000000000000000000000aa"

	t.Run("persists and prepares the event", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		m := NewMetrics(prometheus.NewRegistry())
		pub := New(store, WithMetrics(m))

		err := pub.Emit(ctx, audit.Event{Action: audit.EventPropertyRegistered, Wallet: wallet, Subject: "1"})
		require.NoError(t, err)

		events, err := store.ListByWallet(ctx, wallet)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)
		assert.NotZero(t, events[0].ID)
		assert.False(t, events[0].Timestamp.IsZero())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsEmitted))
	})

	t.Run("fails closed when the store fails", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		pub := New(failingStore{}, WithMetrics(m))

		err := pub.Emit(ctx, audit.Event{Action: audit.EventPropertyTransferred, Wallet: wallet, Subject: "1"})
		assert.Error(t, err)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures))
	})

	t.Run("requires action wallet and subject", func(t *testing.T) {
		pub := New(memory.NewInMemoryStore())
		assert.Error(t, pub.Emit(ctx, audit.Event{Wallet: wallet, Subject: "1"}))
		assert.Error(t, pub.Emit(ctx, audit.Event{Action: audit.EventPropertyRegistered, Subject: "1"}))
		assert.Error(t, pub.Emit(ctx, audit.Event{Action: audit.EventPropertyRegistered, Wallet: wallet}))
	})
}
