package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "titlechain/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, audit.Event{Action: audit.EventWalletConnected, Wallet: "0xa", Timestamp: base}))
	require.NoError(t, store.Append(ctx, audit.Event{Action: audit.EventPropertyRegistered, Wallet: "0xa", Timestamp: base.Add(time.Minute)}))
	require.NoError(t, store.Append(ctx, audit.Event{Action: audit.EventWalletConnected, Wallet: "0xb", Timestamp: base.Add(2 * time.Minute)}))

	events, err := store.ListByWallet(ctx, "0xa")
	require.NoError(t, err)
	assert.Len(t, events, 2)

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "0xb", recent[0].Wallet)
	assert.Equal(t, audit.EventPropertyRegistered, recent[1].Action)

	store.Clear()
	events, err = store.ListByWallet(ctx, "0xa")
	require.NoError(t, err)
	assert.Empty(t, events)
}
