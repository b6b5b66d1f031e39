package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titlechain/pkg/platform/audit/store/postgres"
)

type fakeOutbox struct {
	entries   []postgres.Entry
	published []uuid.UUID
}

func (o *fakeOutbox) Pending(_ context.Context, limit int) ([]postgres.Entry, error) {
	var out []postgres.Entry
	for _, e := range o.entries {
		if !o.isPublished(e.ID) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (o *fakeOutbox) isPublished(id uuid.UUID) bool {
	for _, p := range o.published {
		if p == id {
			return true
		}
	}
	return false
}

func (o *fakeOutbox) MarkPublished(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	o.published = append(o.published, ids...)
	return nil
}

type fakeSink struct {
	failAfter int
	keys      []string
}

func (s *fakeSink) Publish(_ context.Context, key string, _ []byte, _ string) error {
	if s.failAfter >= 0 && len(s.keys) >= s.failAfter {
		return errors.New("broker down")
	}
	s.keys = append(s.keys, key)
	return nil
}

func newEntries(n int) []postgres.Entry {
	entries := make([]postgres.Entry, n)
	for i := range entries {
		entries[i] = postgres.Entry{ID: uuid.New(), Wallet: "0xw", Payload: []byte(`{}`)}
	}
	return entries
}

func TestRelayOnce(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("relays in batches", func(t *testing.T) {
		outbox := &fakeOutbox{entries: newEntries(3)}
		sink := &fakeSink{failAfter: -1}
		relay := NewRelay(outbox, sink, time.Second, 2, logger)

		n, err := relay.RelayOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = relay.RelayOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Len(t, outbox.published, 3)
	})

	t.Run("marks only acknowledged entries", func(t *testing.T) {
		outbox := &fakeOutbox{entries: newEntries(3)}
		sink := &fakeSink{failAfter: 1}
		relay := NewRelay(outbox, sink, time.Second, 10, logger)

		n, err := relay.RelayOnce(context.Background())
		assert.Error(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, []uuid.UUID{outbox.entries[0].ID}, outbox.published)
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	relay := NewRelay(&fakeOutbox{}, &fakeSink{failAfter: -1}, time.Millisecond, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, relay.Run(ctx), context.DeadlineExceeded)
}
