package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"titlechain/pkg/platform/audit/store/postgres"
)

// Outbox is the read side of the audit outbox.
type Outbox interface {
	Pending(ctx context.Context, limit int) ([]postgres.Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Sink receives relayed events.
type Sink interface {
	Publish(ctx context.Context, key string, payload []byte, action string) error
}

// Relay moves outbox entries to the sink at a fixed interval. Entries are marked
// published only after the sink acknowledges them, so delivery is at least once.
type Relay struct {
	outbox   Outbox
	sink     Sink
	interval time.Duration
	batch    int
	logger   *slog.Logger
	now      func() time.Time
}

func NewRelay(outbox Outbox, sink Sink, interval time.Duration, batch int, logger *slog.Logger) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &Relay{outbox: outbox, sink: sink, interval: interval, batch: batch, logger: logger, now: time.Now}
}

// Run relays until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil {
				r.logger.WarnContext(ctx, "audit outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce relays one batch and returns how many entries were published.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.outbox.Pending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	published := make([]uuid.UUID, 0, len(entries))
	var sinkErr error
	for _, e := range entries {
		if err := r.sink.Publish(ctx, e.Wallet, e.Payload, e.Action); err != nil {
			sinkErr = err
			break
		}
		published = append(published, e.ID)
	}
	if err := r.outbox.MarkPublished(ctx, published, r.now()); err != nil {
		return 0, err
	}
	return len(published), sinkErr
}
