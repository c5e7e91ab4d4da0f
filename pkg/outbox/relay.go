package outbox

import (
	"context"
	"log/slog"
	"time"
)

type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error
}

// Relay polls the outbox for pending events and dispatches them. Batches are
// leased per relay id; an event whose lease expires falls back to a peer.
type Relay struct {
	log       *slog.Logger
	store     Store
	dispatch  *Dispatcher
	relayID   string
	batchSize int
	interval  time.Duration
	lease     time.Duration
}

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string) *Relay {
	return &Relay{
		log:       log,
		store:     store,
		dispatch:  dispatch,
		relayID:   relayID,
		batchSize: 100,
		interval:  500 * time.Millisecond,
		lease:     5 * time.Second,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			if err := r.drain(ctx); err != nil {
				r.log.Error("relay drain error", "relay_id", r.relayID, "err", err)
			}
		}
	}
}

// drain locks one batch and dispatches it. Halfway through a batch the lease
// is renewed so a slow broker does not let a peer relay re-deliver the tail.
func (r *Relay) drain(ctx context.Context) error {
	events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil || len(events) == 0 {
		return err
	}

	remaining := make([]int64, len(events))
	for i, ev := range events {
		remaining[i] = ev.ID
	}

	var sent []int64
	for i, ev := range events {
		if i > 0 && i == len(events)/2 {
			if err := r.store.ExtendLease(ctx, r.relayID, remaining[i:], r.lease); err != nil {
				r.log.Warn("relay lease extension failed", "relay_id", r.relayID, "err", err)
			}
		}
		if err := r.dispatch.Dispatch(ctx, ev); err != nil {
			_ = r.store.MarkFailed(ctx, ev.ID, err.Error())
			continue
		}
		sent = append(sent, ev.ID)
	}

	if len(sent) == 0 {
		return nil
	}
	return r.store.MarkSent(ctx, sent)
}
