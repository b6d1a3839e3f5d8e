package sweeper

import (
	"context"
	"log/slog"
	"time"

	"shopping-cart/events"
	"shopping-cart/store"
)

type Config struct {
	Interval     time.Duration
	AbandonAfter time.Duration
	RetainFor    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:     time.Hour,
		AbandonAfter: 3 * time.Hour,
		RetainFor:    7 * 24 * time.Hour,
	}
}

// Result counts what one sweep did.
type Result struct {
	Marked int
	Reaped int
	Failed int
}

// Sweeper marks idle carts abandoned and deletes carts that have stayed
// abandoned past the retention window. Every cart is handled on its own: a
// failing row is logged and the rest of the batch still runs.
type Sweeper struct {
	store     store.Store
	publisher events.Publisher
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
}

func New(st store.Store, pub events.Publisher, cfg Config, log *slog.Logger) *Sweeper {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Sweeper{store: st, publisher: pub, cfg: cfg, log: log, now: time.Now}
}

// Run sweeps immediately and then on every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) Sweep(ctx context.Context) Result {
	var res Result
	now := s.now()
	s.markIdle(ctx, now, &res)
	s.reapAbandoned(ctx, now, &res)
	s.log.Info("cart sweep finished",
		slog.Int("marked", res.Marked),
		slog.Int("reaped", res.Reaped),
		slog.Int("failed", res.Failed))
	return res
}

func (s *Sweeper) markIdle(ctx context.Context, now time.Time, res *Result) {
	ids, err := s.store.ListIdleCarts(ctx, now.Add(-s.cfg.AbandonAfter))
	if err != nil {
		s.log.Error("list idle carts failed", slog.Any("err", err))
		res.Failed++
		return
	}
	for _, id := range ids {
		marked, err := s.store.MarkAbandoned(ctx, id, now)
		if err != nil {
			s.log.Error("mark cart abandoned failed", slog.Int64("cart_id", id), slog.Any("err", err))
			res.Failed++
			continue
		}
		if !marked {
			continue
		}
		res.Marked++
		s.publish(ctx, events.Event{Type: events.CartAbandoned, CartID: id, At: now})
	}
}

func (s *Sweeper) reapAbandoned(ctx context.Context, now time.Time, res *Result) {
	cutoff := now.Add(-s.cfg.RetainFor)
	ids, err := s.store.ListReapableCarts(ctx, cutoff)
	if err != nil {
		s.log.Error("list abandoned carts failed", slog.Any("err", err))
		res.Failed++
		return
	}
	for _, id := range ids {
		deleted, err := s.store.DeleteAbandonedCart(ctx, id, cutoff)
		if err != nil {
			s.log.Error("reap cart failed", slog.Int64("cart_id", id), slog.Any("err", err))
			res.Failed++
			continue
		}
		if !deleted {
			continue
		}
		res.Reaped++
		s.publish(ctx, events.Event{Type: events.CartReaped, CartID: id, At: now})
	}
}

func (s *Sweeper) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn("publish cart event failed",
			slog.String("type", e.Type), slog.Int64("cart_id", e.CartID), slog.Any("err", err))
	}
}
