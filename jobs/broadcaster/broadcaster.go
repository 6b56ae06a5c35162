package broadcaster

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"rcud/infra/logging"
	"rcud/infra/store"
)

// Publisher delivers one change event to a broker.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

type Config struct {
	Interval   time.Duration // Default: 250ms
	MaxRetries uint32        // attempts before a record is marked FAILED. Default: 5
	Logger     *slog.Logger
}

// Broadcaster relays outbox records to a Publisher, at least once and in
// version order.
type Broadcaster struct {
	store *store.Store
	pub   Publisher
	cfg   Config
	log   *slog.Logger
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(st *store.Store, pub Publisher, cfg Config) *Broadcaster {
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.For("broadcaster")
	}
	return &Broadcaster{
		store: st,
		pub:   pub,
		cfg:   cfg,
		log:   cfg.Logger,
	}
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run relays pending records every interval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("started", "interval", b.cfg.Interval)

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("stopped")
			return

		case <-ticker.C:
			if _, err := b.ReplayOnce(ctx); err != nil && ctx.Err() == nil {
				b.log.Warn("replay failed", "err", err)
			}
		}
	}
}

// ------------------------------------------------
// REPLAY LOGIC
// ------------------------------------------------

type pending struct {
	version uint64
	rec     store.OutboxRecord
}

// ReplayOnce publishes every NEW record, and every SENT record left behind
// by a crash, and returns how many were acknowledged.
func (b *Broadcaster) ReplayOnce(ctx context.Context) (int, error) {
	var todo []pending
	collect := func(version uint64, rec store.OutboxRecord) error {
		todo = append(todo, pending{version: version, rec: rec})
		return nil
	}
	if err := b.store.ScanByState(store.StateSent, collect); err != nil {
		return 0, err
	}
	if err := b.store.ScanByState(store.StateNew, collect); err != nil {
		return 0, err
	}
	slices.SortFunc(todo, func(x, y pending) int { return cmp.Compare(x.version, y.version) })

	acked := 0
	for _, p := range todo {
		if err := ctx.Err(); err != nil {
			return acked, err
		}
		state, err := b.deliver(ctx, p)
		if err != nil {
			return acked, err
		}
		switch state {
		case store.StateAcked:
			acked++
		case store.StateFailed:
			// given up on; does not hold back later records
		default:
			// keep version order: later records wait for this one
			return acked, nil
		}
	}
	return acked, nil
}

// deliver attempts one record and returns the state it was left in.
func (b *Broadcaster) deliver(ctx context.Context, p pending) (store.OutboxState, error) {
	// 1️⃣ Mark SENT
	if err := b.store.UpdateState(p.version, store.StateSent, p.rec.Retries); err != nil {
		return store.StateNew, err
	}

	// 2️⃣ Publish
	key := []byte(strconv.FormatUint(p.version, 10))
	if err := b.pub.Publish(ctx, key, p.rec.Event); err != nil {
		if ctx.Err() != nil {
			// shutdown, not a broker failure: no retry is spent
			if uerr := b.store.UpdateState(p.version, store.StateNew, p.rec.Retries); uerr != nil {
				return store.StateNew, errors.CombineErrors(err, uerr)
			}
			return store.StateNew, ctx.Err()
		}
		retries := p.rec.Retries + 1
		state := store.StateNew
		if retries >= b.cfg.MaxRetries {
			state = store.StateFailed
		}
		b.log.Warn("publish failed",
			"version", p.version,
			"retries", retries,
			"state", state.String(),
			"err", err,
		)
		if uerr := b.store.UpdateState(p.version, state, retries); uerr != nil {
			return store.StateNew, errors.CombineErrors(err, uerr)
		}
		return state, nil
	}

	// 3️⃣ Mark ACKED
	if err := b.store.UpdateState(p.version, store.StateAcked, p.rec.Retries); err != nil {
		return store.StateSent, err
	}
	b.log.Debug("published", "version", p.version)
	return store.StateAcked, nil
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.pub.Close()
}
