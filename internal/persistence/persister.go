package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/saripos/saripos/internal/shared"
)

const saveKey = "snapshot"

// Persister writes the ledgers to a Store after every committed change.
// Concurrent saves share one write; a save requested while a write is in
// flight triggers a fresh capture so no committed change is left out.
type Persister struct {
	ledgers Ledgers
	store   Store
	logger  *slog.Logger
	now     shared.Clock
	group   singleflight.Group
	dirty   atomic.Bool
	last    atomic.Pointer[Snapshot]
}

// NewPersister constructs a Persister.
func NewPersister(ledgers Ledgers, store Store, logger *slog.Logger, clock shared.Clock) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Persister{ledgers: ledgers, store: store, logger: logger, now: clock}
}

// Save captures the ledgers and writes them to the store.
func (p *Persister) Save(ctx context.Context) (Snapshot, error) {
	p.dirty.Store(true)
	for {
		ch := p.group.DoChan(saveKey, func() (interface{}, error) {
			return p.flush(context.WithoutCancel(ctx))
		})
		var res singleflight.Result
		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case res = <-ch:
		}
		if res.Err != nil {
			p.logger.Error("snapshot save failed", slog.Any("error", res.Err))
			return Snapshot{}, res.Err
		}
		if !p.dirty.Load() {
			return res.Val.(Snapshot), nil
		}
	}
}

// flush writes captures until no save is pending. When another flight already
// wrote the pending change it returns the last snapshot written.
func (p *Persister) flush(ctx context.Context) (Snapshot, error) {
	for p.dirty.Swap(false) {
		snap := Capture(p.ledgers, p.now())
		if err := p.store.Save(ctx, snap); err != nil {
			return Snapshot{}, err
		}
		p.last.Store(&snap)
	}
	if last := p.last.Load(); last != nil {
		return *last, nil
	}
	return Snapshot{}, nil
}

// Restore loads the store into the ledgers. An empty store is seeded with
// DefaultSnapshot when seed is set, and the seed is written back.
func (p *Persister) Restore(ctx context.Context, seed bool) (Snapshot, error) {
	snap, err := p.store.Load(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("persistence: restore: %w", err)
	}
	if snap.Empty() && seed {
		snap = DefaultSnapshot(p.now())
		Apply(p.ledgers, snap)
		p.logger.Info("loaded default catalog")
		return p.Save(ctx)
	}
	Apply(p.ledgers, snap)
	p.logger.Info("restored snapshot",
		slog.Int("products", len(snap.Products)),
		slog.Int("customers", len(snap.Credit)),
		slog.Int("sales", len(snap.Sales)))
	return snap, nil
}
