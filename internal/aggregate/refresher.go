package aggregate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"clickship/internal/model"
)

// RefresherConfig controls refresh cadence and the watched address.
type RefresherConfig struct {
	// WatchAddress personalizes the GM and message read models; empty means
	// no connected wallet.
	WatchAddress string
	// StatsInterval drives GM and message refreshes.
	StatsInterval time.Duration
	// PollInterval drives poll refreshes.
	PollInterval time.Duration
	// KickDelay is how long to wait after an on-chain action before
	// refreshing, covering transaction confirmation latency.
	KickDelay time.Duration
}

func (c RefresherConfig) withDefaults() RefresherConfig {
	if c.StatsInterval <= 0 {
		c.StatsInterval = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 60 * time.Second
	}
	if c.KickDelay <= 0 {
		c.KickDelay = 5 * time.Second
	}
	return c
}

// Refresher drives the aggregators on timers and owns the published
// snapshot. Every section refresh runs under a monotonic generation number
// so a stale in-flight fetch can never overwrite a newer result.
type Refresher struct {
	cfg      RefresherConfig
	gm       *GmAggregator
	messages *MessageAggregator
	polls    *PollAggregator
	logger   *zap.Logger

	mu   sync.RWMutex
	snap model.Snapshot

	gmGen   atomic.Uint64
	msgGen  atomic.Uint64
	pollGen atomic.Uint64

	runCtx atomic.Value // context.Context
}

// NewRefresher wires the three timed aggregators together.
func NewRefresher(cfg RefresherConfig, gm *GmAggregator, messages *MessageAggregator, polls *PollAggregator, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		cfg:      cfg.withDefaults(),
		gm:       gm,
		messages: messages,
		polls:    polls,
		logger:   logger,
	}
}

// Run refreshes everything once, then keeps the snapshot fresh until the
// context is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	r.runCtx.Store(ctx)

	r.RefreshAll(ctx)

	statsTicker := time.NewTicker(r.cfg.StatsInterval)
	defer statsTicker.Stop()
	pollTicker := time.NewTicker(r.cfg.PollInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-statsTicker.C:
			r.RefreshGm(ctx)
			r.RefreshMessages(ctx)
		case <-pollTicker.C:
			r.RefreshPolls(ctx)
		}
	}
}

// RefreshAll refreshes every section sequentially.
func (r *Refresher) RefreshAll(ctx context.Context) {
	r.RefreshGm(ctx)
	r.RefreshMessages(ctx)
	r.RefreshPolls(ctx)
}

// KickAfter schedules a GM refresh after the configured confirmation
// delay, used when a webhook reports fresh on-chain activity.
func (r *Refresher) KickAfter() {
	time.AfterFunc(r.cfg.KickDelay, func() {
		ctx := context.Background()
		if stored, ok := r.runCtx.Load().(context.Context); ok {
			if stored.Err() != nil {
				return
			}
			ctx = stored
		}
		r.RefreshGm(ctx)
	})
}

// RefreshGm rebuilds the GM section. Failures keep the previous value.
func (r *Refresher) RefreshGm(ctx context.Context) {
	gen := r.gmGen.Add(1)
	rm, err := r.gm.Fetch(ctx, r.cfg.WatchAddress)
	if err != nil {
		r.logger.Warn("gm refresh failed", zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gmGen.Load() != gen {
		r.logger.Debug("stale gm refresh dropped", zap.Uint64("generation", gen))
		return
	}
	r.snap.Gm = rm
	r.snap.GmUpdatedAt = time.Now()
	r.snap.TakenAt = time.Now()
}

// RefreshMessages rebuilds the message section.
func (r *Refresher) RefreshMessages(ctx context.Context) {
	gen := r.msgGen.Add(1)
	rm, err := r.messages.Fetch(ctx, r.cfg.WatchAddress, r.cfg.WatchAddress != "")
	if err != nil {
		r.logger.Warn("message refresh failed", zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.msgGen.Load() != gen {
		r.logger.Debug("stale message refresh dropped", zap.Uint64("generation", gen))
		return
	}
	r.snap.Messages = rm
	r.snap.TakenAt = time.Now()
}

// RefreshPolls rebuilds the poll section.
func (r *Refresher) RefreshPolls(ctx context.Context) {
	gen := r.pollGen.Add(1)
	rm, err := r.polls.FetchPolls(ctx, r.cfg.WatchAddress)
	if err != nil {
		r.logger.Warn("poll refresh failed", zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pollGen.Load() != gen {
		r.logger.Debug("stale poll refresh dropped", zap.Uint64("generation", gen))
		return
	}
	r.snap.Polls = rm
	r.snap.CurrentBlock = rm.CurrentBlock
	r.snap.TakenAt = time.Now()
}

// Snapshot returns the latest published snapshot. Sections are immutable
// once published, so the shallow copy is safe to share.
func (r *Refresher) Snapshot() model.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}
