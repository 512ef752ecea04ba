package aggregate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"clickship/internal/chain"
	"clickship/internal/clarity"
	"clickship/internal/model"
)

// GmCounts are the three GM counters. Nil means the figure is unknown this
// cycle; the user counter stays nil when no wallet address is connected.
type GmCounts struct {
	Today  *uint64
	Total  *uint64
	User   *uint64
	Source string
}

// GmAggregator rebuilds the GM read model from the stats cache fast path
// and direct contract reads.
type GmAggregator struct {
	cfg    Config
	client *chain.Client
	cache  *StatsCache
	logger *zap.Logger
}

// NewGmAggregator builds a GM aggregator. The cache may be nil to force the
// direct-read path.
func NewGmAggregator(cfg Config, client *chain.Client, cache *StatsCache, logger *zap.Logger) *GmAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GmAggregator{cfg: cfg.withDefaults(), client: client, cache: cache, logger: logger}
}

// FetchCounts resolves today/total/user GM counts. The cached backend is
// tried first; on success only the personal counter is read directly so it
// stays live. On cache failure all three figures come from contract reads,
// totals before the per-user figure, which is skipped entirely without a
// connected address.
func (a *GmAggregator) FetchCounts(ctx context.Context, userAddr string) (GmCounts, error) {
	if a.cache != nil {
		today, total, err := a.cache.Fetch(ctx)
		if err == nil {
			counts := GmCounts{Today: &today, Total: &total, Source: "cache"}
			if userAddr != "" {
				if user, uerr := a.userTotal(ctx, userAddr); uerr == nil {
					counts.User = &user
				} else {
					a.logger.Warn("user gm count fetch failed", zap.String("user", userAddr), zap.Error(uerr))
				}
			}
			return counts, nil
		}
		a.logger.Warn("stats cache unavailable, falling back to contract reads", zap.Error(err))
	}

	counts := GmCounts{Source: "contract"}
	if today, err := a.readCounter(ctx, "get-daily-gm-count"); err == nil {
		counts.Today = &today
	} else {
		a.logger.Warn("daily gm count fetch failed", zap.Error(err))
	}
	if total, err := a.readCounter(ctx, "get-total-gms-alltime"); err == nil {
		counts.Total = &total
	} else {
		a.logger.Warn("total gm count fetch failed", zap.Error(err))
	}
	if userAddr != "" {
		if user, err := a.userTotal(ctx, userAddr); err == nil {
			counts.User = &user
		} else {
			a.logger.Warn("user gm count fetch failed", zap.String("user", userAddr), zap.Error(err))
		}
	}

	if counts.Today == nil && counts.Total == nil {
		return counts, fmt.Errorf("gm counts unavailable")
	}
	return counts, nil
}

// FetchLastAndLeaderboard reads the bounded window of most recent GM
// entries, derives the last event with its relative-time label, and builds
// the sender leaderboard from all-time totals of the senders seen in the
// window.
func (a *GmAggregator) FetchLastAndLeaderboard(ctx context.Context, userAddr string) (*model.GmEvent, string, []model.LeaderboardEntry, error) {
	total, err := a.readCounter(ctx, "get-total-gms-alltime")
	if err != nil {
		return nil, "", nil, fmt.Errorf("total gm count: %w", err)
	}
	if total == 0 {
		return nil, "", []model.LeaderboardEntry{}, nil
	}

	window := uint64(a.cfg.RecentGmWindow)
	if window > total {
		window = total
	}

	// Ids descend from the newest entry.
	events := make([]*model.GmEvent, window)
	var wg sync.WaitGroup
	for i := uint64(0); i < window; i++ {
		wg.Add(1)
		go func(slot int, id uint64) {
			defer wg.Done()
			event, ferr := a.fetchGmByID(ctx, userAddr, id)
			if ferr != nil {
				a.logger.Warn("gm entry fetch failed", zap.Uint64("id", id), zap.Error(ferr))
				return
			}
			events[slot] = event
		}(int(i), total-i)
	}
	wg.Wait()

	var last *model.GmEvent
	senders := make([]string, 0, window)
	for _, event := range events {
		if event == nil {
			continue
		}
		if last == nil {
			last = event
		}
		senders = append(senders, event.User)
	}

	ago := ""
	if last != nil {
		ago = formatTimeAgo(time.Now(), last.Timestamp, a.client.CurrentBlock(ctx), last.BlockHeight)
	}

	leaderboard := a.leaderboardFromSenders(ctx, userAddr, senders)
	return last, ago, leaderboard, nil
}

// Fetch combines both GM operations into one read model. A partial failure
// leaves the affected fields at their unknown defaults.
func (a *GmAggregator) Fetch(ctx context.Context, userAddr string) (*model.GmReadModel, error) {
	rm := &model.GmReadModel{Leaderboard: []model.LeaderboardEntry{}}

	counts, countsErr := a.FetchCounts(ctx, userAddr)
	if countsErr == nil {
		rm.Today = counts.Today
		rm.Total = counts.Total
		rm.User = counts.User
		rm.Source = counts.Source
	}

	last, ago, leaderboard, lastErr := a.FetchLastAndLeaderboard(ctx, userAddr)
	if lastErr == nil {
		rm.LastGm = last
		rm.LastGmAgo = ago
		rm.Leaderboard = leaderboard
	}

	if countsErr != nil && lastErr != nil {
		return nil, fmt.Errorf("gm aggregation failed: %v; %v", countsErr, lastErr)
	}
	return rm, nil
}

func (a *GmAggregator) leaderboardFromSenders(ctx context.Context, userAddr string, senders []string) []model.LeaderboardEntry {
	unique := make([]string, 0, len(senders))
	seen := make(map[string]struct{}, len(senders))
	for _, sender := range senders {
		if sender == "" {
			continue
		}
		if _, ok := seen[sender]; ok {
			continue
		}
		seen[sender] = struct{}{}
		unique = append(unique, sender)
	}

	entries := make([]model.LeaderboardEntry, len(unique))
	var wg sync.WaitGroup
	for i, sender := range unique {
		entries[i] = model.LeaderboardEntry{User: sender}
		wg.Add(1)
		go func(slot int, sender string) {
			defer wg.Done()
			total, err := a.userTotalAs(ctx, userAddr, sender)
			if err != nil {
				a.logger.Warn("leaderboard total fetch failed", zap.String("user", sender), zap.Error(err))
				return
			}
			entries[slot].Total = total
		}(i, sender)
	}
	wg.Wait()

	return sortLeaderboard(entries, a.cfg.GmLeaderboardSize)
}

func (a *GmAggregator) fetchGmByID(ctx context.Context, sender string, id uint64) (*model.GmEvent, error) {
	result, err := a.client.CallReadOnly(ctx, a.cfg.Contracts.Gm, "get-gm-by-id", a.senderOr(sender), clarity.Uint(id))
	if err != nil {
		return nil, err
	}
	tuple := clarity.TupleOf(result)
	if tuple == nil {
		return nil, fmt.Errorf("gm %d not found", id)
	}
	user := clarity.StringOf(tuple.Get("user"))
	if user == "" {
		return nil, fmt.Errorf("gm %d has no user", id)
	}
	return &model.GmEvent{
		User:        user,
		BlockHeight: clarity.UintOf(tuple.Get("block-height")),
		Timestamp:   clarity.UintOf(tuple.Get("timestamp")),
	}, nil
}

func (a *GmAggregator) readCounter(ctx context.Context, fn string) (uint64, error) {
	result, err := a.client.CallReadOnly(ctx, a.cfg.Contracts.Gm, fn, a.cfg.Sender)
	if err != nil {
		return 0, err
	}
	return clarity.UintOf(result), nil
}

func (a *GmAggregator) userTotal(ctx context.Context, userAddr string) (uint64, error) {
	return a.userTotalAs(ctx, userAddr, userAddr)
}

func (a *GmAggregator) userTotalAs(ctx context.Context, sender, userAddr string) (uint64, error) {
	principal, err := clarity.ParsePrincipal(userAddr)
	if err != nil {
		return 0, fmt.Errorf("invalid user address: %w", err)
	}
	result, err := a.client.CallReadOnly(ctx, a.cfg.Contracts.Gm, "get-user-total-gms", a.senderOr(sender), principal)
	if err != nil {
		return 0, err
	}
	return clarity.UintOf(result), nil
}

func (a *GmAggregator) senderOr(sender string) string {
	if sender == "" {
		return a.cfg.Sender
	}
	return sender
}
