package aggregate

import (
	"context"

	"go.uber.org/zap"

	"clickship/internal/chain"
	"clickship/internal/clarity"
	"clickship/internal/model"
)

// VotingStatsAggregator reads the per-user voting counters.
type VotingStatsAggregator struct {
	cfg    Config
	client *chain.Client
	logger *zap.Logger
}

// NewVotingStatsAggregator builds a voting stats aggregator.
func NewVotingStatsAggregator(cfg Config, client *chain.Client, logger *zap.Logger) *VotingStatsAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VotingStatsAggregator{cfg: cfg.withDefaults(), client: client, logger: logger}
}

// FetchUserStats returns the user's polls-created/polls-voted/votes-cast
// counters. With no address, or on any failure, all three are zero; errors
// are logged, never surfaced.
func (a *VotingStatsAggregator) FetchUserStats(ctx context.Context, userAddr string) model.UserVotingStats {
	if userAddr == "" {
		return model.UserVotingStats{}
	}

	principal, err := clarity.ParsePrincipal(userAddr)
	if err != nil {
		a.logger.Warn("invalid user address", zap.String("user", userAddr), zap.Error(err))
		return model.UserVotingStats{}
	}

	result, err := a.client.CallReadOnly(ctx, a.cfg.Contracts.Voting, "get-user-stats", userAddr, principal)
	if err != nil {
		a.logger.Warn("user voting stats fetch failed", zap.String("user", userAddr), zap.Error(err))
		return model.UserVotingStats{}
	}

	tuple := clarity.TupleOf(result)
	return model.UserVotingStats{
		PollsCreated:   clarity.UintOf(tuple.Get("polls-created")),
		PollsVoted:     clarity.UintOf(tuple.Get("polls-voted")),
		TotalVotesCast: clarity.UintOf(tuple.Get("total-votes-cast")),
	}
}
