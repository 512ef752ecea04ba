package aggregate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"clickship/internal/chain"
	"clickship/internal/clarity"
	"clickship/internal/model"
)

// MessageAggregator rebuilds the message-board read model.
type MessageAggregator struct {
	cfg    Config
	client *chain.Client
	logger *zap.Logger
}

// NewMessageAggregator builds a message aggregator.
func NewMessageAggregator(cfg Config, client *chain.Client, logger *zap.Logger) *MessageAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageAggregator{cfg: cfg.withDefaults(), client: client, logger: logger}
}

// Fetch reads the message stats tuple, the per-user count when
// authenticated, and the recent-message window. The sender leaderboard
// counts occurrences within the fetched window only.
func (a *MessageAggregator) Fetch(ctx context.Context, userAddr string, authenticated bool) (*model.MessageReadModel, error) {
	rm := &model.MessageReadModel{Recent: []model.Message{}, Leaderboard: []model.LeaderboardEntry{}}

	statsResult, err := a.client.CallReadOnly(ctx, a.cfg.Contracts.Messages, "get-stats", a.senderOr(userAddr))
	if err != nil {
		return nil, fmt.Errorf("message stats: %w", err)
	}
	stats := clarity.TupleOf(statsResult)
	if stats == nil {
		return nil, fmt.Errorf("message stats: unexpected shape %T", statsResult)
	}

	today := clarity.UintOf(stats.Get("today-messages"))
	total := clarity.UintOf(stats.Get("total-messages"))
	rm.Today = &today
	rm.Total = &total

	if authenticated && userAddr != "" {
		if user, uerr := a.userCount(ctx, userAddr); uerr == nil {
			rm.User = &user
		} else {
			a.logger.Warn("user message count fetch failed", zap.String("user", userAddr), zap.Error(uerr))
		}
	}

	if total > 0 {
		window := uint64(a.cfg.MessageWindow)
		if window > total {
			window = total
		}
		messages, merr := a.latestMessages(ctx, userAddr, window)
		if merr != nil {
			a.logger.Warn("recent messages fetch failed", zap.Error(merr))
		} else {
			rm.Recent = messages
			senders := make([]string, 0, len(messages))
			for _, message := range messages {
				senders = append(senders, message.Sender)
			}
			rm.Leaderboard = DeriveLeaderboard(senders, a.cfg.MessageLeaderboardSize)
		}
	}

	return rm, nil
}

func (a *MessageAggregator) latestMessages(ctx context.Context, sender string, count uint64) ([]model.Message, error) {
	result, err := a.client.CallReadOnly(ctx, a.cfg.Contracts.Messages, "get-latest-messages", a.senderOr(sender), clarity.Uint(count))
	if err != nil {
		return nil, err
	}
	list := clarity.ListOf(result)
	if list == nil {
		return nil, fmt.Errorf("unexpected shape %T", result)
	}

	messages := make([]model.Message, 0, len(list))
	for _, item := range list {
		tuple := clarity.TupleOf(item)
		if tuple == nil {
			continue
		}
		from := clarity.StringOf(tuple.Get("sender"))
		if from == "" {
			continue
		}
		block := clarity.UintOf(tuple.Get("block-height"))
		if block == 0 {
			block = clarity.UintOf(tuple.Get("block"))
		}
		messages = append(messages, model.Message{
			Sender:      from,
			Content:     clarity.StringOf(tuple.Get("content")),
			BlockHeight: block,
			Timestamp:   clarity.UintOf(tuple.Get("timestamp")),
		})
	}
	return messages, nil
}

func (a *MessageAggregator) userCount(ctx context.Context, userAddr string) (uint64, error) {
	principal, err := clarity.ParsePrincipal(userAddr)
	if err != nil {
		return 0, fmt.Errorf("invalid user address: %w", err)
	}
	result, err := a.client.CallReadOnly(ctx, a.cfg.Contracts.Messages, "get-user-message-count", userAddr, principal)
	if err != nil {
		return 0, err
	}
	return clarity.UintOf(result), nil
}

func (a *MessageAggregator) senderOr(sender string) string {
	if sender == "" {
		return a.cfg.Sender
	}
	return sender
}
