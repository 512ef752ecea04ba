package aggregate

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"clickship/internal/chain"
	"clickship/internal/clarity"
	"clickship/internal/model"
)

const optionSlots = 10

// PollAggregator rebuilds the poll read model by batch-fetching full
// details for every poll id and classifying each against the current burn
// block height.
type PollAggregator struct {
	cfg    Config
	client *chain.Client
	logger *zap.Logger
}

// NewPollAggregator builds a poll aggregator.
func NewPollAggregator(cfg Config, client *chain.Client, logger *zap.Logger) *PollAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollAggregator{cfg: cfg.withDefaults(), client: client, logger: logger}
}

// FetchPolls reads the global poll count and every poll's details in
// parallel. A failing individual fetch drops that poll only. Polls are
// active iff currentBlock < endsAtBlock; the height is read once per
// invocation, and a height of 0 (oracle unavailable) classifies everything
// as closed rather than failing.
func (a *PollAggregator) FetchPolls(ctx context.Context, userAddr string) (*model.PollReadModel, error) {
	sender := a.senderOr(userAddr)
	currentBlock := a.client.CurrentBlock(ctx)

	statsResult, err := a.client.CallReadOnly(ctx, a.cfg.Contracts.Voting, "get-global-stats", sender)
	if err != nil {
		return nil, fmt.Errorf("global poll stats: %w", err)
	}
	totalPolls := clarity.UintOf(clarity.TupleOf(statsResult).Get("total-polls"))

	rm := &model.PollReadModel{
		Active:       []model.Poll{},
		Closed:       []model.Poll{},
		CurrentBlock: currentBlock,
		TotalPolls:   totalPolls,
	}
	if totalPolls == 0 {
		return rm, nil
	}

	details := make([]clarity.Value, totalPolls)
	var wg sync.WaitGroup
	for id := uint64(1); id <= totalPolls; id++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			result, ferr := a.client.CallReadOnly(ctx, a.cfg.Contracts.Voting, "get-poll-full-details", sender, clarity.Uint(id))
			if ferr != nil {
				a.logger.Warn("poll fetch failed", zap.Uint64("poll_id", id), zap.Error(ferr))
				return
			}
			details[id-1] = result
		}(id)
	}
	wg.Wait()

	for i, detail := range details {
		if detail == nil {
			continue
		}
		poll := decodePoll(uint64(i+1), detail)
		if poll == nil {
			a.logger.Warn("poll decode failed", zap.Uint64("poll_id", uint64(i+1)))
			continue
		}

		// A height of 0 means the oracle was unreachable; treat every poll
		// as closed instead of presenting stale polls as votable.
		poll.IsActive = currentBlock > 0 && currentBlock < poll.EndsAtBlock
		if poll.IsActive {
			poll.BlocksRemaining = poll.EndsAtBlock - currentBlock
		}

		if poll.IsActive {
			rm.Active = append(rm.Active, *poll)
		} else {
			rm.Closed = append(rm.Closed, *poll)
		}
	}

	return rm, nil
}

func decodePoll(id uint64, detail clarity.Value) *model.Poll {
	tuple := clarity.TupleOf(detail)
	if tuple == nil {
		return nil
	}

	return &model.Poll{
		PollID:         id,
		Creator:        clarity.StringOf(tuple.Get("creator")),
		Title:          clarity.StringOf(tuple.Get("title")),
		Description:    clarity.StringOf(tuple.Get("description")),
		Options:        decodeOptions(tuple.Get("options")),
		EndsAtBlock:    clarity.UintOf(tuple.Get("ends-at")),
		TotalVotes:     clarity.UintOf(tuple.Get("total-votes")),
		TotalVoters:    clarity.UintOf(tuple.Get("total-voters")),
		ContractActive: clarity.BoolOf(tuple.Get("is-active")),
	}
}

// decodeOptions walks the fixed 10-slot option tuple. Slots are optional
// and a slot without text does not count as a real option.
func decodeOptions(raw clarity.Value) []model.OptionEntry {
	options := make([]model.OptionEntry, 0, optionSlots)
	tuple := clarity.TupleOf(raw)
	if tuple == nil {
		return options
	}

	for i := 0; i < optionSlots; i++ {
		slot := clarity.TupleOf(tuple.Get(fmt.Sprintf("option-%d", i)))
		if slot == nil {
			continue
		}
		text := clarity.StringOf(slot.Get("text"))
		if text == "" {
			continue
		}
		options = append(options, model.OptionEntry{
			Index: i,
			Text:  text,
			Votes: clarity.UintOf(slot.Get("votes")),
		})
	}
	return options
}

func (a *PollAggregator) senderOr(sender string) string {
	if sender == "" {
		return a.cfg.Sender
	}
	return sender
}
