package aggregate_test

import (
	"context"
	"testing"

	"clickship/internal/aggregate"
	"clickship/internal/chaintest"
	"clickship/internal/clarity"
)

func TestFetchUserStats(t *testing.T) {
	user := testPrincipal(t, 0x11)

	node := chaintest.NewFakeNode(100)
	defer node.Close()
	node.HandleValue("get-user-stats", clarity.OK{Inner: clarity.Tuple{
		"polls-created":    clarity.Uint(2),
		"polls-voted":      clarity.Uint(5),
		"total-votes-cast": clarity.Uint(7),
	}})

	agg := aggregate.NewVotingStatsAggregator(aggregate.Config{Contracts: testContracts()}, testClient(t, node), nil)
	stats := agg.FetchUserStats(context.Background(), user)
	if stats.PollsCreated != 2 || stats.PollsVoted != 5 || stats.TotalVotesCast != 7 {
		t.Fatalf("stats mismatch: %+v", stats)
	}
}

func TestFetchUserStatsDegradesToZeros(t *testing.T) {
	node := chaintest.NewFakeNode(100)
	defer node.Close()

	agg := aggregate.NewVotingStatsAggregator(aggregate.Config{Contracts: testContracts()}, testClient(t, node), nil)

	// No address, invalid address, and a failing node all yield zeros.
	for _, addr := range []string{"", "not-an-address", testPrincipal(t, 0x22)} {
		stats := agg.FetchUserStats(context.Background(), addr)
		if stats.PollsCreated != 0 || stats.PollsVoted != 0 || stats.TotalVotesCast != 0 {
			t.Fatalf("expected zeros for %q: %+v", addr, stats)
		}
	}
}
