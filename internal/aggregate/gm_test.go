package aggregate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clickship/internal/aggregate"
	"clickship/internal/chaintest"
	"clickship/internal/clarity"
)

// testPrincipal derives a distinct valid mainnet address from a seed byte.
func testPrincipal(t *testing.T, seed byte) string {
	t.Helper()
	hash := make([]byte, 20)
	hash[19] = seed
	addr, err := clarity.EncodeAddress(22, hash)
	if err != nil {
		t.Fatalf("encode address: %v", err)
	}
	return addr
}

func TestFetchCountsNoWallet(t *testing.T) {
	node := chaintest.NewFakeNode(100)
	defer node.Close()
	node.HandleValue("get-daily-gm-count", clarity.Uint(3))
	node.HandleValue("get-total-gms-alltime", clarity.Uint(42))

	agg := aggregate.NewGmAggregator(aggregate.Config{Contracts: testContracts()}, testClient(t, node), nil, nil)
	counts, err := agg.FetchCounts(context.Background(), "")
	if err != nil {
		t.Fatalf("fetch counts: %v", err)
	}
	if counts.Today == nil || *counts.Today != 3 {
		t.Fatalf("today mismatch: %v", counts.Today)
	}
	if counts.Total == nil || *counts.Total != 42 {
		t.Fatalf("total mismatch: %v", counts.Total)
	}
	if counts.User != nil {
		t.Fatalf("user must stay nil without a wallet, got %d", *counts.User)
	}
	if counts.Source != "contract" {
		t.Fatalf("source mismatch: %q", counts.Source)
	}
	if node.Calls("get-user-total-gms") != 0 {
		t.Fatalf("user counter read without a wallet")
	}
}

func TestFetchCountsCacheFastPath(t *testing.T) {
	stats := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"todayGm": 7, "totalGm": "99"}`))
	}))
	defer stats.Close()

	node := chaintest.NewFakeNode(100)
	defer node.Close()
	node.HandleValue("get-user-total-gms", clarity.Uint(5))

	user := testPrincipal(t, 1)
	cache := aggregate.NewStatsCache(stats.URL, time.Second)
	agg := aggregate.NewGmAggregator(aggregate.Config{Contracts: testContracts()}, testClient(t, node), cache, nil)

	counts, err := agg.FetchCounts(context.Background(), user)
	if err != nil {
		t.Fatalf("fetch counts: %v", err)
	}
	if counts.Source != "cache" {
		t.Fatalf("expected cache source, got %q", counts.Source)
	}
	if counts.Today == nil || *counts.Today != 7 || counts.Total == nil || *counts.Total != 99 {
		t.Fatalf("cached figures mismatch: %+v", counts)
	}
	// The personal counter stays a live contract read even on the fast path.
	if counts.User == nil || *counts.User != 5 {
		t.Fatalf("user counter mismatch: %v", counts.User)
	}
	if node.Calls("get-daily-gm-count") != 0 {
		t.Fatalf("contract counters read despite cache hit")
	}
}

func TestFetchCountsCacheFallback(t *testing.T) {
	stats := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer stats.Close()

	node := chaintest.NewFakeNode(100)
	defer node.Close()
	node.HandleValue("get-daily-gm-count", clarity.Uint(1))
	node.HandleValue("get-total-gms-alltime", clarity.Uint(2))

	cache := aggregate.NewStatsCache(stats.URL, time.Second)
	agg := aggregate.NewGmAggregator(aggregate.Config{Contracts: testContracts()}, testClient(t, node), cache, nil)

	counts, err := agg.FetchCounts(context.Background(), "")
	if err != nil {
		t.Fatalf("fetch counts: %v", err)
	}
	if counts.Source != "contract" {
		t.Fatalf("expected contract fallback, got %q", counts.Source)
	}
	if counts.Today == nil || *counts.Today != 1 || counts.Total == nil || *counts.Total != 2 {
		t.Fatalf("fallback figures mismatch: %+v", counts)
	}
}

func TestFetchLastAndLeaderboard(t *testing.T) {
	addrA := testPrincipal(t, 0xa1)
	addrB := testPrincipal(t, 0xb2)
	addrC := testPrincipal(t, 0xc3)

	// Newest first by id: 5=A 4=A 3=B 2=C 1=A.
	senders := map[uint64]string{5: addrA, 4: addrA, 3: addrB, 2: addrC, 1: addrA}
	totals := map[string]uint64{addrA: 10, addrB: 7, addrC: 2}

	node := chaintest.NewFakeNode(120)
	defer node.Close()
	node.HandleValue("get-total-gms-alltime", clarity.Uint(5))
	node.Handle("get-gm-by-id", func(args []clarity.Value) (clarity.Value, error) {
		id := clarity.UintOf(args[0])
		return clarity.Some{Inner: clarity.Tuple{
			"user":         clarity.Principal{Address: senders[id]},
			"block-height": clarity.Uint(100 + id),
			"timestamp":    clarity.Uint(0),
		}}, nil
	})
	node.Handle("get-user-total-gms", func(args []clarity.Value) (clarity.Value, error) {
		principal, _ := args[0].(clarity.Principal)
		return clarity.Uint(totals[principal.Address]), nil
	})

	agg := aggregate.NewGmAggregator(aggregate.Config{Contracts: testContracts()}, testClient(t, node), nil, nil)
	last, ago, leaderboard, err := agg.FetchLastAndLeaderboard(context.Background(), "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if last == nil || last.User != addrA || last.BlockHeight != 105 {
		t.Fatalf("last gm mismatch: %+v", last)
	}
	// Block 120 vs event block 105 with no usable timestamp.
	if ago != "15 blocks ago" {
		t.Fatalf("relative time mismatch: %q", ago)
	}
	if len(leaderboard) != 3 {
		t.Fatalf("leaderboard size mismatch: %+v", leaderboard)
	}
	want := []struct {
		user  string
		total uint64
	}{{addrA, 10}, {addrB, 7}, {addrC, 2}}
	for i, w := range want {
		if leaderboard[i].User != w.user || leaderboard[i].Total != w.total {
			t.Fatalf("leaderboard[%d] mismatch: %+v", i, leaderboard[i])
		}
	}
}

func TestFetchLastAndLeaderboardEmpty(t *testing.T) {
	node := chaintest.NewFakeNode(100)
	defer node.Close()
	node.HandleValue("get-total-gms-alltime", clarity.Uint(0))

	agg := aggregate.NewGmAggregator(aggregate.Config{Contracts: testContracts()}, testClient(t, node), nil, nil)
	last, _, leaderboard, err := agg.FetchLastAndLeaderboard(context.Background(), "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if last != nil || len(leaderboard) != 0 {
		t.Fatalf("expected empty result: last=%+v leaderboard=%+v", last, leaderboard)
	}
	if node.Calls("get-gm-by-id") != 0 {
		t.Fatalf("window reads issued for an empty log")
	}
}
