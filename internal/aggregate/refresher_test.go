package aggregate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clickship/internal/chain"
	"clickship/internal/chaintest"
	"clickship/internal/clarity"
)

func refresherFixture(t *testing.T, node *chaintest.FakeNode) *Refresher {
	t.Helper()
	client, err := chain.NewClient(chain.ClientConfig{
		NodeURL:      node.URL(),
		Timeout:      5 * time.Second,
		RetryBackoff: time.Millisecond,
		InfoTTL:      time.Nanosecond,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cfg := Config{Contracts: Contracts{
		Gm:       chain.Contract{Address: "SP000000000000000000002Q6VF78", Name: "gm-unlimited"},
		Messages: chain.Contract{Address: "SP000000000000000000002Q6VF78", Name: "post-message"},
		Voting:   chain.Contract{Address: "SP000000000000000000002Q6VF78", Name: "voting"},
	}}
	return NewRefresher(
		RefresherConfig{KickDelay: time.Millisecond},
		NewGmAggregator(cfg, client, nil, nil),
		NewMessageAggregator(cfg, client, nil),
		NewPollAggregator(cfg, client, nil),
		nil,
	)
}

func TestRefreshGmLatestRequestWins(t *testing.T) {
	node := chaintest.NewFakeNode(100)
	defer node.Close()

	// The first daily-count read blocks; later reads answer immediately with
	// a different figure so the two in-flight refreshes can be told apart.
	gate := make(chan struct{})
	var first atomic.Bool
	first.Store(true)
	node.Handle("get-daily-gm-count", func([]clarity.Value) (clarity.Value, error) {
		if first.CompareAndSwap(true, false) {
			<-gate
			return clarity.Uint(100), nil
		}
		return clarity.Uint(2), nil
	})
	node.HandleValue("get-total-gms-alltime", clarity.Uint(0))

	r := refresherFixture(t, node)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.RefreshGm(context.Background())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for node.Calls("get-daily-gm-count") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stale refresh never started")
		}
		time.Sleep(time.Millisecond)
	}

	// A newer refresh completes while the older one is still in flight.
	r.RefreshGm(context.Background())
	close(gate)
	wg.Wait()

	snap := r.Snapshot()
	if snap.Gm == nil || snap.Gm.Today == nil {
		t.Fatalf("snapshot not published: %+v", snap.Gm)
	}
	if *snap.Gm.Today != 2 {
		t.Fatalf("stale refresh overwrote the newer snapshot: today=%d", *snap.Gm.Today)
	}
}

func TestKickAfterRefreshes(t *testing.T) {
	node := chaintest.NewFakeNode(100)
	defer node.Close()
	node.HandleValue("get-daily-gm-count", clarity.Uint(9))
	node.HandleValue("get-total-gms-alltime", clarity.Uint(0))

	r := refresherFixture(t, node)
	r.KickAfter()

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := r.Snapshot()
		if snap.Gm != nil && snap.Gm.Today != nil && *snap.Gm.Today == 9 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("kick never refreshed the snapshot")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	node := chaintest.NewFakeNode(100)
	defer node.Close()
	node.HandleValue("get-daily-gm-count", clarity.Uint(4))
	node.HandleValue("get-total-gms-alltime", clarity.Uint(0))

	r := refresherFixture(t, node)
	r.RefreshGm(context.Background())
	if snap := r.Snapshot(); snap.Gm == nil || *snap.Gm.Today != 4 {
		t.Fatalf("initial refresh missing: %+v", r.Snapshot().Gm)
	}

	node.FailAll(true)
	r.RefreshGm(context.Background())
	if snap := r.Snapshot(); snap.Gm == nil || *snap.Gm.Today != 4 {
		t.Fatalf("failed refresh must keep the previous section: %+v", r.Snapshot().Gm)
	}
}
