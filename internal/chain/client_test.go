package chain_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"clickship/internal/chain"
	"clickship/internal/chaintest"
	"clickship/internal/clarity"
)

func newClient(t *testing.T, nodeURL string) *chain.Client {
	t.Helper()
	client, err := chain.NewClient(chain.ClientConfig{
		NodeURL:      nodeURL,
		MaxRetries:   0,
		RetryBackoff: time.Millisecond,
		InfoTTL:      time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCallReadOnly(t *testing.T) {
	node := chaintest.NewFakeNode(1000)
	defer node.Close()

	node.Handle("get-user-total-gms", func(args []clarity.Value) (clarity.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("want 1 arg, got %d", len(args))
		}
		principal, ok := args[0].(clarity.Principal)
		if !ok || principal.Address != chain.DefaultSender {
			return nil, fmt.Errorf("unexpected arg %v", args[0])
		}
		return clarity.OK{Inner: clarity.Uint(42)}, nil
	})

	client := newClient(t, node.URL())
	contract := chain.Contract{Address: chain.DefaultSender, Name: "gm-unlimited"}

	result, err := client.CallReadOnly(context.Background(), contract, "get-user-total-gms", "",
		clarity.Principal{Address: chain.DefaultSender})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := clarity.UintOf(result); got != 42 {
		t.Fatalf("result mismatch: %d", got)
	}
}

func TestCallReadOnlyRejected(t *testing.T) {
	node := chaintest.NewFakeNode(1000)
	defer node.Close()

	client := newClient(t, node.URL())
	contract := chain.Contract{Address: chain.DefaultSender, Name: "gm-unlimited"}

	if _, err := client.CallReadOnly(context.Background(), contract, "no-such-fn", ""); err == nil {
		t.Fatalf("expected error for unknown function")
	}
}

func TestCallReadOnlyRetries(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"okay":true,"result":"0x010000000000000000000000000000002a"}`)
	}))
	defer server.Close()

	client, err := chain.NewClient(chain.ClientConfig{
		NodeURL:      server.URL,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	contract := chain.Contract{Address: chain.DefaultSender, Name: "gm-unlimited"}
	result, err := client.CallReadOnly(context.Background(), contract, "get-total-gms-alltime", "")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := clarity.UintOf(result); got != 42 {
		t.Fatalf("result mismatch: %d", got)
	}
	if attempts.Load() != 3 {
		t.Fatalf("attempts mismatch: %d", attempts.Load())
	}
}

func TestCurrentBlock(t *testing.T) {
	node := chaintest.NewFakeNode(4242)
	defer node.Close()

	client := newClient(t, node.URL())
	if got := client.CurrentBlock(context.Background()); got != 4242 {
		t.Fatalf("current block mismatch: %d", got)
	}
}

func TestCurrentBlockUnreachable(t *testing.T) {
	node := chaintest.NewFakeNode(4242)
	node.FailAll(true)
	defer node.Close()

	client := newClient(t, node.URL())
	if got := client.CurrentBlock(context.Background()); got != 0 {
		t.Fatalf("unreachable node should report 0, got %d", got)
	}
}

func TestInfoCache(t *testing.T) {
	node := chaintest.NewFakeNode(100)
	defer node.Close()

	client, err := chain.NewClient(chain.ClientConfig{
		NodeURL: node.URL(),
		InfoTTL: time.Hour,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	first := client.CurrentBlock(context.Background())
	node.SetBurnBlock(200)
	second := client.CurrentBlock(context.Background())
	if first != 100 || second != 100 {
		t.Fatalf("info cache not honored: %d %d", first, second)
	}
}

func TestParseContract(t *testing.T) {
	contract, err := chain.ParseContract(chain.DefaultSender + ".gm-unlimited")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if contract.Name != "gm-unlimited" || contract.Address != chain.DefaultSender {
		t.Fatalf("parse mismatch: %+v", contract)
	}
	if _, err := chain.ParseContract("missing-dot"); err == nil {
		t.Fatalf("expected error without contract name")
	}
	if _, err := chain.ParseContract("BADADDR.name"); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}
