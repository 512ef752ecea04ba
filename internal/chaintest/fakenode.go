// Package chaintest provides an in-process fake Stacks node for tests.
package chaintest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"clickship/internal/clarity"
)

// ReadOnlyFunc produces the Clarity result for a simulated read-only call.
// Returning an error yields an okay:false node response.
type ReadOnlyFunc func(args []clarity.Value) (clarity.Value, error)

// FakeNode serves the two node endpoints the service consumes: /v2/info and
// /v2/contracts/call-read. Read-only functions are registered by name.
type FakeNode struct {
	Server *httptest.Server

	mu        sync.Mutex
	burnBlock uint64
	funcs     map[string]ReadOnlyFunc
	calls     map[string]int
	failAll   bool
}

// NewFakeNode starts a fake node at the given burn block height.
func NewFakeNode(burnBlock uint64) *FakeNode {
	n := &FakeNode{
		burnBlock: burnBlock,
		funcs:     make(map[string]ReadOnlyFunc),
		calls:     make(map[string]int),
	}
	n.Server = httptest.NewServer(http.HandlerFunc(n.handle))
	return n
}

// URL returns the fake node base URL.
func (n *FakeNode) URL() string { return n.Server.URL }

// Close shuts the fake node down.
func (n *FakeNode) Close() { n.Server.Close() }

// Handle registers a read-only function by name.
func (n *FakeNode) Handle(fn string, handler ReadOnlyFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.funcs[fn] = handler
}

// HandleValue registers a read-only function returning a fixed value.
func (n *FakeNode) HandleValue(fn string, value clarity.Value) {
	n.Handle(fn, func([]clarity.Value) (clarity.Value, error) {
		return value, nil
	})
}

// Calls reports how many times a function was invoked.
func (n *FakeNode) Calls(fn string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[fn]
}

// SetBurnBlock updates the advertised burn block height.
func (n *FakeNode) SetBurnBlock(height uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.burnBlock = height
}

// FailAll makes every endpoint respond 500, simulating an unreachable node.
func (n *FakeNode) FailAll(fail bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failAll = fail
}

func (n *FakeNode) handle(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	failAll := n.failAll
	n.mu.Unlock()
	if failAll {
		http.Error(w, "node down", http.StatusInternalServerError)
		return
	}

	switch {
	case r.URL.Path == "/v2/info":
		n.mu.Lock()
		height := n.burnBlock
		n.mu.Unlock()
		writeJSON(w, map[string]interface{}{
			"burn_block_height": height,
			"stacks_tip_height": height + 100,
			"network_id":        1,
			"server_version":    "fake-node",
		})
	case strings.HasPrefix(r.URL.Path, "/v2/contracts/call-read/"):
		n.handleCallRead(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (n *FakeNode) handleCallRead(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v2/contracts/call-read/"), "/")
	if len(parts) != 3 {
		http.Error(w, "bad call-read path", http.StatusBadRequest)
		return
	}
	fn := parts[2]

	var body struct {
		Sender    string   `json:"sender"`
		Arguments []string `json:"arguments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	args := make([]clarity.Value, 0, len(body.Arguments))
	for _, raw := range body.Arguments {
		value, err := clarity.DecodeHex(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		args = append(args, value)
	}

	n.mu.Lock()
	handler, ok := n.funcs[fn]
	n.calls[fn]++
	n.mu.Unlock()

	if !ok {
		writeJSON(w, map[string]interface{}{"okay": false, "cause": fmt.Sprintf("unknown function %s", fn)})
		return
	}

	result, err := handler(args)
	if err != nil {
		writeJSON(w, map[string]interface{}{"okay": false, "cause": err.Error()})
		return
	}

	encoded, err := clarity.EncodeHex(result)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"okay": true, "result": encoded})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
