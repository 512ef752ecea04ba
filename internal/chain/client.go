package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"clickship/internal/clarity"
)

// DefaultSender is the burn address, used to simulate read-only calls when
// no wallet address is configured.
const DefaultSender = "SP000000000000000000002Q6VF78"

// Contract identifies a deployed Clarity contract.
type Contract struct {
	Address string
	Name    string
}

func (c Contract) String() string {
	return c.Address + "." + c.Name
}

// ParseContract splits an ADDR.name contract identifier.
func ParseContract(id string) (Contract, error) {
	addr, name, ok := strings.Cut(strings.TrimSpace(id), ".")
	if !ok || name == "" {
		return Contract{}, fmt.Errorf("invalid contract identifier: %s", id)
	}
	if _, _, err := clarity.DecodeAddress(addr); err != nil {
		return Contract{}, fmt.Errorf("invalid contract address: %w", err)
	}
	return Contract{Address: addr, Name: name}, nil
}

// NodeInfo is the subset of /v2/info this service reads.
type NodeInfo struct {
	BurnBlockHeight uint64 `json:"burn_block_height"`
	StacksTipHeight uint64 `json:"stacks_tip_height"`
	NetworkID       uint64 `json:"network_id"`
	ServerVersion   string `json:"server_version"`
}

// ClientConfig holds chain client settings.
type ClientConfig struct {
	NodeURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	InfoTTL      time.Duration
}

// Client wraps the Stacks node REST API: read-only contract calls and the
// node info endpoint used as the current-block oracle.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     *zap.Logger

	mu     sync.RWMutex
	info   NodeInfo
	infoAt time.Time
}

// NewClient builds a chain client for the node base URL.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.NodeURL == "" {
		return nil, fmt.Errorf("node url is required")
	}
	if _, err := url.Parse(cfg.NodeURL); err != nil {
		return nil, fmt.Errorf("invalid node url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 250 * time.Millisecond
	}
	if cfg.InfoTTL <= 0 {
		cfg.InfoTTL = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// Info fetches /v2/info, serving a short-lived cache to keep block-height
// reads to one network call per aggregator invocation.
func (c *Client) Info(ctx context.Context) (NodeInfo, error) {
	c.mu.RLock()
	if !c.infoAt.IsZero() && time.Since(c.infoAt) < c.cfg.InfoTTL {
		info := c.info
		c.mu.RUnlock()
		return info, nil
	}
	c.mu.RUnlock()

	var info NodeInfo
	err := withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, func(ctx context.Context) error {
		return c.getJSON(ctx, "/v2/info", &info)
	})
	if err != nil {
		return NodeInfo{}, err
	}

	c.mu.Lock()
	c.info = info
	c.infoAt = time.Now()
	c.mu.Unlock()

	return info, nil
}

// CurrentBlock returns the burn block height, or 0 when the node is
// unreachable. Callers treat 0 as "unknown"; duration math then degrades
// conservatively instead of failing.
func (c *Client) CurrentBlock(ctx context.Context) uint64 {
	info, err := c.Info(ctx)
	if err != nil {
		c.logger.Warn("current block fetch failed", zap.Error(err))
		return 0
	}
	return info.BurnBlockHeight
}

type callReadRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

type callReadResponse struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result"`
	Cause  string `json:"cause"`
}

// CallReadOnly simulates a read-only contract function and decodes the
// returned Clarity value. The sender is only used for call simulation.
func (c *Client) CallReadOnly(ctx context.Context, contract Contract, fn string, sender string, args ...clarity.Value) (clarity.Value, error) {
	if sender == "" {
		sender = DefaultSender
	}

	encoded := make([]string, 0, len(args))
	for _, arg := range args {
		hexArg, err := clarity.EncodeHex(arg)
		if err != nil {
			return nil, fmt.Errorf("encode argument: %w", err)
		}
		encoded = append(encoded, hexArg)
	}

	body, err := json.Marshal(callReadRequest{Sender: sender, Arguments: encoded})
	if err != nil {
		return nil, fmt.Errorf("marshal call body: %w", err)
	}

	path := fmt.Sprintf("/v2/contracts/call-read/%s/%s/%s", contract.Address, contract.Name, fn)

	var resp callReadResponse
	err = withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, func(ctx context.Context) error {
		return c.postJSON(ctx, path, body, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", contract.Name, fn, err)
	}
	if !resp.Okay {
		return nil, fmt.Errorf("call %s.%s rejected: %s", contract.Name, fn, resp.Cause)
	}

	value, err := clarity.DecodeHex(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("decode %s.%s result: %w", contract.Name, fn, err)
	}
	return value, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.NodeURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.doJSON(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.NodeURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
