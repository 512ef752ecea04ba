// Package chainhook registers contract-call predicates against a
// chainhook node so its webhook deliveries reach the server.
package chainhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Predicate is a stacks contract-call predicate with an HTTP delivery
// action.
type Predicate struct {
	UUID     string             `json:"uuid"`
	Name     string             `json:"name"`
	Version  int                `json:"version"`
	Chain    string             `json:"chain"`
	Networks map[string]Network `json:"networks"`
}

// Network binds a trigger to a delivery for one network.
type Network struct {
	IfThis   IfThis   `json:"if_this"`
	ThenThat ThenThat `json:"then_that"`
}

// IfThis selects matching contract calls.
type IfThis struct {
	Scope              string `json:"scope"`
	ContractIdentifier string `json:"contract_identifier"`
	Method             string `json:"method"`
}

// ThenThat delivers matches over HTTP.
type ThenThat struct {
	HTTPPost HTTPPost `json:"http_post"`
}

// HTTPPost is the webhook delivery target.
type HTTPPost struct {
	URL                 string `json:"url"`
	AuthorizationHeader string `json:"authorization_header,omitempty"`
}

// NewGmPredicate builds a mainnet predicate for one contract method with a
// locally generated UUID.
func NewGmPredicate(contractID, method, webhookURL, token string) Predicate {
	auth := ""
	if token != "" {
		auth = "Bearer " + token
	}
	return Predicate{
		UUID:    uuid.New().String(),
		Name:    "GM Unlimited Monitor",
		Version: 1,
		Chain:   "stacks",
		Networks: map[string]Network{
			"mainnet": {
				IfThis: IfThis{
					Scope:              "contract_call",
					ContractIdentifier: contractID,
					Method:             method,
				},
				ThenThat: ThenThat{
					HTTPPost: HTTPPost{URL: webhookURL, AuthorizationHeader: auth},
				},
			},
		},
	}
}

// Client talks to a chainhook node's predicate API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a chainhook client for the node base URL.
func NewClient(baseURL, apiKey string, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("chainhook url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}, nil
}

type listResponse struct {
	Results []struct {
		UUID string `json:"uuid"`
	} `json:"results"`
}

// List returns the UUIDs of every registered predicate.
func (c *Client) List(ctx context.Context) ([]string, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/chainhooks", nil)
	if err != nil {
		return nil, err
	}
	var out listResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode predicate list: %w", err)
	}
	uuids := make([]string, 0, len(out.Results))
	for _, result := range out.Results {
		uuids = append(uuids, result.UUID)
	}
	return uuids, nil
}

// Register submits a predicate.
func (c *Client) Register(ctx context.Context, predicate Predicate) error {
	payload, err := json.Marshal(predicate)
	if err != nil {
		return fmt.Errorf("marshal predicate: %w", err)
	}
	if _, err := c.do(ctx, http.MethodPost, "/v1/chainhooks", payload); err != nil {
		return err
	}
	c.logger.Info("predicate registered", zap.String("uuid", predicate.UUID))
	return nil
}

// Delete removes a predicate by UUID.
func (c *Client) Delete(ctx context.Context, predicateUUID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/chainhooks/stacks/"+predicateUUID, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}
	return body, nil
}
