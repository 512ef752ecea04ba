package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"clickship/internal/clarity"
)

// StatsCache reads the external cached-stats endpoint used as the GM
// fast path. The endpoint refreshes on its own schedule (~30s TTL) and
// answers plain unauthenticated GET.
type StatsCache struct {
	url        string
	httpClient *http.Client
}

// NewStatsCache builds a client for the cache endpoint URL.
func NewStatsCache(url string, timeout time.Duration) *StatsCache {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StatsCache{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the cached today/total GM counts. Payload keys vary across
// deployments (today/total vs todayGm/totalGm), so values are coerced.
func (c *StatsCache) Fetch(ctx context.Context) (today, total uint64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, 0, fmt.Errorf("stats cache: status %d", resp.StatusCode)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, fmt.Errorf("decode stats cache payload: %w", err)
	}

	todayRaw, todayOK := firstKey(payload, "today", "todayGm", "today_gm")
	totalRaw, totalOK := firstKey(payload, "total", "totalGm", "total_gm")
	if !todayOK && !totalOK {
		return 0, 0, fmt.Errorf("stats cache payload has no count fields")
	}

	return clarity.CoerceUint(todayRaw), clarity.CoerceUint(totalRaw), nil
}

func firstKey(payload map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, key := range keys {
		if v, ok := payload[key]; ok {
			return v, true
		}
	}
	return nil, false
}
