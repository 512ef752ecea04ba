package aggregate

import (
	"testing"
	"time"
)

func TestFormatTimeAgo(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cases := []struct {
		name         string
		timestamp    uint64
		currentBlock uint64
		eventBlock   uint64
		want         string
	}{
		{"seconds", uint64(now.Unix()) - 30, 0, 0, "30s ago"},
		{"minutes", uint64(now.Unix()) - 150, 0, 0, "2m ago"},
		{"hours", uint64(now.Unix()) - 7300, 0, 0, "2h ago"},
		{"future clamps to zero", uint64(now.Unix()) + 60, 0, 0, "0s ago"},
		{"block delta", 0, 120, 105, "15 blocks ago"},
		{"single block", 0, 101, 100, "1 block ago"},
		{"same block", 0, 100, 100, "0 blocks ago"},
		{"no signal", 0, 0, 50, ""},
		{"event ahead of tip", 0, 100, 200, ""},
	}
	for _, tc := range cases {
		if got := formatTimeAgo(now, tc.timestamp, tc.currentBlock, tc.eventBlock); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}
