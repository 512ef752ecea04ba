package aggregate

import (
	"fmt"
	"time"
)

// formatTimeAgo renders how long ago an event happened. An embedded event
// timestamp is preferred; without one the burn-block delta is used, and with
// no usable signal the result is "".
func formatTimeAgo(now time.Time, timestamp uint64, currentBlock, eventBlock uint64) string {
	if timestamp > 0 {
		delta := now.Sub(time.Unix(int64(timestamp), 0))
		if delta < 0 {
			delta = 0
		}
		switch {
		case delta < time.Minute:
			return fmt.Sprintf("%ds ago", int(delta.Seconds()))
		case delta < time.Hour:
			return fmt.Sprintf("%dm ago", int(delta.Minutes()))
		default:
			return fmt.Sprintf("%dh ago", int(delta.Hours()))
		}
	}

	if currentBlock > 0 && eventBlock > 0 && currentBlock >= eventBlock {
		blocks := currentBlock - eventBlock
		if blocks == 1 {
			return "1 block ago"
		}
		return fmt.Sprintf("%d blocks ago", blocks)
	}
	return ""
}
