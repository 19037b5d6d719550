package app

import (
	"context"
	"time"
)

// defaultStatusInterval paces the connection indicator. Latency and score
// change on every pong, which publishes no event.
const defaultStatusInterval = 2 * time.Second

// runPoller calls fn at a fixed cadence until ctx is done.
func runPoller(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		interval = defaultStatusInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
