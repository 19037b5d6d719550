package realtime

import (
	"math"
	"math/rand"
	"time"
)

const (
	reconnectBase       = time.Second
	reconnectMultiplier = 1.5
	reconnectCap        = 30 * time.Second
	reconnectJitter     = 0.2
	reconnectFloor      = time.Second

	// MaxReconnectAttempts is how many automatic reconnects happen before
	// the transport gives up and waits for Reconnect.
	MaxReconnectAttempts = 10
)

// ReconnectDelay returns the wait before reconnect attempt n (1-based).
// rnd returns a value in [0, 1); nil uses math/rand. The result lies in
// [raw*0.8, min(cap, raw)*1.2] where raw = base*1.5^(n-1), and never
// drops below one second.
func ReconnectDelay(attempt int, rnd func() float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if rnd == nil {
		rnd = rand.Float64
	}

	raw := float64(reconnectBase) * math.Pow(reconnectMultiplier, float64(attempt-1))
	capped := math.Min(raw, float64(reconnectCap))

	j := (rnd()*2 - 1) * reconnectJitter
	delay := capped * (1 + j)

	lower := math.Min(raw*(1-reconnectJitter), capped*(1+reconnectJitter))
	if delay < lower {
		delay = lower
	}
	if delay < float64(reconnectFloor) {
		delay = float64(reconnectFloor)
	}
	return time.Duration(delay)
}
