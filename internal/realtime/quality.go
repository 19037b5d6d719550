package realtime

import "time"

const latencyWindow = 10

// Quality is the transport's running view of connection health. Only the
// transport mutates it; Status hands out copies.
type Quality struct {
	Score             int
	Latencies         []time.Duration
	Disconnects       int
	ReconnectSuccess  int
	ReconnectFailures int
}

// Label maps the score to good, fair or poor.
func (q Quality) Label() string {
	switch {
	case q.Score >= 80:
		return "good"
	case q.Score >= 50:
		return "fair"
	default:
		return "poor"
	}
}

// AverageLatency is the mean of the recorded round trips, or 0.
func (q Quality) AverageLatency() time.Duration {
	if len(q.Latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, l := range q.Latencies {
		sum += l
	}
	return sum / time.Duration(len(q.Latencies))
}

func newQuality() Quality {
	return Quality{Score: 100}
}

func (q *Quality) recordLatency(d time.Duration) {
	if d < 0 {
		d = 0
	}
	q.Latencies = append(q.Latencies, d)
	if len(q.Latencies) > latencyWindow {
		q.Latencies = q.Latencies[len(q.Latencies)-latencyWindow:]
	}
	q.rescore()
}

func (q *Quality) recordDisconnect() {
	q.Disconnects++
	q.rescore()
}

func (q *Quality) recordReconnect(ok bool) {
	if ok {
		q.ReconnectSuccess++
	} else {
		q.ReconnectFailures++
	}
	q.rescore()
}

func (q *Quality) rescore() {
	score := 100
	switch avg := q.AverageLatency(); {
	case avg > time.Second:
		score -= 30
	case avg > 500*time.Millisecond:
		score -= 15
	case avg > 200*time.Millisecond:
		score -= 5
	}
	score -= min(30, q.Disconnects*10)
	score -= min(20, q.ReconnectFailures*5)
	q.Score = max(0, min(100, score))
}

func (q Quality) clone() Quality {
	out := q
	out.Latencies = append([]time.Duration(nil), q.Latencies...)
	return out
}
