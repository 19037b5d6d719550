package realtime

import (
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	outboxCap        = 100
	outboxTTL        = 5 * time.Minute
	outboxAttempts   = 3
	outboxRetryDelay = 100 * time.Millisecond
)

type outboxEntry struct {
	id       string
	payload  []byte
	queued   time.Time
	attempts int
}

// outbox is a capped FIFO of messages waiting for an open connection. It
// is not safe for concurrent use; the transport guards it.
type outbox struct {
	entries []outboxEntry
}

// push appends payload, dropping the oldest entry when full. It reports
// whether an entry was dropped.
func (o *outbox) push(payload []byte, now time.Time) bool {
	dropped := false
	if len(o.entries) >= outboxCap {
		log.Printf("realtime: outbox full, dropping %s", o.entries[0].id)
		o.entries = o.entries[1:]
		dropped = true
	}
	o.entries = append(o.entries, outboxEntry{id: uuid.NewString(), payload: payload, queued: now})
	return dropped
}

func (o *outbox) len() int { return len(o.entries) }

// take removes and returns every entry still within its TTL and attempt
// budget, in FIFO order, plus how many were expired.
func (o *outbox) take(now time.Time) ([]outboxEntry, int) {
	live := make([]outboxEntry, 0, len(o.entries))
	expired := 0
	for _, e := range o.entries {
		if now.Sub(e.queued) > outboxTTL || e.attempts >= outboxAttempts {
			log.Printf("realtime: discarding queued message %s after %d attempts", e.id, e.attempts)
			expired++
			continue
		}
		live = append(live, e)
	}
	o.entries = nil
	return live, expired
}

// requeue puts entries back at the front, preserving order.
func (o *outbox) requeue(entries []outboxEntry) {
	if len(entries) == 0 {
		return
	}
	o.entries = append(append([]outboxEntry(nil), entries...), o.entries...)
	if len(o.entries) > outboxCap {
		o.entries = o.entries[len(o.entries)-outboxCap:]
	}
}
